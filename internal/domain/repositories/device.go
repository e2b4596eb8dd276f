package repositories

import (
	"context"
	"errors"

	"inkmirror-ai/internal/domain/models"
)

var ErrDeviceNotFound = errors.New("device not found")

type DeviceRepository interface {
	Get(ctx context.Context, userID string) (*models.Device, error)
	Create(ctx context.Context, device *models.Device) error
	Delete(ctx context.Context, userID string) error
}
