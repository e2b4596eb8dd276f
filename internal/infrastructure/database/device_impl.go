package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inkmirror-ai/internal/domain/models"
	"inkmirror-ai/internal/domain/repositories"
)

type deviceRepository struct {
	db *PostgresDB
}

func NewDeviceRepository(db *PostgresDB) repositories.DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) Get(ctx context.Context, userID string) (*models.Device, error) {
	var device models.Device
	query := `SELECT user_id, platform, created_at, updated_at FROM devices WHERE user_id = $1`

	err := r.db.GetContext(ctx, &device, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return &device, nil
}

func (r *deviceRepository) Create(ctx context.Context, device *models.Device) error {
	query := `INSERT INTO devices (user_id, platform, created_at, updated_at)
	          VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, device.UserID, device.Platform,
		device.CreatedAt, device.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}

	return nil
}

func (r *deviceRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return repositories.ErrDeviceNotFound
	}

	return nil
}
