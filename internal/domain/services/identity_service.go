package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"inkmirror-ai/internal/domain/models"
	"inkmirror-ai/internal/domain/repositories"
)

// IdentityService mints and retires the stable anonymous identity a
// device carries for its whole lifetime.
type IdentityService interface {
	Register(ctx context.Context, platform string) (*RegisterResponse, error)
	Authenticate(ctx context.Context, tokenString string) (*TokenClaims, error)
	Wipe(ctx context.Context, userID string) error
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type identityService struct {
	devices repositories.DeviceRepository
	ledgers repositories.LedgerRepository
	remote  repositories.RemoteLedgerStore
	tokens  TokenService
	logger  *slog.Logger
}

func NewIdentityService(devices repositories.DeviceRepository, ledgers repositories.LedgerRepository, remote repositories.RemoteLedgerStore, tokens TokenService, logger *slog.Logger) IdentityService {
	return &identityService{
		devices: devices,
		ledgers: ledgers,
		remote:  remote,
		tokens:  tokens,
		logger:  logger,
	}
}

func (s *identityService) Register(ctx context.Context, platform string) (*RegisterResponse, error) {
	now := time.Now().UTC()
	device := &models.Device{
		UserID:    uuid.NewString(),
		Platform:  platform,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.devices.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}

	token, err := s.tokens.GenerateToken(device.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue device token: %w", err)
	}

	return &RegisterResponse{
		UserID: device.UserID,
		Token:  token,
	}, nil
}

// Authenticate validates the signed token and confirms the device still
// exists. A token issued before a wipe stays cryptographically valid, but
// the identity behind it is gone; treating it as unauthenticated makes the
// client re-register instead of hitting the orphaned-ledger path.
func (s *identityService) Authenticate(ctx context.Context, tokenString string) (*TokenClaims, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if _, err := s.devices.Get(ctx, claims.UserID); err != nil {
		return nil, fmt.Errorf("unknown device: %w", err)
	}

	return claims, nil
}

// Wipe is the user-initiated data deletion: the device row, its ledger,
// and the remote record all go. Remote failure does not block the local
// wipe.
func (s *identityService) Wipe(ctx context.Context, userID string) error {
	if err := s.ledgers.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete ledger: %w", err)
	}

	if err := s.devices.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	if err := s.remote.Delete(ctx, userID); err != nil {
		s.logger.Warn("failed to delete remote ledger record",
			"error", err, "user_id", userID)
	}

	return nil
}
