package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrInsufficientCredits is the only user-visible failure of the gate.
// Callers surface an upgrade prompt, not an error dialog.
var ErrInsufficientCredits = errors.New("insufficient credits")

type GenerationTool string

const (
	ToolTryOn     GenerationTool = "try_on"
	ToolGenerator GenerationTool = "generator"
	ToolRemoval   GenerationTool = "removal"
	ToolCoverUp   GenerationTool = "cover_up"
	ToolAging     GenerationTool = "aging"
)

type GenerationRequest struct {
	Tool     GenerationTool `json:"tool" validate:"required"`
	Prompt   string         `json:"prompt" validate:"required"`
	ImageURL string         `json:"image_url"`
}

type GenerationResponse struct {
	ImageURL         string `json:"image_url"`
	RemainingCredits int    `json:"remaining_credits"`
}

// ImageClient is the external image-edit API. The gate only cares that a
// call succeeds or fails.
type ImageClient interface {
	Generate(ctx context.Context, req *GenerationRequest) (string, error)
}

type GenerationService interface {
	Generate(ctx context.Context, userID string, req *GenerationRequest) (*GenerationResponse, error)
}

type generationService struct {
	ledgers LedgerService
	images  ImageClient
	logger  *slog.Logger
}

func NewGenerationService(ledgers LedgerService, images ImageClient, logger *slog.Logger) GenerationService {
	return &generationService{
		ledgers: ledgers,
		images:  images,
		logger:  logger,
	}
}

// Generate charges one credit, then calls the external API. The charge
// comes first: a failed generation still costs the credit.
func (s *generationService) Generate(ctx context.Context, userID string, req *GenerationRequest) (*GenerationResponse, error) {
	allowed, err := s.ledgers.CanGenerate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrInsufficientCredits
	}

	result, err := s.ledgers.ConsumeCredit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, ErrInsufficientCredits
	}

	imageURL, err := s.images.Generate(ctx, req)
	if err != nil {
		s.logger.Error("image generation failed after credit charge",
			"error", err, "user_id", userID, "tool", req.Tool)
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	return &GenerationResponse{
		ImageURL:         imageURL,
		RemainingCredits: result.RemainingCredits,
	}, nil
}
