package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"inkmirror-ai/internal/domain/services"
	"inkmirror-ai/internal/interfaces/http/middleware"
)

type GenerationHandler struct {
	generations services.GenerationService
	logger      *slog.Logger
}

func NewGenerationHandler(generations services.GenerationService, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{generations: generations, logger: logger}
}

func (h *GenerationHandler) Generate(c *gin.Context) {
	userID := middleware.UserID(c)

	var req services.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Tool == "" || req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tool and prompt are required"})
		return
	}

	resp, err := h.generations.Generate(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientCredits) {
			// Not an error dialog on the client: this drives the
			// upgrade prompt.
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":             "insufficient credits",
				"upgrade_required":  true,
				"remaining_credits": 0,
			})
			return
		}
		h.logger.Error("generation failed", "error", err, "user_id", userID)
		c.JSON(http.StatusBadGateway, gin.H{"error": "generation failed"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
