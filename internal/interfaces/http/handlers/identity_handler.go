package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"inkmirror-ai/internal/domain/services"
	"inkmirror-ai/internal/interfaces/http/middleware"
)

type IdentityHandler struct {
	identity services.IdentityService
	logger   *slog.Logger
}

func NewIdentityHandler(identity services.IdentityService, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{identity: identity, logger: logger}
}

type registerDeviceRequest struct {
	Platform string `json:"platform"`
}

func (h *IdentityHandler) RegisterDevice(c *gin.Context) {
	var req registerDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.identity.Register(c.Request.Context(), req.Platform)
	if err != nil {
		h.logger.Error("device registration failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register device"})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *IdentityHandler) WipeDevice(c *gin.Context) {
	userID := middleware.UserID(c)

	if err := h.identity.Wipe(c.Request.Context(), userID); err != nil {
		h.logger.Error("device wipe failed", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to wipe device data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "wiped"})
}
