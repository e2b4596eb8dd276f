package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"inkmirror-ai/internal/domain/models"
	"inkmirror-ai/internal/domain/services"
	"inkmirror-ai/internal/interfaces/http/middleware"
)

type LedgerHandler struct {
	ledgers services.LedgerService
	sync    services.SyncService
	logger  *slog.Logger
}

func NewLedgerHandler(ledgers services.LedgerService, sync services.SyncService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{ledgers: ledgers, sync: sync, logger: logger}
}

type creditsResponse struct {
	Remaining  int                 `json:"remaining"`
	Unlimited  bool                `json:"unlimited"`
	Status     models.LedgerStatus `json:"status"`
	ProductRef *string             `json:"product_ref,omitempty"`
	PeriodEnd  *string             `json:"period_end,omitempty"`
}

func (h *LedgerHandler) GetCredits(c *gin.Context) {
	userID := middleware.UserID(c)

	ledger, err := h.ledgers.GetLedger(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load ledger", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load credits"})
		return
	}

	remaining, err := h.ledgers.RemainingCredits(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to read balance", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load credits"})
		return
	}

	c.JSON(http.StatusOK, h.toCreditsResponse(ledger, remaining))
}

func (h *LedgerHandler) ConfirmPurchase(c *gin.Context) {
	userID := middleware.UserID(c)

	var req services.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ledger, err := h.ledgers.ApplyPurchase(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrUnknownProduct) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown product"})
			return
		}
		h.logger.Error("failed to apply purchase", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply purchase"})
		return
	}

	remaining, err := h.ledgers.RemainingCredits(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to read balance", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load credits"})
		return
	}

	c.JSON(http.StatusOK, h.toCreditsResponse(ledger, remaining))
}

// Sync runs the full remote reconciliation and returns the fresh balance.
// Called by the shell on app start and after store purchase events.
func (h *LedgerHandler) Sync(c *gin.Context) {
	userID := middleware.UserID(c)

	ledger, err := h.sync.Sync(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("sync failed", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}

	remaining, err := h.ledgers.RemainingCredits(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to read balance", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load credits"})
		return
	}

	c.JSON(http.StatusOK, h.toCreditsResponse(ledger, remaining))
}

func (h *LedgerHandler) toCreditsResponse(ledger *models.SubscriptionLedger, remaining int) creditsResponse {
	resp := creditsResponse{
		Remaining:  remaining,
		Unlimited:  remaining == models.UnlimitedCredits,
		Status:     ledger.Status,
		ProductRef: ledger.ProductRef,
	}
	if ledger.PeriodEnd != nil {
		end := ledger.PeriodEnd.UTC().Format(time.RFC3339)
		resp.PeriodEnd = &end
	}
	return resp
}
