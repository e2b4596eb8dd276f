package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"inkmirror-ai/internal/domain/models"
	"inkmirror-ai/internal/domain/repositories"
)

// ErrUnknownProduct is returned when a purchase names a product reference
// missing from the plan table. The ledger must never activate or grant
// credits for a product it cannot price.
var ErrUnknownProduct = errors.New("unknown product reference")

type LedgerService interface {
	GetLedger(ctx context.Context, userID string) (*models.SubscriptionLedger, error)
	RemainingCredits(ctx context.Context, userID string) (int, error)
	CanGenerate(ctx context.Context, userID string) (bool, error)
	ConsumeCredit(ctx context.Context, userID string) (*ConsumeResult, error)
	ApplyPurchase(ctx context.Context, userID string, req *PurchaseRequest) (*models.SubscriptionLedger, error)
	Expire(ctx context.Context, userID string) (*models.SubscriptionLedger, error)

	// AdoptRemote and ExtendPeriod are the reconciliation adapter's
	// write paths; routing them through here keeps every ledger write
	// behind the same mutation point.
	AdoptRemote(ctx context.Context, ledger *models.SubscriptionLedger) error
	ExtendPeriod(ctx context.Context, userID string, periodEnd time.Time) (*models.SubscriptionLedger, error)
}

type ConsumeResult struct {
	Success          bool `json:"success"`
	RemainingCredits int  `json:"remaining_credits"`
}

type PurchaseRequest struct {
	TransactionID string    `json:"transaction_id" validate:"required"`
	ProductRef    string    `json:"product_ref" validate:"required"`
	PeriodEnd     time.Time `json:"period_end" validate:"required"`
}

type ledgerService struct {
	repo      repositories.LedgerRepository
	remote    repositories.RemoteLedgerStore
	plans     models.PlanTable
	freeGrant int
	logger    *slog.Logger

	// serializes every ledger read-modify-write within the process,
	// including the lazy reconcile persist, so a stale snapshot can
	// never overwrite a decrement that landed in between; the
	// conditional SQL decrement covers the cross-process case.
	mu sync.Mutex
}

func NewLedgerService(repo repositories.LedgerRepository, remote repositories.RemoteLedgerStore, plans models.PlanTable, freeGrant int, logger *slog.Logger) LedgerService {
	return &ledgerService{
		repo:      repo,
		remote:    remote,
		plans:     plans,
		freeGrant: freeGrant,
		logger:    logger,
	}
}

// ReconcilePeriod applies the time-based transitions owed to a ledger at
// the given instant: expiry when the paid period has lapsed, otherwise a
// credit replenishment when a full plan period has passed since the last
// reset. It is pure and idempotent; running it twice with the same clock
// yields the same state.
func ReconcilePeriod(ledger *models.SubscriptionLedger, plans models.PlanTable, now time.Time) (*models.SubscriptionLedger, bool) {
	out := ledger.Clone()

	if out.IsPeriodExpired(now) {
		out.Status = models.StatusExpired
		out.IsActive = false
		out.SubscriptionCredits = 0
		out.UpdatedAt = now
		return out, true
	}

	if !out.IsActive || out.ProductRef == nil {
		return out, false
	}

	plan, ok := plans.Lookup(*out.ProductRef)
	if !ok || plan.Unlimited {
		return out, false
	}

	if out.ResetDue(now, plan.Period) {
		reset := now
		out.SubscriptionCredits = plan.Credits
		out.LastResetAt = &reset
		out.UpdatedAt = now
		return out, true
	}

	return out, false
}

// ClampFreeCredits repairs a corrupted free balance. Free credits are a
// one-time grant and can never legitimately exceed it.
func ClampFreeCredits(ledger *models.SubscriptionLedger, grant int, now time.Time) (*models.SubscriptionLedger, bool) {
	if ledger.FreeCredits <= grant {
		return ledger, false
	}
	out := ledger.Clone()
	out.FreeCredits = grant
	out.UpdatedAt = now
	return out, true
}

func (s *ledgerService) GetLedger(ctx context.Context, userID string) (*models.SubscriptionLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLedger(ctx, userID)
}

// getLedger loads, repairs, and lazily reconciles the ledger. Callers
// must hold s.mu: the reconcile persist writes the full row from the
// snapshot it just read.
func (s *ledgerService) getLedger(ctx context.Context, userID string) (*models.SubscriptionLedger, error) {
	ledger, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrLedgerNotFound) {
		ledger = models.NewLedger(userID, s.freeGrant)
		if err := s.repo.Create(ctx, ledger); err != nil {
			return nil, fmt.Errorf("failed to initialize ledger: %w", err)
		}
		s.pushRemote(ctx, ledger)
		return ledger, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	now := time.Now().UTC()
	ledger, clamped := ClampFreeCredits(ledger, s.freeGrant, now)
	if clamped {
		s.logger.Warn("free credit balance above grant ceiling, clamped",
			"user_id", userID, "grant", s.freeGrant)
	}

	ledger, changed := ReconcilePeriod(ledger, s.plans, now)
	if clamped || changed {
		if err := s.repo.Update(ctx, ledger); err != nil {
			return nil, fmt.Errorf("failed to persist reconciled ledger: %w", err)
		}
		s.pushRemote(ctx, ledger)
	}

	return ledger, nil
}

func (s *ledgerService) RemainingCredits(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.getLedger(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.remaining(ledger), nil
}

func (s *ledgerService) CanGenerate(ctx context.Context, userID string) (bool, error) {
	remaining, err := s.RemainingCredits(ctx, userID)
	if err != nil {
		return false, err
	}
	return remaining > 0 || remaining == models.UnlimitedCredits, nil
}

func (s *ledgerService) ConsumeCredit(ctx context.Context, userID string) (*ConsumeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.getLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.isUnlimited(ledger) {
		return &ConsumeResult{Success: true, RemainingCredits: models.UnlimitedCredits}, nil
	}

	updated, err := s.repo.ConsumeCredit(ctx, userID)
	if errors.Is(err, repositories.ErrNoCredits) {
		return &ConsumeResult{Success: false, RemainingCredits: ledger.TotalCredits()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume credit: %w", err)
	}

	s.pushRemote(ctx, updated)
	return &ConsumeResult{Success: true, RemainingCredits: updated.TotalCredits()}, nil
}

func (s *ledgerService) ApplyPurchase(ctx context.Context, userID string, req *PurchaseRequest) (*models.SubscriptionLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.getLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Store callbacks retry; the same transaction must never grant twice.
	if req.TransactionID != "" && ledger.LastTransactionID != nil && *ledger.LastTransactionID == req.TransactionID {
		return ledger, nil
	}

	plan, ok := s.plans.Lookup(req.ProductRef)
	if !ok {
		s.logger.Error("purchase confirmed for product missing from plan table",
			"user_id", userID, "product_ref", req.ProductRef, "transaction_id", req.TransactionID)
		return nil, ErrUnknownProduct
	}

	now := time.Now().UTC()
	ledger = ledger.Clone()
	ledger.Status = plan.Status
	ledger.SubscriptionCredits = plan.Credits
	ledger.PeriodStart = &now
	periodEnd := req.PeriodEnd.UTC()
	ledger.PeriodEnd = &periodEnd
	reset := now
	ledger.LastResetAt = &reset
	productRef := req.ProductRef
	ledger.ProductRef = &productRef
	ledger.IsActive = true
	ledger.UpdatedAt = now
	if req.TransactionID != "" {
		txID := req.TransactionID
		ledger.LastTransactionID = &txID
	}

	if err := s.repo.Update(ctx, ledger); err != nil {
		return nil, fmt.Errorf("failed to apply purchase: %w", err)
	}

	s.pushRemote(ctx, ledger)
	return ledger, nil
}

func (s *ledgerService) Expire(ctx context.Context, userID string) (*models.SubscriptionLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.getLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	if ledger.Status == models.StatusExpired && !ledger.IsActive && ledger.SubscriptionCredits == 0 {
		return ledger, nil
	}

	now := time.Now().UTC()
	ledger = ledger.Clone()
	ledger.Status = models.StatusExpired
	ledger.IsActive = false
	ledger.SubscriptionCredits = 0
	ledger.UpdatedAt = now

	if err := s.repo.Update(ctx, ledger); err != nil {
		return nil, fmt.Errorf("failed to expire ledger: %w", err)
	}

	s.pushRemote(ctx, ledger)
	return ledger, nil
}

// AdoptRemote replaces local state with a strictly newer remote record.
func (s *ledgerService) AdoptRemote(ctx context.Context, ledger *models.SubscriptionLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Update(ctx, ledger); err != nil {
		return fmt.Errorf("failed to adopt remote ledger: %w", err)
	}
	return nil
}

// ExtendPeriod carries a renewed expiry onto the current plan without
// granting credits; the lazy reset replenishes when the period rolls.
func (s *ledgerService) ExtendPeriod(ctx context.Context, userID string, periodEnd time.Time) (*models.SubscriptionLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.getLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	ledger = ledger.Clone()
	end := periodEnd.UTC()
	ledger.PeriodEnd = &end
	ledger.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, ledger); err != nil {
		return nil, fmt.Errorf("failed to extend period: %w", err)
	}

	s.pushRemote(ctx, ledger)
	return ledger, nil
}

func (s *ledgerService) remaining(ledger *models.SubscriptionLedger) int {
	if s.isUnlimited(ledger) {
		return models.UnlimitedCredits
	}
	return ledger.TotalCredits()
}

func (s *ledgerService) isUnlimited(ledger *models.SubscriptionLedger) bool {
	if !ledger.IsActive || ledger.ProductRef == nil {
		return false
	}
	plan, ok := s.plans.Lookup(*ledger.ProductRef)
	return ok && plan.Unlimited
}

// pushRemote propagates local state best-effort. The remote copy is a
// backup; a failed push is logged and the next successful one carries the
// latest state forward.
func (s *ledgerService) pushRemote(ctx context.Context, ledger *models.SubscriptionLedger) {
	if s.remote == nil {
		return
	}
	if err := s.remote.Upsert(ctx, ledger); err != nil {
		s.logger.Warn("failed to push ledger to remote store",
			"error", err, "user_id", ledger.UserID)
	}
}
