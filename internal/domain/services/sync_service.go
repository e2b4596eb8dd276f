package services

import (
	"context"
	"fmt"
	"log/slog"

	"inkmirror-ai/internal/domain/models"
	"inkmirror-ai/internal/domain/repositories"
)

// SyncService keeps the local ledger approximately consistent with the
// remote ledger record and the subscription platform's entitlement view.
// Every remote failure falls back to local state; the user-facing gate is
// never blocked by the network.
type SyncService interface {
	// Sync runs the full reconciliation: pull the remote record, then
	// align with the platform's entitlements. Called on app start and
	// after purchase events.
	Sync(ctx context.Context, userID string) (*models.SubscriptionLedger, error)

	PullRemote(ctx context.Context, userID string) (*models.SubscriptionLedger, error)
	PushRemote(ctx context.Context, ledger *models.SubscriptionLedger)
	SyncEntitlements(ctx context.Context, userID string) (*models.SubscriptionLedger, error)
}

type syncService struct {
	ledgers      LedgerService
	remote       repositories.RemoteLedgerStore
	entitlements repositories.EntitlementClient
	plans        models.PlanTable
	logger       *slog.Logger
}

func NewSyncService(ledgers LedgerService, remote repositories.RemoteLedgerStore, entitlements repositories.EntitlementClient, plans models.PlanTable, logger *slog.Logger) SyncService {
	return &syncService{
		ledgers:      ledgers,
		remote:       remote,
		entitlements: entitlements,
		plans:        plans,
		logger:       logger,
	}
}

func (s *syncService) Sync(ctx context.Context, userID string) (*models.SubscriptionLedger, error) {
	if _, err := s.PullRemote(ctx, userID); err != nil {
		return nil, err
	}
	return s.SyncEntitlements(ctx, userID)
}

// PullRemote resolves local against remote by last-write-wins on
// updatedAt. A strictly newer remote replaces local; otherwise local is
// retained and a missing remote record is seeded from it. Lookup failures
// yield local state unchanged.
func (s *syncService) PullRemote(ctx context.Context, userID string) (*models.SubscriptionLedger, error) {
	local, err := s.ledgers.GetLedger(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load local ledger: %w", err)
	}

	remote, err := s.remote.Fetch(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to fetch remote ledger, keeping local state",
			"error", err, "user_id", userID)
		return local, nil
	}

	if remote == nil {
		s.PushRemote(ctx, local)
		return local, nil
	}

	if !remote.UpdatedAt.After(local.UpdatedAt) {
		return local, nil
	}

	if err := s.ledgers.AdoptRemote(ctx, remote); err != nil {
		s.logger.Warn("failed to adopt remote ledger, keeping local state",
			"error", err, "user_id", userID)
		return local, nil
	}

	return remote, nil
}

func (s *syncService) PushRemote(ctx context.Context, ledger *models.SubscriptionLedger) {
	if err := s.remote.Upsert(ctx, ledger); err != nil {
		s.logger.Warn("failed to push ledger to remote store",
			"error", err, "user_id", ledger.UserID)
	}
}

// SyncEntitlements aligns the ledger with the platform's view. The
// platform is an oracle for product and expiry only; credit counts always
// come from the plan table, and an unchanged period never re-grants.
func (s *syncService) SyncEntitlements(ctx context.Context, userID string) (*models.SubscriptionLedger, error) {
	local, err := s.ledgers.GetLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	ent, err := s.entitlements.ActiveEntitlement(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to query entitlements, keeping local state",
			"error", err, "user_id", userID)
		return local, nil
	}

	if ent == nil {
		if local.IsActive {
			return s.ledgers.Expire(ctx, userID)
		}
		return local, nil
	}

	if _, ok := s.plans.Lookup(ent.ProductRef); !ok {
		s.logger.Error("active entitlement references product missing from plan table",
			"user_id", userID, "product_ref", ent.ProductRef)
		return local, nil
	}

	// Same product, period merely extended: carry the new expiry without
	// granting credits; the lazy reset replenishes when the period rolls.
	if local.IsActive && local.ProductRef != nil && *local.ProductRef == ent.ProductRef {
		if local.PeriodEnd != nil && local.PeriodEnd.Equal(ent.ExpiresAt) {
			return local, nil
		}
		return s.ledgers.ExtendPeriod(ctx, userID, ent.ExpiresAt)
	}

	return s.ledgers.ApplyPurchase(ctx, userID, &PurchaseRequest{
		ProductRef: ent.ProductRef,
		PeriodEnd:  ent.ExpiresAt,
	})
}
