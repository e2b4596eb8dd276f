package repositories

import (
	"context"

	"inkmirror-ai/internal/domain/models"
)

// RemoteLedgerStore is the hosted copy of the ledger, keyed by user id.
// It is a backup, not a lock-holding source of truth; callers treat every
// failure as non-fatal.
type RemoteLedgerStore interface {
	Fetch(ctx context.Context, userID string) (*models.SubscriptionLedger, error)
	Upsert(ctx context.Context, ledger *models.SubscriptionLedger) error
	Delete(ctx context.Context, userID string) error
}

// EntitlementClient queries the external subscription platform for the
// active entitlement held by an identity. A nil entitlement with a nil
// error means the platform knows of no active plan.
type EntitlementClient interface {
	ActiveEntitlement(ctx context.Context, userID string) (*models.Entitlement, error)
}
