package repositories

import (
	"context"
	"errors"

	"inkmirror-ai/internal/domain/models"
)

// ErrLedgerNotFound is returned when no ledger row exists for a user.
var ErrLedgerNotFound = errors.New("ledger not found")

// ErrNoCredits is returned by ConsumeCredit when both balances are zero.
var ErrNoCredits = errors.New("no credits remaining")

type LedgerRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.SubscriptionLedger, error)
	Create(ctx context.Context, ledger *models.SubscriptionLedger) error
	Update(ctx context.Context, ledger *models.SubscriptionLedger) error

	// ConsumeCredit decrements exactly one credit, free balance first,
	// as a single conditional statement so concurrent calls cannot
	// interleave a read-modify-write. Returns ErrNoCredits when both
	// balances are already zero.
	ConsumeCredit(ctx context.Context, userID string) (*models.SubscriptionLedger, error)

	Delete(ctx context.Context, userID string) error
}
