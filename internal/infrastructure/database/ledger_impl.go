package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inkmirror-ai/internal/domain/models"
	"inkmirror-ai/internal/domain/repositories"
)

type ledgerRepository struct {
	db *PostgresDB
}

func NewLedgerRepository(db *PostgresDB) repositories.LedgerRepository {
	return &ledgerRepository{db: db}
}

const ledgerColumns = `id, user_id, status, free_credits, subscription_credits,
	       period_start, period_end, last_reset_at, product_ref,
	       last_transaction_id, is_active, created_at, updated_at`

func (r *ledgerRepository) GetByUserID(ctx context.Context, userID string) (*models.SubscriptionLedger, error) {
	var ledger models.SubscriptionLedger
	query := `SELECT ` + ledgerColumns + ` FROM ledgers WHERE user_id = $1`

	err := r.db.GetContext(ctx, &ledger, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}

	return &ledger, nil
}

func (r *ledgerRepository) Create(ctx context.Context, ledger *models.SubscriptionLedger) error {
	query := `
		INSERT INTO ledgers (id, user_id, status, free_credits, subscription_credits,
		                     period_start, period_end, last_reset_at, product_ref,
		                     last_transaction_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query, ledger.ID, ledger.UserID, ledger.Status,
		ledger.FreeCredits, ledger.SubscriptionCredits, ledger.PeriodStart,
		ledger.PeriodEnd, ledger.LastResetAt, ledger.ProductRef,
		ledger.LastTransactionID, ledger.IsActive, ledger.CreatedAt, ledger.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}

	return nil
}

// Update writes every mutable field keyed by user id. updated_at comes
// from the struct, not the database clock, because remote conflict
// resolution compares it across stores.
func (r *ledgerRepository) Update(ctx context.Context, ledger *models.SubscriptionLedger) error {
	query := `
		UPDATE ledgers
		SET status = $2, free_credits = $3, subscription_credits = $4,
		    period_start = $5, period_end = $6, last_reset_at = $7,
		    product_ref = $8, last_transaction_id = $9, is_active = $10,
		    updated_at = $11
		WHERE user_id = $1`

	result, err := r.db.ExecContext(ctx, query, ledger.UserID, ledger.Status,
		ledger.FreeCredits, ledger.SubscriptionCredits, ledger.PeriodStart,
		ledger.PeriodEnd, ledger.LastResetAt, ledger.ProductRef,
		ledger.LastTransactionID, ledger.IsActive, ledger.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update ledger: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return repositories.ErrLedgerNotFound
	}

	return nil
}

// ConsumeCredit drains one credit in a single conditional statement so a
// racing call can never observe the pre-decrement balance. Free credits go
// first; the paid balance is preserved longest. updated_at takes the
// application clock like every other mutation, since it is the field the
// remote conflict resolution compares.
func (r *ledgerRepository) ConsumeCredit(ctx context.Context, userID string) (*models.SubscriptionLedger, error) {
	var ledger models.SubscriptionLedger
	query := `
		UPDATE ledgers
		SET free_credits = CASE WHEN free_credits > 0
		                        THEN free_credits - 1 ELSE free_credits END,
		    subscription_credits = CASE WHEN free_credits = 0 AND subscription_credits > 0
		                                THEN subscription_credits - 1 ELSE subscription_credits END,
		    updated_at = $2
		WHERE user_id = $1 AND (free_credits > 0 OR subscription_credits > 0)
		RETURNING ` + ledgerColumns

	err := r.db.GetContext(ctx, &ledger, query, userID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the row is missing or both balances are zero.
			if _, getErr := r.GetByUserID(ctx, userID); getErr != nil {
				return nil, getErr
			}
			return nil, repositories.ErrNoCredits
		}
		return nil, fmt.Errorf("failed to consume credit: %w", err)
	}

	return &ledger, nil
}

func (r *ledgerRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ledgers WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete ledger: %w", err)
	}
	return nil
}
