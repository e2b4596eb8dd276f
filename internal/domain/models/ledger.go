package models

import (
	"time"

	"github.com/google/uuid"
)

type LedgerStatus string

const (
	StatusFree        LedgerStatus = "free"
	StatusPlanWeekly  LedgerStatus = "plan_weekly"
	StatusPlanMonthly LedgerStatus = "plan_monthly"
	StatusExpired     LedgerStatus = "expired"
)

// UnlimitedCredits is the sentinel returned by balance reads for plans
// marked unlimited. Concrete balances are always >= 0.
const UnlimitedCredits = -1

// SubscriptionLedger is the authoritative record of a user's credit
// balances and subscription state. One row per user.
type SubscriptionLedger struct {
	ID                  uuid.UUID    `json:"id" db:"id"`
	UserID              string       `json:"user_id" db:"user_id"`
	Status              LedgerStatus `json:"status" db:"status"`
	FreeCredits         int          `json:"free_credits" db:"free_credits"`
	SubscriptionCredits int          `json:"subscription_credits" db:"subscription_credits"`
	PeriodStart         *time.Time   `json:"period_start" db:"period_start"`
	PeriodEnd           *time.Time   `json:"period_end" db:"period_end"`
	LastResetAt         *time.Time   `json:"last_reset_at" db:"last_reset_at"`
	ProductRef          *string      `json:"product_ref" db:"product_ref"`
	LastTransactionID   *string      `json:"last_transaction_id" db:"last_transaction_id"`
	IsActive            bool         `json:"is_active" db:"is_active"`
	CreatedAt           time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at"`
}

// NewLedger creates a fresh free-tier ledger for a user.
func NewLedger(userID string, freeGrant int) *SubscriptionLedger {
	now := time.Now().UTC()
	return &SubscriptionLedger{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      StatusFree,
		FreeCredits: freeGrant,
		IsActive:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TotalCredits returns the sum of both balances. It does not apply the
// unlimited sentinel; callers resolve that against the plan table.
func (l *SubscriptionLedger) TotalCredits() int {
	return l.FreeCredits + l.SubscriptionCredits
}

// IsPeriodExpired reports whether the paid period has lapsed at the given
// instant.
func (l *SubscriptionLedger) IsPeriodExpired(now time.Time) bool {
	return l.IsActive && l.PeriodEnd != nil && l.PeriodEnd.Before(now)
}

// ResetDue reports whether a new period's credit replenishment is owed.
func (l *SubscriptionLedger) ResetDue(now time.Time, period time.Duration) bool {
	if !l.IsActive || l.LastResetAt == nil {
		return false
	}
	return now.Sub(*l.LastResetAt) >= period
}

// Clone returns a copy so pure transition functions never mutate the
// caller's value.
func (l *SubscriptionLedger) Clone() *SubscriptionLedger {
	c := *l
	if l.PeriodStart != nil {
		t := *l.PeriodStart
		c.PeriodStart = &t
	}
	if l.PeriodEnd != nil {
		t := *l.PeriodEnd
		c.PeriodEnd = &t
	}
	if l.LastResetAt != nil {
		t := *l.LastResetAt
		c.LastResetAt = &t
	}
	if l.ProductRef != nil {
		s := *l.ProductRef
		c.ProductRef = &s
	}
	if l.LastTransactionID != nil {
		s := *l.LastTransactionID
		c.LastTransactionID = &s
	}
	return &c
}
