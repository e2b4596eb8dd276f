package models

import "time"

// Device is the anonymous identity record. UserID is minted once on first
// launch and never changes.
type Device struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Platform  string    `json:"platform" db:"platform"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Entitlement is the subscription platform's view of what this identity
// currently holds. It is an oracle for product/expiry, never for credit
// counts.
type Entitlement struct {
	ProductRef string    `json:"product_ref"`
	ExpiresAt  time.Time `json:"expires_at"`
}
