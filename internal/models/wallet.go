package models

import (
	"time"

	"github.com/google/uuid"
)

// KYC statuses. Verification itself happens outside this service;
// the status is stored and surfaced read-only.
const (
	KYCStatusUnverified = "unverified"
	KYCStatusPending    = "pending"
	KYCStatusVerified   = "verified"
)

// UserWallet holds a user's settled balance and not-yet-settled earnings.
// Created lazily on first credit. BalanceCents only grows through an
// escrow release; no other code path writes it.
type UserWallet struct {
	UserID               uuid.UUID       `json:"user_id"`
	BalanceCents         int64           `json:"balance_cents"`
	PendingEarningsCents int64           `json:"pending_earnings_cents"`
	KYCStatus            string          `json:"kyc_status"`
	PaymentMethods       []PaymentMethod `json:"payment_methods,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type PaymentMethod struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Kind      string    `json:"kind"` // card/bank/internal
	Label     string    `json:"label"`
	Last4     string    `json:"last4,omitempty"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}
