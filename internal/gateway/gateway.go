// Package gateway is the boundary to the real money-movement provider.
// The ledger calls it but never implements money movement itself.
package gateway

import (
	"context"

	"github.com/google/uuid"
)

// Result is the outcome of a provider call. Ordinary business failures
// (declined card, insufficient funds) come back as OK=false with a
// Reason; a non-nil error from the adapter means the provider could not
// be reached at all.
type Result struct {
	OK          bool   `json:"ok"`
	ProviderRef string `json:"provider_ref,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// PaymentGateway abstracts the configured provider (card network, bank
// transfer, internal wallet-to-wallet). The ledger is agnostic to which
// one is behind it.
type PaymentGateway interface {
	// Charge captures totalCents from the requester into platform custody.
	Charge(ctx context.Context, requesterID uuid.UUID, totalCents int64) (Result, error)
	// Transfer pays amountCents out of custody to the helper.
	Transfer(ctx context.Context, helperID uuid.UUID, amountCents int64) (Result, error)
	// Refund returns totalCents from custody to the requester.
	Refund(ctx context.Context, requesterID uuid.UUID, totalCents int64) (Result, error)
}
