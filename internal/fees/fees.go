// Package fees computes the platform fee split for an escrow amount.
// It is pure so the API can serve fee previews without touching state.
package fees

import "github.com/favorlink/backend/internal/models"

// DefaultRateBPS is the platform fee in basis points (10%).
const DefaultRateBPS = 1000

type Policy struct {
	RateBPS int
}

func NewPolicy(rateBPS int) Policy {
	if rateBPS <= 0 {
		rateBPS = DefaultRateBPS
	}
	return Policy{RateBPS: rateBPS}
}

// Breakdown is the fee split for one escrow. All values are integer cents.
type Breakdown struct {
	AmountCents         int64 `json:"amount_cents"`
	ServiceFeeCents     int64 `json:"service_fee_cents"`
	TotalCents          int64 `json:"total_cents"`
	HelperReceivesCents int64 `json:"helper_receives_cents"`
}

// Compute splits amountCents into the requester's total payable and the
// helper's take. The fee is rounded to the nearest cent.
func (p Policy) Compute(amountCents int64) (Breakdown, error) {
	if amountCents <= 0 {
		return Breakdown{}, models.ErrInvalidAmount
	}

	fee := (amountCents*int64(p.RateBPS) + 5000) / 10000
	return Breakdown{
		AmountCents:         amountCents,
		ServiceFeeCents:     fee,
		TotalCents:          amountCents + fee,
		HelperReceivesCents: amountCents,
	}, nil
}
