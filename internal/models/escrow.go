package models

import (
	"time"

	"github.com/google/uuid"
)

// Escrow statuses. The -ing statuses are in-flight claims: exactly one
// caller CAS-es into them before talking to the payment provider, so a
// racing transition fails before any money moves. The claim owner either
// advances to the target status or reverts on a provider failure.
const (
	EscrowStatusPending   = "pending"
	EscrowStatusCharging  = "charging"
	EscrowStatusHeld      = "held"
	EscrowStatusReleasing = "releasing"
	EscrowStatusRefunding = "refunding"
	EscrowStatusReleased  = "released"
	EscrowStatusRefunded  = "refunded"
	EscrowStatusCancelled = "cancelled"
)

// Release triggers
const (
	ReleaseTriggerRequester = "requester"
	ReleaseTriggerAuto      = "auto"
	ReleaseTriggerDispute   = "dispute-resolution"
)

// Valid state transitions: from -> []to. The backwards edge out of each
// in-flight status is the owner's revert after a provider failure.
var ValidEscrowTransitions = map[string][]string{
	EscrowStatusPending:   {EscrowStatusCharging, EscrowStatusCancelled},
	EscrowStatusCharging:  {EscrowStatusHeld, EscrowStatusPending},
	EscrowStatusHeld:      {EscrowStatusReleasing, EscrowStatusRefunding},
	EscrowStatusReleasing: {EscrowStatusReleased, EscrowStatusHeld},
	EscrowStatusRefunding: {EscrowStatusRefunded, EscrowStatusHeld},
	EscrowStatusReleased:  {},
	EscrowStatusRefunded:  {},
	EscrowStatusCancelled: {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidEscrowTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transition is possible.
func IsTerminalStatus(status string) bool {
	allowed, ok := ValidEscrowTransitions[status]
	return ok && len(allowed) == 0
}

// EscrowPayment is one payment held in trust for a single favor.
// Amounts are integer cents. The record is never deleted; terminal
// records remain as the audit trail.
type EscrowPayment struct {
	ID          uuid.UUID `json:"id"`
	FavorID     uuid.UUID `json:"favor_id"`
	RequesterID uuid.UUID `json:"requester_id"`
	HelperID    uuid.UUID `json:"helper_id"`

	// AmountCents is the helper's take; TotalCents = AmountCents + ServiceFeeCents
	// for the entire life of the record.
	AmountCents     int64 `json:"amount_cents"`
	ServiceFeeCents int64 `json:"service_fee_cents"`
	TotalCents      int64 `json:"total_cents"`

	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	AutoReleaseAt time.Time  `json:"auto_release_at"`
	ReleasedAt    *time.Time `json:"released_at,omitempty"`
	ReleasedBy    *string    `json:"released_by,omitempty"` // requester/auto/dispute-resolution
}

// IsFinal reports whether the escrow reached a terminal status.
func (e *EscrowPayment) IsFinal() bool {
	return IsTerminalStatus(e.Status)
}
