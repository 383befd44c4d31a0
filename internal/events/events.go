package events

import (
	"context"

	"github.com/google/uuid"
)

// Event types
const (
	EventEscrowCreated   = "escrow_created"
	EventPaymentHeld     = "payment_held"
	EventPaymentReleased = "payment_released"
	EventPaymentRefunded = "payment_refunded"
	EventEscrowCancelled = "escrow_cancelled"
	EventChargeFailed    = "charge_failed"
)

// StreamPayments is the channel the notification collaborator consumes.
const StreamPayments = "events:payments"

// Event is the notification contract: the external push system delivers
// these, this service only emits them.
type Event struct {
	Type        string    `json:"type"`
	UserID      uuid.UUID `json:"user_id"`
	EscrowID    uuid.UUID `json:"escrow_id"`
	AmountCents int64     `json:"amount_cents"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
