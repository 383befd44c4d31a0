// Package scheduler drives the auto-release of held escrows whose
// safety window elapsed without a dispute.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/favorlink/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger is the slice of the escrow ledger the scheduler drives.
type Ledger interface {
	ListAutoReleasable(ctx context.Context, cutoff time.Time, limit int) ([]models.EscrowPayment, error)
	ReleaseEscrow(ctx context.Context, id uuid.UUID, triggeredBy string, actorID *uuid.UUID) (*models.EscrowPayment, error)
}

// AutoRelease scans for held escrows past their deadline on a fixed
// interval and releases them. Each release attempt is isolated: a
// gateway failure on one escrow is logged and the scan continues, and
// the still-held record is picked up again next tick.
type AutoRelease struct {
	ledger   Ledger
	interval time.Duration
	batch    int
	log      *zap.Logger

	now  func() time.Time
	stop chan struct{}
	done chan struct{}
}

func NewAutoRelease(ledger Ledger, interval time.Duration, batch int, log *zap.Logger) *AutoRelease {
	if interval <= 0 {
		interval = time.Hour
	}
	if batch <= 0 {
		batch = 100
	}
	return &AutoRelease{
		ledger:   ledger,
		interval: interval,
		batch:    batch,
		log:      log,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the tick loop until Stop is called or ctx is cancelled.
func (a *AutoRelease) Start(ctx context.Context) {
	go func() {
		defer close(a.done)

		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		a.log.Info("auto-release scheduler started", zap.Duration("interval", a.interval))
		for {
			select {
			case <-ticker.C:
				a.Tick(ctx)
			case <-a.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-progress tick to finish.
func (a *AutoRelease) Stop() {
	close(a.stop)
	<-a.done
	a.log.Info("auto-release scheduler stopped")
}

// Tick performs one scan. Exported so a single pass can be driven
// directly.
func (a *AutoRelease) Tick(ctx context.Context) {
	due, err := a.ledger.ListAutoReleasable(ctx, a.now(), a.batch)
	if err != nil {
		a.log.Error("failed to list releasable escrows", zap.Error(err))
		return
	}

	for _, e := range due {
		_, err := a.ledger.ReleaseEscrow(ctx, e.ID, models.ReleaseTriggerAuto, nil)
		switch {
		case err == nil:
			a.log.Info("auto-released escrow",
				zap.String("escrow_id", e.ID.String()),
				zap.Int64("amount_cents", e.AmountCents),
			)
		case errors.Is(err, models.ErrAlreadyFinal), errors.Is(err, models.ErrInvalidTransition):
			// A foreground release or refund won the race. Nothing to do.
		default:
			// Transient gateway failure; the record stays held and the
			// next tick retries it.
			a.log.Warn("auto-release attempt failed",
				zap.String("escrow_id", e.ID.String()),
				zap.Error(err),
			)
		}
	}
}
