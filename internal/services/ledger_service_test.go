package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/favorlink/backend/internal/config"
	"github.com/favorlink/backend/internal/events"
	"github.com/favorlink/backend/internal/gateway"
	"github.com/favorlink/backend/internal/models"
	"github.com/favorlink/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fakeGateway approves everything unless told otherwise and counts
// provider calls. The during hooks run while the corresponding provider
// call is in flight, for exercising concurrent transitions.
type fakeGateway struct {
	declineCharge   bool
	declineTransfer bool
	declineRefund   bool
	chargeErr       error

	duringCharge   func()
	duringTransfer func()

	charges   atomic.Int64
	transfers atomic.Int64
	refunds   atomic.Int64
}

func (g *fakeGateway) Charge(ctx context.Context, requesterID uuid.UUID, totalCents int64) (gateway.Result, error) {
	g.charges.Add(1)
	if g.duringCharge != nil {
		g.duringCharge()
	}
	if g.chargeErr != nil {
		return gateway.Result{}, g.chargeErr
	}
	if g.declineCharge {
		return gateway.Result{OK: false, Reason: "card declined"}, nil
	}
	return gateway.Result{OK: true, ProviderRef: "ch_test"}, nil
}

func (g *fakeGateway) Transfer(ctx context.Context, helperID uuid.UUID, amountCents int64) (gateway.Result, error) {
	g.transfers.Add(1)
	if g.duringTransfer != nil {
		g.duringTransfer()
	}
	if g.declineTransfer {
		return gateway.Result{OK: false, Reason: "payout blocked"}, nil
	}
	return gateway.Result{OK: true, ProviderRef: "tr_test"}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, requesterID uuid.UUID, totalCents int64) (gateway.Result, error) {
	g.refunds.Add(1)
	if g.declineRefund {
		return gateway.Result{OK: false, Reason: "refund rejected"}, nil
	}
	return gateway.Result{OK: true, ProviderRef: "re_test"}, nil
}

// capturePublisher records emitted notification events.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, stream string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) byType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type ledgerFixture struct {
	ledger    *LedgerService
	escrows   *repositories.MemEscrowRepo
	wallets   *repositories.MemWalletRepo
	gateway   *fakeGateway
	publisher *capturePublisher
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	wallets := repositories.NewMemWalletRepo()
	escrows := repositories.NewMemEscrowRepo(wallets)
	gw := &fakeGateway{}
	pub := &capturePublisher{}
	cfg := &config.Config{
		PlatformFeeBPS: 1000,
		ReleaseWindow:  72 * time.Hour,
	}
	ledger := NewLedgerService(escrows, wallets, repositories.NewMemAuditRepo(), gw, pub, cfg, zap.NewNop())
	return &ledgerFixture{ledger: ledger, escrows: escrows, wallets: wallets, gateway: gw, publisher: pub}
}

func (f *ledgerFixture) createHeld(t *testing.T, amountCents int64) *models.EscrowPayment {
	t.Helper()
	ctx := context.Background()
	e, err := f.ledger.CreateEscrow(ctx, uuid.New(), uuid.New(), uuid.New(), amountCents)
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	if _, err := f.ledger.HoldEscrow(ctx, e.ID); err != nil {
		t.Fatalf("HoldEscrow: %v", err)
	}
	return e
}

func (f *ledgerFixture) balance(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	w, err := f.wallets.Get(context.Background(), userID)
	if errors.Is(err, models.ErrWalletNotFound) {
		return 0
	}
	if err != nil {
		t.Fatalf("wallet get: %v", err)
	}
	return w.BalanceCents
}

func TestCreateEscrowComputesFees(t *testing.T) {
	f := newLedgerFixture(t)
	favorID := uuid.New()

	e, err := f.ledger.CreateEscrow(context.Background(), favorID, uuid.New(), uuid.New(), 5000)
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}

	if e.Status != models.EscrowStatusPending {
		t.Errorf("status = %q, want pending", e.Status)
	}
	if e.ServiceFeeCents != 500 || e.TotalCents != 5500 {
		t.Errorf("fee/total = %d/%d, want 500/5500", e.ServiceFeeCents, e.TotalCents)
	}
	if got := e.AutoReleaseAt.Sub(e.CreatedAt); got != 72*time.Hour {
		t.Errorf("auto release window = %v, want 72h", got)
	}
}

func TestCreateEscrowValidation(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := f.ledger.CreateEscrow(ctx, uuid.New(), userID, userID, 5000); !errors.Is(err, models.ErrSameParty) {
		t.Errorf("same party error = %v, want ErrSameParty", err)
	}
	if _, err := f.ledger.CreateEscrow(ctx, uuid.New(), uuid.New(), uuid.New(), 0); !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("zero amount error = %v, want ErrInvalidAmount", err)
	}
	if _, err := f.ledger.CreateEscrow(ctx, uuid.New(), uuid.New(), uuid.New(), -100); !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("negative amount error = %v, want ErrInvalidAmount", err)
	}
}

func TestCreateEscrowRejectsDuplicateForFavor(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	favorID := uuid.New()

	if _, err := f.ledger.CreateEscrow(ctx, favorID, uuid.New(), uuid.New(), 5000); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := f.ledger.CreateEscrow(ctx, favorID, uuid.New(), uuid.New(), 5000); !errors.Is(err, models.ErrDuplicateEscrow) {
		t.Errorf("second create error = %v, want ErrDuplicateEscrow", err)
	}
}

func TestCreateEscrowAllowsNewAfterTerminal(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	favorID := uuid.New()

	e, err := f.ledger.CreateEscrow(ctx, favorID, uuid.New(), uuid.New(), 5000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.ledger.CancelEscrow(ctx, e.ID, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := f.ledger.CreateEscrow(ctx, favorID, uuid.New(), uuid.New(), 5000); err != nil {
		t.Errorf("create after cancelled escrow: %v", err)
	}
}

// End-to-end scenario: create -> hold -> release credits the helper.
func TestHappyPathReleaseCreditsHelper(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	helperID := uuid.New()

	e, err := f.ledger.CreateEscrow(ctx, uuid.New(), uuid.New(), helperID, 5000)
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}

	held, err := f.ledger.HoldEscrow(ctx, e.ID)
	if err != nil {
		t.Fatalf("HoldEscrow: %v", err)
	}
	if held.Status != models.EscrowStatusHeld {
		t.Errorf("status after hold = %q, want held", held.Status)
	}

	w, err := f.wallets.Get(ctx, helperID)
	if err != nil {
		t.Fatalf("wallet after hold: %v", err)
	}
	if w.PendingEarningsCents != 5000 {
		t.Errorf("pending after hold = %d, want 5000", w.PendingEarningsCents)
	}

	released, err := f.ledger.ReleaseEscrow(ctx, e.ID, models.ReleaseTriggerRequester, nil)
	if err != nil {
		t.Fatalf("ReleaseEscrow: %v", err)
	}
	if released.Status != models.EscrowStatusReleased {
		t.Errorf("status after release = %q, want released", released.Status)
	}
	if released.ReleasedAt == nil || released.ReleasedBy == nil || *released.ReleasedBy != models.ReleaseTriggerRequester {
		t.Errorf("release metadata not set: at=%v by=%v", released.ReleasedAt, released.ReleasedBy)
	}

	w, err = f.wallets.Get(ctx, helperID)
	if err != nil {
		t.Fatalf("wallet after release: %v", err)
	}
	if w.BalanceCents != 5000 {
		t.Errorf("balance = %d, want 5000 (fee excluded)", w.BalanceCents)
	}
	if w.PendingEarningsCents != 0 {
		t.Errorf("pending after release = %d, want 0", w.PendingEarningsCents)
	}

	if got := f.publisher.byType(events.EventPaymentReleased); len(got) != 1 {
		t.Errorf("released events = %d, want 1", len(got))
	}
}

// End-to-end scenario: a declined charge leaves the escrow pending and
// retryable.
func TestHoldChargeDeclineLeavesPending(t *testing.T) {
	f := newLedgerFixture(t)
	f.gateway.declineCharge = true
	ctx := context.Background()
	helperID := uuid.New()

	e, err := f.ledger.CreateEscrow(ctx, uuid.New(), uuid.New(), helperID, 2000)
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}

	_, err = f.ledger.HoldEscrow(ctx, e.ID)
	if !errors.Is(err, models.ErrChargeFailed) {
		t.Fatalf("HoldEscrow error = %v, want ErrChargeFailed", err)
	}

	got, err := f.ledger.GetEscrow(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEscrow: %v", err)
	}
	if got.Status != models.EscrowStatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	if f.balance(t, helperID) != 0 {
		t.Errorf("helper balance mutated on failed hold")
	}
	if got := f.publisher.byType(events.EventChargeFailed); len(got) != 1 {
		t.Errorf("charge_failed events = %d, want 1", len(got))
	}

	// Retry succeeds once the gateway recovers.
	f.gateway.declineCharge = false
	if _, err := f.ledger.HoldEscrow(ctx, e.ID); err != nil {
		t.Errorf("retry hold: %v", err)
	}
}

func TestHoldGatewayFaultLeavesPending(t *testing.T) {
	f := newLedgerFixture(t)
	f.gateway.chargeErr = errors.New("connection reset")
	ctx := context.Background()

	e, err := f.ledger.CreateEscrow(ctx, uuid.New(), uuid.New(), uuid.New(), 2000)
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	if _, err := f.ledger.HoldEscrow(ctx, e.ID); !errors.Is(err, models.ErrChargeFailed) {
		t.Fatalf("HoldEscrow error = %v, want ErrChargeFailed", err)
	}
	got, _ := f.ledger.GetEscrow(ctx, e.ID)
	if got.Status != models.EscrowStatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
}

// End-to-end scenario: refund after hold; a later release must fail and
// leave the wallet untouched.
func TestRefundThenReleaseFails(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	e := f.createHeld(t, 5000)

	refunded, err := f.ledger.RefundEscrow(ctx, e.ID, nil)
	if err != nil {
		t.Fatalf("RefundEscrow: %v", err)
	}
	if refunded.Status != models.EscrowStatusRefunded {
		t.Errorf("status = %q, want refunded", refunded.Status)
	}
	if f.gateway.refunds.Load() != 1 {
		t.Errorf("refund calls = %d, want 1", f.gateway.refunds.Load())
	}

	_, err = f.ledger.ReleaseEscrow(ctx, e.ID, models.ReleaseTriggerRequester, nil)
	if !errors.Is(err, models.ErrAlreadyFinal) {
		t.Errorf("release after refund error = %v, want ErrAlreadyFinal", err)
	}
	if f.balance(t, e.HelperID) != 0 {
		t.Errorf("helper balance = %d, want 0", f.balance(t, e.HelperID))
	}

	w, err := f.wallets.Get(ctx, e.HelperID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.PendingEarningsCents != 0 {
		t.Errorf("pending after refund = %d, want 0", w.PendingEarningsCents)
	}
}

func TestRefundDeclineKeepsHeld(t *testing.T) {
	f := newLedgerFixture(t)
	f.gateway.declineRefund = true
	ctx := context.Background()
	e := f.createHeld(t, 5000)

	if _, err := f.ledger.RefundEscrow(ctx, e.ID, nil); !errors.Is(err, models.ErrRefundFailed) {
		t.Fatalf("RefundEscrow error = %v, want ErrRefundFailed", err)
	}
	got, _ := f.ledger.GetEscrow(ctx, e.ID)
	if got.Status != models.EscrowStatusHeld {
		t.Errorf("status = %q, want held", got.Status)
	}
}

func TestTransferDeclineKeepsHeld(t *testing.T) {
	f := newLedgerFixture(t)
	f.gateway.declineTransfer = true
	ctx := context.Background()
	e := f.createHeld(t, 5000)

	if _, err := f.ledger.ReleaseEscrow(ctx, e.ID, models.ReleaseTriggerAuto, nil); !errors.Is(err, models.ErrTransferFailed) {
		t.Fatalf("ReleaseEscrow error = %v, want ErrTransferFailed", err)
	}
	got, _ := f.ledger.GetEscrow(ctx, e.ID)
	if got.Status != models.EscrowStatusHeld {
		t.Errorf("status = %q, want held (retryable)", got.Status)
	}
	if f.balance(t, e.HelperID) != 0 {
		t.Errorf("wallet credited on failed transfer")
	}
}

func TestCancelPendingOnly(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	e, err := f.ledger.CreateEscrow(ctx, uuid.New(), uuid.New(), uuid.New(), 5000)
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	cancelled, err := f.ledger.CancelEscrow(ctx, e.ID, nil)
	if err != nil {
		t.Fatalf("CancelEscrow: %v", err)
	}
	if cancelled.Status != models.EscrowStatusCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}
	if f.gateway.charges.Load()+f.gateway.refunds.Load() != 0 {
		t.Errorf("cancel moved money through the gateway")
	}

	// A held escrow cannot be cancelled, only refunded.
	held := f.createHeld(t, 5000)
	if _, err := f.ledger.CancelEscrow(ctx, held.ID, nil); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("cancel held error = %v, want ErrInvalidTransition", err)
	}
}

// Idempotence: the second release is a no-op reported as AlreadyFinal
// and the wallet is credited exactly once.
func TestReleaseIdempotent(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	e := f.createHeld(t, 5000)

	if _, err := f.ledger.ReleaseEscrow(ctx, e.ID, models.ReleaseTriggerRequester, nil); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if _, err := f.ledger.ReleaseEscrow(ctx, e.ID, models.ReleaseTriggerAuto, nil); !errors.Is(err, models.ErrAlreadyFinal) {
		t.Errorf("second release error = %v, want ErrAlreadyFinal", err)
	}
	if got := f.balance(t, e.HelperID); got != 5000 {
		t.Errorf("balance = %d, want exactly 5000", got)
	}
}

// Race safety: N concurrent releases produce exactly one released
// transition and one credit.
func TestConcurrentReleaseCreditsOnce(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	e := f.createHeld(t, 5000)

	const n = 16
	var wg sync.WaitGroup
	var wins, benign, unexpected atomic.Int64
	for i := 0; i < n; i++ {
		trigger := models.ReleaseTriggerRequester
		if i%2 == 0 {
			trigger = models.ReleaseTriggerAuto
		}
		wg.Add(1)
		go func(trigger string) {
			defer wg.Done()
			_, err := f.ledger.ReleaseEscrow(ctx, e.ID, trigger, nil)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, models.ErrAlreadyFinal), errors.Is(err, models.ErrInvalidTransition):
				// Losers observe either the winner's in-flight claim or
				// the terminal record.
				benign.Add(1)
			default:
				unexpected.Add(1)
			}
		}(trigger)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("winning releases = %d, want 1", wins.Load())
	}
	if unexpected.Load() != 0 {
		t.Errorf("unexpected errors = %d, want 0", unexpected.Load())
	}
	if got := f.balance(t, e.HelperID); got != 5000 {
		t.Errorf("balance = %d, want exactly 5000", got)
	}
}

func TestConcurrentReleaseVsRefundExactlyOneWins(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	e := f.createHeld(t, 5000)

	var wg sync.WaitGroup
	var released, refunded atomic.Int64
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := f.ledger.ReleaseEscrow(ctx, e.ID, models.ReleaseTriggerAuto, nil); err == nil {
			released.Add(1)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := f.ledger.RefundEscrow(ctx, e.ID, nil); err == nil {
			refunded.Add(1)
		}
	}()
	wg.Wait()

	if released.Load()+refunded.Load() != 1 {
		t.Fatalf("winners = %d released + %d refunded, want exactly 1 total", released.Load(), refunded.Load())
	}

	// The loser must have failed before reaching the provider: one
	// escrow can never both pay the helper and refund the requester.
	if moved := f.gateway.transfers.Load() + f.gateway.refunds.Load(); moved != 1 {
		t.Errorf("provider money movements = %d, want exactly 1", moved)
	}

	got, _ := f.ledger.GetEscrow(ctx, e.ID)
	wantBalance := int64(0)
	if released.Load() == 1 {
		if got.Status != models.EscrowStatusReleased {
			t.Errorf("status = %q, want released", got.Status)
		}
		wantBalance = 5000
	} else if got.Status != models.EscrowStatusRefunded {
		t.Errorf("status = %q, want refunded", got.Status)
	}
	if f.balance(t, e.HelperID) != wantBalance {
		t.Errorf("balance = %d, want %d", f.balance(t, e.HelperID), wantBalance)
	}
}

// A cancel arriving while the charge is in flight must fail instead of
// orphaning the captured funds: the escrow still ends up held, and no
// compensating refund is ever needed.
func TestCancelWhileChargeInFlightFails(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	e, err := f.ledger.CreateEscrow(ctx, uuid.New(), uuid.New(), uuid.New(), 5000)
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}

	var cancelErr error
	f.gateway.duringCharge = func() {
		_, cancelErr = f.ledger.CancelEscrow(ctx, e.ID, nil)
	}

	held, err := f.ledger.HoldEscrow(ctx, e.ID)
	if err != nil {
		t.Fatalf("HoldEscrow: %v", err)
	}
	if held.Status != models.EscrowStatusHeld {
		t.Errorf("status = %q, want held", held.Status)
	}
	if !errors.Is(cancelErr, models.ErrInvalidTransition) {
		t.Errorf("concurrent cancel error = %v, want ErrInvalidTransition", cancelErr)
	}
	if f.gateway.charges.Load() != 1 || f.gateway.refunds.Load() != 0 {
		t.Errorf("charges=%d refunds=%d, want 1 charge and no compensation",
			f.gateway.charges.Load(), f.gateway.refunds.Load())
	}
}

// A refund arriving while the release transfer is in flight must fail
// before reaching the provider, so the requester can never be refunded
// for an escrow whose helper is being paid.
func TestRefundWhileReleaseInFlightFails(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	e := f.createHeld(t, 5000)

	var refundErr error
	f.gateway.duringTransfer = func() {
		_, refundErr = f.ledger.RefundEscrow(ctx, e.ID, nil)
	}

	released, err := f.ledger.ReleaseEscrow(ctx, e.ID, models.ReleaseTriggerAuto, nil)
	if err != nil {
		t.Fatalf("ReleaseEscrow: %v", err)
	}
	if released.Status != models.EscrowStatusReleased {
		t.Errorf("status = %q, want released", released.Status)
	}
	if !errors.Is(refundErr, models.ErrInvalidTransition) {
		t.Errorf("concurrent refund error = %v, want ErrInvalidTransition", refundErr)
	}
	if f.gateway.refunds.Load() != 0 {
		t.Errorf("refunds = %d, want 0", f.gateway.refunds.Load())
	}
	if got := f.balance(t, e.HelperID); got != 5000 {
		t.Errorf("balance = %d, want 5000", got)
	}
}

func TestNoTransitionFromTerminal(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	e, err := f.ledger.CreateEscrow(ctx, uuid.New(), uuid.New(), uuid.New(), 5000)
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	if _, err := f.ledger.CancelEscrow(ctx, e.ID, nil); err != nil {
		t.Fatalf("CancelEscrow: %v", err)
	}

	ops := map[string]func() error{
		"hold":    func() error { _, err := f.ledger.HoldEscrow(ctx, e.ID); return err },
		"release": func() error { _, err := f.ledger.ReleaseEscrow(ctx, e.ID, models.ReleaseTriggerAuto, nil); return err },
		"refund":  func() error { _, err := f.ledger.RefundEscrow(ctx, e.ID, nil); return err },
		"cancel":  func() error { _, err := f.ledger.CancelEscrow(ctx, e.ID, nil); return err },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, models.ErrAlreadyFinal) {
			t.Errorf("%s on cancelled escrow error = %v, want ErrAlreadyFinal", name, err)
		}
	}
}

func TestGetEscrowNotFound(t *testing.T) {
	f := newLedgerFixture(t)
	if _, err := f.ledger.GetEscrow(context.Background(), uuid.New()); !errors.Is(err, models.ErrEscrowNotFound) {
		t.Errorf("error = %v, want ErrEscrowNotFound", err)
	}
}

// A record whose fee sum is broken is frozen: every transition refuses
// it.
func TestInvariantViolationFreezesRecord(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	bad := &models.EscrowPayment{
		ID:              uuid.New(),
		FavorID:         uuid.New(),
		RequesterID:     uuid.New(),
		HelperID:        uuid.New(),
		AmountCents:     5000,
		ServiceFeeCents: 500,
		TotalCents:      9999, // corrupted
		Status:          models.EscrowStatusHeld,
		CreatedAt:       time.Now(),
		AutoReleaseAt:   time.Now().Add(72 * time.Hour),
	}
	if err := f.escrows.Create(ctx, bad); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := f.ledger.ReleaseEscrow(ctx, bad.ID, models.ReleaseTriggerAuto, nil); !errors.Is(err, models.ErrInvariantViolation) {
		t.Errorf("release error = %v, want ErrInvariantViolation", err)
	}
	if _, err := f.ledger.RefundEscrow(ctx, bad.ID, nil); !errors.Is(err, models.ErrInvariantViolation) {
		t.Errorf("refund error = %v, want ErrInvariantViolation", err)
	}
	if f.balance(t, bad.HelperID) != 0 {
		t.Errorf("frozen record credited a wallet")
	}
}

func TestCalculateFeesPure(t *testing.T) {
	f := newLedgerFixture(t)

	b, err := f.ledger.CalculateFees(5000)
	if err != nil {
		t.Fatalf("CalculateFees: %v", err)
	}
	if b.TotalCents != 5500 || b.HelperReceivesCents != 5000 {
		t.Errorf("breakdown = %+v", b)
	}
	if len(f.publisher.events) != 0 {
		t.Errorf("fee preview emitted events")
	}
}
