package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/favorlink/backend/internal/models"
	"github.com/google/uuid"
)

func seedEscrow(t *testing.T, r *MemEscrowRepo, status string) *models.EscrowPayment {
	t.Helper()
	e := &models.EscrowPayment{
		ID:              uuid.New(),
		FavorID:         uuid.New(),
		RequesterID:     uuid.New(),
		HelperID:        uuid.New(),
		AmountCents:     5000,
		ServiceFeeCents: 500,
		TotalCents:      5500,
		Status:          status,
		CreatedAt:       time.Now(),
		AutoReleaseAt:   time.Now().Add(72 * time.Hour),
	}
	if err := r.Create(context.Background(), e); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return e
}

func TestMemCompareAndSwapStatus(t *testing.T) {
	r := NewMemEscrowRepo(NewMemWalletRepo())
	ctx := context.Background()
	e := seedEscrow(t, r, models.EscrowStatusPending)

	won, err := r.CompareAndSwapStatus(ctx, e.ID, models.EscrowStatusPending, models.EscrowStatusCharging)
	if err != nil || !won {
		t.Fatalf("first swap won=%v err=%v, want win", won, err)
	}

	// The from-status no longer matches.
	won, err = r.CompareAndSwapStatus(ctx, e.ID, models.EscrowStatusPending, models.EscrowStatusCancelled)
	if err != nil {
		t.Fatalf("second swap: %v", err)
	}
	if won {
		t.Error("swap from stale status reported a win")
	}

	got, err := r.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.EscrowStatusCharging {
		t.Errorf("status = %q, want charging", got.Status)
	}
}

func TestMemCompareAndSwapConcurrentSingleWinner(t *testing.T) {
	r := NewMemEscrowRepo(NewMemWalletRepo())
	ctx := context.Background()
	e := seedEscrow(t, r, models.EscrowStatusHeld)

	const n = 32
	var wg sync.WaitGroup
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		to := models.EscrowStatusReleasing
		if i%2 == 0 {
			to = models.EscrowStatusRefunding
		}
		wg.Add(1)
		go func(to string) {
			defer wg.Done()
			won, err := r.CompareAndSwapStatus(ctx, e.ID, models.EscrowStatusHeld, to)
			if err != nil {
				t.Errorf("swap: %v", err)
			}
			results <- won
		}(to)
	}
	wg.Wait()
	close(results)

	wins := 0
	for won := range results {
		if won {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d, want 1", wins)
	}
}

func TestMemMarkReleasedCreditsOnce(t *testing.T) {
	wallets := NewMemWalletRepo()
	r := NewMemEscrowRepo(wallets)
	ctx := context.Background()
	e := seedEscrow(t, r, models.EscrowStatusReleasing)
	if err := wallets.AddPending(ctx, e.HelperID, e.AmountCents); err != nil {
		t.Fatalf("add pending: %v", err)
	}

	at := time.Now()
	won, err := r.MarkReleased(ctx, e.ID, e.HelperID, e.AmountCents, models.ReleaseTriggerRequester, at)
	if err != nil || !won {
		t.Fatalf("first release won=%v err=%v, want win", won, err)
	}
	won, err = r.MarkReleased(ctx, e.ID, e.HelperID, e.AmountCents, models.ReleaseTriggerAuto, at)
	if err != nil {
		t.Fatalf("second release: %v", err)
	}
	if won {
		t.Error("second release reported a win")
	}

	w, err := wallets.Get(ctx, e.HelperID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.BalanceCents != e.AmountCents {
		t.Errorf("balance = %d, want %d", w.BalanceCents, e.AmountCents)
	}
	if w.PendingEarningsCents != 0 {
		t.Errorf("pending = %d, want 0", w.PendingEarningsCents)
	}

	got, _ := r.GetByID(ctx, e.ID)
	if got.ReleasedAt == nil || got.ReleasedBy == nil || *got.ReleasedBy != models.ReleaseTriggerRequester {
		t.Errorf("release metadata = at %v by %v, want first caller's trigger", got.ReleasedAt, got.ReleasedBy)
	}
}

func TestMemCreateDuplicateActiveFavor(t *testing.T) {
	r := NewMemEscrowRepo(NewMemWalletRepo())
	ctx := context.Background()
	e := seedEscrow(t, r, models.EscrowStatusPending)

	dup := &models.EscrowPayment{
		ID:              uuid.New(),
		FavorID:         e.FavorID,
		RequesterID:     uuid.New(),
		HelperID:        uuid.New(),
		AmountCents:     1000,
		ServiceFeeCents: 100,
		TotalCents:      1100,
		Status:          models.EscrowStatusPending,
		CreatedAt:       time.Now(),
		AutoReleaseAt:   time.Now().Add(72 * time.Hour),
	}
	if err := r.Create(ctx, dup); !errors.Is(err, models.ErrDuplicateEscrow) {
		t.Errorf("duplicate create error = %v, want ErrDuplicateEscrow", err)
	}

	// A terminal escrow frees the favor for a new one.
	if _, err := r.CompareAndSwapStatus(ctx, e.ID, models.EscrowStatusPending, models.EscrowStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := r.Create(ctx, dup); err != nil {
		t.Errorf("create after terminal: %v", err)
	}
}

func TestMemWalletPendingFloor(t *testing.T) {
	w := NewMemWalletRepo()
	ctx := context.Background()
	userID := uuid.New()

	if err := w.AddPending(ctx, userID, 300); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := w.SubPending(ctx, userID, 1000); err != nil {
		t.Fatalf("sub: %v", err)
	}

	got, err := w.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PendingEarningsCents != 0 {
		t.Errorf("pending = %d, want floored at 0", got.PendingEarningsCents)
	}
}
