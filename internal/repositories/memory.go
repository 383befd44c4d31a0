package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/favorlink/backend/internal/models"
	"github.com/google/uuid"
)

// In-memory store implementations. They back tests and local runs
// without Postgres while keeping the same guard semantics: each escrow
// record carries its own lock, so unrelated escrows transition
// independently and a transition's read-verify-write is one critical
// section.

type memEscrow struct {
	mu sync.Mutex
	e  models.EscrowPayment
}

type MemEscrowRepo struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*memEscrow
	wallets *MemWalletRepo
}

func NewMemEscrowRepo(wallets *MemWalletRepo) *MemEscrowRepo {
	return &MemEscrowRepo{
		byID:    make(map[uuid.UUID]*memEscrow),
		wallets: wallets,
	}
}

func (r *MemEscrowRepo) Create(ctx context.Context, e *models.EscrowPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.byID {
		rec.mu.Lock()
		dup := rec.e.FavorID == e.FavorID && !rec.e.IsFinal()
		rec.mu.Unlock()
		if dup {
			return models.ErrDuplicateEscrow
		}
	}
	cp := *e
	r.byID[e.ID] = &memEscrow{e: cp}
	return nil
}

func (r *MemEscrowRepo) get(id uuid.UUID) *memEscrow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

func (r *MemEscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowPayment, error) {
	rec := r.get(id)
	if rec == nil {
		return nil, models.ErrEscrowNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	cp := rec.e
	return &cp, nil
}

func (r *MemEscrowRepo) GetActiveByFavor(ctx context.Context, favorID uuid.UUID) (*models.EscrowPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.byID {
		rec.mu.Lock()
		if rec.e.FavorID == favorID && !rec.e.IsFinal() {
			cp := rec.e
			rec.mu.Unlock()
			return &cp, nil
		}
		rec.mu.Unlock()
	}
	return nil, models.ErrEscrowNotFound
}

func (r *MemEscrowRepo) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	rec := r.get(id)
	if rec == nil {
		return false, models.ErrEscrowNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.e.Status != from {
		return false, nil
	}
	rec.e.Status = to
	return true, nil
}

func (r *MemEscrowRepo) MarkReleased(ctx context.Context, id uuid.UUID, helperID uuid.UUID, amountCents int64, triggeredBy string, at time.Time) (bool, error) {
	rec := r.get(id)
	if rec == nil {
		return false, models.ErrEscrowNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.e.Status != models.EscrowStatusReleasing {
		return false, nil
	}
	rec.e.Status = models.EscrowStatusReleased
	rec.e.ReleasedAt = &at
	trigger := triggeredBy
	rec.e.ReleasedBy = &trigger

	// Credit inside the record's critical section so the flip and the
	// credit cannot be observed apart.
	r.wallets.settle(helperID, amountCents, at)
	return true, nil
}

func (r *MemEscrowRepo) ListAutoReleasable(ctx context.Context, cutoff time.Time, limit int) ([]models.EscrowPayment, error) {
	if limit <= 0 {
		limit = 100
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.EscrowPayment
	for _, rec := range r.byID {
		rec.mu.Lock()
		if rec.e.Status == models.EscrowStatusHeld && !rec.e.AutoReleaseAt.After(cutoff) {
			out = append(out, rec.e)
		}
		rec.mu.Unlock()
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type MemWalletRepo struct {
	mu      sync.Mutex
	byUser  map[uuid.UUID]*models.UserWallet
	methods map[uuid.UUID][]models.PaymentMethod
}

func NewMemWalletRepo() *MemWalletRepo {
	return &MemWalletRepo{
		byUser:  make(map[uuid.UUID]*models.UserWallet),
		methods: make(map[uuid.UUID][]models.PaymentMethod),
	}
}

func (r *MemWalletRepo) ensure(userID uuid.UUID, at time.Time) *models.UserWallet {
	w, ok := r.byUser[userID]
	if !ok {
		w = &models.UserWallet{
			UserID:    userID,
			KYCStatus: models.KYCStatusUnverified,
			CreatedAt: at,
			UpdatedAt: at,
		}
		r.byUser[userID] = w
	}
	return w
}

// settle moves amountCents of pending earnings into the settled balance.
func (r *MemWalletRepo) settle(userID uuid.UUID, amountCents int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.ensure(userID, at)
	w.BalanceCents += amountCents
	if w.PendingEarningsCents > amountCents {
		w.PendingEarningsCents -= amountCents
	} else {
		w.PendingEarningsCents = 0
	}
	w.UpdatedAt = at
}

func (r *MemWalletRepo) Get(ctx context.Context, userID uuid.UUID) (*models.UserWallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.byUser[userID]
	if !ok {
		return nil, models.ErrWalletNotFound
	}
	cp := *w
	cp.PaymentMethods = append([]models.PaymentMethod(nil), r.methods[userID]...)
	return &cp, nil
}

func (r *MemWalletRepo) AddPending(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	if amountCents < 0 {
		return models.ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.ensure(userID, time.Now())
	w.PendingEarningsCents += amountCents
	w.UpdatedAt = time.Now()
	return nil
}

func (r *MemWalletRepo) SubPending(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	if amountCents < 0 {
		return models.ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	if w.PendingEarningsCents > amountCents {
		w.PendingEarningsCents -= amountCents
	} else {
		w.PendingEarningsCents = 0
	}
	w.UpdatedAt = time.Now()
	return nil
}

func (r *MemWalletRepo) SetKYCStatus(ctx context.Context, userID uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.ensure(userID, time.Now())
	w.KYCStatus = status
	return nil
}

func (r *MemWalletRepo) AddPaymentMethod(ctx context.Context, m *models.PaymentMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.IsDefault {
		for i := range r.methods[m.UserID] {
			r.methods[m.UserID][i].IsDefault = false
		}
	}
	m.CreatedAt = time.Now()
	r.methods[m.UserID] = append(r.methods[m.UserID], *m)
	return nil
}

func (r *MemWalletRepo) ListPaymentMethods(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.PaymentMethod(nil), r.methods[userID]...), nil
}

func (r *MemWalletRepo) RemovePaymentMethod(ctx context.Context, userID, methodID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms := r.methods[userID]
	for i, m := range ms {
		if m.ID == methodID {
			r.methods[userID] = append(ms[:i], ms[i+1:]...)
			return nil
		}
	}
	return nil
}

// MemAuditRepo collects audit entries in memory.
type MemAuditRepo struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func NewMemAuditRepo() *MemAuditRepo {
	return &MemAuditRepo{}
}

func (r *MemAuditRepo) Log(ctx context.Context, entry models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *MemAuditRepo) GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AuditLog
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.EntityType == entityType && e.EntityID != nil && *e.EntityID == entityID {
			out = append(out, e)
		}
	}
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
