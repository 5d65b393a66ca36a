package disbursement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/docstate"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func amount(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func int64Ptr(v int64) *int64 { return &v }

type memoryDisbRepo struct {
	mu     sync.Mutex
	items  map[int64]Disbursement
	nextID int64
}

func newMemoryDisbRepo() *memoryDisbRepo {
	return &memoryDisbRepo{items: make(map[int64]Disbursement)}
}

func (r *memoryDisbRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, (*memoryDisbTx)(r))
}

func (r *memoryDisbRepo) Get(ctx context.Context, id int64) (Disbursement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*memoryDisbTx)(r).Get(ctx, id)
}

func (r *memoryDisbRepo) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Disbursement, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Disbursement
	for _, d := range r.items {
		out = append(out, d)
	}
	return out, len(out), nil
}

type memoryDisbTx memoryDisbRepo

func (t *memoryDisbTx) Get(ctx context.Context, id int64) (Disbursement, error) {
	d, ok := t.items[id]
	if !ok {
		return Disbursement{}, shared.NotFoundError("disbursement")
	}
	return d, nil
}

func (t *memoryDisbTx) Create(ctx context.Context, d Disbursement) (int64, error) {
	t.nextID++
	d.ID = t.nextID
	d.CreatedAt = time.Now()
	t.items[d.ID] = d
	return d.ID, nil
}

func (t *memoryDisbTx) SetStatus(ctx context.Context, id int64, from, to docstate.Status, actorID int64, at time.Time) error {
	d, ok := t.items[id]
	if !ok || d.Status != from {
		return shared.ConcurrencyConflictError("disbursement was updated by another actor")
	}
	d.Status = to
	d.ReleasedByID = &actorID
	d.ReleasedAt = &at
	t.items[id] = d
	return nil
}

type staticPOPort struct {
	statuses map[int64]docstate.Status
}

func (p staticPOPort) PurchaseOrderStatus(ctx context.Context, id int64) (docstate.Status, error) {
	status, ok := p.statuses[id]
	if !ok {
		return "", shared.NotFoundError("purchase order")
	}
	return status, nil
}

func newTestService(repo *memoryDisbRepo) *Service {
	orders := staticPOPort{statuses: map[int64]docstate.Status{
		1: docstate.StatusApproved,
		2: docstate.StatusPending,
	}}
	return NewService(repo, orders, nil, nil)
}

func TestCreateDisbursementValidation(t *testing.T) {
	svc := newTestService(newMemoryDisbRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Amount: amount("0"), Method: MethodCash, ReferenceNumber: "R-1", ProcessedByID: 1})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.Create(ctx, CreateInput{Amount: amount("10"), Method: "WIRE", ReferenceNumber: "R-1", ProcessedByID: 1})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.Create(ctx, CreateInput{Amount: amount("10"), Method: MethodCash, ProcessedByID: 1})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	// Linked PO must exist and be approved.
	_, err = svc.Create(ctx, CreateInput{Amount: amount("10"), Method: MethodCash, ReferenceNumber: "R-1", ProcessedByID: 1, PurchaseOrderID: int64Ptr(404)})
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
	_, err = svc.Create(ctx, CreateInput{Amount: amount("10"), Method: MethodCash, ReferenceNumber: "R-1", ProcessedByID: 1, PurchaseOrderID: int64Ptr(2)})
	require.Equal(t, shared.KindInvalidTransition, shared.KindOf(err))
}

func TestReleaseDisbursement(t *testing.T) {
	repo := newMemoryDisbRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateInput{
		Amount: amount("5000"), Method: MethodBankTransfer, ReferenceNumber: "R-9",
		ProcessedByID: 1, PurchaseOrderID: int64Ptr(1),
	})
	require.NoError(t, err)
	require.Equal(t, docstate.StatusCreated, d.Status)

	require.NoError(t, svc.Release(ctx, d.ID, shared.Actor{ID: 4, Role: "FINANCE_MANAGER"}))

	stored, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, docstate.StatusReleased, stored.Status)
	require.NotNil(t, stored.ReleasedByID)
	require.Equal(t, int64(4), *stored.ReleasedByID)

	// Terminal statuses admit no further action.
	err = svc.Release(ctx, d.ID, shared.Actor{ID: 4})
	require.Equal(t, shared.KindInvalidTransition, shared.KindOf(err))
	err = svc.Void(ctx, d.ID, shared.Actor{ID: 4})
	require.Equal(t, shared.KindInvalidTransition, shared.KindOf(err))
}

func TestVoidDisbursement(t *testing.T) {
	repo := newMemoryDisbRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateInput{
		Amount: amount("100"), Method: MethodCheck, ReferenceNumber: "R-10", ProcessedByID: 1,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Void(ctx, d.ID, shared.Actor{ID: 4}))

	stored, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, docstate.StatusVoided, stored.Status)
}

func TestConcurrentReleaseExactlyOneSucceeds(t *testing.T) {
	repo := newMemoryDisbRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateInput{
		Amount: amount("100"), Method: MethodCash, ReferenceNumber: "R-11", ProcessedByID: 1,
	})
	require.NoError(t, err)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Release(ctx, d.ID, shared.Actor{ID: 4})
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.Contains(t, []shared.ErrorKind{shared.KindInvalidTransition, shared.KindConcurrencyConflict}, shared.KindOf(err))
	}
	require.Equal(t, 1, succeeded)
}
