package invoicing

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

type memoryInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[int64]Invoice
	nextID   int64
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{invoices: make(map[int64]Invoice)}
}

func (r *memoryInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, (*memoryInvoiceTx)(r))
}

func (r *memoryInvoiceRepo) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*memoryInvoiceTx)(r).GetInvoice(ctx, id)
}

func (r *memoryInvoiceRepo) ListInvoices(ctx context.Context, limit, offset int, filters ListFilters) ([]Invoice, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Invoice
	for _, inv := range r.invoices {
		out = append(out, inv)
	}
	return out, len(out), nil
}

type memoryInvoiceTx memoryInvoiceRepo

func (t *memoryInvoiceTx) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := t.invoices[id]
	if !ok {
		return Invoice{}, shared.NotFoundError("invoice")
	}
	return inv, nil
}

func (t *memoryInvoiceTx) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	t.nextID++
	inv.ID = t.nextID
	inv.CreatedAt = time.Now()
	t.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (t *memoryInvoiceTx) SetInvoiceStatus(ctx context.Context, id int64, from, to docstate.Status, actorID int64, at time.Time) error {
	inv, ok := t.invoices[id]
	if !ok || inv.Status != from {
		return shared.ConcurrencyConflictError("invoice was updated by another actor")
	}
	inv.Status = to
	inv.MatchedByID = &actorID
	inv.MatchedAt = &at
	t.invoices[id] = inv
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

func newTestService(repo *memoryInvoiceRepo, cfg Config) *Service {
	orders := staticPOPort{statuses: map[int64]docstate.Status{1: docstate.StatusApproved}}
	return NewService(repo, orders, nil, nil, cfg)
}

func TestCreateInvoiceValidation(t *testing.T) {
	svc := newTestService(newMemoryInvoiceRepo(), Config{})
	ctx := context.Background()

	_, err := svc.CreateInvoice(ctx, CreateInvoiceInput{SupplierID: 1, TotalAmount: amount("10")})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.CreateInvoice(ctx, CreateInvoiceInput{InvoiceNumber: "S-1", TotalAmount: amount("10")})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.CreateInvoice(ctx, CreateInvoiceInput{InvoiceNumber: "S-1", SupplierID: 1, TotalAmount: amount("0")})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	// Linking an unknown PO fails up front.
	_, err = svc.CreateInvoice(ctx, CreateInvoiceInput{InvoiceNumber: "S-1", SupplierID: 1, TotalAmount: amount("10"), PurchaseOrderID: int64Ptr(404)})
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestMatchInvoiceTwoWay(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, Config{})
	ctx := context.Background()
	actor := shared.Actor{ID: 7, Role: "FINANCE_MANAGER"}

	inv, err := svc.CreateInvoice(ctx, CreateInvoiceInput{
		InvoiceNumber:   "S-100",
		SupplierID:      3,
		PurchaseOrderID: int64Ptr(1),
		TotalAmount:     amount("1250"),
	})
	require.NoError(t, err)
	require.Equal(t, docstate.StatusPending, inv.Status)

	require.NoError(t, svc.MatchInvoice(ctx, inv.ID, actor))

	stored, err := svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, docstate.StatusMatched, stored.Status)
	require.NotNil(t, stored.MatchedByID)
	require.Equal(t, int64(7), *stored.MatchedByID)
}

func TestMatchInvoiceTwiceReturnsAlreadyMatched(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, Config{})
	ctx := context.Background()
	actor := shared.Actor{ID: 7}

	inv, err := svc.CreateInvoice(ctx, CreateInvoiceInput{
		InvoiceNumber:   "S-100",
		SupplierID:      3,
		PurchaseOrderID: int64Ptr(1),
		TotalAmount:     amount("500"),
	})
	require.NoError(t, err)
	require.NoError(t, svc.MatchInvoice(ctx, inv.ID, actor))

	err = svc.MatchInvoice(ctx, inv.ID, actor)
	require.Equal(t, shared.KindAlreadyMatched, shared.KindOf(err))

	stored, err := svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, docstate.StatusMatched, stored.Status)
}

func TestMatchInvoiceWithoutPOLinkFails(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, Config{})
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, CreateInvoiceInput{
		InvoiceNumber: "S-200",
		SupplierID:    3,
		TotalAmount:   amount("500"),
	})
	require.NoError(t, err)

	err = svc.MatchInvoice(ctx, inv.ID, shared.Actor{ID: 7})
	require.Equal(t, shared.KindMissingLinkage, shared.KindOf(err))
	require.Contains(t, err.Error(), "purchase order link")

	stored, err := svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, docstate.StatusPending, stored.Status)
}

func TestMatchInvoiceThreeWayPolicy(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, Config{RequireReceivingReport: true})
	ctx := context.Background()
	actor := shared.Actor{ID: 7}

	// PO link only is not enough under the 3-way policy.
	inv, err := svc.CreateInvoice(ctx, CreateInvoiceInput{
		InvoiceNumber:   "S-300",
		SupplierID:      3,
		PurchaseOrderID: int64Ptr(1),
		TotalAmount:     amount("500"),
	})
	require.NoError(t, err)
	err = svc.MatchInvoice(ctx, inv.ID, actor)
	require.Equal(t, shared.KindMissingLinkage, shared.KindOf(err))
	require.Contains(t, err.Error(), "receiving report link")

	full, err := svc.CreateInvoice(ctx, CreateInvoiceInput{
		InvoiceNumber:     "S-301",
		SupplierID:        3,
		PurchaseOrderID:   int64Ptr(1),
		ReceivingReportID: int64Ptr(11),
		TotalAmount:       amount("500"),
	})
	require.NoError(t, err)
	require.NoError(t, svc.MatchInvoice(ctx, full.ID, actor))
}

func TestCancelInvoice(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo, Config{})
	ctx := context.Background()
	actor := shared.Actor{ID: 7}

	inv, err := svc.CreateInvoice(ctx, CreateInvoiceInput{
		InvoiceNumber: "S-400",
		SupplierID:    3,
		TotalAmount:   amount("500"),
	})
	require.NoError(t, err)
	require.NoError(t, svc.CancelInvoice(ctx, inv.ID, actor))

	// Matching and cancelling are both closed after a terminal status.
	err = svc.MatchInvoice(ctx, inv.ID, actor)
	require.Equal(t, shared.KindInvalidTransition, shared.KindOf(err))
	err = svc.CancelInvoice(ctx, inv.ID, actor)
	require.Equal(t, shared.KindInvalidTransition, shared.KindOf(err))
}

func TestMatchInvoiceNotFound(t *testing.T) {
	svc := newTestService(newMemoryInvoiceRepo(), Config{})
	err := svc.MatchInvoice(context.Background(), 404, shared.Actor{ID: 7})
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}
