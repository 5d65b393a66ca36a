package procurement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/docstate"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/workflow"
)

func amount(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

// memoryProcRepo backs the service with maps. WithTx serializes callbacks
// with a mutex so decision writes observe each other, the way repeatable
// read transactions with guarded updates do.
type memoryProcRepo struct {
	mu      sync.Mutex
	mrs     map[int64]MaterialRequest
	mrItems map[int64][]MRItem
	pos     map[int64]PurchaseOrder
	poItems map[int64][]POItem
	rrs     map[int64]ReceivingReport
	rrItems map[int64][]ReceivingReportItem
	nextID  int64
}

func newMemoryProcRepo() *memoryProcRepo {
	return &memoryProcRepo{
		mrs:     make(map[int64]MaterialRequest),
		mrItems: make(map[int64][]MRItem),
		pos:     make(map[int64]PurchaseOrder),
		poItems: make(map[int64][]POItem),
		rrs:     make(map[int64]ReceivingReport),
		rrItems: make(map[int64][]ReceivingReportItem),
	}
}

func (r *memoryProcRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, (*memoryProcTx)(r))
}

func (r *memoryProcRepo) GetMR(ctx context.Context, id int64) (MaterialRequest, []MRItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*memoryProcTx)(r).GetMR(ctx, id)
}

func (r *memoryProcRepo) GetPO(ctx context.Context, id int64) (PurchaseOrder, []POItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*memoryProcTx)(r).GetPO(ctx, id)
}

func (r *memoryProcRepo) GetReceivingReport(ctx context.Context, id int64) (ReceivingReport, []ReceivingReportItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rr, ok := r.rrs[id]
	if !ok {
		return ReceivingReport{}, nil, shared.NotFoundError("receiving report")
	}
	return rr, r.rrItems[id], nil
}

func (r *memoryProcRepo) ListMRs(ctx context.Context, limit, offset int, filters ListFilters) ([]MaterialRequest, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []MaterialRequest
	for _, mr := range r.mrs {
		out = append(out, mr)
	}
	return out, len(out), nil
}

func (r *memoryProcRepo) ListPOs(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PurchaseOrder
	for _, po := range r.pos {
		out = append(out, po)
	}
	return out, len(out), nil
}

type memoryProcTx memoryProcRepo

func (t *memoryProcTx) GetMR(ctx context.Context, id int64) (MaterialRequest, []MRItem, error) {
	mr, ok := t.mrs[id]
	if !ok {
		return MaterialRequest{}, nil, shared.NotFoundError("material request")
	}
	return mr, t.mrItems[id], nil
}

func (t *memoryProcTx) GetPO(ctx context.Context, id int64) (PurchaseOrder, []POItem, error) {
	po, ok := t.pos[id]
	if !ok {
		return PurchaseOrder{}, nil, shared.NotFoundError("purchase order")
	}
	return po, t.poItems[id], nil
}

func (t *memoryProcTx) CreateMR(ctx context.Context, mr MaterialRequest) (int64, error) {
	t.nextID++
	mr.ID = t.nextID
	mr.CreatedAt = time.Now()
	t.mrs[mr.ID] = mr
	return mr.ID, nil
}

func (t *memoryProcTx) InsertMRItem(ctx context.Context, item MRItem) error {
	t.nextID++
	item.ID = t.nextID
	t.mrItems[item.MaterialRequestID] = append(t.mrItems[item.MaterialRequestID], item)
	return nil
}

func (t *memoryProcTx) SetMRDecision(ctx context.Context, id int64, from, to docstate.Status, approverID int64, at time.Time) error {
	mr, ok := t.mrs[id]
	if !ok || mr.Status != from {
		return shared.ConcurrencyConflictError("material request was decided by another actor")
	}
	mr.Status = to
	mr.ApproverID = &approverID
	mr.DecidedAt = &at
	t.mrs[id] = mr
	return nil
}

func (t *memoryProcTx) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	t.nextID++
	po.ID = t.nextID
	po.CreatedAt = time.Now()
	t.pos[po.ID] = po
	return po.ID, nil
}

func (t *memoryProcTx) InsertPOItem(ctx context.Context, item POItem) (int64, error) {
	t.nextID++
	item.ID = t.nextID
	t.poItems[item.PurchaseOrderID] = append(t.poItems[item.PurchaseOrderID], item)
	return item.ID, nil
}

func (t *memoryProcTx) SetPODecision(ctx context.Context, id int64, from, to docstate.Status, approverID int64, at time.Time) error {
	po, ok := t.pos[id]
	if !ok || po.Status != from {
		return shared.ConcurrencyConflictError("purchase order was decided by another actor")
	}
	po.Status = to
	po.ApproverID = &approverID
	po.DecidedAt = &at
	t.pos[id] = po
	return nil
}

func (t *memoryProcTx) CreateReceivingReport(ctx context.Context, rr ReceivingReport) (int64, error) {
	t.nextID++
	rr.ID = t.nextID
	rr.CreatedAt = time.Now()
	t.rrs[rr.ID] = rr
	return rr.ID, nil
}

func (t *memoryProcTx) InsertReceivingReportItem(ctx context.Context, item ReceivingReportItem) error {
	t.nextID++
	item.ID = t.nextID
	t.rrItems[item.ReceivingReportID] = append(t.rrItems[item.ReceivingReportID], item)
	return nil
}

// staticWorkflow always resolves the same role.
type staticWorkflow struct {
	role string
	err  error
}

func (w staticWorkflow) ResolveApprover(ctx context.Context, process workflow.ProcessType, amount decimal.Decimal) (workflow.Resolution, error) {
	if w.err != nil {
		return workflow.Resolution{}, w.err
	}
	return workflow.Resolution{ApproverRole: w.role, StepOrder: 1}, nil
}

func newTestService(repo *memoryProcRepo, role string) *Service {
	return NewService(repo, staticWorkflow{role: role}, nil, nil)
}

func TestCreatePurchaseOrderComputesTotals(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo, "OPERATIONS_DIRECTOR")
	ctx := context.Background()

	po, items, err := svc.CreatePurchaseOrder(ctx, CreatePOInput{
		ProjectID:   1,
		SupplierID:  2,
		RequesterID: 3,
		Items: []POItemInput{
			{MaterialID: 10, Description: "rebar", Quantity: amount("10"), Unit: "pc", UnitPrice: amount("100")},
			{MaterialID: 11, Description: "cement", Quantity: amount("5"), Unit: "bag", UnitPrice: amount("50")},
		},
	})
	require.NoError(t, err)
	require.True(t, po.TotalAmount.Equal(amount("1250")), "got %s", po.TotalAmount)
	require.Equal(t, docstate.StatusPending, po.Status)
	require.Equal(t, "OPERATIONS_DIRECTOR", po.ApproverRole)
	require.Len(t, items, 2)
	require.True(t, items[0].TotalPrice.Equal(amount("1000")))
	require.True(t, items[1].TotalPrice.Equal(amount("250")))

	// The stored header total round-trips to the same value.
	stored, storedItems, err := svc.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	require.True(t, stored.TotalAmount.Equal(amount("1250")))
	require.Len(t, storedItems, 2)
}

func TestCreatePurchaseOrderValidation(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo, "PM")
	ctx := context.Background()

	_, _, err := svc.CreatePurchaseOrder(ctx, CreatePOInput{ProjectID: 1, SupplierID: 2, RequesterID: 3})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, _, err = svc.CreatePurchaseOrder(ctx, CreatePOInput{
		ProjectID: 1, SupplierID: 2, RequesterID: 3,
		Items: []POItemInput{{MaterialID: 1, Quantity: amount("0"), Unit: "pc", UnitPrice: amount("10")}},
	})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, _, err = svc.CreatePurchaseOrder(ctx, CreatePOInput{
		ProjectID: 1, SupplierID: 2, RequesterID: 3,
		Items: []POItemInput{{MaterialID: 1, Quantity: amount("1"), Unit: "pc", UnitPrice: amount("-10")}},
	})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestCreatePurchaseOrderSurfacesConfigurationError(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, staticWorkflow{err: shared.ConfigurationError("no approver configured for this amount bracket")}, nil, nil)

	_, _, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		ProjectID: 1, SupplierID: 2, RequesterID: 3,
		Items: []POItemInput{{MaterialID: 1, Quantity: amount("1"), Unit: "pc", UnitPrice: amount("10")}},
	})
	require.Equal(t, shared.KindConfiguration, shared.KindOf(err))
}

func TestApprovePurchaseOrderRoleCheck(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo, "PRESIDENT")
	ctx := context.Background()

	po, _, err := svc.CreatePurchaseOrder(ctx, CreatePOInput{
		ProjectID: 1, SupplierID: 2, RequesterID: 3,
		Items: []POItemInput{{MaterialID: 1, Quantity: amount("1"), Unit: "pc", UnitPrice: amount("900000")}},
	})
	require.NoError(t, err)

	err = svc.ApprovePurchaseOrder(ctx, po.ID, shared.Actor{ID: 9, Role: "PROJECT_MANAGER"})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	stored, _, err := svc.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, docstate.StatusPending, stored.Status)

	require.NoError(t, svc.ApprovePurchaseOrder(ctx, po.ID, shared.Actor{ID: 9, Role: "PRESIDENT"}))
	stored, _, err = svc.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, docstate.StatusApproved, stored.Status)
	require.NotNil(t, stored.ApproverID)
	require.Equal(t, int64(9), *stored.ApproverID)
	require.NotNil(t, stored.DecidedAt)
}

func TestApproveAlreadyDecidedFailsWithoutChange(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo, "PM")
	ctx := context.Background()
	actor := shared.Actor{ID: 5, Role: "PM"}

	mr, err := svc.CreateMaterialRequest(ctx, CreateMRInput{
		ProjectID: 1, RequesterID: 2,
		Items: []MRItemInput{{MaterialID: 1, Quantity: amount("2"), Unit: "pc", MaterialUnitPrice: amount("100"), LaborUnitPrice: amount("25")}},
	})
	require.NoError(t, err)
	require.True(t, mr.TotalAmount.Equal(amount("250")))

	require.NoError(t, svc.ApproveMaterialRequest(ctx, mr.ID, actor))

	err = svc.ApproveMaterialRequest(ctx, mr.ID, actor)
	require.Equal(t, shared.KindInvalidTransition, shared.KindOf(err))

	err = svc.DeclineMaterialRequest(ctx, mr.ID, actor)
	require.Equal(t, shared.KindInvalidTransition, shared.KindOf(err))

	stored, _, err := svc.GetMaterialRequest(ctx, mr.ID)
	require.NoError(t, err)
	require.Equal(t, docstate.StatusApproved, stored.Status)
}

func TestConcurrentApprovalExactlyOneSucceeds(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo, "PM")
	ctx := context.Background()
	actor := shared.Actor{ID: 5, Role: "PM"}

	po, _, err := svc.CreatePurchaseOrder(ctx, CreatePOInput{
		ProjectID: 1, SupplierID: 2, RequesterID: 3,
		Items: []POItemInput{{MaterialID: 1, Quantity: amount("1"), Unit: "pc", UnitPrice: amount("10")}},
	})
	require.NoError(t, err)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.ApprovePurchaseOrder(ctx, po.ID, actor)
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, conflicted int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		kind := shared.KindOf(err)
		require.Contains(t, []shared.ErrorKind{shared.KindInvalidTransition, shared.KindConcurrencyConflict}, kind)
		conflicted++
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, conflicted)

	stored, _, err := svc.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, docstate.StatusApproved, stored.Status)
}

func TestCreateReceivingReportRequiresApprovedPO(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo, "PM")
	ctx := context.Background()

	po, _, err := svc.CreatePurchaseOrder(ctx, CreatePOInput{
		ProjectID: 1, SupplierID: 2, RequesterID: 3,
		Items: []POItemInput{{MaterialID: 1, Quantity: amount("1"), Unit: "pc", UnitPrice: amount("10")}},
	})
	require.NoError(t, err)

	_, err = svc.CreateReceivingReport(ctx, CreateReceivingReportInput{
		PurchaseOrderID: po.ID,
		ReceivedBy:      4,
		Items:           []ReceivingReportItemInput{{Description: "rebar", Quantity: amount("1"), Unit: "pc"}},
	})
	require.Equal(t, shared.KindInvalidTransition, shared.KindOf(err))

	require.NoError(t, svc.ApprovePurchaseOrder(ctx, po.ID, shared.Actor{ID: 5, Role: "PM"}))

	rr, err := svc.CreateReceivingReport(ctx, CreateReceivingReportInput{
		PurchaseOrderID: po.ID,
		ReceivedBy:      4,
		Items:           []ReceivingReportItemInput{{Description: "rebar", Quantity: amount("1"), Unit: "pc"}},
	})
	require.NoError(t, err)
	require.NotZero(t, rr.ID)

	stored, items, err := svc.GetReceivingReport(ctx, rr.ID)
	require.NoError(t, err)
	require.Equal(t, po.ID, stored.PurchaseOrderID)
	require.Len(t, items, 1)
}

func TestCreateReceivingReportUnknownPO(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo, "PM")

	_, err := svc.CreateReceivingReport(context.Background(), CreateReceivingReportInput{
		PurchaseOrderID: 404,
		ReceivedBy:      4,
		Items:           []ReceivingReportItemInput{{Quantity: amount("1"), Unit: "pc"}},
	})
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}
