package masterdata

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryMasterRepo struct {
	suppliers  map[int64]Supplier
	materials  map[int64]Material
	units      map[int64]Unit
	warehouses map[int64]Warehouse
	nextID     int64
}

func newMemoryMasterRepo() *memoryMasterRepo {
	return &memoryMasterRepo{
		suppliers:  make(map[int64]Supplier),
		materials:  make(map[int64]Material),
		units:      make(map[int64]Unit),
		warehouses: make(map[int64]Warehouse),
	}
}

func (r *memoryMasterRepo) CreateSupplier(ctx context.Context, s Supplier) (int64, error) {
	r.nextID++
	s.ID = r.nextID
	r.suppliers[s.ID] = s
	return s.ID, nil
}

func (r *memoryMasterRepo) UpdateSupplier(ctx context.Context, s Supplier) error {
	if _, ok := r.suppliers[s.ID]; !ok {
		return shared.NotFoundError("supplier")
	}
	r.suppliers[s.ID] = s
	return nil
}

func (r *memoryMasterRepo) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, shared.NotFoundError("supplier")
	}
	return s, nil
}

func (r *memoryMasterRepo) ListSuppliers(ctx context.Context, limit, offset int, search string) ([]Supplier, int, error) {
	var out []Supplier
	for _, s := range r.suppliers {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (r *memoryMasterRepo) CreateMaterial(ctx context.Context, m Material) (int64, error) {
	r.nextID++
	m.ID = r.nextID
	r.materials[m.ID] = m
	return m.ID, nil
}

func (r *memoryMasterRepo) GetMaterial(ctx context.Context, id int64) (Material, error) {
	m, ok := r.materials[id]
	if !ok {
		return Material{}, shared.NotFoundError("material")
	}
	return m, nil
}

func (r *memoryMasterRepo) ListMaterials(ctx context.Context, limit, offset int, search string) ([]Material, int, error) {
	var out []Material
	for _, m := range r.materials {
		out = append(out, m)
	}
	return out, len(out), nil
}

func (r *memoryMasterRepo) CreateUnit(ctx context.Context, u Unit) (int64, error) {
	r.nextID++
	u.ID = r.nextID
	r.units[u.ID] = u
	return u.ID, nil
}

func (r *memoryMasterRepo) GetUnit(ctx context.Context, id int64) (Unit, error) {
	u, ok := r.units[id]
	if !ok {
		return Unit{}, shared.NotFoundError("unit")
	}
	return u, nil
}

func (r *memoryMasterRepo) ListUnits(ctx context.Context) ([]Unit, error) {
	var out []Unit
	for _, u := range r.units {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryMasterRepo) CreateWarehouse(ctx context.Context, w Warehouse) (int64, error) {
	r.nextID++
	w.ID = r.nextID
	r.warehouses[w.ID] = w
	return w.ID, nil
}

func (r *memoryMasterRepo) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	var out []Warehouse
	for _, w := range r.warehouses {
		out = append(out, w)
	}
	return out, nil
}

func TestCreateSupplier(t *testing.T) {
	svc := NewService(newMemoryMasterRepo(), nil)
	ctx := context.Background()

	s, err := svc.CreateSupplier(ctx, SupplierInput{Code: "SUP-1", Name: "Acme Steel"})
	require.NoError(t, err)
	require.NotZero(t, s.ID)

	_, err = svc.CreateSupplier(ctx, SupplierInput{Name: "No code"})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestUpdateSupplier(t *testing.T) {
	repo := newMemoryMasterRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	s, err := svc.CreateSupplier(ctx, SupplierInput{Code: "SUP-1", Name: "Acme Steel"})
	require.NoError(t, err)

	updated, err := svc.UpdateSupplier(ctx, s.ID, SupplierInput{Name: "Acme Steel Corp", Phone: "123"})
	require.NoError(t, err)
	require.Equal(t, "Acme Steel Corp", updated.Name)
	require.Equal(t, "SUP-1", updated.Code)

	_, err = svc.UpdateSupplier(ctx, 404, SupplierInput{Name: "X"})
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestCreateMaterial(t *testing.T) {
	repo := newMemoryMasterRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	unit, err := svc.CreateUnit(ctx, UnitInput{Code: "pc", Name: "Piece"})
	require.NoError(t, err)

	m, err := svc.CreateMaterial(ctx, MaterialInput{
		Code: "MAT-1", Name: "Rebar 10mm", UnitID: &unit.ID,
		StandardPrice: decimal.RequireFromString("185.50"),
	})
	require.NoError(t, err)
	require.NotZero(t, m.ID)

	// Unknown unit is rejected.
	bad := int64(404)
	_, err = svc.CreateMaterial(ctx, MaterialInput{Code: "MAT-2", Name: "X", UnitID: &bad})
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))

	_, err = svc.CreateMaterial(ctx, MaterialInput{Code: "MAT-3", Name: "X", StandardPrice: decimal.RequireFromString("-1")})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestCreateWarehouse(t *testing.T) {
	svc := NewService(newMemoryMasterRepo(), nil)
	ctx := context.Background()

	w, err := svc.CreateWarehouse(ctx, WarehouseInput{Code: "WH-1", Name: "Main Yard", Location: "Site 1"})
	require.NoError(t, err)
	require.NotZero(t, w.ID)

	_, err = svc.CreateWarehouse(ctx, WarehouseInput{Code: "WH-2"})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}
