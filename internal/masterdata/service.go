package masterdata

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort records audit events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns reference data: suppliers, materials, units, warehouses.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the masterdata service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// SupplierInput describes a supplier create/update payload.
type SupplierInput struct {
	Code          string
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
	ActorID       int64
}

// CreateSupplier registers a supplier.
func (s *Service) CreateSupplier(ctx context.Context, input SupplierInput) (Supplier, error) {
	if input.Code == "" || input.Name == "" {
		return Supplier{}, shared.ValidationError("supplier code and name are required")
	}
	sup := Supplier{
		Code:          input.Code,
		Name:          input.Name,
		ContactPerson: input.ContactPerson,
		Phone:         input.Phone,
		Email:         input.Email,
		Address:       input.Address,
	}
	id, err := s.repo.CreateSupplier(ctx, sup)
	if err != nil {
		return Supplier{}, err
	}
	sup.ID = id
	s.recordAudit(ctx, input.ActorID, "SUPPLIER_CREATE", "supplier", id)
	return sup, nil
}

// UpdateSupplier overwrites a supplier's mutable fields.
func (s *Service) UpdateSupplier(ctx context.Context, id int64, input SupplierInput) (Supplier, error) {
	if input.Name == "" {
		return Supplier{}, shared.ValidationError("supplier name is required")
	}
	sup, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return Supplier{}, err
	}
	sup.Name = input.Name
	sup.ContactPerson = input.ContactPerson
	sup.Phone = input.Phone
	sup.Email = input.Email
	sup.Address = input.Address
	if err := s.repo.UpdateSupplier(ctx, sup); err != nil {
		return Supplier{}, err
	}
	s.recordAudit(ctx, input.ActorID, "SUPPLIER_UPDATE", "supplier", id)
	return sup, nil
}

// GetSupplier returns one supplier.
func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

// ListSuppliers returns suppliers matching the search term.
func (s *Service) ListSuppliers(ctx context.Context, limit, offset int, search string) ([]Supplier, int, error) {
	return s.repo.ListSuppliers(ctx, limit, offset, search)
}

// MaterialInput describes a material create payload.
type MaterialInput struct {
	Code          string
	Name          string
	UnitID        *int64
	StandardPrice decimal.Decimal
	ActorID       int64
}

// CreateMaterial registers a catalog material.
func (s *Service) CreateMaterial(ctx context.Context, input MaterialInput) (Material, error) {
	if input.Code == "" || input.Name == "" {
		return Material{}, shared.ValidationError("material code and name are required")
	}
	if err := shared.RequireNonNegative("standard price", input.StandardPrice); err != nil {
		return Material{}, err
	}
	if input.UnitID != nil {
		if _, err := s.repo.GetUnit(ctx, *input.UnitID); err != nil {
			return Material{}, err
		}
	}
	m := Material{
		Code:          input.Code,
		Name:          input.Name,
		UnitID:        input.UnitID,
		StandardPrice: input.StandardPrice,
	}
	id, err := s.repo.CreateMaterial(ctx, m)
	if err != nil {
		return Material{}, err
	}
	m.ID = id
	s.recordAudit(ctx, input.ActorID, "MATERIAL_CREATE", "material", id)
	return m, nil
}

// GetMaterial returns one material.
func (s *Service) GetMaterial(ctx context.Context, id int64) (Material, error) {
	return s.repo.GetMaterial(ctx, id)
}

// ListMaterials returns materials matching the search term.
func (s *Service) ListMaterials(ctx context.Context, limit, offset int, search string) ([]Material, int, error) {
	return s.repo.ListMaterials(ctx, limit, offset, search)
}

// UnitInput describes a unit create payload.
type UnitInput struct {
	Code    string
	Name    string
	ActorID int64
}

// CreateUnit registers a unit of measure.
func (s *Service) CreateUnit(ctx context.Context, input UnitInput) (Unit, error) {
	if input.Code == "" || input.Name == "" {
		return Unit{}, shared.ValidationError("unit code and name are required")
	}
	u := Unit{Code: input.Code, Name: input.Name}
	id, err := s.repo.CreateUnit(ctx, u)
	if err != nil {
		return Unit{}, err
	}
	u.ID = id
	s.recordAudit(ctx, input.ActorID, "UNIT_CREATE", "unit", id)
	return u, nil
}

// ListUnits returns every unit of measure.
func (s *Service) ListUnits(ctx context.Context) ([]Unit, error) {
	return s.repo.ListUnits(ctx)
}

// WarehouseInput describes a warehouse create payload.
type WarehouseInput struct {
	Code     string
	Name     string
	Location string
	ActorID  int64
}

// CreateWarehouse registers a warehouse.
func (s *Service) CreateWarehouse(ctx context.Context, input WarehouseInput) (Warehouse, error) {
	if input.Code == "" || input.Name == "" {
		return Warehouse{}, shared.ValidationError("warehouse code and name are required")
	}
	w := Warehouse{Code: input.Code, Name: input.Name, Location: input.Location}
	id, err := s.repo.CreateWarehouse(ctx, w)
	if err != nil {
		return Warehouse{}, err
	}
	w.ID = id
	s.recordAudit(ctx, input.ActorID, "WAREHOUSE_CREATE", "warehouse", id)
	return w, nil
}

// ListWarehouses returns every warehouse.
func (s *Service) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	return s.repo.ListWarehouses(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: entity, EntityID: fmt.Sprintf("%d", id)})
}
