package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	CreateSupplier(ctx context.Context, s Supplier) (int64, error)
	UpdateSupplier(ctx context.Context, s Supplier) error
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	ListSuppliers(ctx context.Context, limit, offset int, search string) ([]Supplier, int, error)
	CreateMaterial(ctx context.Context, m Material) (int64, error)
	GetMaterial(ctx context.Context, id int64) (Material, error)
	ListMaterials(ctx context.Context, limit, offset int, search string) ([]Material, int, error)
	CreateUnit(ctx context.Context, u Unit) (int64, error)
	GetUnit(ctx context.Context, id int64) (Unit, error)
	ListUnits(ctx context.Context) ([]Unit, error)
	CreateWarehouse(ctx context.Context, w Warehouse) (int64, error)
	ListWarehouses(ctx context.Context) ([]Warehouse, error)
}

// Repository provides PostgreSQL backed masterdata persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateSupplier inserts a supplier row.
func (r *Repository) CreateSupplier(ctx context.Context, s Supplier) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO suppliers (code, name, contact_person, phone, email, address)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		s.Code, s.Name, s.ContactPerson, s.Phone, s.Email, s.Address).Scan(&id)
	return id, err
}

// UpdateSupplier writes mutable supplier fields.
func (r *Repository) UpdateSupplier(ctx context.Context, s Supplier) error {
	tag, err := r.pool.Exec(ctx, `UPDATE suppliers SET name=$1, contact_person=$2, phone=$3, email=$4, address=$5, updated_at=NOW() WHERE id=$6`,
		s.Name, s.ContactPerson, s.Phone, s.Email, s.Address, s.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError("supplier")
	}
	return nil
}

// GetSupplier returns one supplier.
func (r *Repository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, contact_person, phone, email, address, created_at, updated_at
FROM suppliers WHERE id=$1`, id).
		Scan(&s.ID, &s.Code, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.Address, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, shared.NotFoundError("supplier")
		}
		return Supplier{}, err
	}
	return s, nil
}

// ListSuppliers returns suppliers matching the search term.
func (r *Repository) ListSuppliers(ctx context.Context, limit, offset int, search string) ([]Supplier, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(` AND (code ILIKE $%d OR name ILIKE $%d)`, len(args), len(args))
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, name, contact_person, phone, email, address, created_at, updated_at FROM suppliers`+where+
			fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.Address, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CreateMaterial inserts a material row.
func (r *Repository) CreateMaterial(ctx context.Context, m Material) (int64, error) {
	var unitID pgtype.Int8
	if m.UnitID != nil {
		unitID = pgtype.Int8{Int64: *m.UnitID, Valid: true}
	}
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO materials (code, name, unit_id, standard_price)
VALUES ($1, $2, $3, $4) RETURNING id`,
		m.Code, m.Name, unitID, shared.NumericFromDecimal(m.StandardPrice)).Scan(&id)
	return id, err
}

// GetMaterial returns one material.
func (r *Repository) GetMaterial(ctx context.Context, id int64) (Material, error) {
	var (
		m      Material
		unitID pgtype.Int8
		price  pgtype.Numeric
	)
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, unit_id, standard_price, created_at, updated_at
FROM materials WHERE id=$1`, id).
		Scan(&m.ID, &m.Code, &m.Name, &unitID, &price, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Material{}, shared.NotFoundError("material")
		}
		return Material{}, err
	}
	if unitID.Valid {
		m.UnitID = &unitID.Int64
	}
	m.StandardPrice = shared.DecimalFromNumeric(price)
	return m, nil
}

// ListMaterials returns materials matching the search term.
func (r *Repository) ListMaterials(ctx context.Context, limit, offset int, search string) ([]Material, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(` AND (code ILIKE $%d OR name ILIKE $%d)`, len(args), len(args))
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM materials`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, name, unit_id, standard_price, created_at, updated_at FROM materials`+where+
			fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Material
	for rows.Next() {
		var (
			m      Material
			unitID pgtype.Int8
			price  pgtype.Numeric
		)
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &unitID, &price, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if unitID.Valid {
			m.UnitID = &unitID.Int64
		}
		m.StandardPrice = shared.DecimalFromNumeric(price)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CreateUnit inserts a unit row.
func (r *Repository) CreateUnit(ctx context.Context, u Unit) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO units (code, name) VALUES ($1, $2) RETURNING id`, u.Code, u.Name).Scan(&id)
	return id, err
}

// GetUnit returns one unit.
func (r *Repository) GetUnit(ctx context.Context, id int64) (Unit, error) {
	var u Unit
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, created_at, updated_at FROM units WHERE id=$1`, id).
		Scan(&u.ID, &u.Code, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Unit{}, shared.NotFoundError("unit")
		}
		return Unit{}, err
	}
	return u, nil
}

// ListUnits returns every unit ordered by code.
func (r *Repository) ListUnits(ctx context.Context) ([]Unit, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, created_at, updated_at FROM units ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.Code, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CreateWarehouse inserts a warehouse row.
func (r *Repository) CreateWarehouse(ctx context.Context, w Warehouse) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO warehouses (code, name, location) VALUES ($1, $2, $3) RETURNING id`,
		w.Code, w.Name, w.Location).Scan(&id)
	return id, err
}

// ListWarehouses returns every warehouse ordered by code.
func (r *Repository) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, location, created_at, updated_at FROM warehouses ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Code, &w.Name, &w.Location, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
