package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/docstate"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ListFilters narrows list queries.
type ListFilters struct {
	ProjectID  int64
	SupplierID int64
	Status     string
	Search     string
}

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetMR(ctx context.Context, id int64) (MaterialRequest, []MRItem, error)
	GetPO(ctx context.Context, id int64) (PurchaseOrder, []POItem, error)
	GetReceivingReport(ctx context.Context, id int64) (ReceivingReport, []ReceivingReportItem, error)
	ListMRs(ctx context.Context, limit, offset int, filters ListFilters) ([]MaterialRequest, int, error)
	ListPOs(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error)
}

// TxRepository exposes transactional operations. Reads inside the
// transaction observe the same snapshot the guarded writes act on.
type TxRepository interface {
	GetMR(ctx context.Context, id int64) (MaterialRequest, []MRItem, error)
	GetPO(ctx context.Context, id int64) (PurchaseOrder, []POItem, error)
	CreateMR(ctx context.Context, mr MaterialRequest) (int64, error)
	InsertMRItem(ctx context.Context, item MRItem) error
	SetMRDecision(ctx context.Context, id int64, from, to docstate.Status, approverID int64, at time.Time) error
	CreatePO(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertPOItem(ctx context.Context, item POItem) (int64, error)
	SetPODecision(ctx context.Context, id int64, from, to docstate.Status, approverID int64, at time.Time) error
	CreateReceivingReport(ctx context.Context, rr ReceivingReport) (int64, error)
	InsertReceivingReportItem(ctx context.Context, item ReceivingReportItem) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a RepeatableRead transaction. Serialization
// failures come back as ConcurrencyConflict.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const mrColumns = `id, number, project_id, requester_id, approver_id, approver_role, status, total_amount, remarks, decided_at, created_at, updated_at`

func scanMR(row pgx.Row) (MaterialRequest, error) {
	var (
		mr        MaterialRequest
		approver  pgtype.Int8
		status    string
		total     pgtype.Numeric
		decidedAt pgtype.Timestamptz
	)
	err := row.Scan(&mr.ID, &mr.Number, &mr.ProjectID, &mr.RequesterID, &approver, &mr.ApproverRole,
		&status, &total, &mr.Remarks, &decidedAt, &mr.CreatedAt, &mr.UpdatedAt)
	if err != nil {
		return MaterialRequest{}, err
	}
	if approver.Valid {
		mr.ApproverID = &approver.Int64
	}
	mr.Status = docstate.Status(status)
	mr.TotalAmount = shared.DecimalFromNumeric(total)
	if decidedAt.Valid {
		mr.DecidedAt = &decidedAt.Time
	}
	return mr, nil
}

func getMR(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, id int64) (MaterialRequest, []MRItem, error) {
	mr, err := scanMR(q.QueryRow(ctx, `SELECT `+mrColumns+` FROM material_requests WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MaterialRequest{}, nil, shared.NotFoundError("material request")
		}
		return MaterialRequest{}, nil, err
	}
	rows, err := q.Query(ctx, `SELECT id, material_request_id, material_id, description, quantity, unit, material_unit_price, labor_unit_price
FROM material_request_items WHERE material_request_id=$1 ORDER BY id`, id)
	if err != nil {
		return MaterialRequest{}, nil, err
	}
	defer rows.Close()
	var items []MRItem
	for rows.Next() {
		var (
			item     MRItem
			qty      pgtype.Numeric
			material pgtype.Numeric
			labor    pgtype.Numeric
		)
		if err := rows.Scan(&item.ID, &item.MaterialRequestID, &item.MaterialID, &item.Description, &qty, &item.Unit, &material, &labor); err != nil {
			return MaterialRequest{}, nil, err
		}
		item.Quantity = shared.DecimalFromNumeric(qty)
		item.MaterialUnitPrice = shared.DecimalFromNumeric(material)
		item.LaborUnitPrice = shared.DecimalFromNumeric(labor)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return MaterialRequest{}, nil, err
	}
	return mr, items, nil
}

const poColumns = `id, number, project_id, supplier_id, requester_id, approver_id, approver_role, status, total_amount, remarks, decided_at, created_at, updated_at`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var (
		po        PurchaseOrder
		approver  pgtype.Int8
		status    string
		total     pgtype.Numeric
		decidedAt pgtype.Timestamptz
	)
	err := row.Scan(&po.ID, &po.Number, &po.ProjectID, &po.SupplierID, &po.RequesterID, &approver, &po.ApproverRole,
		&status, &total, &po.Remarks, &decidedAt, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if approver.Valid {
		po.ApproverID = &approver.Int64
	}
	po.Status = docstate.Status(status)
	po.TotalAmount = shared.DecimalFromNumeric(total)
	if decidedAt.Valid {
		po.DecidedAt = &decidedAt.Time
	}
	return po, nil
}

func getPO(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, id int64) (PurchaseOrder, []POItem, error) {
	po, err := scanPO(q.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, nil, shared.NotFoundError("purchase order")
		}
		return PurchaseOrder{}, nil, err
	}
	rows, err := q.Query(ctx, `SELECT id, purchase_order_id, material_id, description, quantity, unit, unit_price, total_price
FROM purchase_order_items WHERE purchase_order_id=$1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	defer rows.Close()
	var items []POItem
	for rows.Next() {
		var (
			item  POItem
			qty   pgtype.Numeric
			price pgtype.Numeric
			total pgtype.Numeric
		)
		if err := rows.Scan(&item.ID, &item.PurchaseOrderID, &item.MaterialID, &item.Description, &qty, &item.Unit, &price, &total); err != nil {
			return PurchaseOrder{}, nil, err
		}
		item.Quantity = shared.DecimalFromNumeric(qty)
		item.UnitPrice = shared.DecimalFromNumeric(price)
		item.TotalPrice = shared.DecimalFromNumeric(total)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, items, nil
}

// GetMR returns a material request with its items.
func (r *Repository) GetMR(ctx context.Context, id int64) (MaterialRequest, []MRItem, error) {
	return getMR(ctx, r.pool, id)
}

// GetPO returns a purchase order with its items.
func (r *Repository) GetPO(ctx context.Context, id int64) (PurchaseOrder, []POItem, error) {
	return getPO(ctx, r.pool, id)
}

// GetReceivingReport returns a receiving report with its items.
func (r *Repository) GetReceivingReport(ctx context.Context, id int64) (ReceivingReport, []ReceivingReportItem, error) {
	var rr ReceivingReport
	err := r.pool.QueryRow(ctx, `SELECT id, number, purchase_order_id, received_by, received_date, remarks, created_at
FROM receiving_reports WHERE id=$1`, id).
		Scan(&rr.ID, &rr.Number, &rr.PurchaseOrderID, &rr.ReceivedBy, &rr.ReceivedDate, &rr.Remarks, &rr.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReceivingReport{}, nil, shared.NotFoundError("receiving report")
		}
		return ReceivingReport{}, nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, receiving_report_id, po_item_id, description, quantity, unit
FROM receiving_report_items WHERE receiving_report_id=$1 ORDER BY id`, id)
	if err != nil {
		return ReceivingReport{}, nil, err
	}
	defer rows.Close()
	var items []ReceivingReportItem
	for rows.Next() {
		var (
			item     ReceivingReportItem
			poItemID pgtype.Int8
			qty      pgtype.Numeric
		)
		if err := rows.Scan(&item.ID, &item.ReceivingReportID, &poItemID, &item.Description, &qty, &item.Unit); err != nil {
			return ReceivingReport{}, nil, err
		}
		if poItemID.Valid {
			item.POItemID = &poItemID.Int64
		}
		item.Quantity = shared.DecimalFromNumeric(qty)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return ReceivingReport{}, nil, err
	}
	return rr, items, nil
}

// ListMRs returns material request headers matching the filters.
func (r *Repository) ListMRs(ctx context.Context, limit, offset int, filters ListFilters) ([]MaterialRequest, int, error) {
	where, args := buildFilters(filters, "material_requests")
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM material_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+mrColumns+` FROM material_requests`+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []MaterialRequest
	for rows.Next() {
		mr, err := scanMR(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, mr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListPOs returns purchase order headers matching the filters.
func (r *Repository) ListPOs(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error) {
	where, args := buildFilters(filters, "purchase_orders")
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+poColumns+` FROM purchase_orders`+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, po)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func buildFilters(filters ListFilters, table string) (string, []any) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.ProjectID > 0 {
		args = append(args, filters.ProjectID)
		where += fmt.Sprintf(` AND project_id = $%d`, len(args))
	}
	if filters.SupplierID > 0 && table == "purchase_orders" {
		args = append(args, filters.SupplierID)
		where += fmt.Sprintf(` AND supplier_id = $%d`, len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += fmt.Sprintf(` AND number ILIKE $%d`, len(args))
	}
	return where, args
}

// --- transactional operations ---

func (t *txRepo) GetMR(ctx context.Context, id int64) (MaterialRequest, []MRItem, error) {
	return getMR(ctx, t.tx, id)
}

func (t *txRepo) GetPO(ctx context.Context, id int64) (PurchaseOrder, []POItem, error) {
	return getPO(ctx, t.tx, id)
}

func (t *txRepo) CreateMR(ctx context.Context, mr MaterialRequest) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO material_requests (number, project_id, requester_id, approver_role, status, total_amount, remarks)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		mr.Number, mr.ProjectID, mr.RequesterID, mr.ApproverRole, string(mr.Status),
		shared.NumericFromDecimal(mr.TotalAmount), mr.Remarks).Scan(&id)
	return id, err
}

func (t *txRepo) InsertMRItem(ctx context.Context, item MRItem) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO material_request_items (material_request_id, material_id, description, quantity, unit, material_unit_price, labor_unit_price)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.MaterialRequestID, item.MaterialID, item.Description,
		shared.NumericFromDecimal(item.Quantity), item.Unit,
		shared.NumericFromDecimal(item.MaterialUnitPrice), shared.NumericFromDecimal(item.LaborUnitPrice))
	return err
}

// SetMRDecision performs the status-guarded write. Zero rows affected on an
// existing row means another actor decided first.
func (t *txRepo) SetMRDecision(ctx context.Context, id int64, from, to docstate.Status, approverID int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE material_requests SET status=$1, approver_id=$2, decided_at=$3, updated_at=NOW()
WHERE id=$4 AND status=$5`, string(to), approverID, at, id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ConcurrencyConflictError("material request was decided by another actor")
	}
	return nil
}

func (t *txRepo) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_orders (number, project_id, supplier_id, requester_id, approver_role, status, total_amount, remarks)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		po.Number, po.ProjectID, po.SupplierID, po.RequesterID, po.ApproverRole, string(po.Status),
		shared.NumericFromDecimal(po.TotalAmount), po.Remarks).Scan(&id)
	return id, err
}

func (t *txRepo) InsertPOItem(ctx context.Context, item POItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_order_items (purchase_order_id, material_id, description, quantity, unit, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		item.PurchaseOrderID, item.MaterialID, item.Description,
		shared.NumericFromDecimal(item.Quantity), item.Unit,
		shared.NumericFromDecimal(item.UnitPrice), shared.NumericFromDecimal(item.TotalPrice)).Scan(&id)
	return id, err
}

// SetPODecision performs the status-guarded write for purchase orders.
func (t *txRepo) SetPODecision(ctx context.Context, id int64, from, to docstate.Status, approverID int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status=$1, approver_id=$2, decided_at=$3, updated_at=NOW()
WHERE id=$4 AND status=$5`, string(to), approverID, at, id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ConcurrencyConflictError("purchase order was decided by another actor")
	}
	return nil
}

func (t *txRepo) CreateReceivingReport(ctx context.Context, rr ReceivingReport) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO receiving_reports (number, purchase_order_id, received_by, received_date, remarks)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		rr.Number, rr.PurchaseOrderID, rr.ReceivedBy, rr.ReceivedDate, rr.Remarks).Scan(&id)
	return id, err
}

func (t *txRepo) InsertReceivingReportItem(ctx context.Context, item ReceivingReportItem) error {
	var poItemID pgtype.Int8
	if item.POItemID != nil {
		poItemID = pgtype.Int8{Int64: *item.POItemID, Valid: true}
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO receiving_report_items (receiving_report_id, po_item_id, description, quantity, unit)
VALUES ($1, $2, $3, $4, $5)`,
		item.ReceivingReportID, poItemID, item.Description, shared.NumericFromDecimal(item.Quantity), item.Unit)
	return err
}
