package invoicing

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

// ListFilters narrows invoice list queries.
type ListFilters struct {
	SupplierID      int64
	PurchaseOrderID int64
	Status          string
	Search          string
}

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, limit, offset int, filters ListFilters) ([]Invoice, int, error)
}

// TxRepository exposes transactional invoice operations.
type TxRepository interface {
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	SetInvoiceStatus(ctx context.Context, id int64, from, to docstate.Status, actorID int64, at time.Time) error
}

// Repository provides PostgreSQL backed invoice persistence.
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

// WithTx wraps the callback in a RepeatableRead transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const invoiceColumns = `id, number, invoice_number, invoice_date, supplier_id, purchase_order_id, receiving_report_id, status, total_amount, remarks, matched_by, matched_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv       Invoice
		poID      pgtype.Int8
		rrID      pgtype.Int8
		status    string
		total     pgtype.Numeric
		matchedBy pgtype.Int8
		matchedAt pgtype.Timestamptz
	)
	err := row.Scan(&inv.ID, &inv.Number, &inv.InvoiceNumber, &inv.InvoiceDate, &inv.SupplierID,
		&poID, &rrID, &status, &total, &inv.Remarks, &matchedBy, &matchedAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, err
	}
	if poID.Valid {
		inv.PurchaseOrderID = &poID.Int64
	}
	if rrID.Valid {
		inv.ReceivingReportID = &rrID.Int64
	}
	inv.Status = docstate.Status(status)
	inv.TotalAmount = shared.DecimalFromNumeric(total)
	if matchedBy.Valid {
		inv.MatchedByID = &matchedBy.Int64
	}
	if matchedAt.Valid {
		inv.MatchedAt = &matchedAt.Time
	}
	return inv, nil
}

func getInvoice(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, id int64) (Invoice, error) {
	inv, err := scanInvoice(q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM supplier_invoices WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, shared.NotFoundError("invoice")
		}
		return Invoice{}, err
	}
	return inv, nil
}

// GetInvoice returns one invoice.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return getInvoice(ctx, r.pool, id)
}

// ListInvoices returns invoices matching the filters.
func (r *Repository) ListInvoices(ctx context.Context, limit, offset int, filters ListFilters) ([]Invoice, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.SupplierID > 0 {
		args = append(args, filters.SupplierID)
		where += fmt.Sprintf(` AND supplier_id = $%d`, len(args))
	}
	if filters.PurchaseOrderID > 0 {
		args = append(args, filters.PurchaseOrderID)
		where += fmt.Sprintf(` AND purchase_order_id = $%d`, len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += fmt.Sprintf(` AND (number ILIKE $%d OR invoice_number ILIKE $%d)`, len(args), len(args))
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM supplier_invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM supplier_invoices`+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (t *txRepo) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return getInvoice(ctx, t.tx, id)
}

func (t *txRepo) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var (
		poID pgtype.Int8
		rrID pgtype.Int8
	)
	if inv.PurchaseOrderID != nil {
		poID = pgtype.Int8{Int64: *inv.PurchaseOrderID, Valid: true}
	}
	if inv.ReceivingReportID != nil {
		rrID = pgtype.Int8{Int64: *inv.ReceivingReportID, Valid: true}
	}
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO supplier_invoices (number, invoice_number, invoice_date, supplier_id, purchase_order_id, receiving_report_id, status, total_amount, remarks)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		inv.Number, inv.InvoiceNumber, inv.InvoiceDate, inv.SupplierID, poID, rrID,
		string(inv.Status), shared.NumericFromDecimal(inv.TotalAmount), inv.Remarks).Scan(&id)
	return id, err
}

// SetInvoiceStatus performs the status-guarded write. Zero rows affected on
// an existing row means another actor got there first.
func (t *txRepo) SetInvoiceStatus(ctx context.Context, id int64, from, to docstate.Status, actorID int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE supplier_invoices SET status=$1, matched_by=$2, matched_at=$3, updated_at=NOW()
WHERE id=$4 AND status=$5`, string(to), actorID, at, id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ConcurrencyConflictError("invoice was updated by another actor")
	}
	return nil
}
