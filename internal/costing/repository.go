package costing

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/docstate"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort reads the aggregation snapshot.
type RepositoryPort interface {
	ReadSnapshot(ctx context.Context) (Snapshot, error)
}

// Repository reads cost snapshots from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ReadSnapshot reads projects, POs, invoices and disbursements in one
// RepeatableRead transaction so the aggregation sees a consistent moment.
func (r *Repository) ReadSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return Snapshot{}, err
	}
	defer tx.Rollback(ctx)

	snap.Projects, err = readProjects(ctx, tx)
	if err != nil {
		return Snapshot{}, err
	}
	snap.POs, err = readPOs(ctx, tx)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Invoices, err = readInvoices(ctx, tx)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Disbursements, err = readDisbursements(ctx, tx)
	if err != nil {
		return Snapshot{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func readProjects(ctx context.Context, tx pgx.Tx) ([]ProjectSnapshot, error) {
	rows, err := tx.Query(ctx, `SELECT id, name, budget FROM projects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProjectSnapshot
	for rows.Next() {
		var (
			p      ProjectSnapshot
			budget pgtype.Numeric
		)
		if err := rows.Scan(&p.ID, &p.Name, &budget); err != nil {
			return nil, err
		}
		p.Budget = shared.DecimalFromNumeric(budget)
		out = append(out, p)
	}
	return out, rows.Err()
}

func readPOs(ctx context.Context, tx pgx.Tx) ([]POSnapshot, error) {
	rows, err := tx.Query(ctx, `SELECT id, project_id, status, total_amount FROM purchase_orders`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []POSnapshot
	for rows.Next() {
		var (
			po     POSnapshot
			status string
			total  pgtype.Numeric
		)
		if err := rows.Scan(&po.ID, &po.ProjectID, &status, &total); err != nil {
			return nil, err
		}
		po.Status = docstate.Status(status)
		po.TotalAmount = shared.DecimalFromNumeric(total)
		out = append(out, po)
	}
	return out, rows.Err()
}

func readInvoices(ctx context.Context, tx pgx.Tx) ([]InvoiceSnapshot, error) {
	rows, err := tx.Query(ctx, `SELECT id, purchase_order_id, status, total_amount FROM supplier_invoices`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []InvoiceSnapshot
	for rows.Next() {
		var (
			inv    InvoiceSnapshot
			poID   pgtype.Int8
			status string
			total  pgtype.Numeric
		)
		if err := rows.Scan(&inv.ID, &poID, &status, &total); err != nil {
			return nil, err
		}
		if poID.Valid {
			inv.PurchaseOrderID = &poID.Int64
		}
		inv.Status = docstate.Status(status)
		inv.TotalAmount = shared.DecimalFromNumeric(total)
		out = append(out, inv)
	}
	return out, rows.Err()
}

func readDisbursements(ctx context.Context, tx pgx.Tx) ([]DisbursementSnapshot, error) {
	rows, err := tx.Query(ctx, `SELECT id, purchase_order_id, status, amount FROM disbursements`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DisbursementSnapshot
	for rows.Next() {
		var (
			d      DisbursementSnapshot
			poID   pgtype.Int8
			status string
			amount pgtype.Numeric
		)
		if err := rows.Scan(&d.ID, &poID, &status, &amount); err != nil {
			return nil, err
		}
		if poID.Valid {
			d.PurchaseOrderID = &poID.Int64
		}
		d.Status = docstate.Status(status)
		d.Amount = shared.DecimalFromNumeric(amount)
		out = append(out, d)
	}
	return out, rows.Err()
}
