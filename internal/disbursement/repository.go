package disbursement

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

// ListFilters narrows disbursement list queries.
type ListFilters struct {
	PurchaseOrderID int64
	Status          string
	Method          string
}

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Disbursement, error)
	List(ctx context.Context, limit, offset int, filters ListFilters) ([]Disbursement, int, error)
}

// TxRepository exposes transactional disbursement operations.
type TxRepository interface {
	Get(ctx context.Context, id int64) (Disbursement, error)
	Create(ctx context.Context, d Disbursement) (int64, error)
	SetStatus(ctx context.Context, id int64, from, to docstate.Status, actorID int64, at time.Time) error
}

// Repository provides PostgreSQL backed disbursement persistence.
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

const columns = `id, number, purchase_order_id, amount, method, reference_number, status, processed_by, released_by, released_at, remarks, created_at, updated_at`

func scanDisbursement(row pgx.Row) (Disbursement, error) {
	var (
		d          Disbursement
		poID       pgtype.Int8
		amount     pgtype.Numeric
		method     string
		status     string
		releasedBy pgtype.Int8
		releasedAt pgtype.Timestamptz
	)
	err := row.Scan(&d.ID, &d.Number, &poID, &amount, &method, &d.ReferenceNumber,
		&status, &d.ProcessedByID, &releasedBy, &releasedAt, &d.Remarks, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Disbursement{}, err
	}
	if poID.Valid {
		d.PurchaseOrderID = &poID.Int64
	}
	d.Amount = shared.DecimalFromNumeric(amount)
	d.Method = Method(method)
	d.Status = docstate.Status(status)
	if releasedBy.Valid {
		d.ReleasedByID = &releasedBy.Int64
	}
	if releasedAt.Valid {
		d.ReleasedAt = &releasedAt.Time
	}
	return d, nil
}

func get(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, id int64) (Disbursement, error) {
	d, err := scanDisbursement(q.QueryRow(ctx, `SELECT `+columns+` FROM disbursements WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Disbursement{}, shared.NotFoundError("disbursement")
		}
		return Disbursement{}, err
	}
	return d, nil
}

// Get returns one disbursement.
func (r *Repository) Get(ctx context.Context, id int64) (Disbursement, error) {
	return get(ctx, r.pool, id)
}

// List returns disbursements matching the filters.
func (r *Repository) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Disbursement, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.PurchaseOrderID > 0 {
		args = append(args, filters.PurchaseOrderID)
		where += fmt.Sprintf(` AND purchase_order_id = $%d`, len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filters.Method != "" {
		args = append(args, filters.Method)
		where += fmt.Sprintf(` AND method = $%d`, len(args))
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM disbursements`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+columns+` FROM disbursements`+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Disbursement
	for rows.Next() {
		d, err := scanDisbursement(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (t *txRepo) Get(ctx context.Context, id int64) (Disbursement, error) {
	return get(ctx, t.tx, id)
}

func (t *txRepo) Create(ctx context.Context, d Disbursement) (int64, error) {
	var poID pgtype.Int8
	if d.PurchaseOrderID != nil {
		poID = pgtype.Int8{Int64: *d.PurchaseOrderID, Valid: true}
	}
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO disbursements (number, purchase_order_id, amount, method, reference_number, status, processed_by, remarks)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		d.Number, poID, shared.NumericFromDecimal(d.Amount), string(d.Method), d.ReferenceNumber,
		string(d.Status), d.ProcessedByID, d.Remarks).Scan(&id)
	return id, err
}

// SetStatus performs the status-guarded write.
func (t *txRepo) SetStatus(ctx context.Context, id int64, from, to docstate.Status, actorID int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE disbursements SET status=$1, released_by=$2, released_at=$3, updated_at=NOW()
WHERE id=$4 AND status=$5`, string(to), actorID, at, id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ConcurrencyConflictError("disbursement was updated by another actor")
	}
	return nil
}
