package workflow

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort describes the storage operations the service needs.
type RepositoryPort interface {
	ListRules(ctx context.Context, process ProcessType) ([]Rule, error)
	ListAllRules(ctx context.Context) ([]Rule, error)
	CreateRule(ctx context.Context, rule Rule) (int64, error)
	DeleteRule(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence for workflow rules.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ruleColumns = `id, process_type, min_amount, max_amount, approver_role, step_order, created_at`

// ListRules returns the rules for one process type ordered by step.
func (r *Repository) ListRules(ctx context.Context, process ProcessType) ([]Rule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+ruleColumns+` FROM workflow_rules WHERE process_type=$1 ORDER BY step_order ASC`, string(process))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// ListAllRules returns every configured rule.
func (r *Repository) ListAllRules(ctx context.Context) ([]Rule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+ruleColumns+` FROM workflow_rules ORDER BY process_type, step_order ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// CreateRule inserts a rule and returns its id.
func (r *Repository) CreateRule(ctx context.Context, rule Rule) (int64, error) {
	var maxAmount pgtype.Numeric
	if rule.MaxAmount != nil {
		maxAmount = shared.NumericFromDecimal(*rule.MaxAmount)
	}
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO workflow_rules (process_type, min_amount, max_amount, approver_role, step_order)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		string(rule.ProcessType), shared.NumericFromDecimal(rule.MinAmount), maxAmount,
		rule.ApproverRole, rule.StepOrder).Scan(&id)
	return id, err
}

// DeleteRule removes a rule.
func (r *Repository) DeleteRule(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workflow_rules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError("workflow rule")
	}
	return nil
}

func scanRules(rows pgx.Rows) ([]Rule, error) {
	var rules []Rule
	for rows.Next() {
		var (
			rule      Rule
			process   string
			minAmount pgtype.Numeric
			maxAmount pgtype.Numeric
		)
		if err := rows.Scan(&rule.ID, &process, &minAmount, &maxAmount, &rule.ApproverRole, &rule.StepOrder, &rule.CreatedAt); err != nil {
			return nil, err
		}
		rule.ProcessType = ProcessType(process)
		rule.MinAmount = shared.DecimalFromNumeric(minAmount)
		if maxAmount.Valid {
			max := shared.DecimalFromNumeric(maxAmount)
			rule.MaxAmount = &max
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rules, nil
}
