package projects

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
	CreateProject(ctx context.Context, p Project) (int64, error)
	UpdateProject(ctx context.Context, p Project) error
	GetProject(ctx context.Context, id int64) (Project, error)
	ListProjects(ctx context.Context, limit, offset int, search string) ([]Project, int, error)
	CreateClient(ctx context.Context, c Client) (int64, error)
	GetClient(ctx context.Context, id int64) (Client, error)
	ListClients(ctx context.Context, limit, offset int, search string) ([]Client, int, error)
}

// Repository provides PostgreSQL backed project persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const projectColumns = `id, code, name, client_id, budget, location, start_date, end_date, status, created_at, updated_at`

func scanProject(row pgx.Row) (Project, error) {
	var (
		p         Project
		clientID  pgtype.Int8
		budget    pgtype.Numeric
		startDate pgtype.Timestamptz
		endDate   pgtype.Timestamptz
	)
	err := row.Scan(&p.ID, &p.Code, &p.Name, &clientID, &budget, &p.Location,
		&startDate, &endDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Project{}, err
	}
	if clientID.Valid {
		p.ClientID = &clientID.Int64
	}
	p.Budget = shared.DecimalFromNumeric(budget)
	if startDate.Valid {
		p.StartDate = &startDate.Time
	}
	if endDate.Valid {
		p.EndDate = &endDate.Time
	}
	return p, nil
}

// CreateProject inserts a project row.
func (r *Repository) CreateProject(ctx context.Context, p Project) (int64, error) {
	var clientID pgtype.Int8
	if p.ClientID != nil {
		clientID = pgtype.Int8{Int64: *p.ClientID, Valid: true}
	}
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO projects (code, name, client_id, budget, location, status)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.Code, p.Name, clientID, shared.NumericFromDecimal(p.Budget), p.Location, p.Status).Scan(&id)
	return id, err
}

// UpdateProject writes mutable project fields.
func (r *Repository) UpdateProject(ctx context.Context, p Project) error {
	tag, err := r.pool.Exec(ctx, `UPDATE projects SET name=$1, budget=$2, location=$3, status=$4, updated_at=NOW() WHERE id=$5`,
		p.Name, shared.NumericFromDecimal(p.Budget), p.Location, p.Status, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError("project")
	}
	return nil
}

// GetProject returns one project.
func (r *Repository) GetProject(ctx context.Context, id int64) (Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, shared.NotFoundError("project")
		}
		return Project{}, err
	}
	return p, nil
}

// ListProjects returns projects matching the search term.
func (r *Repository) ListProjects(ctx context.Context, limit, offset int, search string) ([]Project, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(` AND (code ILIKE $%d OR name ILIKE $%d)`, len(args), len(args))
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects`+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CreateClient inserts a client row.
func (r *Repository) CreateClient(ctx context.Context, c Client) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO clients (name, contact_person, phone, email, address)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		c.Name, c.ContactPerson, c.Phone, c.Email, c.Address).Scan(&id)
	return id, err
}

// GetClient returns one client.
func (r *Repository) GetClient(ctx context.Context, id int64) (Client, error) {
	var c Client
	err := r.pool.QueryRow(ctx, `SELECT id, name, contact_person, phone, email, address, created_at, updated_at
FROM clients WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.ContactPerson, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, shared.NotFoundError("client")
		}
		return Client{}, err
	}
	return c, nil
}

// ListClients returns clients matching the search term.
func (r *Repository) ListClients(ctx context.Context, limit, offset int, search string) ([]Client, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(` AND name ILIKE $%d`, len(args))
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, contact_person, phone, email, address, created_at, updated_at FROM clients`+where+
			fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.ContactPerson, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
