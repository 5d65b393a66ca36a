package projects

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

// Service owns projects and clients.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the projects service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateProjectInput describes a project creation payload.
type CreateProjectInput struct {
	Code     string
	Name     string
	ClientID *int64
	Budget   decimal.Decimal
	Location string
	ActorID  int64
}

// CreateProject registers a project in ACTIVE status.
func (s *Service) CreateProject(ctx context.Context, input CreateProjectInput) (Project, error) {
	if input.Code == "" {
		return Project{}, shared.ValidationError("project code is required")
	}
	if input.Name == "" {
		return Project{}, shared.ValidationError("project name is required")
	}
	if err := shared.RequireNonNegative("budget", input.Budget); err != nil {
		return Project{}, err
	}
	if input.ClientID != nil {
		if _, err := s.repo.GetClient(ctx, *input.ClientID); err != nil {
			return Project{}, err
		}
	}
	p := Project{
		Code:     input.Code,
		Name:     input.Name,
		ClientID: input.ClientID,
		Budget:   input.Budget,
		Location: input.Location,
		Status:   StatusActive,
	}
	id, err := s.repo.CreateProject(ctx, p)
	if err != nil {
		return Project{}, err
	}
	p.ID = id
	s.recordAudit(ctx, input.ActorID, "PROJECT_CREATE", "project", id, map[string]any{"code": p.Code})
	return p, nil
}

// UpdateProjectInput describes a project update payload. Nil fields keep
// their current value.
type UpdateProjectInput struct {
	Name     *string
	Budget   *decimal.Decimal
	Location *string
	Status   *string
	ActorID  int64
}

// UpdateProject applies a partial update.
func (s *Service) UpdateProject(ctx context.Context, id int64, input UpdateProjectInput) (Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if input.Name != nil {
		if *input.Name == "" {
			return Project{}, shared.ValidationError("project name is required")
		}
		p.Name = *input.Name
	}
	if input.Budget != nil {
		if err := shared.RequireNonNegative("budget", *input.Budget); err != nil {
			return Project{}, err
		}
		p.Budget = *input.Budget
	}
	if input.Location != nil {
		p.Location = *input.Location
	}
	if input.Status != nil {
		if !KnownStatus(*input.Status) {
			return Project{}, shared.ValidationError("unknown project status %q", *input.Status)
		}
		p.Status = *input.Status
	}
	if err := s.repo.UpdateProject(ctx, p); err != nil {
		return Project{}, err
	}
	s.recordAudit(ctx, input.ActorID, "PROJECT_UPDATE", "project", id, map[string]any{"code": p.Code})
	return p, nil
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, id int64) (Project, error) {
	return s.repo.GetProject(ctx, id)
}

// ListProjects returns projects matching the filters.
func (s *Service) ListProjects(ctx context.Context, limit, offset int, search string) ([]Project, int, error) {
	return s.repo.ListProjects(ctx, limit, offset, search)
}

// CreateClientInput describes a client creation payload.
type CreateClientInput struct {
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
	ActorID       int64
}

// CreateClient registers a client.
func (s *Service) CreateClient(ctx context.Context, input CreateClientInput) (Client, error) {
	if input.Name == "" {
		return Client{}, shared.ValidationError("client name is required")
	}
	c := Client{
		Name:          input.Name,
		ContactPerson: input.ContactPerson,
		Phone:         input.Phone,
		Email:         input.Email,
		Address:       input.Address,
	}
	id, err := s.repo.CreateClient(ctx, c)
	if err != nil {
		return Client{}, err
	}
	c.ID = id
	s.recordAudit(ctx, input.ActorID, "CLIENT_CREATE", "client", id, map[string]any{"name": c.Name})
	return c, nil
}

// GetClient returns one client.
func (s *Service) GetClient(ctx context.Context, id int64) (Client, error) {
	return s.repo.GetClient(ctx, id)
}

// ListClients returns clients matching the search term.
func (s *Service) ListClients(ctx context.Context, limit, offset int, search string) ([]Client, int, error) {
	return s.repo.ListClients(ctx, limit, offset, search)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: entity, EntityID: fmt.Sprintf("%d", id), Meta: meta})
}
