package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Create(ctx context.Context, u User) (int64, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	List(ctx context.Context, limit, offset int) ([]User, int, error)
}

// AuditPort records audit events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user management.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateInput describes a user registration payload.
type CreateInput struct {
	Name     string
	Email    string
	Role     string
	Password string
	ActorID  int64
}

// Create registers a user with a bcrypt password hash.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	if input.Name == "" {
		return User{}, shared.ValidationError("name is required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, shared.ValidationError("a valid email is required")
	}
	if input.Role == "" {
		return User{}, shared.ValidationError("role is required")
	}
	if len(input.Password) < 8 {
		return User{}, shared.ValidationError("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, shared.PersistenceError(err)
	}
	u := User{
		Name:         input.Name,
		Email:        email,
		Role:         input.Role,
		PasswordHash: string(hash),
		Active:       true,
	}
	id, err := s.repo.Create(ctx, u)
	if err != nil {
		return User{}, err
	}
	u.ID = id
	u.PasswordHash = ""
	s.recordAudit(ctx, input.ActorID, "USER_CREATE", id)
	return u, nil
}

// VerifyPassword checks credentials against the stored hash. Used by the
// seed tooling and any edge component that delegates credential checks here.
func (s *Service) VerifyPassword(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return User{}, err
	}
	if !u.Active {
		return User{}, shared.ValidationError("account is deactivated")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, shared.ValidationError("invalid credentials")
	}
	u.PasswordHash = ""
	return u, nil
}

// Deactivate disables a user without deleting history tied to it.
func (s *Service) Deactivate(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "USER_DEACTIVATE", id)
	return nil
}

// Get returns one user without the password hash.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = ""
	return u, nil
}

// List returns users without password hashes.
func (s *Service) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	list, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i := range list {
		list[i].PasswordHash = ""
	}
	return list, total, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "user", EntityID: fmt.Sprintf("%d", id)})
}
