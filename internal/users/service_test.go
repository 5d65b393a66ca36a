package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryUserRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]User)}
}

func (r *memoryUserRepo) Create(ctx context.Context, u User) (int64, error) {
	r.nextID++
	u.ID = r.nextID
	r.users[u.ID] = u
	return u.ID, nil
}

func (r *memoryUserRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.NotFoundError("user")
	}
	return u, nil
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, shared.NotFoundError("user")
}

func (r *memoryUserRepo) SetActive(ctx context.Context, id int64, active bool) error {
	u, ok := r.users[id]
	if !ok {
		return shared.NotFoundError("user")
	}
	u.Active = active
	r.users[id] = u
	return nil
}

func (r *memoryUserRepo) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{
		Name: "Jordan", Email: "Jordan@Example.com", Role: "PROJECT_MANAGER", Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	require.Equal(t, "jordan@example.com", u.Email)
	require.Empty(t, u.PasswordHash)

	stored := repo.users[u.ID]
	require.NotEmpty(t, stored.PasswordHash)
	require.NotEqual(t, "hunter2hunter2", stored.PasswordHash)
}

func TestCreateUserValidation(t *testing.T) {
	svc := NewService(newMemoryUserRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Email: "a@b.c", Role: "X", Password: "longenough"})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.Create(ctx, CreateInput{Name: "A", Email: "not-an-email", Role: "X", Password: "longenough"})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.Create(ctx, CreateInput{Name: "A", Email: "a@b.c", Role: "X", Password: "short"})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestVerifyPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{
		Name: "Jordan", Email: "jordan@example.com", Role: "PROJECT_MANAGER", Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	got, err := svc.VerifyPassword(ctx, "jordan@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Empty(t, got.PasswordHash)

	_, err = svc.VerifyPassword(ctx, "jordan@example.com", "wrong")
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	require.NoError(t, svc.Deactivate(ctx, u.ID, 1))
	_, err = svc.VerifyPassword(ctx, "jordan@example.com", "hunter2hunter2")
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}
