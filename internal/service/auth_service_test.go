package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/madarij-center/madarij-api/internal/models"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
)

type stubUserStore struct {
	users      map[string]*models.User
	lastLogins map[string]time.Time
}

func newStubUserStore(users ...*models.User) *stubUserStore {
	s := &stubUserStore{users: make(map[string]*models.User), lastLogins: make(map[string]time.Time)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *stubUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (s *stubUserStore) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.lastLogins[id] = at
	return nil
}

func staffUser(role models.UserRole, password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &models.User{
		ID:           "user-1",
		Name:         "أحمد",
		Email:        "ahmad@example.com",
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
}

func TestLoginIssuesValidToken(t *testing.T) {
	store := newStubUserStore(staffUser(models.RoleDirector, "s3cret-pass"))
	svc := NewAuthService(store, "test-secret", time.Hour, nil, zap.NewNop())

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "ahmad@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Contains(t, store.lastLogins, "user-1")

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleDirector, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	store := newStubUserStore(staffUser(models.RoleTeacher, "s3cret-pass"))
	svc := NewAuthService(store, "test-secret", time.Hour, nil, zap.NewNop())

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ahmad@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	user := staffUser(models.RoleSupervisor, "s3cret-pass")
	user.Active = false
	store := newStubUserStore(user)
	svc := NewAuthService(store, "test-secret", time.Hour, nil, zap.NewNop())

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ahmad@example.com", Password: "s3cret-pass"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc := NewAuthService(newStubUserStore(), "test-secret", time.Hour, nil, zap.NewNop())

	_, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "pass"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	store := newStubUserStore(staffUser(models.RoleDirector, "s3cret-pass"))
	svc := NewAuthService(store, "test-secret", time.Hour, nil, zap.NewNop())
	other := NewAuthService(store, "other-secret", time.Hour, nil, zap.NewNop())

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "ahmad@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, err = other.ValidateToken(resp.Token)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
