package service

import (
	"context"
	"testing"

	"saleshub/internal/apperr"
	"saleshub/internal/model"
	"saleshub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserService(t *testing.T) UserService {
	t.Helper()
	db := newTestDB(t)
	return NewUserService(repository.NewUserRepository(db), zap.NewNop())
}

func TestCreateUserAndLogin(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserDTO{
		Username:    "mlinh",
		DisplayName: "Mai Linh",
		Email:       "mlinh@example.com",
		Password:    "s3cret-pass",
		Role:        model.RoleShowroomManager,
		Department:  "SHOWROOM-MAIN",
	})
	require.NoError(t, err)
	assert.Equal(t, "mlinh", created.Username)
	assert.Equal(t, model.RoleShowroomManager, created.Role)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserDTO{
			Username: "mlinh", DisplayName: "X", Email: "other@example.com",
			Password: "whatever1", Role: model.RoleShowroomStaff,
		})
		assert.Equal(t, "VALIDATION", apperr.Code(err))
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserDTO{
			Username: "other", DisplayName: "X", Email: "o@example.com",
			Password: "whatever1", Role: "superuser",
		})
		assert.Equal(t, "VALIDATION", apperr.Code(err))
	})

	tokens, err := svc.Login(ctx, LoginDTO{Username: "mlinh", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginDTO{Username: "mlinh", Password: "wrong"})
		assert.Equal(t, "INVALID_CREDENTIALS", apperr.Code(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginDTO{Username: "ghost", Password: "whatever1"})
		assert.Equal(t, "INVALID_CREDENTIALS", apperr.Code(err))
	})
}

func TestRefreshRotation(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserDTO{
		Username: "rep1", DisplayName: "Rep One", Email: "rep1@example.com",
		Password: "s3cret-pass", Role: model.RoleRepresentative,
	})
	require.NoError(t, err)

	tokens, err := svc.Login(ctx, LoginDTO{Username: "rep1", Password: "s3cret-pass"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// The spent token cannot be replayed.
	_, err = svc.Refresh(ctx, tokens.RefreshToken)
	assert.Equal(t, "INVALID_CREDENTIALS", apperr.Code(err))

	// Logout kills the live one too.
	require.NoError(t, svc.Logout(ctx, rotated.RefreshToken))
	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	assert.Equal(t, "INVALID_CREDENTIALS", apperr.Code(err))
}
