package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"collateral-backend/internal/shared/auth"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	return NewService(NewMemoryRepo(), issuer)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Username: " ana ", LastName: "Lopez", Password: "secret1"})
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	require.Equal(t, "ana", session.User.Username)
	require.Equal(t, RoleUser, session.User.Role)
	require.NotEqual(t, "secret1", session.User.PasswordHash)

	login, err := svc.Login(ctx, "ana", "secret1")
	require.NoError(t, err)
	require.Equal(t, session.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "ana", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "ana", LastName: "Lopez", Password: "12345"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Register(ctx, RegisterInput{Username: "", LastName: "Lopez", Password: "123456"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(ctx, RegisterInput{Username: "ana", LastName: "Lopez", Password: "123456"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Username: "ANA", LastName: "Other", Password: "123456"})
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	session, err := svc.Register(ctx, RegisterInput{Username: "ana", LastName: "Lopez", Password: "123456"})
	require.NoError(t, err)
	id := session.User.ID

	last, role := "Garcia", "ADMIN"
	updated, err := svc.Update(ctx, id, UpdateInput{LastName: &last, Role: &role})
	require.NoError(t, err)
	require.Equal(t, "Garcia", updated.LastName)
	require.Equal(t, RoleAdmin, updated.Role)

	bogus := "root"
	_, err = svc.Update(ctx, id, UpdateInput{Role: &bogus})
	require.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, svc.Delete(ctx, id))
	_, err = svc.GetByID(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, id), ErrNotFound)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "root", "supersecret"))
	require.NoError(t, svc.EnsureAdmin(ctx, "root", "supersecret"))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, RoleAdmin, list[0].Role)

	session, err := svc.Login(ctx, "root", "supersecret")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, session.User.Role)
}
