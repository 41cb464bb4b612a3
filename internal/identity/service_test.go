package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Email: "Alice@Example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email, "emails are normalized")
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "correct horse", string(user.PasswordHash))

	authed, err := svc.Authenticate(ctx, Credentials{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)
	assert.False(t, authed.LastLogin.IsZero())
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, Credentials{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, Credentials{Email: "alice@example.com", Password: "wrong horse"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, Credentials{Email: "nobody@example.com", Password: "correct horse"})
	require.ErrorIs(t, err, ErrInvalidCredentials, "unknown emails look like bad credentials")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, Credentials{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, Credentials{Email: "alice@example.com", Password: "another pass"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.Register(ctx, Credentials{Email: "not-an-email", Password: "correct horse"})
	require.Error(t, err)

	_, err = svc.Register(ctx, Credentials{Email: "alice@example.com", Password: "short"})
	require.Error(t, err)
}

func TestRevokeBumpsTokenVersion(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, 0, user.TokenVersion)

	version, err := svc.Revoke(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	stored, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TokenVersion)
}
