package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/email-auth/internal/application/services"
	"github.com/avatarctic/email-auth/internal/core/domain/identity"
	"github.com/avatarctic/email-auth/internal/core/ports"
)

func newAuthService(t *testing.T, f *fixture) ports.AuthService {
	t.Helper()
	svc, err := services.NewAuthService(f.store.EmailAddresses(), f.store.Identities(), f.hasher, &f.cfg.Auth, nil)
	require.NoError(t, err)
	return svc
}

func TestAuthenticate_ActiveIdentity(t *testing.T) {
	f := newFixture()
	owner, _ := f.addAddress(t, "a@example.com", true)
	svc := newAuthService(t, f)

	got, err := svc.Authenticate(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, owner.ID, got.ID)
}

func TestAuthenticate_InactiveIdentity(t *testing.T) {
	f := newFixture()
	f.addOwnedAddress(t, "a@example.com", true, false)
	svc := newAuthService(t, f)

	got, err := svc.Authenticate(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAuthenticate_UnverifiedAddress(t *testing.T) {
	f := newFixture()
	f.addAddress(t, "a@example.com", false)
	svc := newAuthService(t, f)

	got, err := svc.Authenticate(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAuthenticate_ExactAddressMatch(t *testing.T) {
	f := newFixture()
	f.addAddress(t, "a@example.com", true)
	svc := newAuthService(t, f)

	got, err := svc.Authenticate(context.Background(), "A@Example.com", "pw")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAuthenticate_AlwaysComparesHash(t *testing.T) {
	f := newFixture()
	f.addAddress(t, "a@example.com", true)
	svc := newAuthService(t, f)
	ctx := context.Background()

	before := f.hasher.Compares()
	got, err := svc.Authenticate(ctx, "unknown@example.com", "pw")
	require.NoError(t, err)
	require.Nil(t, got)
	require.EqualValues(t, 1, f.hasher.Compares()-before)

	before = f.hasher.Compares()
	got, err = svc.Authenticate(ctx, "a@example.com", "wrong")
	require.NoError(t, err)
	require.Nil(t, got)
	require.EqualValues(t, 1, f.hasher.Compares()-before)
}

func TestGetIdentity(t *testing.T) {
	f := newFixture()
	owner, _ := f.addAddress(t, "a@example.com", true)
	svc := newAuthService(t, f)

	got, err := svc.GetIdentity(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Equal(t, owner.ID, got.ID)

	got, err = svc.GetIdentity(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestLogin_IssuesAccessToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner, _ := f.addAddress(t, "a@example.com", true)
	svc := newAuthService(t, f)

	tok, err := svc.Login(ctx, &identity.LoginRequest{Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "Bearer", tok.TokenType)
	require.EqualValues(t, 60, tok.ExpiresIn)

	id, err := svc.ValidateAccessToken(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, owner.ID, id)

	stored, _, _ := f.store.Identities().GetByID(ctx, owner.ID)
	require.NotNil(t, stored.LastLoginAt)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture()
	f.addAddress(t, "a@example.com", true)
	svc := newAuthService(t, f)

	_, err := svc.Login(context.Background(), &identity.LoginRequest{Email: "a@example.com", Password: "wrong"})
	require.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestValidateAccessToken_RejectsForeignSecret(t *testing.T) {
	f := newFixture()
	f.addAddress(t, "a@example.com", true)
	svc := newAuthService(t, f)
	tok, err := svc.Login(context.Background(), &identity.LoginRequest{Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	other := newFixture()
	other.cfg.Auth.JWTSecret = "different"
	otherSvc := newAuthService(t, other)
	_, err = otherSvc.ValidateAccessToken(context.Background(), tok.AccessToken)
	require.Error(t, err)
}
