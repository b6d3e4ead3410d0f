package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avatarctic/email-auth/configs"
	"github.com/avatarctic/email-auth/internal/bootstrap"
	"github.com/avatarctic/email-auth/internal/infrastructure/memstore"
)

// sharedMemoryApp returns an opener that hands out one in-memory App so state
// survives across command invocations.
func sharedMemoryApp(t *testing.T) openFunc {
	open, _ := sharedMemoryAppWithStore(t)
	return open
}

func sharedMemoryAppWithStore(t *testing.T) (openFunc, *memstore.Store) {
	t.Helper()
	cfg := &configs.Config{
		Database:       configs.DatabaseConfig{Driver: "memory"},
		Email:          configs.EmailConfig{Provider: "log", FromEmail: "noreply@example.com"},
		Auth:           configs.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, BcryptCost: 4},
		Tokens:         configs.TokenConfig{RevokeStale: true, InsertAttempts: 3},
		PasswordPolicy: configs.PasswordPolicyConfig{MinLength: 8},
	}
	app, err := bootstrap.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	store, ok := app.Store.(*memstore.Store)
	require.True(t, ok)
	return func(context.Context) (*bootstrap.App, error) { return app, nil }, store
}

func run(t *testing.T, open openFunc, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(open, &out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIdentitiesAndAddresses(t *testing.T) {
	open := sharedMemoryApp(t)

	out, err := run(t, open, "identities", "create", "--password", "long-enough", "--display-name", "Admin")
	require.NoError(t, err)
	identityID := strings.TrimSpace(out)
	require.Len(t, identityID, 36)

	_, err = run(t, open, "addresses", "add", identityID, "Admin@Example.com", "--send-verification")
	require.NoError(t, err)

	out, err = run(t, open, "addresses", "list", identityID)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], "Admin@Example.com")
	require.Contains(t, lines[1], "false")

	_, err = run(t, open, "addresses", "add", identityID, "admin@example.com")
	require.Error(t, err)
}

func TestIdentitiesCreate_WeakPassword(t *testing.T) {
	_, err := run(t, sharedMemoryApp(t), "identities", "create", "--password", "short")
	require.ErrorContains(t, err, "weak password")
}

func TestAddresses_InvalidIdentityID(t *testing.T) {
	_, err := run(t, sharedMemoryApp(t), "addresses", "list", "not-a-uuid")
	require.ErrorContains(t, err, "invalid identity id")
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	_, err := run(t, sharedMemoryApp(t), "migrate", "up")
	require.ErrorContains(t, err, "STORE_DRIVER=postgres")
}

func TestAddressesDelete_CascadesPendingTokens(t *testing.T) {
	open, store := sharedMemoryAppWithStore(t)

	out, err := run(t, open, "identities", "create", "--password", "long-enough")
	require.NoError(t, err)
	identityID := strings.TrimSpace(out)

	out, err = run(t, open, "addresses", "add", identityID, "first@example.com", "--send-verification")
	require.NoError(t, err)
	firstID := strings.Split(strings.TrimSpace(out), "\n")[0]

	_, err = run(t, open, "addresses", "add", identityID, "second@example.com", "--send-verification")
	require.NoError(t, err)
	require.Equal(t, 2, store.VerificationTokenCount())

	out, err = run(t, open, "addresses", "delete", firstID)
	require.NoError(t, err)
	require.Contains(t, out, "address deleted")
	require.Equal(t, 1, store.VerificationTokenCount())

	out, err = run(t, open, "addresses", "list", identityID)
	require.NoError(t, err)
	require.NotContains(t, out, "first@example.com")
	require.Contains(t, out, "second@example.com")

	_, err = run(t, open, "addresses", "delete", firstID)
	require.ErrorContains(t, err, "not found")

	_, err = run(t, open, "addresses", "delete", "not-a-uuid")
	require.ErrorContains(t, err, "invalid address id")
}
