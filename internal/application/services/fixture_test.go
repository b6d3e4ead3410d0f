package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/email-auth/configs"
	"github.com/avatarctic/email-auth/internal/core/domain/email"
	"github.com/avatarctic/email-auth/internal/core/domain/identity"
	"github.com/avatarctic/email-auth/internal/core/domain/notification"
	"github.com/avatarctic/email-auth/internal/infrastructure/memstore"
	"github.com/avatarctic/email-auth/internal/mocks"
)

type fixture struct {
	store      *memstore.Store
	dispatcher *mocks.DispatcherMock
	hasher     *mocks.CountingHasher
	cfg        *configs.Config
}

func newFixture() *fixture {
	return &fixture{
		store:      memstore.New(),
		dispatcher: &mocks.DispatcherMock{},
		hasher:     &mocks.CountingHasher{},
		cfg: &configs.Config{
			Email:  configs.EmailConfig{FromEmail: "noreply@example.com"},
			Auth:   configs.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute},
			Tokens: configs.TokenConfig{RevokeStale: true, InsertAttempts: 3},
		},
	}
}

// addAddress stores an active identity with password "pw" owning address.
func (f *fixture) addAddress(t *testing.T, address string, verified bool) (*identity.Identity, *email.Address) {
	t.Helper()
	return f.addOwnedAddress(t, address, verified, true)
}

func (f *fixture) addOwnedAddress(t *testing.T, address string, verified, active bool) (*identity.Identity, *email.Address) {
	t.Helper()
	ctx := context.Background()

	hash, _ := f.hasher.Hash("pw")
	owner := &identity.Identity{ID: uuid.New(), DisplayName: "owner", PasswordHash: hash, IsActive: active}
	require.NoError(t, f.store.Identities().Create(ctx, owner))

	addr := email.NewAddress(address, owner.ID)
	if verified {
		addr.MarkVerified(time.Now().UTC())
	}
	require.NoError(t, f.store.EmailAddresses().Create(ctx, addr))
	return owner, addr
}

func (f *fixture) sentWith(template string) []*notification.Notification {
	var out []*notification.Notification
	for _, n := range f.dispatcher.Sent() {
		if n.TemplateName == template {
			out = append(out, n)
		}
	}
	return out
}
