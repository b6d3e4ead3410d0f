package memstore_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/email-auth/internal/core/domain/email"
	"github.com/avatarctic/email-auth/internal/core/domain/identity"
	"github.com/avatarctic/email-auth/internal/core/ports"
	"github.com/avatarctic/email-auth/internal/infrastructure/memstore"
)

func seedAddress(t *testing.T, s *memstore.Store, address string) *email.Address {
	t.Helper()
	ctx := context.Background()
	owner := &identity.Identity{ID: uuid.New(), IsActive: true}
	require.NoError(t, s.Identities().Create(ctx, owner))
	a := email.NewAddress(address, owner.ID)
	require.NoError(t, s.EmailAddresses().Create(ctx, a))
	return a
}

func TestAddresses_CaseInsensitiveUniqueness(t *testing.T) {
	s := memstore.New()
	seedAddress(t, s, "Alice@Example.com")

	err := s.EmailAddresses().Create(context.Background(), email.NewAddress("alice@example.COM", uuid.New()))
	require.ErrorIs(t, err, ports.ErrDuplicateAddress)
}

func TestAddresses_Lookups(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	a := seedAddress(t, s, "Alice@Example.com")

	got, found, err := s.EmailAddresses().FindByAddress(ctx, "ALICE@example.com", false)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, a.ID, got.ID)

	_, found, err = s.EmailAddresses().FindByAddress(ctx, "alice@example.com", true)
	require.NoError(t, err)
	require.False(t, found)

	_, found, _ = s.EmailAddresses().FindByExactAddress(ctx, "alice@example.com", false)
	require.False(t, found)
	_, found, _ = s.EmailAddresses().FindByExactAddress(ctx, "Alice@Example.com", false)
	require.True(t, found)
}

func TestAddresses_MarkVerifiedOnce(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	a := seedAddress(t, s, "a@example.com")

	first := time.Now().UTC()
	require.NoError(t, s.EmailAddresses().MarkVerified(ctx, a.ID, first))
	require.NoError(t, s.EmailAddresses().MarkVerified(ctx, a.ID, first.Add(time.Hour)))

	got, _, err := s.EmailAddresses().GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, got.IsVerified)
	require.True(t, got.VerifiedAt.Equal(first))
}

func TestAddresses_DeleteCascadesTokens(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	a := seedAddress(t, s, "a@example.com")

	v := email.NewToken("v1", a.ID)
	r := email.NewToken("r1", a.ID)
	require.NoError(t, s.VerificationTokens().Insert(ctx, &v))
	require.NoError(t, s.PasswordResetTokens().Insert(ctx, &r))

	deleted, err := s.EmailAddresses().Delete(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, deleted)
	require.Zero(t, s.VerificationTokenCount())
	require.Zero(t, s.PasswordResetTokenCount())

	deleted, err = s.EmailAddresses().Delete(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestTokens_DuplicateInsert(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	a := seedAddress(t, s, "a@example.com")

	tok := email.NewToken("same", a.ID)
	require.NoError(t, s.VerificationTokens().Insert(ctx, &tok))
	require.ErrorIs(t, s.VerificationTokens().Insert(ctx, &tok), ports.ErrDuplicateToken)

	// Reset tokens live in their own table.
	require.NoError(t, s.PasswordResetTokens().Insert(ctx, &tok))
}

func TestTokens_ConsumeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	a := seedAddress(t, s, "a@example.com")
	tok := email.NewToken("once", a.ID)
	require.NoError(t, s.VerificationTokens().Insert(ctx, &tok))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, found, err := s.VerificationTokens().Consume(ctx, "once")
			assert.NoError(t, err)
			if found {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins.Load())
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	a := seedAddress(t, s, "a@example.com")
	tok := email.NewToken("keep", a.ID)
	require.NoError(t, s.VerificationTokens().Insert(ctx, &tok))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx ports.Stores) error {
		_, found, err := tx.VerificationTokens().Consume(ctx, "keep")
		require.NoError(t, err)
		require.True(t, found)
		require.NoError(t, tx.EmailAddresses().MarkVerified(ctx, a.ID, time.Now()))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, found, err := s.VerificationTokens().Get(ctx, "keep")
	require.NoError(t, err)
	require.True(t, found)
	got, _, _ := s.EmailAddresses().GetByID(ctx, a.ID)
	require.False(t, got.IsVerified)
}

func TestListByOwner_OrderedByCreation(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	owner := &identity.Identity{ID: uuid.New()}
	require.NoError(t, s.Identities().Create(ctx, owner))

	base := time.Now().UTC()
	for i, addr := range []string{"c@example.com", "a@example.com", "b@example.com"} {
		a := email.NewAddress(addr, owner.ID)
		a.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.EmailAddresses().Create(ctx, a))
	}

	list, err := s.EmailAddresses().ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "c@example.com", list[0].Address)
	require.Equal(t, "b@example.com", list[2].Address)
}
