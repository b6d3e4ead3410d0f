package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/email-auth/internal/application/services"
	"github.com/avatarctic/email-auth/internal/core/domain/notification"
	"github.com/avatarctic/email-auth/internal/core/ports"
)

func newAddressService(f *fixture) ports.AddressService {
	return services.NewAddressService(f.store, f.dispatcher, weakUnless("Str0ng-Enough-Pw"), f.hasher, f.cfg.Email.FromEmail, nil)
}

func TestCreateIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newAddressService(f)

	i, err := svc.CreateIdentity(ctx, "Alice", "Str0ng-Enough-Pw")
	require.NoError(t, err)
	require.True(t, i.IsActive)
	require.True(t, f.hasher.Compare(i.PasswordHash, "Str0ng-Enough-Pw"))

	_, found, err := f.store.Identities().GetByID(ctx, i.ID)
	require.NoError(t, err)
	require.True(t, found)

	_, err = svc.CreateIdentity(ctx, "Bob", "weak")
	var weak *services.WeakPasswordError
	require.True(t, errors.As(err, &weak))
}

func TestAddAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newAddressService(f)
	owner, err := svc.CreateIdentity(ctx, "Alice", "Str0ng-Enough-Pw")
	require.NoError(t, err)

	addr, err := svc.AddAddress(ctx, owner.ID, "Alice@Example.com")
	require.NoError(t, err)
	require.Equal(t, "Alice@Example.com", addr.Address)
	require.Equal(t, "alice@example.com", addr.NormalizedAddress)
	require.False(t, addr.IsVerified)
	require.Nil(t, addr.VerifiedAt)

	list, err := svc.ListAddresses(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestAddAddress_DuplicateNotifiesExistingOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, existing := f.addAddress(t, "Alice@Example.com", true)
	svc := newAddressService(f)
	other, err := svc.CreateIdentity(ctx, "Mallory", "Str0ng-Enough-Pw")
	require.NoError(t, err)

	_, err = svc.AddAddress(ctx, other.ID, "alice@example.com")
	require.ErrorIs(t, err, services.ErrAddressTaken)

	sent := f.sentWith(notification.TemplateDuplicateEmail)
	require.Len(t, sent, 1)
	require.Equal(t, []string{existing.Address}, sent[0].Recipients)
	require.Equal(t, notification.SubjectDuplicateEmail, sent[0].Subject)
}

func TestAddAddress_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newAddressService(f)

	_, err := svc.AddAddress(ctx, uuid.New(), "not-an-address")
	require.ErrorIs(t, err, services.ErrInvalidAddress)

	_, err = svc.AddAddress(ctx, uuid.New(), "a@example.com")
	require.ErrorIs(t, err, services.ErrIdentityNotFound)
}

func TestDeleteAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, addr := f.addAddress(t, "a@example.com", false)
	verification := services.NewVerificationService(f.store, f.dispatcher, nil, f.cfg, nil)
	_, err := verification.RequestVerification(ctx, "a@example.com")
	require.NoError(t, err)

	svc := newAddressService(f)
	deleted, err := svc.DeleteAddress(ctx, addr.ID)
	require.NoError(t, err)
	require.True(t, deleted)
	require.Zero(t, f.store.VerificationTokenCount())

	deleted, err = svc.DeleteAddress(ctx, addr.ID)
	require.NoError(t, err)
	require.False(t, deleted)
}
