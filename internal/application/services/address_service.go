package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-auth/internal/core/domain/email"
	"github.com/avatarctic/email-auth/internal/core/domain/identity"
	"github.com/avatarctic/email-auth/internal/core/domain/notification"
	"github.com/avatarctic/email-auth/internal/core/ports"
)

// AddressService registers identities and the addresses they own.
type AddressService struct {
	uow        ports.UnitOfWork
	dispatcher ports.NotificationDispatcher
	policy     ports.PasswordPolicy
	hasher     ports.PasswordHasher
	from       string
	validate   *validator.Validate
	logger     *logrus.Logger
}

func NewAddressService(uow ports.UnitOfWork, dispatcher ports.NotificationDispatcher, policy ports.PasswordPolicy, hasher ports.PasswordHasher, from string, logger *logrus.Logger) ports.AddressService {
	return &AddressService{
		uow:        uow,
		dispatcher: dispatcher,
		policy:     policy,
		hasher:     hasher,
		from:       from,
		validate:   validator.New(),
		logger:     logger,
	}
}

func (s *AddressService) CreateIdentity(ctx context.Context, displayName, password string) (*identity.Identity, error) {
	now := time.Now().UTC()
	i := &identity.Identity{
		ID:          uuid.New(),
		DisplayName: displayName,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if violations := s.policy.Validate(password, i); len(violations) > 0 {
		return nil, &WeakPasswordError{Violations: violations}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	i.PasswordHash = hash

	if err := s.uow.Identities().Create(ctx, i); err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}
	return i, nil
}

// AddAddress registers an unverified address. If the address is already registered
// the existing owner is notified and ErrAddressTaken is returned.
func (s *AddressService) AddAddress(ctx context.Context, ownerID uuid.UUID, address string) (*email.Address, error) {
	if err := s.validate.Var(address, "required,email,max=254"); err != nil {
		return nil, ErrInvalidAddress
	}

	existing, found, err := s.uow.EmailAddresses().FindByAddress(ctx, address, false)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email address: %w", err)
	}
	if found {
		s.notifyDuplicate(ctx, existing)
		return nil, ErrAddressTaken
	}

	if _, found, err := s.uow.Identities().GetByID(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	} else if !found {
		return nil, ErrIdentityNotFound
	}

	addr := email.NewAddress(address, ownerID)
	if err := s.uow.EmailAddresses().Create(ctx, addr); err != nil {
		if errors.Is(err, ports.ErrDuplicateAddress) {
			return nil, ErrAddressTaken
		}
		return nil, fmt.Errorf("failed to create email address: %w", err)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"email_id": addr.ID, "identity_id": ownerID}).Info("email address added")
	}
	return addr, nil
}

func (s *AddressService) ListAddresses(ctx context.Context, ownerID uuid.UUID) ([]*email.Address, error) {
	addrs, err := s.uow.EmailAddresses().ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list email addresses: %w", err)
	}
	return addrs, nil
}

func (s *AddressService) DeleteAddress(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.uow.EmailAddresses().Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete email address: %w", err)
	}
	return deleted, nil
}

// notifyDuplicate tells the registered address that someone tried to add it again.
// Delivery failures are logged so the caller still sees ErrAddressTaken.
func (s *AddressService) notifyDuplicate(ctx context.Context, existing *email.Address) {
	n := &notification.Notification{
		TemplateName: notification.TemplateDuplicateEmail,
		Subject:      notification.SubjectDuplicateEmail,
		Recipients:   []string{existing.Address},
		From:         s.from,
		Context:      map[string]any{"email": existing},
	}
	if err := s.dispatcher.Send(ctx, n); err != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"email_id": existing.ID}).WithError(err).Warn("failed to send duplicate email notification")
	}
}
