package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-auth/configs"
	"github.com/avatarctic/email-auth/internal/core/domain/email"
	"github.com/avatarctic/email-auth/internal/core/domain/notification"
	"github.com/avatarctic/email-auth/internal/core/ports"
	"github.com/avatarctic/email-auth/internal/utils"
)

type PasswordResetService struct {
	uow         ports.UnitOfWork
	issuer      tokenIssuer
	policy      ports.PasswordPolicy
	hasher      ports.PasswordHasher
	urlTemplate string
	logger      *logrus.Logger
}

func NewPasswordResetService(uow ports.UnitOfWork, dispatcher ports.NotificationDispatcher, generate utils.TokenGenerator, policy ports.PasswordPolicy, hasher ports.PasswordHasher, cfg *configs.Config, logger *logrus.Logger) ports.PasswordResetService {
	return &PasswordResetService{
		uow:         uow,
		issuer:      newTokenIssuer(cfg, generate, dispatcher, logger),
		policy:      policy,
		hasher:      hasher,
		urlTemplate: cfg.Auth.PasswordResetURL,
		logger:      logger,
	}
}

// RequestReset only acts on verified addresses and is silent otherwise.
func (s *PasswordResetService) RequestReset(ctx context.Context, address string) (*email.PasswordResetToken, error) {
	addr, found, err := s.uow.EmailAddresses().FindByAddress(ctx, address, true)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email address: %w", err)
	}
	if !found {
		if s.logger != nil {
			s.logger.Debug("password reset requested for unknown or unverified address")
		}
		return nil, nil
	}

	var issued *email.Token
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx ports.Stores) error {
		t, err := s.issuer.issue(ctx, tx.PasswordResetTokens(), addr.ID)
		if err != nil {
			return err
		}
		issued = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	reset := &email.PasswordResetToken{Token: *issued}
	data := map[string]any{
		"password_reset": reset,
		"email":          addr,
		"token":          issued.Token,
	}
	if url := renderURL(s.urlTemplate, issued.Token); url != "" {
		data["reset_url"] = url
	}

	if err := s.issuer.send(ctx, notification.TemplateResetPassword, notification.SubjectResetPassword, addr.Address, data); err != nil {
		return nil, err
	}

	s.issuer.markSent(ctx, s.uow.PasswordResetTokens(), &reset.Token)

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"email_id": addr.ID, "token_prefix": reset.Prefix()}).Info("password reset email sent")
	}
	return reset, nil
}

// RedeemReset changes the owner's password and consumes the token in one transaction.
// The password is written before the token is deleted.
func (s *PasswordResetService) RedeemReset(ctx context.Context, token, newPassword string) error {
	if !validTokenShape(token) {
		return ErrInvalidToken
	}

	t, found, err := s.uow.PasswordResetTokens().Get(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to load password reset token: %w", err)
	}
	if !found {
		return ErrInvalidToken
	}

	addr, found, err := s.uow.EmailAddresses().GetByID(ctx, t.EmailID)
	if err != nil {
		return fmt.Errorf("failed to load email address: %w", err)
	}
	if !found {
		return ErrInvalidToken
	}

	owner, found, err := s.uow.Identities().GetByID(ctx, addr.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to load identity: %w", err)
	}
	if !found {
		return ErrInvalidToken
	}

	if violations := s.policy.Validate(newPassword, owner); len(violations) > 0 {
		return &WeakPasswordError{Violations: violations}
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx ports.Stores) error {
		if err := tx.Identities().UpdatePassword(ctx, owner.ID, hash, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		_, consumed, err := tx.PasswordResetTokens().Consume(ctx, token)
		if err != nil {
			return fmt.Errorf("failed to consume password reset token: %w", err)
		}
		if !consumed {
			// A concurrent redemption won.
			return ErrInvalidToken
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"identity_id": owner.ID, "email_id": addr.ID}).Info("password reset")
	}
	return nil
}
