package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-auth/configs"
	"github.com/avatarctic/email-auth/internal/core/domain/email"
	"github.com/avatarctic/email-auth/internal/core/domain/identity"
	"github.com/avatarctic/email-auth/internal/core/domain/notification"
	"github.com/avatarctic/email-auth/internal/core/ports"
	"github.com/avatarctic/email-auth/internal/utils"
)

type VerificationService struct {
	uow         ports.UnitOfWork
	issuer      tokenIssuer
	urlTemplate string
	logger      *logrus.Logger
}

func NewVerificationService(uow ports.UnitOfWork, dispatcher ports.NotificationDispatcher, generate utils.TokenGenerator, cfg *configs.Config, logger *logrus.Logger) ports.VerificationService {
	return &VerificationService{
		uow:         uow,
		issuer:      newTokenIssuer(cfg, generate, dispatcher, logger),
		urlTemplate: cfg.Auth.EmailVerificationURL,
		logger:      logger,
	}
}

func (s *VerificationService) RequestVerification(ctx context.Context, address string) (*email.VerificationToken, error) {
	addr, found, err := s.uow.EmailAddresses().FindByAddress(ctx, address, false)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email address: %w", err)
	}

	if !found {
		if s.logger != nil {
			s.logger.Debug("verification requested for unregistered address")
		}
		return nil, s.issuer.send(ctx, notification.TemplateUnregistered, notification.SubjectUnregistered, address,
			map[string]any{"email": address})
	}

	if addr.IsVerified {
		return nil, s.issuer.send(ctx, notification.TemplateAlreadyVerified, notification.SubjectAlreadyVerified, addr.Address,
			map[string]any{"email": addr})
	}

	owner, _, err := s.uow.Identities().GetByID(ctx, addr.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load address owner: %w", err)
	}

	var issued *email.Token
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx ports.Stores) error {
		t, err := s.issuer.issue(ctx, tx.VerificationTokens(), addr.ID)
		if err != nil {
			return err
		}
		issued = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	verification := &email.VerificationToken{Token: *issued}
	data := verificationContext(addr, owner, verification, renderURL(s.urlTemplate, issued.Token))
	if err := s.issuer.send(ctx, notification.TemplateVerifyEmail, notification.SubjectVerifyEmail, addr.Address, data); err != nil {
		// The token stays persisted; the owner can request another message.
		return nil, err
	}

	s.issuer.markSent(ctx, s.uow.VerificationTokens(), &verification.Token)

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"email_id": addr.ID, "token_prefix": verification.Prefix()}).Info("verification email sent")
	}
	return verification, nil
}

func (s *VerificationService) RedeemVerification(ctx context.Context, token string) (*email.Address, error) {
	if !validTokenShape(token) {
		return nil, ErrInvalidToken
	}

	var verified *email.Address
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx ports.Stores) error {
		t, found, err := tx.VerificationTokens().Consume(ctx, token)
		if err != nil {
			return fmt.Errorf("failed to consume verification token: %w", err)
		}
		if !found {
			return ErrInvalidToken
		}

		addr, found, err := tx.EmailAddresses().GetByID(ctx, t.EmailID)
		if err != nil {
			return fmt.Errorf("failed to load email address: %w", err)
		}
		if !found {
			return ErrInvalidToken
		}

		if !addr.IsVerified {
			now := time.Now().UTC()
			if err := tx.EmailAddresses().MarkVerified(ctx, addr.ID, now); err != nil {
				return fmt.Errorf("failed to mark email address verified: %w", err)
			}
			addr.MarkVerified(now)
		}

		// Verified addresses have no use for the remaining tokens.
		if _, err := tx.VerificationTokens().DeleteByEmail(ctx, addr.ID); err != nil {
			return fmt.Errorf("failed to delete remaining verification tokens: %w", err)
		}

		verified = addr
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"email_id": verified.ID}).Info("email address verified")
	}
	return verified, nil
}

func verificationContext(addr *email.Address, owner *identity.Identity, v *email.VerificationToken, url string) map[string]any {
	data := map[string]any{
		"email":        addr,
		"identity":     owner,
		"verification": v,
		"token":        v.Token.Token,
	}
	if url != "" {
		data["verification_url"] = url
	}
	return data
}
