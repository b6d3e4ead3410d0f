package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-auth/configs"
	"github.com/avatarctic/email-auth/internal/core/domain/email"
	"github.com/avatarctic/email-auth/internal/core/domain/notification"
	"github.com/avatarctic/email-auth/internal/core/ports"
	"github.com/avatarctic/email-auth/internal/utils"
)

// tokenIssuer holds what the verification and reset flows share: minting,
// persisting with bounded retry, and dispatching notifications.
type tokenIssuer struct {
	generate    utils.TokenGenerator
	attempts    int
	revokeStale bool
	from        string
	dispatcher  ports.NotificationDispatcher
	logger      *logrus.Logger
}

func newTokenIssuer(cfg *configs.Config, generate utils.TokenGenerator, dispatcher ports.NotificationDispatcher, logger *logrus.Logger) tokenIssuer {
	if generate == nil {
		generate = utils.NewTokenGenerator(email.TokenLength)
	}
	attempts := cfg.Tokens.InsertAttempts
	if attempts < 1 {
		attempts = 1
	}
	return tokenIssuer{
		generate:    generate,
		attempts:    attempts,
		revokeStale: cfg.Tokens.RevokeStale,
		from:        cfg.Email.FromEmail,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// issue persists a fresh token for emailID through repo. Must run inside a transaction
// when revokeStale is set so the revocation and the insert commit together.
func (i tokenIssuer) issue(ctx context.Context, repo ports.TokenRepository, emailID uuid.UUID) (*email.Token, error) {
	if i.revokeStale {
		n, err := repo.DeleteByEmail(ctx, emailID)
		if err != nil {
			return nil, fmt.Errorf("failed to revoke stale tokens: %w", err)
		}
		if n > 0 && i.logger != nil {
			i.logger.WithFields(logrus.Fields{"email_id": emailID, "revoked": n}).Debug("revoked stale tokens")
		}
	}

	for attempt := 1; attempt <= i.attempts; attempt++ {
		value, err := i.generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token: %w", err)
		}

		t := email.NewToken(value, emailID)
		err = repo.Insert(ctx, &t)
		if errors.Is(err, ports.ErrDuplicateToken) {
			if i.logger != nil {
				i.logger.WithFields(logrus.Fields{"email_id": emailID, "attempt": attempt}).Warn("token collision, regenerating")
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to persist token: %w", err)
		}
		return &t, nil
	}

	return nil, ErrTokenCollision
}

// markSent stamps sent_at after a successful dispatch. A failure here only loses the stamp.
func (i tokenIssuer) markSent(ctx context.Context, repo ports.TokenRepository, t *email.Token) {
	now := time.Now().UTC()
	if err := repo.MarkSent(ctx, t.Token, now); err != nil {
		if i.logger != nil {
			i.logger.WithFields(logrus.Fields{"email_id": t.EmailID, "token_prefix": t.Prefix()}).WithError(err).Warn("failed to stamp token sent time")
		}
		return
	}
	t.SentAt = &now
	t.UpdatedAt = now
}

func (i tokenIssuer) send(ctx context.Context, template, subject, recipient string, data map[string]any) error {
	n := &notification.Notification{
		TemplateName: template,
		Subject:      subject,
		Recipients:   []string{recipient},
		From:         i.from,
		Context:      data,
	}
	if err := i.dispatcher.Send(ctx, n); err != nil {
		return fmt.Errorf("failed to send %s notification: %w", template, err)
	}
	return nil
}

// renderURL substitutes the token into a configured URL template. An empty template yields "".
func renderURL(template, token string) string {
	if template == "" {
		return ""
	}
	return strings.Replace(template, configs.TokenPlaceholder, token, 1)
}

func validTokenShape(token string) bool {
	return token != "" && len(token) <= email.TokenLength
}
