package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrz1836/postmark"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-auth/configs"
)

// NewTransport builds the transport named by cfg.Provider.
func NewTransport(cfg *configs.EmailConfig, logger *logrus.Logger) (Transport, error) {
	switch cfg.Provider {
	case "sendgrid":
		return NewSendGridTransport(cfg.SendGridAPIKey, logger), nil
	case "postmark":
		return NewPostmarkTransport(cfg.PostmarkServerToken, cfg.PostmarkAccountToken), nil
	case "log", "":
		return NewLogTransport(logger), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}
}

// SendGridTransport sends one message per recipient through SendGrid.
type SendGridTransport struct {
	client *sendgrid.Client
	logger *logrus.Logger
}

func NewSendGridTransport(apiKey string, logger *logrus.Logger) *SendGridTransport {
	return &SendGridTransport{client: sendgrid.NewSendClient(apiKey), logger: logger}
}

func (t *SendGridTransport) Deliver(ctx context.Context, msg *Message) error {
	from := mail.NewEmail(msg.FromName, msg.From)
	for _, to := range msg.To {
		message := mail.NewSingleEmail(from, msg.Subject, mail.NewEmail("", to), "", msg.HTMLBody)
		message.AddCategories(msg.Tag)

		response, err := t.client.SendWithContext(ctx, message)
		if err != nil {
			return fmt.Errorf("sendgrid: %w", err)
		}
		if response.StatusCode >= 400 {
			return fmt.Errorf("sendgrid: unexpected status %d: %s", response.StatusCode, response.Body)
		}
		if t.logger != nil {
			t.logger.WithFields(logrus.Fields{"subject": msg.Subject, "status_code": response.StatusCode}).Debug("sendgrid accepted email")
		}
	}
	return nil
}

// PostmarkTransport sends messages through Postmark's transactional API.
type PostmarkTransport struct {
	client *postmark.Client
}

func NewPostmarkTransport(serverToken, accountToken string) *PostmarkTransport {
	return &PostmarkTransport{client: postmark.NewClient(serverToken, accountToken)}
}

func (t *PostmarkTransport) Deliver(ctx context.Context, msg *Message) error {
	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.From)
	}

	resp, err := t.client.SendEmail(ctx, postmark.Email{
		From:     from,
		To:       strings.Join(msg.To, ","),
		Subject:  msg.Subject,
		Tag:      msg.Tag,
		HTMLBody: msg.HTMLBody,
	})
	if err != nil {
		return fmt.Errorf("postmark: %w", err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}
	return nil
}

// LogTransport writes message metadata to the logger instead of sending it. Local development only.
// Bodies carry redeemable tokens and are never logged.
type LogTransport struct {
	logger *logrus.Logger
}

func NewLogTransport(logger *logrus.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Deliver(ctx context.Context, msg *Message) error {
	if t.logger == nil {
		return nil
	}
	t.logger.WithFields(logrus.Fields{
		"from":       msg.From,
		"to":         strings.Join(msg.To, ","),
		"subject":    msg.Subject,
		"tag":        msg.Tag,
		"body_bytes": len(msg.HTMLBody),
	}).Info("email (log transport)")
	return nil
}
