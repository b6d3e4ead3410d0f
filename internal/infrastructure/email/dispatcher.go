package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-auth/internal/core/domain/notification"
)

//go:embed templates/*.html
var templatesFS embed.FS

var notificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "email_auth_notifications_total",
		Help: "Notifications handed to the email transport, by template and outcome",
	},
	[]string{"template", "status"},
)

func init() {
	prometheus.MustRegister(notificationsTotal)
}

// Message is a rendered email ready for delivery.
type Message struct {
	From     string
	FromName string
	To       []string
	Subject  string
	HTMLBody string
	// Tag is the template name; providers use it for grouping.
	Tag string
}

// Transport delivers rendered messages.
type Transport interface {
	Deliver(ctx context.Context, msg *Message) error
}

// Dispatcher implements ports.NotificationDispatcher by rendering embedded
// templates and handing the result to a Transport.
type Dispatcher struct {
	transport Transport
	templates *template.Template
	fromName  string
	logger    *logrus.Logger
}

func NewDispatcher(transport Transport, fromName string, logger *logrus.Logger) (*Dispatcher, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	return &Dispatcher{transport: transport, templates: tmpl, fromName: fromName, logger: logger}, nil
}

func (d *Dispatcher) Send(ctx context.Context, n *notification.Notification) error {
	body, err := d.render(n.TemplateName, n.Context)
	if err != nil {
		notificationsTotal.WithLabelValues(n.TemplateName, "render_error").Inc()
		return err
	}

	msg := &Message{
		From:     n.From,
		FromName: d.fromName,
		To:       n.Recipients,
		Subject:  n.Subject,
		HTMLBody: body,
		Tag:      n.TemplateName,
	}

	if err := d.transport.Deliver(ctx, msg); err != nil {
		notificationsTotal.WithLabelValues(n.TemplateName, "failed").Inc()
		if d.logger != nil {
			d.logger.WithFields(logrus.Fields{"template": n.TemplateName, "recipients": len(n.Recipients)}).WithError(err).Error("failed to deliver email")
		}
		return fmt.Errorf("failed to deliver email: %w", err)
	}

	notificationsTotal.WithLabelValues(n.TemplateName, "sent").Inc()
	if d.logger != nil {
		d.logger.WithFields(logrus.Fields{"template": n.TemplateName, "subject": n.Subject}).Info("email sent")
	}
	return nil
}

func (d *Dispatcher) render(name string, data map[string]any) (string, error) {
	tmpl := d.templates.Lookup(name + ".html")
	if tmpl == nil {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
