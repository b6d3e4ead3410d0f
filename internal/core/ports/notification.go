package ports

import (
	"context"

	"github.com/avatarctic/email-auth/internal/core/domain/notification"
)

// NotificationDispatcher renders and delivers a templated message.
// Only transport errors are reported; delivery receipts are not tracked.
type NotificationDispatcher interface {
	Send(ctx context.Context, n *notification.Notification) error
}
