package notify

import (
	"context"
	"log/slog"

	"github.com/glxlabs/chatgate/internal/domain"
)

// LogNotifier logs confirmations instead of delivering them. Used in
// development when no SMTP server is configured.
type LogNotifier struct{}

// SendConfirmation logs the confirmation that would have been sent.
func (LogNotifier) SendConfirmation(_ context.Context, user *domain.User) error {
	slog.Info("Confirmation notification (log only, SMTP not configured)",
		"user_id", user.UserID,
		"email", user.Email,
	)
	return nil
}
