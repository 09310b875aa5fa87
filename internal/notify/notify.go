// Package notify delivers verification confirmations to users.
package notify

import (
	"context"

	"github.com/glxlabs/chatgate/internal/domain"
)

// Notifier sends a confirmation notification to a verified user.
// Delivery is best-effort: callers log failures and never let them block
// or roll back a verification.
type Notifier interface {
	// SendConfirmation notifies the user that their identity was verified.
	SendConfirmation(ctx context.Context, user *domain.User) error
}
