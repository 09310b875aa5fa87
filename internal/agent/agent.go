// Package agent implements the message handlers: the authentication state
// machine and the task handlers that serve verified traffic.
package agent

import (
	"context"

	"github.com/glxlabs/chatgate/internal/domain"
)

// Handler processes one inbound message against the sender's session state.
//
// Handlers may mutate the session they are given; the dispatcher decides
// whether the mutation is persisted. A returned error means the handler
// could not complete due to an infrastructure failure: the session must be
// treated as untouched and the message is safe to redeliver.
type Handler interface {
	// Name identifies the handler in the registry and in logs.
	Name() string

	// Handle processes a user message and returns a response.
	Handle(ctx context.Context, message string, sess *domain.Session) (*Response, error)
}

// Response is the value returned by a handler after processing a message.
type Response struct {
	// ReplyText is delivered back to the sender. Always set.
	ReplyText string

	// NotificationSent records that a confirmation notification was
	// dispatched. Observability only, not required for correctness.
	NotificationSent bool

	// ClearSession asks the dispatcher to reset the sender's session to the
	// implicit initial state. This is the narrow mutation contract for task
	// handlers; the authentication flow never sets it.
	ClearSession bool
}
