// Package session implements the per-sender conversation state store.
package session

import (
	"context"
	"time"

	"github.com/glxlabs/chatgate/internal/domain"
)

// Store holds per-sender conversation state across messages.
//
// Get never fails on a miss: a sender with no prior record receives the
// implicit unverified session. Errors from any method indicate a backing
// store failure; callers surface those as transient to the transport layer.
type Store interface {
	// Get returns the session for sender, or the implicit unverified
	// session if none exists. The returned session is the caller's copy.
	Get(ctx context.Context, sender string) (*domain.Session, error)

	// Put creates or replaces the session for sess.SenderAddress.
	Put(ctx context.Context, sess *domain.Session) error

	// Clear removes the session, resetting the sender to the implicit
	// initial state. Clearing a missing session is a no-op.
	Clear(ctx context.Context, sender string) error

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)

	// DeleteIdle removes sessions not updated within ttl and returns how
	// many were removed.
	DeleteIdle(ctx context.Context, ttl time.Duration) (int, error)
}
