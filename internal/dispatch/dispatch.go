// Package dispatch routes inbound messages to the right handler.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glxlabs/chatgate/internal/agent"
	"github.com/glxlabs/chatgate/internal/domain"
	"github.com/glxlabs/chatgate/internal/session"
)

// ReplyTransient is sent when an infrastructure failure prevented handling.
// Internal failures never leak as raw error text to the chat surface.
const ReplyTransient = "Sorry, something went wrong on our side. Please try again in a moment."

// ReplyFallback is sent to a verified sender whose message names no
// registered capability and no default handler exists.
const ReplyFallback = "I'm not sure how to help with that yet. Send *logout* to end your session."

// Dispatcher is the front door: it loads the sender's session, routes the
// message to the authentication handler or a task handler, and persists the
// session when the authentication flow advanced it.
//
// Processing for a single sender is serialized; distinct senders proceed in
// parallel with no shared mutable state beyond the session store itself.
type Dispatcher struct {
	sessions session.Store
	registry *agent.Registry
	auth     agent.Handler
	locks    *senderLocks
}

// New creates a dispatcher. The registry must contain the authentication
// handler under agent.AuthHandlerName.
func New(sessions session.Store, registry *agent.Registry) (*Dispatcher, error) {
	auth, ok := registry.Get(agent.AuthHandlerName)
	if !ok {
		return nil, fmt.Errorf("registry has no %q handler", agent.AuthHandlerName)
	}
	return &Dispatcher{
		sessions: sessions,
		registry: registry,
		auth:     auth,
		locks:    newSenderLocks(),
	}, nil
}

// Route processes one inbound message and returns the reply text.
//
// A returned error means the session store failed: the message must be
// treated as undelivered by the transport layer and is safe to redeliver.
// Handler-level infrastructure failures are absorbed into a generic
// transient reply without transitioning the session.
func (d *Dispatcher) Route(ctx context.Context, sender, text string) (string, error) {
	unlock := d.locks.lock(sender)
	defer unlock()

	sess, err := d.sessions.Get(ctx, sender)
	if err != nil {
		return "", fmt.Errorf("load session for %s: %w", sender, err)
	}

	if !sess.Valid() {
		slog.Error("Corrupt session state, resetting to initial",
			"sender", sender, "state", sess.AuthState, "user_id", sess.UserID)
		if err := d.sessions.Clear(ctx, sender); err != nil {
			return "", fmt.Errorf("reset corrupt session for %s: %w", sender, err)
		}
		sess = domain.NewSession(sender)
	}

	if !sess.Verified() {
		return d.routeUnverified(ctx, sender, text, sess)
	}
	return d.routeVerified(ctx, sender, text, sess)
}

func (d *Dispatcher) routeUnverified(ctx context.Context, sender, text string, sess *domain.Session) (string, error) {
	resp, err := d.auth.Handle(ctx, text, sess)
	if err != nil {
		// No transition on infrastructure failure; never a silent rejection.
		slog.Error("Authentication handler failed", "sender", sender, "error", err)
		return ReplyTransient, nil
	}

	sess.LastUpdated = time.Now()
	if err := d.sessions.Put(ctx, sess); err != nil {
		return "", fmt.Errorf("persist session for %s: %w", sender, err)
	}

	return resp.ReplyText, nil
}

func (d *Dispatcher) routeVerified(ctx context.Context, sender, text string, sess *domain.Session) (string, error) {
	handler, ok := d.taskHandler(text)
	if !ok {
		slog.Warn("No task handler for verified message", "sender", sender, "user_id", sess.UserID)
		return ReplyFallback, nil
	}

	// Task handlers get a copy; session mutations go through the narrow
	// ClearSession contract only.
	resp, err := handler.Handle(ctx, text, sess.Clone())
	if err != nil {
		slog.Error("Task handler failed", "sender", sender, "handler", handler.Name(), "error", err)
		return ReplyTransient, nil
	}

	if resp.ClearSession {
		if err := d.sessions.Clear(ctx, sender); err != nil {
			return "", fmt.Errorf("clear session for %s: %w", sender, err)
		}
		slog.Info("Session cleared by task handler", "sender", sender, "handler", handler.Name())
	}

	return resp.ReplyText, nil
}

// taskHandler resolves the capability for a verified message: the first
// token selects a registered handler by name, otherwise the default applies.
func (d *Dispatcher) taskHandler(text string) (agent.Handler, bool) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) > 0 {
		if h, ok := d.registry.Get(fields[0]); ok && h.Name() != agent.AuthHandlerName {
			return h, true
		}
	}
	return d.registry.Default()
}

// Logout clears the sender's session, resetting it to the implicit initial
// state. Exposed to front ends that offer a "log out / restart" affordance.
func (d *Dispatcher) Logout(ctx context.Context, sender string) error {
	unlock := d.locks.lock(sender)
	defer unlock()

	if err := d.sessions.Clear(ctx, sender); err != nil {
		return fmt.Errorf("logout %s: %w", sender, err)
	}
	slog.Info("Session logged out", "sender", sender)
	return nil
}

// ActiveSessions returns the number of stored sessions.
func (d *Dispatcher) ActiveSessions(ctx context.Context) (int, error) {
	return d.sessions.Count(ctx)
}
