package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glxlabs/chatgate/internal/domain"
	"github.com/glxlabs/chatgate/internal/notify"
)

// AuthHandlerName is the registry name of the authentication handler.
// It is always registered and receives all unverified traffic.
const AuthHandlerName = "auth"

// Directory resolves sender identity. Both lookups are pure queries:
// a miss returns (nil, nil), never an error.
type Directory interface {
	FindUserByPhone(ctx context.Context, phone string) (*domain.User, error)
	FindUserByClientCode(ctx context.Context, code string) (*domain.User, error)
}

// AuthHandler is the authentication state machine. Given the inbound message
// and the sender's session, it advances the session through
// unverified → awaiting_client_code → verified/rejected.
//
// The phone lookup lets a known device authenticate silently; the client
// code is the fallback shared secret for a new or roaming device. The
// confirmation notification on the code path is best-effort: a notification
// failure never overrides a correct identity match.
type AuthHandler struct {
	dir           Directory
	notifier      notify.Notifier
	lookupTimeout time.Duration
	notifyTimeout time.Duration
}

// NewAuthHandler creates the authentication handler.
func NewAuthHandler(dir Directory, notifier notify.Notifier, lookupTimeout, notifyTimeout time.Duration) *AuthHandler {
	return &AuthHandler{
		dir:           dir,
		notifier:      notifier,
		lookupTimeout: lookupTimeout,
		notifyTimeout: notifyTimeout,
	}
}

// Ensure AuthHandler implements Handler.
var _ Handler = (*AuthHandler)(nil)

// Name returns the registry name.
func (a *AuthHandler) Name() string { return AuthHandlerName }

// Handle advances the authentication flow by one message.
func (a *AuthHandler) Handle(ctx context.Context, message string, sess *domain.Session) (*Response, error) {
	switch sess.AuthState {
	case domain.StateUnverified:
		return a.handlePhone(ctx, sess)
	case domain.StateAwaitingClientCode:
		return a.handleClientCode(ctx, strings.TrimSpace(message), sess)
	case domain.StateRejected:
		// Sticky: no automatic re-evaluation until an explicit logout.
		return &Response{ReplyText: replyRejectedSticky}, nil
	case domain.StateVerified:
		// Not reached under normal dispatch; the dispatcher routes
		// verified senders to task handlers directly.
		return &Response{ReplyText: replyAlreadyVerified}, nil
	default:
		return nil, fmt.Errorf("unknown auth state %q for sender %s", sess.AuthState, sess.SenderAddress)
	}
}

func (a *AuthHandler) handlePhone(ctx context.Context, sess *domain.Session) (*Response, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
	defer cancel()

	user, err := a.dir.FindUserByPhone(lookupCtx, sess.SenderAddress)
	if err != nil {
		// Infrastructure failure, not an identity miss: no transition.
		return nil, fmt.Errorf("phone lookup for %s: %w", sess.SenderAddress, err)
	}

	if user != nil {
		sess.AuthState = domain.StateVerified
		sess.UserID = user.UserID
		slog.Info("Sender verified by phone", "sender", sess.SenderAddress, "user_id", user.UserID)
		// Already a known device; no notification sent.
		return &Response{ReplyText: fmt.Sprintf(replyVerifiedByPhone, user.Name)}, nil
	}

	sess.AuthState = domain.StateAwaitingClientCode
	slog.Info("Sender unknown by phone, requesting client code", "sender", sess.SenderAddress)
	return &Response{ReplyText: replyPromptClientCode}, nil
}

func (a *AuthHandler) handleClientCode(ctx context.Context, code string, sess *domain.Session) (*Response, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
	defer cancel()

	user, err := a.dir.FindUserByClientCode(lookupCtx, code)
	if err != nil {
		return nil, fmt.Errorf("client code lookup for %s: %w", sess.SenderAddress, err)
	}

	if user == nil {
		sess.AuthState = domain.StateRejected
		slog.Info("Client code not found, rejecting sender", "sender", sess.SenderAddress)
		return &Response{ReplyText: replyRejected}, nil
	}

	// Grant verification first; notification failure must not undo it.
	sess.AuthState = domain.StateVerified
	sess.UserID = user.UserID
	slog.Info("Sender verified by client code", "sender", sess.SenderAddress, "user_id", user.UserID)

	notified := a.sendConfirmation(ctx, user)

	reply := fmt.Sprintf(replyVerifiedByCode, user.Name)
	if notified {
		reply += fmt.Sprintf(replyNotificationSuffix, maskEmail(user.Email))
	}
	return &Response{ReplyText: reply, NotificationSent: notified}, nil
}

func (a *AuthHandler) sendConfirmation(ctx context.Context, user *domain.User) bool {
	notifyCtx, cancel := context.WithTimeout(ctx, a.notifyTimeout)
	defer cancel()

	if err := a.notifier.SendConfirmation(notifyCtx, user); err != nil {
		slog.Error("Confirmation notification failed", "user_id", user.UserID, "error", err)
		return false
	}
	return true
}

// maskEmail masks an email for privacy: j***n@example.com.
func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local, domainPart := email[:at], email[at+1:]
	if len(local) <= 2 {
		return local[:1] + "***@" + domainPart
	}
	return local[:1] + "***" + local[len(local)-1:] + "@" + domainPart
}

const (
	replyVerifiedByPhone = "Welcome back, *%s*! Your identity has been verified. How can I help you today?"

	replyPromptClientCode = "I couldn't find an account linked to this phone number.\n\n" +
		"Please reply with your *client code* so I can look you up."

	replyVerifiedByCode = "Account found: *%s*. You have been successfully verified."

	replyNotificationSuffix = "\n\nA confirmation email has been sent to *%s*."

	replyRejected = "Sorry, I couldn't find an account with that client code.\n\n" +
		"Please contact support for help."

	replyRejectedSticky = "Your identity could not be verified. Please contact support, " +
		"or send *logout* to start over."

	replyAlreadyVerified = "You are already verified. How can I help you today?"
)
