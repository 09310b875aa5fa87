package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glxlabs/chatgate/internal/domain"
)

// fakeDirectory serves lookups from in-memory maps. A nil map entry means
// a miss; setting failLookups makes every lookup return an error.
type fakeDirectory struct {
	byPhone     map[string]*domain.User
	byCode      map[string]*domain.User
	failLookups bool
	phoneCalls  int
	codeCalls   int
}

func (d *fakeDirectory) FindUserByPhone(_ context.Context, phone string) (*domain.User, error) {
	d.phoneCalls++
	if d.failLookups {
		return nil, errors.New("directory unavailable")
	}
	return d.byPhone[phone], nil
}

func (d *fakeDirectory) FindUserByClientCode(_ context.Context, code string) (*domain.User, error) {
	d.codeCalls++
	if d.failLookups {
		return nil, errors.New("directory unavailable")
	}
	return d.byCode[code], nil
}

// fakeNotifier records confirmation sends and optionally fails them.
type fakeNotifier struct {
	sent []string
	fail bool
}

func (n *fakeNotifier) SendConfirmation(_ context.Context, user *domain.User) error {
	if n.fail {
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, user.UserID)
	return nil
}

var (
	alice = &domain.User{UserID: "U1", Name: "Alice Johnson", Phone: "+15551234567", ClientCode: "ACME-1001", Email: "alice@example.com", Active: true}
	carol = &domain.User{UserID: "U3", Name: "Carol Davis", Phone: "+442071234567", ClientCode: "GLX-2001", Email: "carol@example.com", Active: true}
)

func newTestAuth(dir *fakeDirectory, notifier *fakeNotifier) *AuthHandler {
	return NewAuthHandler(dir, notifier, time.Second, time.Second)
}

func TestPhoneMatchVerifiesSilently(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{byPhone: map[string]*domain.User{alice.Phone: alice}}
	notifier := &fakeNotifier{}
	auth := newTestAuth(dir, notifier)

	sess := domain.NewSession(alice.Phone)
	resp, err := auth.Handle(context.Background(), "Hi", sess)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if sess.AuthState != domain.StateVerified {
		t.Errorf("Expected state verified, got %s", sess.AuthState)
	}
	if sess.UserID != "U1" {
		t.Errorf("Expected user_id U1, got %q", sess.UserID)
	}
	if !strings.Contains(resp.ReplyText, "Alice Johnson") {
		t.Errorf("Expected greeting with name, got %q", resp.ReplyText)
	}
	if resp.NotificationSent || len(notifier.sent) != 0 {
		t.Error("Phone path must not send a notification")
	}
}

func TestUnknownPhonePromptsForClientCode(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{}
	auth := newTestAuth(dir, &fakeNotifier{})

	sess := domain.NewSession("+19999999999")
	resp, err := auth.Handle(context.Background(), "Hello", sess)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if sess.AuthState != domain.StateAwaitingClientCode {
		t.Errorf("Expected state awaiting_client_code, got %s", sess.AuthState)
	}
	if sess.UserID != "" {
		t.Errorf("Expected no user_id, got %q", sess.UserID)
	}
	if !strings.Contains(strings.ToLower(resp.ReplyText), "client code") {
		t.Errorf("Expected client code prompt, got %q", resp.ReplyText)
	}
}

func TestValidClientCodeVerifiesAndNotifies(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{byCode: map[string]*domain.User{carol.ClientCode: carol}}
	notifier := &fakeNotifier{}
	auth := newTestAuth(dir, notifier)

	sess := domain.NewSession("+19999999999")
	sess.AuthState = domain.StateAwaitingClientCode

	resp, err := auth.Handle(context.Background(), "GLX-2001", sess)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if sess.AuthState != domain.StateVerified {
		t.Errorf("Expected state verified, got %s", sess.AuthState)
	}
	if sess.UserID != "U3" {
		t.Errorf("Expected user_id U3, got %q", sess.UserID)
	}
	if !resp.NotificationSent {
		t.Error("Expected notification to be recorded")
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "U3" {
		t.Errorf("Expected one confirmation for U3, got %v", notifier.sent)
	}
	if !strings.Contains(resp.ReplyText, "c***l@example.com") {
		t.Errorf("Expected masked email in reply, got %q", resp.ReplyText)
	}
}

func TestClientCodeIsTrimmedButCaseSensitive(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{byCode: map[string]*domain.User{carol.ClientCode: carol}}
	auth := newTestAuth(dir, &fakeNotifier{})

	// Surrounding whitespace is trimmed.
	sess := domain.NewSession("+19999999999")
	sess.AuthState = domain.StateAwaitingClientCode
	if _, err := auth.Handle(context.Background(), "  GLX-2001  ", sess); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if sess.AuthState != domain.StateVerified {
		t.Errorf("Expected trimmed code to verify, got state %s", sess.AuthState)
	}

	// Case differences are not forgiven.
	sess = domain.NewSession("+19999999998")
	sess.AuthState = domain.StateAwaitingClientCode
	if _, err := auth.Handle(context.Background(), "glx-2001", sess); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if sess.AuthState != domain.StateRejected {
		t.Errorf("Expected lowercased code to reject, got state %s", sess.AuthState)
	}
}

func TestInvalidClientCodeRejects(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{}
	auth := newTestAuth(dir, &fakeNotifier{})

	sess := domain.NewSession("+19999999999")
	sess.AuthState = domain.StateAwaitingClientCode

	resp, err := auth.Handle(context.Background(), "INVALID", sess)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if sess.AuthState != domain.StateRejected {
		t.Errorf("Expected state rejected, got %s", sess.AuthState)
	}
	if !strings.Contains(strings.ToLower(resp.ReplyText), "support") {
		t.Errorf("Expected support redirect, got %q", resp.ReplyText)
	}
}

func TestRejectedIsSticky(t *testing.T) {
	t.Parallel()

	// Even with a matching phone in the directory, a rejected sender is
	// not re-evaluated until an explicit logout.
	dir := &fakeDirectory{byPhone: map[string]*domain.User{"+15551234567": alice}}
	auth := newTestAuth(dir, &fakeNotifier{})

	sess := domain.NewSession("+15551234567")
	sess.AuthState = domain.StateRejected

	resp, err := auth.Handle(context.Background(), "Hello again", sess)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if sess.AuthState != domain.StateRejected {
		t.Errorf("Expected state to remain rejected, got %s", sess.AuthState)
	}
	if dir.phoneCalls != 0 || dir.codeCalls != 0 {
		t.Error("Rejected sender must not trigger directory lookups")
	}
	if !strings.Contains(strings.ToLower(resp.ReplyText), "support") {
		t.Errorf("Expected support redirect, got %q", resp.ReplyText)
	}
}

func TestNotifierFailureDoesNotBlockVerification(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{byCode: map[string]*domain.User{carol.ClientCode: carol}}
	notifier := &fakeNotifier{fail: true}
	auth := newTestAuth(dir, notifier)

	sess := domain.NewSession("+19999999999")
	sess.AuthState = domain.StateAwaitingClientCode

	resp, err := auth.Handle(context.Background(), "GLX-2001", sess)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if sess.AuthState != domain.StateVerified {
		t.Errorf("Notifier failure must not undo verification, got state %s", sess.AuthState)
	}
	if resp.NotificationSent {
		t.Error("Failed notification must not be recorded as sent")
	}
}

func TestDirectoryFailureIsAnErrorNotARejection(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{failLookups: true}
	auth := newTestAuth(dir, &fakeNotifier{})

	// Phone path.
	sess := domain.NewSession("+15551234567")
	if _, err := auth.Handle(context.Background(), "Hi", sess); err == nil {
		t.Fatal("Expected error from failing directory")
	}
	if sess.AuthState != domain.StateUnverified {
		t.Errorf("Session must not transition on lookup failure, got %s", sess.AuthState)
	}

	// Client code path.
	sess = domain.NewSession("+19999999999")
	sess.AuthState = domain.StateAwaitingClientCode
	if _, err := auth.Handle(context.Background(), "GLX-2001", sess); err == nil {
		t.Fatal("Expected error from failing directory")
	}
	if sess.AuthState != domain.StateAwaitingClientCode {
		t.Errorf("Session must not transition on lookup failure, got %s", sess.AuthState)
	}
}

func TestLookupIdempotence(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{}
	auth := newTestAuth(dir, &fakeNotifier{})

	// Redelivering the same message against the same state yields the same
	// transition every time.
	for i := 0; i < 3; i++ {
		sess := domain.NewSession("+19999999999")
		resp, err := auth.Handle(context.Background(), "Hello", sess)
		if err != nil {
			t.Fatalf("Handle failed on attempt %d: %v", i+1, err)
		}
		if sess.AuthState != domain.StateAwaitingClientCode {
			t.Fatalf("Attempt %d: expected awaiting_client_code, got %s", i+1, sess.AuthState)
		}
		if resp.ReplyText != replyPromptClientCode {
			t.Fatalf("Attempt %d: reply changed between redeliveries", i+1)
		}
	}
}

func TestMaskEmail(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "a***e@example.com"},
		{"jo@example.com", "j***@example.com"},
		{"x@example.com", "x***@example.com"},
		{"not-an-email", "not-an-email"},
	}
	for _, tc := range cases {
		if got := maskEmail(tc.in); got != tc.want {
			t.Errorf("maskEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
