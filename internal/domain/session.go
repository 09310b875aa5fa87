package domain

import (
	"time"
)

// AuthState tracks a sender's progress through the verification flow.
type AuthState string

const (
	// StateUnverified is the implicit initial state for any sender.
	StateUnverified AuthState = "unverified"
	// StateAwaitingClientCode means the phone lookup missed and the sender
	// has been prompted for their client code.
	StateAwaitingClientCode AuthState = "awaiting_client_code"
	// StateVerified means the sender's identity resolved to a user.
	StateVerified AuthState = "verified"
	// StateRejected means both lookups missed; sticky until logout.
	StateRejected AuthState = "rejected"
)

// KnownState reports whether s is one of the defined auth states.
func KnownState(s AuthState) bool {
	switch s {
	case StateUnverified, StateAwaitingClientCode, StateVerified, StateRejected:
		return true
	}
	return false
}

// Session is the per-sender conversation state, keyed by sender address.
type Session struct {
	SenderAddress string    `json:"sender_address"`
	AuthState     AuthState `json:"auth_state"`
	UserID        string    `json:"user_id,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

// NewSession returns the implicit initial session for a sender.
func NewSession(sender string) *Session {
	return &Session{
		SenderAddress: sender,
		AuthState:     StateUnverified,
	}
}

// Verified reports whether the sender's identity has been resolved.
func (s *Session) Verified() bool {
	return s.AuthState == StateVerified
}

// Valid reports whether the session satisfies the state invariant:
// UserID is present if and only if the state is verified, and the
// state itself is a known value.
func (s *Session) Valid() bool {
	if !KnownState(s.AuthState) {
		return false
	}
	if s.AuthState == StateVerified {
		return s.UserID != ""
	}
	return s.UserID == ""
}

// Clone returns a copy of the session. Handlers that receive the session
// read-only get a clone so they cannot mutate stored state.
func (s *Session) Clone() *Session {
	c := *s
	return &c
}
