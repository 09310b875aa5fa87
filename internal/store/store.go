// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/glxlabs/chatgate/internal/domain"
)

// Repository defines the interface for the user directory and persisted sessions.
//
// Directory queries are pure: a miss returns (nil, nil), never an error.
// Inactive users are invisible to both lookups.
type Repository interface {
	// FindUserByPhone looks up an active user by their canonical phone.
	FindUserByPhone(ctx context.Context, phone string) (*domain.User, error)

	// FindUserByClientCode looks up an active user by their client code.
	// Matching is exact and case-sensitive.
	FindUserByClientCode(ctx context.Context, code string) (*domain.User, error)

	// UpsertUser creates or updates a directory record. Used by provisioning
	// (seeding), never by the message path.
	UpsertUser(ctx context.Context, user *domain.User) error

	// CheckDirectoryInvariant reports cross-field collisions: a user whose
	// client code equals another user's phone could resolve one sender to
	// two different identities depending on lookup order.
	CheckDirectoryInvariant(ctx context.Context) ([]DirectoryConflict, error)

	// GetSession retrieves a persisted session, or nil if none exists.
	GetSession(ctx context.Context, sender string) (*domain.Session, error)

	// PutSession creates or updates a session record.
	PutSession(ctx context.Context, sess *domain.Session) error

	// ClearSession removes a session record. Clearing a missing session is a no-op.
	ClearSession(ctx context.Context, sender string) error

	// CountSessions returns the number of persisted sessions.
	CountSessions(ctx context.Context) (int, error)

	// DeleteIdleSessions removes sessions not updated within ttl.
	DeleteIdleSessions(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// DirectoryConflict describes a cross-field identity collision in the directory.
type DirectoryConflict struct {
	CodeOwnerID  string // user whose client_code collides
	PhoneOwnerID string // user whose phone carries the same value
	Value        string
}
