package session

import (
	"context"
	"fmt"
	"time"

	"github.com/glxlabs/chatgate/internal/domain"
	"github.com/glxlabs/chatgate/internal/store"
)

// SQLiteStore is a Store backed by the repository's sessions table, so
// conversation state survives process restarts.
type SQLiteStore struct {
	repo store.Repository
}

// NewSQLiteStore wraps a repository as a session store.
func NewSQLiteStore(repo store.Repository) *SQLiteStore {
	return &SQLiteStore{repo: repo}
}

// Get returns the session for sender, or the implicit unverified session.
func (s *SQLiteStore) Get(ctx context.Context, sender string) (*domain.Session, error) {
	sess, err := s.repo.GetSession(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return domain.NewSession(sender), nil
	}
	return sess, nil
}

// Put creates or replaces the session for sess.SenderAddress.
func (s *SQLiteStore) Put(ctx context.Context, sess *domain.Session) error {
	if err := s.repo.PutSession(ctx, sess); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Clear removes the session for sender.
func (s *SQLiteStore) Clear(ctx context.Context, sender string) error {
	if err := s.repo.ClearSession(ctx, sender); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Count returns the number of stored sessions.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	return s.repo.CountSessions(ctx)
}

// DeleteIdle removes sessions not updated within ttl.
func (s *SQLiteStore) DeleteIdle(ctx context.Context, ttl time.Duration) (int, error) {
	n, err := s.repo.DeleteIdleSessions(ctx, ttl)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
