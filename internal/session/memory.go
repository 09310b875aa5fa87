package session

import (
	"context"
	"sync"
	"time"

	"github.com/glxlabs/chatgate/internal/domain"
)

// MemoryStore is an in-memory Store keyed by sender address.
// It is safe for concurrent use from independent senders; same-sender
// read-modify-write ordering is the dispatcher's responsibility.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.Session)}
}

// Get returns the session for sender, or the implicit unverified session.
func (m *MemoryStore) Get(_ context.Context, sender string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if sess, ok := m.sessions[sender]; ok {
		return sess.Clone(), nil
	}
	return domain.NewSession(sender), nil
}

// Put creates or replaces the session for sess.SenderAddress.
func (m *MemoryStore) Put(_ context.Context, sess *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[sess.SenderAddress] = sess.Clone()
	return nil
}

// Clear removes the session for sender.
func (m *MemoryStore) Clear(_ context.Context, sender string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sender)
	return nil
}

// Count returns the number of stored sessions.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions), nil
}

// DeleteIdle removes sessions not updated within ttl.
func (m *MemoryStore) DeleteIdle(_ context.Context, ttl time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	threshold := time.Now().Add(-ttl)
	deleted := 0
	for sender, sess := range m.sessions {
		if sess.LastUpdated.Before(threshold) {
			delete(m.sessions, sender)
			deleted++
		}
	}
	return deleted, nil
}
