package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glxlabs/chatgate/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	sessionMu sync.Mutex // Mutex for session writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL UNIQUE,
		client_code TEXT NOT NULL UNIQUE,
		company_id TEXT NOT NULL,
		email TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_phone ON users(phone) WHERE active = 1;
	CREATE INDEX IF NOT EXISTS idx_users_client_code ON users(client_code) WHERE active = 1;

	CREATE TABLE IF NOT EXISTS sessions (
		sender_address TEXT PRIMARY KEY,
		auth_state TEXT NOT NULL,
		user_id TEXT,
		last_updated INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(last_updated);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const userColumns = `user_id, name, phone, client_code, company_id, email, active, created_at`

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var active int64
	var createdAt int64

	err := row.Scan(
		&user.UserID, &user.Name, &user.Phone, &user.ClientCode,
		&user.CompanyID, &user.Email, &active, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.Active = active != 0
	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

// FindUserByPhone looks up an active user by their canonical phone.
func (s *SQLiteStore) FindUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = ? AND active = 1`
	return scanUser(s.db.QueryRowContext(ctx, query, phone))
}

// FindUserByClientCode looks up an active user by their client code.
func (s *SQLiteStore) FindUserByClientCode(ctx context.Context, code string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE client_code = ? AND active = 1`
	return scanUser(s.db.QueryRowContext(ctx, query, code))
}

// UpsertUser creates or updates a directory record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, name, phone, client_code, company_id, email, active, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		name = excluded.name,
		phone = excluded.phone,
		client_code = excluded.client_code,
		company_id = excluded.company_id,
		email = excluded.email,
		active = excluded.active`

	active := 0
	if user.Active {
		active = 1
	}
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Name, user.Phone, user.ClientCode,
		user.CompanyID, user.Email, active, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// CheckDirectoryInvariant reports users whose client code collides with
// another user's phone. Phone and client code uniqueness within their own
// columns is enforced by the schema; the cross-field case is not.
func (s *SQLiteStore) CheckDirectoryInvariant(ctx context.Context) ([]DirectoryConflict, error) {
	query := `
		SELECT a.user_id, b.user_id, a.client_code
		FROM users a
		JOIN users b ON a.client_code = b.phone
		WHERE a.user_id != b.user_id AND a.active = 1 AND b.active = 1`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query directory conflicts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close directory conflict rows", "error", closeErr)
		}
	}()

	var conflicts []DirectoryConflict
	for rows.Next() {
		var c DirectoryConflict
		if err := rows.Scan(&c.CodeOwnerID, &c.PhoneOwnerID, &c.Value); err != nil {
			return nil, fmt.Errorf("scan directory conflict row: %w", err)
		}
		conflicts = append(conflicts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate directory conflicts: %w", err)
	}

	return conflicts, nil
}

// GetSession retrieves a persisted session, or nil if none exists.
func (s *SQLiteStore) GetSession(ctx context.Context, sender string) (*domain.Session, error) {
	query := `SELECT sender_address, auth_state, user_id, last_updated FROM sessions WHERE sender_address = ?`

	row := s.db.QueryRowContext(ctx, query, sender)

	var sess domain.Session
	var state string
	var userID sql.NullString
	var lastUpdated int64

	err := row.Scan(&sess.SenderAddress, &state, &userID, &lastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	sess.AuthState = domain.AuthState(state)
	sess.UserID = userID.String
	sess.LastUpdated = time.Unix(lastUpdated, 0)

	return &sess, nil
}

// PutSession creates or updates a session record.
func (s *SQLiteStore) PutSession(ctx context.Context, sess *domain.Session) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	query := `
	INSERT INTO sessions (sender_address, auth_state, user_id, last_updated)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(sender_address) DO UPDATE SET
		auth_state = excluded.auth_state,
		user_id = excluded.user_id,
		last_updated = excluded.last_updated`

	var userID interface{}
	if sess.UserID != "" {
		userID = sess.UserID
	}
	lastUpdated := sess.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		sess.SenderAddress, string(sess.AuthState), userID, lastUpdated.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// ClearSession removes a session record.
func (s *SQLiteStore) ClearSession(ctx context.Context, sender string) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE sender_address = ?`, sender); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CountSessions returns the number of persisted sessions.
func (s *SQLiteStore) CountSessions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// DeleteIdleSessions removes sessions not updated within ttl.
func (s *SQLiteStore) DeleteIdleSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	threshold := time.Now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_updated < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("delete idle sessions: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
