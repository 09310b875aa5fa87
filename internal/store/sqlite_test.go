package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glxlabs/chatgate/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()

	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return repo
}

func seedUser(t *testing.T, repo Repository, user *domain.User) {
	t.Helper()

	if err := repo.UpsertUser(context.Background(), user); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
}

func TestFindUserByPhone(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()
	seedUser(t, repo, &domain.User{
		UserID: "U1", Name: "Alice Johnson", Phone: "+15551234567",
		ClientCode: "ACME-1001", CompanyID: "acme_corp",
		Email: "alice@example.com", Active: true,
	})

	user, err := repo.FindUserByPhone(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("FindUserByPhone failed: %v", err)
	}
	if user == nil {
		t.Fatal("Expected a user, got nil")
	}
	if user.UserID != "U1" || user.Name != "Alice Johnson" || !user.Active {
		t.Errorf("Unexpected user: %+v", user)
	}

	// A miss is nil, nil: not an error.
	user, err = repo.FindUserByPhone(ctx, "+19999999999")
	if err != nil {
		t.Fatalf("FindUserByPhone failed on miss: %v", err)
	}
	if user != nil {
		t.Errorf("Expected nil on miss, got %+v", user)
	}
}

func TestFindUserByClientCode(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()
	seedUser(t, repo, &domain.User{
		UserID: "U3", Name: "Carol Davis", Phone: "+442071234567",
		ClientCode: "GLX-2001", CompanyID: "globex_inc",
		Email: "carol@example.com", Active: true,
	})

	user, err := repo.FindUserByClientCode(ctx, "GLX-2001")
	if err != nil {
		t.Fatalf("FindUserByClientCode failed: %v", err)
	}
	if user == nil || user.UserID != "U3" {
		t.Fatalf("Expected U3, got %+v", user)
	}

	// Codes are matched exactly; case differences miss.
	user, err = repo.FindUserByClientCode(ctx, "glx-2001")
	if err != nil {
		t.Fatalf("FindUserByClientCode failed: %v", err)
	}
	if user != nil {
		t.Errorf("Expected case-sensitive miss, got %+v", user)
	}
}

func TestInactiveUsersAreInvisible(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()
	seedUser(t, repo, &domain.User{
		UserID: "U9", Name: "Former Client", Phone: "+15550000000",
		ClientCode: "OLD-9999", CompanyID: "acme_corp",
		Email: "former@example.com", Active: false,
	})

	user, err := repo.FindUserByPhone(ctx, "+15550000000")
	if err != nil {
		t.Fatalf("FindUserByPhone failed: %v", err)
	}
	if user != nil {
		t.Errorf("Inactive user must not resolve by phone, got %+v", user)
	}

	user, err = repo.FindUserByClientCode(ctx, "OLD-9999")
	if err != nil {
		t.Fatalf("FindUserByClientCode failed: %v", err)
	}
	if user != nil {
		t.Errorf("Inactive user must not resolve by code, got %+v", user)
	}
}

func TestUpsertUserUpdatesInPlace(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()
	seedUser(t, repo, &domain.User{
		UserID: "U1", Name: "Alice Johnson", Phone: "+15551234567",
		ClientCode: "ACME-1001", CompanyID: "acme_corp",
		Email: "alice@example.com", Active: true,
	})
	seedUser(t, repo, &domain.User{
		UserID: "U1", Name: "Alice J.", Phone: "+15551234567",
		ClientCode: "ACME-1001", CompanyID: "acme_corp",
		Email: "alice.j@example.com", Active: true,
	})

	user, err := repo.FindUserByPhone(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("FindUserByPhone failed: %v", err)
	}
	if user == nil || user.Name != "Alice J." || user.Email != "alice.j@example.com" {
		t.Errorf("Expected updated record, got %+v", user)
	}
}

func TestCheckDirectoryInvariant(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	seedUser(t, repo, &domain.User{
		UserID: "U1", Name: "Alice Johnson", Phone: "+15551234567",
		ClientCode: "ACME-1001", CompanyID: "acme_corp",
		Email: "alice@example.com", Active: true,
	})

	conflicts, err := repo.CheckDirectoryInvariant(ctx)
	if err != nil {
		t.Fatalf("CheckDirectoryInvariant failed: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("Expected no conflicts, got %+v", conflicts)
	}

	// U2's client code equals U1's phone: an ambiguous identity value.
	seedUser(t, repo, &domain.User{
		UserID: "U2", Name: "Bob Smith", Phone: "+15559876543",
		ClientCode: "+15551234567", CompanyID: "acme_corp",
		Email: "bob@example.com", Active: true,
	})

	conflicts, err = repo.CheckDirectoryInvariant(ctx)
	if err != nil {
		t.Fatalf("CheckDirectoryInvariant failed: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("Expected one conflict, got %+v", conflicts)
	}
	c := conflicts[0]
	if c.CodeOwnerID != "U2" || c.PhoneOwnerID != "U1" || c.Value != "+15551234567" {
		t.Errorf("Unexpected conflict: %+v", c)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	// No row yet.
	sess, err := repo.GetSession(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess != nil {
		t.Fatalf("Expected nil for unknown sender, got %+v", sess)
	}

	want := &domain.Session{
		SenderAddress: "+15551234567",
		AuthState:     domain.StateVerified,
		UserID:        "U1",
		LastUpdated:   time.Now(),
	}
	if err := repo.PutSession(ctx, want); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}

	sess, err = repo.GetSession(ctx, want.SenderAddress)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess == nil {
		t.Fatal("Expected a session, got nil")
	}
	if sess.AuthState != domain.StateVerified || sess.UserID != "U1" {
		t.Errorf("Round trip lost data: %+v", sess)
	}

	// A second Put replaces the row.
	want.AuthState = domain.StateUnverified
	want.UserID = ""
	if err := repo.PutSession(ctx, want); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}
	sess, err = repo.GetSession(ctx, want.SenderAddress)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess.AuthState != domain.StateUnverified || sess.UserID != "" {
		t.Errorf("Expected replaced session, got %+v", sess)
	}

	if err := repo.ClearSession(ctx, want.SenderAddress); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}
	sess, err = repo.GetSession(ctx, want.SenderAddress)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess != nil {
		t.Errorf("Expected nil after clear, got %+v", sess)
	}
}

func TestDeleteIdleSessions(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	stale := &domain.Session{
		SenderAddress: "+15551111111",
		AuthState:     domain.StateAwaitingClientCode,
		LastUpdated:   time.Now().Add(-2 * time.Hour),
	}
	fresh := &domain.Session{
		SenderAddress: "+15552222222",
		AuthState:     domain.StateVerified,
		UserID:        "U2",
		LastUpdated:   time.Now(),
	}
	if err := repo.PutSession(ctx, stale); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}
	if err := repo.PutSession(ctx, fresh); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}

	deleted, err := repo.DeleteIdleSessions(ctx, time.Hour)
	if err != nil {
		t.Fatalf("DeleteIdleSessions failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted session, got %d", deleted)
	}

	n, err := repo.CountSessions(ctx)
	if err != nil {
		t.Fatalf("CountSessions failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 remaining session, got %d", n)
	}
}
