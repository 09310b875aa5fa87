package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendText(t *testing.T) {
	t.Parallel()

	var captured struct {
		path    string
		auth    string
		payload textPayload
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured.payload); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("token-123", "phone-456", "v21.0")
	c.baseURL = srv.URL

	if err := c.SendText(context.Background(), "+15551234567", "Hello!"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}

	if captured.path != "/v21.0/phone-456/messages" {
		t.Errorf("Unexpected path %q", captured.path)
	}
	if captured.auth != "Bearer token-123" {
		t.Errorf("Unexpected auth header %q", captured.auth)
	}
	if captured.payload.MessagingProduct != "whatsapp" ||
		captured.payload.To != "+15551234567" ||
		captured.payload.Type != "text" ||
		captured.payload.Text.Body != "Hello!" {
		t.Errorf("Unexpected payload: %+v", captured.payload)
	}
}

func TestSendTextNonOKStatusIsAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"invalid token"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-token", "phone-456", "v21.0")
	c.baseURL = srv.URL

	if err := c.SendText(context.Background(), "+15551234567", "Hello!"); err == nil {
		t.Fatal("Expected error for non-200 response")
	}
}

func TestSendTextWithoutTokenLogsOnly(t *testing.T) {
	t.Parallel()

	// No server: an empty token must short-circuit before any request.
	c := NewClient("", "phone-456", "v21.0")
	c.baseURL = "http://127.0.0.1:0"

	if err := c.SendText(context.Background(), "+15551234567", "Hello!"); err != nil {
		t.Fatalf("Expected log-only success, got %v", err)
	}
}
