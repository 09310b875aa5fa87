package webhook

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/glxlabs/chatgate/internal/dispatch"
	"github.com/go-chi/chi/v5"
)

// AdminHandler exposes the out-of-band session operations: explicit logout
// and a session count for monitoring.
type AdminHandler struct {
	dispatcher *dispatch.Dispatcher
	pinger     Pinger
}

// Pinger verifies backing-store connectivity for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(dispatcher *dispatch.Dispatcher, pinger Pinger) *AdminHandler {
	return &AdminHandler{dispatcher: dispatcher, pinger: pinger}
}

// RegisterRoutes registers the admin and readiness endpoints.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/sessions", func(r chi.Router) {
		r.Post("/{sender}/logout", h.Logout)
		r.Get("/stats", h.Stats)
	})
	r.Get("/health/ready", h.Ready)
}

// Logout clears a sender's session.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sender := chi.URLParam(r, "sender")
	if sender == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sender is required"})
		return
	}

	if err := h.dispatcher.Logout(r.Context(), sender); err != nil {
		slog.Error("Admin logout failed", "sender", sender, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "logout failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stats reports the active session count.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	count, err := h.dispatcher.ActiveSessions(r.Context())
	if err != nil {
		slog.Error("Session stats failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"active_sessions": count})
}

// Ready reports whether the backing store is reachable.
func (h *AdminHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		slog.Error("Readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
