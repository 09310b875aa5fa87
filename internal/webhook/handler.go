// Package webhook receives inbound chat-platform messages over HTTP and
// hands them to the dispatcher.
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/glxlabs/chatgate/internal/dispatch"
	"github.com/go-chi/chi/v5"
)

// maxRequestBodySize bounds inbound webhook payloads (1MB).
const maxRequestBodySize = 1 << 20

// replyLoggedOut is sent after an explicit logout command.
const replyLoggedOut = "You have been logged out. Send any message to start again."

// Replier delivers reply text back to a sender.
type Replier interface {
	SendText(ctx context.Context, to, text string) error
}

// Handler handles the WhatsApp Cloud API webhook.
type Handler struct {
	dispatcher  *dispatch.Dispatcher
	replier     Replier
	verifyToken string
	limiter     *senderLimiter
}

// NewHandler creates the webhook handler.
func NewHandler(dispatcher *dispatch.Dispatcher, replier Replier, verifyToken string, perSecond float64, burst int) *Handler {
	return &Handler{
		dispatcher:  dispatcher,
		replier:     replier,
		verifyToken: verifyToken,
		limiter:     newSenderLimiter(perSecond, burst),
	}
}

// RegisterRoutes registers the webhook endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/webhook", h.Verify)
	r.Post("/webhook", h.Receive)
}

// Verify answers the Meta webhook verification challenge.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		slog.Info("Webhook verified successfully")
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte(challenge)); err != nil {
			slog.Warn("failed to write webhook challenge", "error", err)
		}
		return
	}

	slog.Warn("Webhook verification failed", "mode", mode)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// Receive processes inbound messages.
//
// The platform redelivers on any non-2xx status, so a session persistence
// failure answers 500: the message is treated as undelivered and the
// authentication flow is safe to re-run. Everything else answers 200.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var env Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		slog.Debug("Received undecodable webhook event, ignoring", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	msgs := env.InboundMessages()
	if len(msgs) == 0 {
		slog.Debug("Received non-message webhook event, ignoring")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	for _, msg := range msgs {
		if !h.limiter.Allow(msg.From) {
			slog.Warn("Sender rate limit exceeded, dropping message", "sender", msg.From)
			continue
		}

		slog.Info("Message received", "sender", msg.From, "length", len(msg.Text.Body))

		reply, err := h.handleMessage(r.Context(), msg.From, msg.Text.Body)
		if err != nil {
			slog.Error("Message handling failed, requesting redelivery", "sender", msg.From, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "transient failure"})
			return
		}

		// Delivery of the reply is best-effort; the message itself is handled.
		if err := h.replier.SendText(r.Context(), msg.From, reply); err != nil {
			slog.Error("Failed to send reply", "sender", msg.From, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMessage applies the logout command or routes through the dispatcher.
func (h *Handler) handleMessage(ctx context.Context, sender, text string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(text), "logout") {
		if err := h.dispatcher.Logout(ctx, sender); err != nil {
			return "", err
		}
		return replyLoggedOut, nil
	}
	return h.dispatcher.Route(ctx, sender, text)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode JSON response", "error", err)
	}
}
