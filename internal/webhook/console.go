package webhook

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/glxlabs/chatgate/internal/dispatch"
)

// ConsoleHandler is a development-only WebSocket endpoint that feeds typed
// lines straight into the dispatcher and writes back replies, bypassing the
// chat platform. cmd/simulator is its client.
type ConsoleHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewConsoleHandler creates the dev console handler.
func NewConsoleHandler(dispatcher *dispatch.Dispatcher) *ConsoleHandler {
	return &ConsoleHandler{dispatcher: dispatcher}
}

// ServeHTTP upgrades to WebSocket and runs the console loop. The simulated
// sender address comes from the "sender" query parameter.
func (h *ConsoleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sender := strings.TrimSpace(r.URL.Query().Get("sender"))
	if sender == "" {
		http.Error(w, "sender query parameter is required", http.StatusBadRequest)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept console WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "console closed"); closeErr != nil {
			slog.Debug("console WebSocket close", "error", closeErr)
		}
	}()

	slog.Info("Console connected", "sender", sender, "ip", r.RemoteAddr)
	ctx := r.Context()

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			slog.Info("Console disconnected", "sender", sender)
			return
		}

		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}

		var reply string
		if strings.EqualFold(text, "logout") {
			if err := h.dispatcher.Logout(ctx, sender); err != nil {
				slog.Error("Console logout failed", "sender", sender, "error", err)
				reply = dispatch.ReplyTransient
			} else {
				reply = replyLoggedOut
			}
		} else {
			reply, err = h.dispatcher.Route(ctx, sender, text)
			if err != nil {
				slog.Error("Console routing failed", "sender", sender, "error", err)
				reply = dispatch.ReplyTransient
			}
		}

		if err := ws.Write(ctx, websocket.MessageText, []byte(reply)); err != nil {
			slog.Warn("Console write failed", "sender", sender, "error", err)
			return
		}
	}
}
