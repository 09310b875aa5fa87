// Simulator is an interactive chat console for testing the auth flow
// without the chat platform. It connects to the server's dev console
// WebSocket endpoint and exchanges messages as a chosen sender address.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws/console", "dev console WebSocket URL")
	sender := flag.String("sender", "+19999999999", "sender address to simulate")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	u, err := url.Parse(*serverURL)
	if err != nil {
		slog.Error("Invalid server URL", "error", err)
		os.Exit(1)
	}
	q := u.Query()
	q.Set("sender", *sender)
	u.RawQuery = q.Encode()

	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, u.String(), nil)
	cancel()
	if err != nil {
		slog.Error("Failed to connect; is the server running in dev mode?", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "simulator closed")
	}()

	fmt.Println("====================================================")
	fmt.Println("  Chatgate — Chat Simulator")
	fmt.Println("====================================================")
	fmt.Printf("Simulating as %s\n", *sender)
	fmt.Println("Tip: use +15551234567 (known) or +19999999999 (unknown)")
	fmt.Println("     type 'quit' to exit, 'logout' to reset the session")
	fmt.Println()

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "quit") {
			fmt.Println("Goodbye!")
			return
		}

		if err := conn.Write(ctx, websocket.MessageText, []byte(input)); err != nil {
			slog.Error("Failed to send message", "error", err)
			os.Exit(1)
		}

		_, reply, err := conn.Read(ctx)
		if err != nil {
			slog.Error("Connection closed by server", "error", err)
			os.Exit(1)
		}

		fmt.Printf("Agent: %s\n\n", reply)
	}
}
