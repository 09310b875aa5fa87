package agent

import (
	"context"

	"github.com/glxlabs/chatgate/internal/domain"
)

// Greeter is the default task handler for verified traffic. It acknowledges
// the user and points at the available commands; task-specific handlers are
// registered alongside it by name.
type Greeter struct{}

// Ensure Greeter implements Handler.
var _ Handler = (*Greeter)(nil)

// Name returns the registry name.
func (Greeter) Name() string { return "greeter" }

// Handle replies with a greeting for a verified sender.
func (Greeter) Handle(_ context.Context, _ string, _ *domain.Session) (*Response, error) {
	return &Response{
		ReplyText: "Hello! You are verified. Task-based features are coming soon.\n\n" +
			"Send *logout* to end your session.",
	}, nil
}
