package notify

import "context"

// Sender pushes a payload to one destination on an outbound channel.
// Implementations are fire-and-forget from the caller's perspective: the core
// never blocks a state mutation on their result.
type Sender interface {
	Send(ctx context.Context, destination, subject, body string) error
}
