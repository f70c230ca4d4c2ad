package queue

import "context"

// Client publishes property status events. Implementations must be safe for
// concurrent use by request handlers.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
