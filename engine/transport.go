package engine

import (
	"context"

	"github.com/groupmod/groupmod/event"
)

// Executes outbound actions against the chat system. Errors are logged by the engine and never retried.
type Transport interface {
	Execute(ctx context.Context, a Action) error
}

// Answers who administers a room. The engine caches results, so implementations may go to the network.
type Roster interface {
	Admins(ctx context.Context, room string) ([]event.User, error)
}
