package realtime

import (
	"context"

	"github.com/google/uuid"
)

// IRealtimeChannel is one persistent bidirectional connection to the
// backend. Commands are fire-and-forget: there is no per-request
// acknowledgment, responses arrive later as independent push events scoped
// to a session id. Every received event is published to the in-process bus
// under constant.RealtimeEventsTopic; the sync dispatcher consumes them in
// order.
//
// On transport loss the channel reconnects on its own with backoff. It
// carries no session state across reconnects; continuity is the store's
// responsibility.
type IRealtimeChannel interface {
	Connect(ctx context.Context) error
	Authenticate(ctx context.Context, userId uuid.UUID) error
	CreateSession(ctx context.Context, title string) error
	JoinSession(ctx context.Context, sessionId uuid.UUID) error
	Send(ctx context.Context, sessionId uuid.UUID, text string) error
	Close() error
}
