package guard

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ai-chat-client/internal/backend"
	"ai-chat-client/internal/cache"
	"ai-chat-client/internal/model"
	"ai-chat-client/internal/pkg/logger"
	"ai-chat-client/internal/store"
)

// SessionSelectionGuard serializes session switches per session id: Idle or
// InFlight per key. Switching to the current session is a no-op, a duplicate
// switch to an id already in flight is dropped, and a fetch that resolves
// after the user moved on is discarded instead of applied.
type SessionSelectionGuard struct {
	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}

	store   *store.ChannelStore
	cache   *cache.MessageCache
	backend backend.IBackendClient
	logger  logger.ILogger
}

func NewSessionSelectionGuard(channelStore *store.ChannelStore, messageCache *cache.MessageCache, backendClient backend.IBackendClient, log logger.ILogger) *SessionSelectionGuard {
	return &SessionSelectionGuard{
		inFlight: make(map[uuid.UUID]struct{}),
		store:    channelStore,
		cache:    messageCache,
		backend:  backendClient,
		logger:   log,
	}
}

// Switch selects sessionId. The pointer moves synchronously for instant
// feedback; messages come from the cache when possible and from the backend
// otherwise. The fetched result only applies while sessionId is still the
// current session at resolution time.
func (g *SessionSelectionGuard) Switch(ctx context.Context, sessionId uuid.UUID) error {
	snapshot := g.store.Snapshot()

	if snapshot.CurrentSessionId != nil && *snapshot.CurrentSessionId == sessionId {
		return nil
	}
	if !sessionExists(snapshot, sessionId) {
		return &model.ValidationError{Field: "session", Reason: "unknown session id"}
	}

	if !g.acquire(sessionId) {
		g.logger.Debug("SessionSelectionGuard", "Dropped duplicate switch", map[string]interface{}{
			"session_id": sessionId,
		})
		return nil
	}
	defer g.release(sessionId)

	_, hit := g.cache.Get(sessionId)

	// Instant feedback; the store fills the message list from the cache in
	// the same transition when an entry exists.
	g.store.Dispatch(store.SetCurrentSession{Id: sessionId})

	if hit {
		return nil
	}

	messages, err := g.backend.ListMessages(ctx, sessionId)
	if err != nil {
		g.logger.Warn("SessionSelectionGuard", "Message fetch failed", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return err
	}

	// The reducer rejects this atomically when the target is no longer
	// current, which covers both later switches and identity resets.
	g.store.Dispatch(store.SetMessages{SessionId: sessionId, Messages: messages})
	return nil
}

// Reset returns every key to Idle (identity change).
func (g *SessionSelectionGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight = make(map[uuid.UUID]struct{})
}

func (g *SessionSelectionGuard) acquire(sessionId uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[sessionId]; busy {
		return false
	}
	g.inFlight[sessionId] = struct{}{}
	return true
}

func (g *SessionSelectionGuard) release(sessionId uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, sessionId)
}

func sessionExists(snapshot store.State, sessionId uuid.UUID) bool {
	for i := range snapshot.Sessions {
		if snapshot.Sessions[i].Id == sessionId {
			return true
		}
	}
	return false
}
