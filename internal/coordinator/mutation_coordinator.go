package coordinator

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"ai-chat-client/internal/backend"
	"ai-chat-client/internal/constant"
	"ai-chat-client/internal/entity"
	"ai-chat-client/internal/model"
	"ai-chat-client/internal/pkg/epoch"
	"ai-chat-client/internal/pkg/logger"
	"ai-chat-client/internal/realtime"
	"ai-chat-client/internal/store"
)

// OptimisticMutationCoordinator governs message-send and session
// delete/rename. Local state mutates before the backend confirms; failures
// surface a MutationError and recovery is caller-driven re-hydration, never
// automatic retry or partial undo.
type OptimisticMutationCoordinator struct {
	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{} // delete/rename locks per session id

	store   *store.ChannelStore
	backend backend.IBackendClient
	channel realtime.IRealtimeChannel
	epochs  *epoch.Counter
	logger  logger.ILogger
}

func NewOptimisticMutationCoordinator(
	channelStore *store.ChannelStore,
	backendClient backend.IBackendClient,
	channel realtime.IRealtimeChannel,
	epochs *epoch.Counter,
	log logger.ILogger,
) *OptimisticMutationCoordinator {
	return &OptimisticMutationCoordinator{
		inFlight: make(map[uuid.UUID]struct{}),
		store:    channelStore,
		backend:  backendClient,
		channel:  channel,
		epochs:   epochs,
		logger:   log,
	}
}

// SendMessage inserts a pending message (empty response, not successful)
// before the network round trip. The confirmation push arrives later as an
// independent entry through the dispatcher; it is never merged into the
// pending one.
//
// Sends come from the composer and so target the current session. A send to
// a background session only updates that session's bookkeeping: its message
// count, and its cache entry when one is already held; with no entry the
// pending message first becomes visible with the confirmed history fetched
// on the next switch.
func (c *OptimisticMutationCoordinator) SendMessage(ctx context.Context, sessionId, userId uuid.UUID, text string) (*entity.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &model.ValidationError{Field: "message", Reason: "text must not be empty"}
	}
	if !sessionExists(c.store.Snapshot(), sessionId) {
		return nil, &model.ValidationError{Field: "session", Reason: "unknown session id"}
	}

	pending := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		UserId:        userId,
		UserInput:     text,
		AgentResponse: "",
		Success:       false,
		Metadata:      map[string]interface{}{"pending": true},
		CreatedAt:     time.Now(),
	}
	c.store.Dispatch(store.AppendMessage{Message: pending})

	if err := c.channel.Send(ctx, sessionId, text); err != nil {
		// The pending entry stays visible, marked not-successful; the
		// cache keeps it too.
		return &pending, &model.MutationError{Op: "send", SessionId: sessionId, Err: err}
	}
	return &pending, nil
}

// DeleteSession removes the session and its cache entry first, repoints the
// current session per the store's fallback rule, then issues the backend
// delete. On failure the removed session is NOT reconstructed; the caller
// re-hydrates via Rehydrate, which is simpler and strictly correct.
func (c *OptimisticMutationCoordinator) DeleteSession(ctx context.Context, sessionId uuid.UUID) error {
	if !sessionExists(c.store.Snapshot(), sessionId) {
		// Already gone; treat as the duplicate of a completed delete.
		return nil
	}
	if !c.acquire(sessionId) {
		c.logger.Debug("MutationCoordinator", "Dropped duplicate delete", map[string]interface{}{
			"session_id": sessionId,
		})
		return nil
	}
	defer c.release(sessionId)

	issuedAt := c.epochs.Current()
	c.store.Dispatch(store.RemoveSession{Id: sessionId})

	if err := c.backend.DeleteSession(ctx, sessionId); err != nil {
		if c.epochs.Current() != issuedAt {
			// Identity changed while the call was in flight; the state was
			// wiped already and this result belongs to nobody.
			return nil
		}
		return &model.MutationError{Op: "delete", SessionId: sessionId, Err: err}
	}
	return nil
}

// RenameSession applies the title synchronously and keeps it even when the
// backend call fails; the next hydration reconciles.
func (c *OptimisticMutationCoordinator) RenameSession(ctx context.Context, sessionId uuid.UUID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &model.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(title) > constant.MaxSessionTitleLength {
		return &model.ValidationError{Field: "title", Reason: "too long"}
	}
	if !sessionExists(c.store.Snapshot(), sessionId) {
		return &model.ValidationError{Field: "session", Reason: "unknown session id"}
	}
	if !c.acquire(sessionId) {
		c.logger.Debug("MutationCoordinator", "Dropped duplicate rename", map[string]interface{}{
			"session_id": sessionId,
		})
		return nil
	}
	defer c.release(sessionId)

	issuedAt := c.epochs.Current()
	c.store.Dispatch(store.UpdateSessionTitle{Id: sessionId, Title: title, UpdatedAt: time.Now()})

	if err := c.backend.UpdateSessionTitle(ctx, sessionId, title); err != nil {
		if c.epochs.Current() != issuedAt {
			return nil
		}
		return &model.MutationError{Op: "rename", SessionId: sessionId, Err: err}
	}
	return nil
}

// CreateSession asks the backend over the realtime channel; the
// sessionCreated push inserts the session at the list head.
func (c *OptimisticMutationCoordinator) CreateSession(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > constant.MaxSessionTitleLength {
		return &model.ValidationError{Field: "title", Reason: "too long"}
	}
	return c.channel.CreateSession(ctx, title)
}

// Rehydrate replaces the session list from the backend. This is the
// documented recovery path after a MutationError.
func (c *OptimisticMutationCoordinator) Rehydrate(ctx context.Context, userId uuid.UUID) error {
	issuedAt := c.epochs.Current()

	sessions, err := c.backend.ListSessions(ctx, userId)
	if err != nil {
		return err
	}
	if c.epochs.Current() != issuedAt {
		return nil
	}

	c.store.Dispatch(store.SetSessions{Sessions: sessions})
	return nil
}

// Reset drops every per-session lock (identity change).
func (c *OptimisticMutationCoordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = make(map[uuid.UUID]struct{})
}

func (c *OptimisticMutationCoordinator) acquire(sessionId uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[sessionId]; busy {
		return false
	}
	c.inFlight[sessionId] = struct{}{}
	return true
}

func (c *OptimisticMutationCoordinator) release(sessionId uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, sessionId)
}

func sessionExists(snapshot store.State, sessionId uuid.UUID) bool {
	for i := range snapshot.Sessions {
		if snapshot.Sessions[i].Id == sessionId {
			return true
		}
	}
	return false
}
