package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-chat-client/internal/cache"
	"ai-chat-client/internal/entity"
	"ai-chat-client/internal/model"
	"ai-chat-client/internal/pkg/logger"
)

// State is the canonical client view: session list, current selection, and
// the active session's message list. Readers only ever observe fully
// committed transitions.
type State struct {
	Sessions         []entity.ChatSession
	CurrentSessionId *uuid.UUID
	Messages         []entity.ChatMessage
	Connection       model.ConnectionState
}

// Action is the tagged variant consumed by Reduce.
type Action interface {
	name() string
}

// SetSessions replaces the whole session list (hydration).
type SetSessions struct{ Sessions []entity.ChatSession }

// AddSession inserts a new session at the head of the list (most recent
// first). A duplicate id is ignored.
type AddSession struct{ Session entity.ChatSession }

// UpdateSessionTitle renames a session in place.
type UpdateSessionTitle struct {
	Id        uuid.UUID
	Title     string
	UpdatedAt time.Time
}

// RemoveSession deletes a session. When it is the current one the pointer is
// reassigned in the same transition: first remaining session in list order,
// or nil when the list empties.
type RemoveSession struct{ Id uuid.UUID }

// SetCurrentSession moves the selection pointer. Unknown ids are ignored so
// the pointer can never dangle.
type SetCurrentSession struct{ Id uuid.UUID }

// ClearCurrentSession drops the selection.
type ClearCurrentSession struct{}

// SetMessages replaces the active message list. It only applies when
// SessionId still is the current session; anything else is a stale result
// and is discarded here, atomically with the check.
type SetMessages struct {
	SessionId uuid.UUID
	Messages  []entity.ChatMessage
}

// AppendMessage adds one message to the session named inside it.
type AppendMessage struct{ Message entity.ChatMessage }

// SetConnectionState replaces the transport status.
type SetConnectionState struct{ Connection model.ConnectionState }

// Reset wipes sessions, selection and messages (identity change).
type Reset struct{}

func (SetSessions) name() string        { return "setSessions" }
func (AddSession) name() string         { return "addSession" }
func (UpdateSessionTitle) name() string { return "updateSessionTitle" }
func (RemoveSession) name() string      { return "removeSession" }
func (SetCurrentSession) name() string  { return "setCurrentSession" }
func (ClearCurrentSession) name() string {
	return "clearCurrentSession"
}
func (SetMessages) name() string        { return "setMessages" }
func (AppendMessage) name() string      { return "appendMessage" }
func (SetConnectionState) name() string { return "setConnectionState" }
func (Reset) name() string              { return "reset" }

// ChannelStore owns the state and serializes every transition. All message
// mutations to the current session are written through to the MessageCache
// inside the same critical section, so list and cache entry never diverge.
type ChannelStore struct {
	mu     sync.RWMutex
	state  State
	cache  *cache.MessageCache
	logger logger.ILogger
}

func NewChannelStore(messageCache *cache.MessageCache, log logger.ILogger) *ChannelStore {
	return &ChannelStore{
		state:  State{},
		cache:  messageCache,
		logger: log,
	}
}

// Dispatch applies one transition. The reducer computes the next state;
// the write-through and the cache-fill on selection changes happen here,
// under the same lock, so no reader sees a half-applied transition.
func (s *ChannelStore) Dispatch(action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	next := Reduce(prev, action)

	switch a := action.(type) {
	case SetMessages:
		if currentIs(next, a.SessionId) {
			s.cache.Set(a.SessionId, next.Messages)
		} else {
			s.logger.Debug("ChannelStore", "Discarded stale message list", map[string]interface{}{
				"session_id": a.SessionId,
			})
		}
	case AppendMessage:
		if currentIs(next, a.Message.ChatSessionId) {
			s.cache.Set(a.Message.ChatSessionId, next.Messages)
		} else {
			// Keep a background session's last-known list fresh when we
			// already hold one.
			s.cache.Append(a.Message.ChatSessionId, a.Message)
		}
	case RemoveSession:
		s.cache.Delete(a.Id)
		if currentChanged(prev, next) {
			next.Messages = s.cachedOrEmpty(next.CurrentSessionId)
		}
	case SetCurrentSession, ClearCurrentSession:
		if currentChanged(prev, next) {
			next.Messages = s.cachedOrEmpty(next.CurrentSessionId)
		}
	}

	s.state = next
}

// Snapshot returns a copy of the last committed state.
func (s *ChannelStore) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyState(s.state)
}

// CurrentSessionId returns the selection pointer, nil when nothing is
// selected.
func (s *ChannelStore) CurrentSessionId() *uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.CurrentSessionId == nil {
		return nil
	}
	id := *s.state.CurrentSessionId
	return &id
}

func (s *ChannelStore) cachedOrEmpty(sessionId *uuid.UUID) []entity.ChatMessage {
	if sessionId == nil {
		return nil
	}
	if cached, found := s.cache.Get(*sessionId); found {
		return cached
	}
	return nil
}

// Reduce is the pure transition function. It never touches the cache and is
// exported for direct property testing.
func Reduce(state State, action Action) State {
	next := copyState(state)

	switch a := action.(type) {
	case SetSessions:
		next.Sessions = dedupeSessions(a.Sessions)
		if next.CurrentSessionId != nil && !containsSession(next.Sessions, *next.CurrentSessionId) {
			next.CurrentSessionId = nil
			next.Messages = nil
		}

	case AddSession:
		if containsSession(next.Sessions, a.Session.Id) {
			return next
		}
		next.Sessions = append([]entity.ChatSession{a.Session}, next.Sessions...)

	case UpdateSessionTitle:
		for i := range next.Sessions {
			if next.Sessions[i].Id == a.Id {
				next.Sessions[i].Title = a.Title
				updatedAt := a.UpdatedAt
				next.Sessions[i].UpdatedAt = &updatedAt
				break
			}
		}

	case RemoveSession:
		filtered := next.Sessions[:0:0]
		for _, sess := range next.Sessions {
			if sess.Id != a.Id {
				filtered = append(filtered, sess)
			}
		}
		next.Sessions = filtered
		if next.CurrentSessionId != nil && *next.CurrentSessionId == a.Id {
			if len(filtered) > 0 {
				id := filtered[0].Id
				next.CurrentSessionId = &id
			} else {
				next.CurrentSessionId = nil
			}
			next.Messages = nil
		}

	case SetCurrentSession:
		if !containsSession(next.Sessions, a.Id) {
			return next
		}
		if next.CurrentSessionId != nil && *next.CurrentSessionId == a.Id {
			return next
		}
		id := a.Id
		next.CurrentSessionId = &id
		next.Messages = nil

	case ClearCurrentSession:
		next.CurrentSessionId = nil
		next.Messages = nil

	case SetMessages:
		if !currentIs(next, a.SessionId) {
			return next
		}
		next.Messages = append([]entity.ChatMessage(nil), a.Messages...)
		setMessageCount(next.Sessions, a.SessionId, len(next.Messages))

	case AppendMessage:
		if currentIs(next, a.Message.ChatSessionId) {
			next.Messages = append(next.Messages, a.Message)
			setMessageCount(next.Sessions, a.Message.ChatSessionId, len(next.Messages))
		} else if containsSession(next.Sessions, a.Message.ChatSessionId) {
			bumpMessageCount(next.Sessions, a.Message.ChatSessionId)
		}

	case SetConnectionState:
		next.Connection = a.Connection

	case Reset:
		next = State{}
	}

	markActive(next.Sessions, next.CurrentSessionId)
	return next
}

func currentIs(state State, sessionId uuid.UUID) bool {
	return state.CurrentSessionId != nil && *state.CurrentSessionId == sessionId
}

func currentChanged(prev, next State) bool {
	switch {
	case prev.CurrentSessionId == nil && next.CurrentSessionId == nil:
		return false
	case prev.CurrentSessionId == nil || next.CurrentSessionId == nil:
		return true
	default:
		return *prev.CurrentSessionId != *next.CurrentSessionId
	}
}

func containsSession(sessions []entity.ChatSession, id uuid.UUID) bool {
	for i := range sessions {
		if sessions[i].Id == id {
			return true
		}
	}
	return false
}

func dedupeSessions(sessions []entity.ChatSession) []entity.ChatSession {
	seen := make(map[uuid.UUID]struct{}, len(sessions))
	result := make([]entity.ChatSession, 0, len(sessions))
	for _, sess := range sessions {
		if _, dup := seen[sess.Id]; dup {
			continue
		}
		seen[sess.Id] = struct{}{}
		result = append(result, sess)
	}
	return result
}

func setMessageCount(sessions []entity.ChatSession, id uuid.UUID, count int) {
	for i := range sessions {
		if sessions[i].Id == id {
			sessions[i].MessageCount = count
			return
		}
	}
}

func bumpMessageCount(sessions []entity.ChatSession, id uuid.UUID) {
	for i := range sessions {
		if sessions[i].Id == id {
			sessions[i].MessageCount++
			return
		}
	}
}

func markActive(sessions []entity.ChatSession, current *uuid.UUID) {
	for i := range sessions {
		sessions[i].IsActive = current != nil && sessions[i].Id == *current
	}
}

func copyState(state State) State {
	next := State{Connection: state.Connection}
	next.Sessions = append([]entity.ChatSession(nil), state.Sessions...)
	next.Messages = append([]entity.ChatMessage(nil), state.Messages...)
	if state.CurrentSessionId != nil {
		id := *state.CurrentSessionId
		next.CurrentSessionId = &id
	}
	return next
}
