package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-chat-client/internal/cache"
	"ai-chat-client/internal/entity"
	"ai-chat-client/internal/model"
	"ai-chat-client/internal/pkg/logger"
)

func newTestStore(t *testing.T) (*ChannelStore, *cache.MessageCache) {
	t.Helper()
	log := logger.NewIsolatedLogger(filepath.Join(t.TempDir(), "test.log"))
	messageCache := cache.NewMessageCache()
	return NewChannelStore(messageCache, log), messageCache
}

func session(title string) entity.ChatSession {
	return entity.ChatSession{Id: uuid.New(), Title: title, CreatedAt: time.Now()}
}

func messageFor(sessionId uuid.UUID, input string) entity.ChatMessage {
	return entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		UserId:        uuid.New(),
		UserInput:     input,
		CreatedAt:     time.Now(),
	}
}

func TestCurrentSessionNeverDangles(t *testing.T) {
	s, _ := newTestStore(t)
	s1, s2 := session("one"), session("two")

	s.Dispatch(SetSessions{Sessions: []entity.ChatSession{s1, s2}})
	s.Dispatch(SetCurrentSession{Id: s1.Id})

	// Pointing at an unknown id is refused outright.
	s.Dispatch(SetCurrentSession{Id: uuid.New()})
	snapshot := s.Snapshot()
	require.NotNil(t, snapshot.CurrentSessionId)
	assert.Equal(t, s1.Id, *snapshot.CurrentSessionId)

	// Hydration that drops the current session clears the pointer.
	s.Dispatch(SetSessions{Sessions: []entity.ChatSession{s2}})
	snapshot = s.Snapshot()
	assert.Nil(t, snapshot.CurrentSessionId)
	assert.Empty(t, snapshot.Messages)
}

func TestRemoveCurrentSessionFallsBackToFirstRemaining(t *testing.T) {
	s, messageCache := newTestStore(t)
	s1, s2 := session("one"), session("two")

	s.Dispatch(SetSessions{Sessions: []entity.ChatSession{s1, s2}})
	s.Dispatch(SetCurrentSession{Id: s1.Id})
	s.Dispatch(SetMessages{SessionId: s1.Id, Messages: []entity.ChatMessage{messageFor(s1.Id, "hi")}})

	s.Dispatch(RemoveSession{Id: s1.Id})

	snapshot := s.Snapshot()
	require.NotNil(t, snapshot.CurrentSessionId)
	assert.Equal(t, s2.Id, *snapshot.CurrentSessionId)
	assert.Len(t, snapshot.Sessions, 1)

	_, found := messageCache.Get(s1.Id)
	assert.False(t, found, "deleted session must drop its cache entry")
}

func TestRemoveLastSessionClearsPointer(t *testing.T) {
	s, _ := newTestStore(t)
	s1 := session("only")

	s.Dispatch(SetSessions{Sessions: []entity.ChatSession{s1}})
	s.Dispatch(SetCurrentSession{Id: s1.Id})
	s.Dispatch(RemoveSession{Id: s1.Id})

	snapshot := s.Snapshot()
	assert.Nil(t, snapshot.CurrentSessionId)
	assert.Empty(t, snapshot.Sessions)
	assert.Empty(t, snapshot.Messages)
}

func TestStaleMessageListIsDiscarded(t *testing.T) {
	s, messageCache := newTestStore(t)
	s1, s2 := session("one"), session("two")

	s.Dispatch(SetSessions{Sessions: []entity.ChatSession{s1, s2}})
	s.Dispatch(SetCurrentSession{Id: s2.Id})

	// A fetch for s1 resolving while s2 is current must not be applied.
	s.Dispatch(SetMessages{SessionId: s1.Id, Messages: []entity.ChatMessage{messageFor(s1.Id, "stale")}})

	snapshot := s.Snapshot()
	assert.Empty(t, snapshot.Messages)
	_, found := messageCache.Get(s1.Id)
	assert.False(t, found)
}

func TestActiveListAndCacheEntryStayEqual(t *testing.T) {
	s, messageCache := newTestStore(t)
	s1 := session("one")

	s.Dispatch(SetSessions{Sessions: []entity.ChatSession{s1}})
	s.Dispatch(SetCurrentSession{Id: s1.Id})

	first := messageFor(s1.Id, "hello")
	s.Dispatch(SetMessages{SessionId: s1.Id, Messages: []entity.ChatMessage{first}})
	s.Dispatch(AppendMessage{Message: messageFor(s1.Id, "again")})

	snapshot := s.Snapshot()
	cached, found := messageCache.Get(s1.Id)
	require.True(t, found)
	assert.Equal(t, snapshot.Messages, cached)
	assert.Equal(t, 2, snapshot.Sessions[0].MessageCount)
}

func TestSwitchingBackAppliesCachedMessagesInSameTransition(t *testing.T) {
	s, _ := newTestStore(t)
	s1, s2 := session("one"), session("two")

	s.Dispatch(SetSessions{Sessions: []entity.ChatSession{s1, s2}})
	s.Dispatch(SetCurrentSession{Id: s1.Id})
	s.Dispatch(SetMessages{SessionId: s1.Id, Messages: []entity.ChatMessage{messageFor(s1.Id, "kept")}})

	s.Dispatch(SetCurrentSession{Id: s2.Id})
	assert.Empty(t, s.Snapshot().Messages)

	s.Dispatch(SetCurrentSession{Id: s1.Id})
	snapshot := s.Snapshot()
	require.Len(t, snapshot.Messages, 1)
	assert.Equal(t, "kept", snapshot.Messages[0].UserInput)
}

func TestAddSessionPrependsAndDeduplicates(t *testing.T) {
	s, _ := newTestStore(t)
	s1, s2 := session("older"), session("newer")

	s.Dispatch(AddSession{Session: s1})
	s.Dispatch(AddSession{Session: s2})
	s.Dispatch(AddSession{Session: s2})

	snapshot := s.Snapshot()
	require.Len(t, snapshot.Sessions, 2)
	assert.Equal(t, s2.Id, snapshot.Sessions[0].Id, "newest first")
}

func TestAppendToBackgroundSessionBumpsCountOnly(t *testing.T) {
	s, _ := newTestStore(t)
	s1, s2 := session("current"), session("background")

	s.Dispatch(SetSessions{Sessions: []entity.ChatSession{s1, s2}})
	s.Dispatch(SetCurrentSession{Id: s1.Id})

	s.Dispatch(AppendMessage{Message: messageFor(s2.Id, "elsewhere")})

	snapshot := s.Snapshot()
	assert.Empty(t, snapshot.Messages)
	assert.Equal(t, 1, snapshot.Sessions[1].MessageCount)
}

func TestResetWipesEverything(t *testing.T) {
	s, _ := newTestStore(t)
	s1 := session("one")

	s.Dispatch(SetSessions{Sessions: []entity.ChatSession{s1}})
	s.Dispatch(SetCurrentSession{Id: s1.Id})
	s.Dispatch(SetMessages{SessionId: s1.Id, Messages: []entity.ChatMessage{messageFor(s1.Id, "hi")}})
	s.Dispatch(SetConnectionState{Connection: model.ConnectionState{Authenticated: true}})

	s.Dispatch(Reset{})

	snapshot := s.Snapshot()
	assert.Empty(t, snapshot.Sessions)
	assert.Nil(t, snapshot.CurrentSessionId)
	assert.Empty(t, snapshot.Messages)
	assert.False(t, snapshot.Connection.Authenticated)
}

func TestReduceMarksActiveSession(t *testing.T) {
	s1, s2 := session("one"), session("two")
	state := Reduce(State{}, SetSessions{Sessions: []entity.ChatSession{s1, s2}})
	state = Reduce(state, SetCurrentSession{Id: s2.Id})

	assert.False(t, state.Sessions[0].IsActive)
	assert.True(t, state.Sessions[1].IsActive)
}
