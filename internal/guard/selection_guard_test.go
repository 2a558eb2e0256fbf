package guard

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-chat-client/internal/cache"
	"ai-chat-client/internal/entity"
	"ai-chat-client/internal/model"
	"ai-chat-client/internal/pkg/logger"
	"ai-chat-client/internal/store"
)

// fakeBackend serves canned message lists and can hold a fetch open until
// its gate closes, to stage slow-fetch races.
type fakeBackend struct {
	mu                sync.Mutex
	messages          map[uuid.UUID][]entity.ChatMessage
	gates             map[uuid.UUID]chan struct{}
	listMessagesCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		messages: make(map[uuid.UUID][]entity.ChatMessage),
		gates:    make(map[uuid.UUID]chan struct{}),
	}
}

func (f *fakeBackend) ListSessions(context.Context, uuid.UUID) ([]entity.ChatSession, error) {
	return nil, nil
}

func (f *fakeBackend) ListMessages(_ context.Context, sessionId uuid.UUID) ([]entity.ChatMessage, error) {
	f.mu.Lock()
	f.listMessagesCalls++
	gate := f.gates[sessionId]
	messages := f.messages[sessionId]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return messages, nil
}

func (f *fakeBackend) UpdateSessionTitle(context.Context, uuid.UUID, string) error { return nil }
func (f *fakeBackend) DeleteSession(context.Context, uuid.UUID) error              { return nil }

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listMessagesCalls
}

func setupGuard(t *testing.T, sessions ...entity.ChatSession) (*SessionSelectionGuard, *store.ChannelStore, *fakeBackend) {
	t.Helper()
	log := logger.NewIsolatedLogger(filepath.Join(t.TempDir(), "test.log"))
	messageCache := cache.NewMessageCache()
	channelStore := store.NewChannelStore(messageCache, log)
	channelStore.Dispatch(store.SetSessions{Sessions: sessions})
	backendClient := newFakeBackend()
	return NewSessionSelectionGuard(channelStore, messageCache, backendClient, log), channelStore, backendClient
}

func namedSession(title string) entity.ChatSession {
	return entity.ChatSession{Id: uuid.New(), Title: title, CreatedAt: time.Now()}
}

func namedMessage(sessionId uuid.UUID, input string) entity.ChatMessage {
	return entity.ChatMessage{Id: uuid.New(), ChatSessionId: sessionId, UserInput: input, CreatedAt: time.Now()}
}

func currentIs(s *store.ChannelStore, id uuid.UUID) func() bool {
	return func() bool {
		current := s.CurrentSessionId()
		return current != nil && *current == id
	}
}

func TestSwitchToCurrentSessionNeverFetches(t *testing.T) {
	s1 := namedSession("one")
	g, channelStore, backendClient := setupGuard(t, s1)

	require.NoError(t, g.Switch(context.Background(), s1.Id))
	assert.Equal(t, 1, backendClient.calls())

	require.NoError(t, g.Switch(context.Background(), s1.Id))
	assert.Equal(t, 1, backendClient.calls(), "re-selecting the current session must not fetch")

	current := channelStore.CurrentSessionId()
	require.NotNil(t, current)
	assert.Equal(t, s1.Id, *current)
}

func TestCacheHitAppliesWithoutFetch(t *testing.T) {
	s1, s2 := namedSession("one"), namedSession("two")
	g, channelStore, backendClient := setupGuard(t, s1, s2)
	backendClient.messages[s1.Id] = []entity.ChatMessage{namedMessage(s1.Id, "from one")}

	require.NoError(t, g.Switch(context.Background(), s1.Id))
	require.NoError(t, g.Switch(context.Background(), s2.Id))
	require.Equal(t, 2, backendClient.calls())

	// Back to s1: cached list applies synchronously.
	require.NoError(t, g.Switch(context.Background(), s1.Id))
	assert.Equal(t, 2, backendClient.calls())

	snapshot := channelStore.Snapshot()
	require.Len(t, snapshot.Messages, 1)
	assert.Equal(t, "from one", snapshot.Messages[0].UserInput)
}

func TestSlowFetchForPreviousSelectionIsDiscarded(t *testing.T) {
	a, b := namedSession("a"), namedSession("b")
	g, channelStore, backendClient := setupGuard(t, a, b)
	backendClient.messages[a.Id] = []entity.ChatMessage{namedMessage(a.Id, "a's message")}
	backendClient.messages[b.Id] = []entity.ChatMessage{namedMessage(b.Id, "b's message")}

	gate := make(chan struct{})
	backendClient.gates[b.Id] = gate

	require.NoError(t, g.Switch(context.Background(), a.Id))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.Switch(context.Background(), b.Id)
	}()
	require.Eventually(t, currentIs(channelStore, b.Id), time.Second, time.Millisecond)

	// Back to a while b's fetch is still open.
	require.NoError(t, g.Switch(context.Background(), a.Id))

	close(gate)
	<-done

	snapshot := channelStore.Snapshot()
	require.NotNil(t, snapshot.CurrentSessionId)
	assert.Equal(t, a.Id, *snapshot.CurrentSessionId)
	require.Len(t, snapshot.Messages, 1)
	assert.Equal(t, "a's message", snapshot.Messages[0].UserInput, "b's late result must not land on a's list")
}

func TestRapidSwitchesApplyOnlyTheLatest(t *testing.T) {
	s2, s3 := namedSession("two"), namedSession("three")
	g, channelStore, backendClient := setupGuard(t, s2, s3)
	backendClient.messages[s2.Id] = []entity.ChatMessage{namedMessage(s2.Id, "two's message")}
	backendClient.messages[s3.Id] = []entity.ChatMessage{namedMessage(s3.Id, "three's message")}

	gate := make(chan struct{})
	backendClient.gates[s2.Id] = gate

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.Switch(context.Background(), s2.Id)
	}()
	require.Eventually(t, currentIs(channelStore, s2.Id), time.Second, time.Millisecond)

	require.NoError(t, g.Switch(context.Background(), s3.Id))

	// A repeat click on s2 while its fetch is in flight is dropped.
	require.NoError(t, g.Switch(context.Background(), s2.Id))
	assert.Equal(t, 2, backendClient.calls())

	close(gate)
	<-done

	snapshot := channelStore.Snapshot()
	require.NotNil(t, snapshot.CurrentSessionId)
	assert.Equal(t, s3.Id, *snapshot.CurrentSessionId)
	require.Len(t, snapshot.Messages, 1)
	assert.Equal(t, "three's message", snapshot.Messages[0].UserInput)
}

func TestSwitchToUnknownSessionIsRejected(t *testing.T) {
	g, _, backendClient := setupGuard(t, namedSession("one"))

	err := g.Switch(context.Background(), uuid.New())

	var validationErr *model.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 0, backendClient.calls())
}
