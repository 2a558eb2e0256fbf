package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-chat-client/internal/dto"
	"ai-chat-client/internal/model"
	"ai-chat-client/internal/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (IBackendClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	log := logger.NewIsolatedLogger(filepath.Join(t.TempDir(), "test.log"))
	return NewAPIClient(server.URL, 5*time.Second, log), server
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	err = json.NewEncoder(w).Encode(dto.APIEnvelope{Success: true, Data: raw})
	require.NoError(t, err)
}

func TestListSessionsDecodesEnvelope(t *testing.T) {
	userId := uuid.New()
	sessionId := uuid.New()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/users/"+userId.String()+"/sessions", r.URL.Path)
		writeEnvelope(t, w, dto.ListSessionsData{Sessions: []dto.SessionDTO{
			{Id: sessionId, Title: "first", CreatedAt: time.Now(), MessageCount: 2},
		}})
	}))

	sessions, err := client.ListSessions(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, sessionId, sessions[0].Id)
	assert.Equal(t, "first", sessions[0].Title)
	assert.Equal(t, 2, sessions[0].MessageCount)
}

func TestListMessagesDecodesEnvelope(t *testing.T) {
	sessionId := uuid.New()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sessions/"+sessionId.String()+"/messages", r.URL.Path)
		writeEnvelope(t, w, dto.ListMessagesData{Messages: []dto.MessageDTO{
			{Id: uuid.New(), SessionId: sessionId, UserInput: "ping", AgentResponse: "pong", Success: true},
		}})
	}))

	messages, err := client.ListMessages(context.Background(), sessionId)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "pong", messages[0].AgentResponse)
}

func TestUpdateSessionTitleSendsBody(t *testing.T) {
	sessionId := uuid.New()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/sessions/"+sessionId.String()+"/title", r.URL.Path)
		var body dto.UpdateSessionTitleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "renamed", body.Title)
		require.NoError(t, json.NewEncoder(w).Encode(dto.APIEnvelope{Success: true}))
	}))

	require.NoError(t, client.UpdateSessionTitle(context.Background(), sessionId, "renamed"))
}

func TestUnsuccessfulEnvelopeBecomesError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		require.NoError(t, json.NewEncoder(w).Encode(dto.APIEnvelope{Success: false, Error: "session not found"}))
	}))

	err := client.DeleteSession(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestTransportFailureIsConnectionError(t *testing.T) {
	client, server := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	_, err := client.ListSessions(context.Background(), uuid.New())

	var connErr *model.ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestMalformedResponseIsRejected(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway timeout</html>"))
	}))

	_, err := client.ListMessages(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}
