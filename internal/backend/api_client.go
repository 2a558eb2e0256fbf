package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"ai-chat-client/internal/dto"
	"ai-chat-client/internal/entity"
	"ai-chat-client/internal/mapper"
	"ai-chat-client/internal/model"
	"ai-chat-client/internal/pkg/logger"
)

// IBackendClient is the REST query/command surface of the backend. Every
// call returns the decoded {success, data|error} envelope content.
type IBackendClient interface {
	ListSessions(ctx context.Context, userId uuid.UUID) ([]entity.ChatSession, error)
	ListMessages(ctx context.Context, sessionId uuid.UUID) ([]entity.ChatMessage, error)
	UpdateSessionTitle(ctx context.Context, sessionId uuid.UUID, title string) error
	DeleteSession(ctx context.Context, sessionId uuid.UUID) error
}

type apiClient struct {
	baseURL string
	http    *http.Client
	mapper  *mapper.ChatMapper
	logger  logger.ILogger
}

func NewAPIClient(baseURL string, timeout time.Duration, log logger.ILogger) IBackendClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		mapper:  mapper.NewChatMapper(),
		logger:  log,
	}
}

func (c *apiClient) ListSessions(ctx context.Context, userId uuid.UUID) ([]entity.ChatSession, error) {
	ctx, span := otel.Tracer("backend").Start(ctx, "ListSessions")
	defer span.End()

	endpoint := fmt.Sprintf("%s/api/users/%s/sessions", c.baseURL, userId)
	var data dto.ListSessionsData
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &data); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return c.mapper.SessionsToEntities(data.Sessions), nil
}

func (c *apiClient) ListMessages(ctx context.Context, sessionId uuid.UUID) ([]entity.ChatMessage, error) {
	ctx, span := otel.Tracer("backend").Start(ctx, "ListMessages")
	defer span.End()

	endpoint := fmt.Sprintf("%s/api/sessions/%s/messages", c.baseURL, sessionId)
	var data dto.ListMessagesData
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &data); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return c.mapper.MessagesToEntities(data.Messages), nil
}

func (c *apiClient) UpdateSessionTitle(ctx context.Context, sessionId uuid.UUID, title string) error {
	ctx, span := otel.Tracer("backend").Start(ctx, "UpdateSessionTitle")
	defer span.End()

	endpoint := fmt.Sprintf("%s/api/sessions/%s/title", c.baseURL, sessionId)
	body := dto.UpdateSessionTitleRequest{Title: title}
	if err := c.do(ctx, http.MethodPut, endpoint, body, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (c *apiClient) DeleteSession(ctx context.Context, sessionId uuid.UUID) error {
	ctx, span := otel.Tracer("backend").Start(ctx, "DeleteSession")
	defer span.End()

	endpoint := fmt.Sprintf("%s/api/sessions/%s", c.baseURL, sessionId)
	if err := c.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// do sends one request and decodes the envelope. A transport failure comes
// back as ConnectionError; an unsuccessful envelope as a plain error the
// caller wraps per-operation.
func (c *apiClient) do(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &model.ConnectionError{Op: method + " " + endpoint, Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &model.ConnectionError{Op: method + " " + endpoint, Err: err}
	}

	var envelope dto.APIEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return fmt.Errorf("backend returned malformed response (%d): %s", resp.StatusCode, string(bodyBytes))
	}
	if !envelope.Success {
		return fmt.Errorf("backend error: %s", envelope.Error)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode backend data: %w", err)
		}
	}
	return nil
}
