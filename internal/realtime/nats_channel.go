package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"ai-chat-client/internal/constant"
	"ai-chat-client/internal/dto"
	"ai-chat-client/internal/model"
	"ai-chat-client/internal/pkg/logger"
)

// NatsChannel is the alternate transport for deployments where the backend
// pushes over NATS subjects instead of a websocket. Reconnection with
// backoff comes from the NATS client itself.
type NatsChannel struct {
	url           string
	reconnectWait time.Duration
	maxReconnects int

	publisher message.Publisher
	logger    logger.ILogger

	mu   sync.Mutex
	nc   *nats.Conn
	push *nats.Subscription
}

func NewNatsChannel(url string, reconnectWait time.Duration, maxReconnects int, publisher message.Publisher, log logger.ILogger) *NatsChannel {
	return &NatsChannel{
		url:           url,
		reconnectWait: reconnectWait,
		maxReconnects: maxReconnects,
		publisher:     publisher,
		logger:        log,
	}
}

func (c *NatsChannel) Connect(_ context.Context) error {
	nc, err := nats.Connect(c.url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.publishTransportError(fmt.Sprintf("connection lost: %v", err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.logger.Info("NatsChannel", "Reconnected", nil)
		}),
	)
	if err != nil {
		return &model.ConnectionError{Op: "connect", Err: err}
	}

	c.mu.Lock()
	c.nc = nc
	c.mu.Unlock()

	c.logger.Info("NatsChannel", "Connected", map[string]interface{}{"url": c.url})
	return nil
}

// Authenticate uses NATS request/reply, then subscribes to the user's push
// subject so later events flow to the bus.
func (c *NatsChannel) Authenticate(ctx context.Context, userId uuid.UUID) error {
	nc, err := c.connection()
	if err != nil {
		return err
	}

	envelope, err := dto.NewEventEnvelope(constant.EventAuthenticate, dto.AuthenticatePayload{UserId: userId})
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	reply, err := nc.RequestWithContext(ctx, constant.NatsAuthenticateSubject, data)
	if err != nil {
		return &model.ConnectionError{Op: "authenticate", Err: err}
	}

	var replyEnvelope dto.EventEnvelope
	if err := json.Unmarshal(reply.Data, &replyEnvelope); err != nil {
		return fmt.Errorf("malformed authenticate reply: %w", err)
	}
	if replyEnvelope.Type == constant.EventAuthError {
		var payload dto.AuthErrorPayload
		_ = json.Unmarshal(replyEnvelope.Data, &payload)
		return &model.AuthError{UserId: userId, Reason: payload.Error}
	}

	sub, err := nc.Subscribe(constant.NatsPushSubjectPrefix+userId.String(), func(msg *nats.Msg) {
		c.publish(msg.Data)
	})
	if err != nil {
		return &model.ConnectionError{Op: "subscribe", Err: err}
	}

	c.mu.Lock()
	if c.push != nil {
		_ = c.push.Unsubscribe()
	}
	c.push = sub
	c.mu.Unlock()

	// The reply doubles as the hydration event.
	c.publish(reply.Data)
	return nil
}

func (c *NatsChannel) CreateSession(_ context.Context, title string) error {
	return c.command(constant.EventCreateSession, dto.CreateSessionPayload{Title: title})
}

func (c *NatsChannel) JoinSession(_ context.Context, sessionId uuid.UUID) error {
	return c.command(constant.EventJoinSession, dto.JoinSessionPayload{SessionId: sessionId})
}

func (c *NatsChannel) Send(_ context.Context, sessionId uuid.UUID, text string) error {
	return c.command(constant.EventSendMessage, dto.SendMessagePayload{
		SessionId: sessionId,
		Text:      text,
		ClientRef: uuid.NewString(),
	})
}

func (c *NatsChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.push != nil {
		_ = c.push.Unsubscribe()
		c.push = nil
	}
	if c.nc != nil {
		c.nc.Close()
		c.nc = nil
	}
	return nil
}

func (c *NatsChannel) command(eventType string, payload interface{}) error {
	nc, err := c.connection()
	if err != nil {
		return err
	}
	envelope, err := dto.NewEventEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	if err := nc.Publish(constant.NatsCommandSubject, data); err != nil {
		return &model.ConnectionError{Op: eventType, Err: err}
	}
	return nil
}

func (c *NatsChannel) connection() (*nats.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nc == nil {
		return nil, &model.ConnectionError{Op: "command", Err: fmt.Errorf("not connected")}
	}
	return c.nc, nil
}

func (c *NatsChannel) publish(data []byte) {
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := c.publisher.Publish(constant.RealtimeEventsTopic, msg); err != nil {
		c.logger.Error("NatsChannel", "Failed to publish event to bus", map[string]interface{}{"error": err.Error()})
	}
}

func (c *NatsChannel) publishTransportError(text string) {
	envelope, err := dto.NewEventEnvelope(constant.EventError, dto.ErrorPayload{Message: text})
	if err != nil {
		return
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return
	}
	c.publish(data)
}
