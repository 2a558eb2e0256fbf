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
	"github.com/gorilla/websocket"

	"ai-chat-client/internal/constant"
	"ai-chat-client/internal/dto"
	"ai-chat-client/internal/model"
	"ai-chat-client/internal/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024

	authReplyWait = 10 * time.Second
)

// WebsocketChannel is the primary transport. One dialed connection, a read
// pump publishing every event to the bus, a write pump draining the send
// queue, and a reconnect loop with linear backoff.
type WebsocketChannel struct {
	url           string
	reconnectWait time.Duration
	maxReconnects int

	publisher message.Publisher
	logger    logger.ILogger

	send chan []byte

	mu         sync.Mutex
	conn       *websocket.Conn
	generation int
	closed     bool

	authMu    sync.Mutex
	authReply chan *dto.EventEnvelope
}

func NewWebsocketChannel(url string, reconnectWait time.Duration, maxReconnects int, publisher message.Publisher, log logger.ILogger) *WebsocketChannel {
	return &WebsocketChannel{
		url:           url,
		reconnectWait: reconnectWait,
		maxReconnects: maxReconnects,
		publisher:     publisher,
		logger:        log,
		send:          make(chan []byte, 256),
	}
}

func (c *WebsocketChannel) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: writeWait}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return &model.ConnectionError{Op: "connect", Err: err}
	}

	c.mu.Lock()
	c.closed = false
	c.conn = conn
	c.generation++
	generation := c.generation
	c.mu.Unlock()

	go c.writePump(conn, generation)
	go c.readPump(conn, generation)

	c.logger.Info("WebsocketChannel", "Connected", map[string]interface{}{"url": c.url})
	return nil
}

// Authenticate sends the authenticate event and waits for the matching
// authSuccess/authError push. This is the only request the channel
// correlates; everything else is fire-and-forget.
func (c *WebsocketChannel) Authenticate(ctx context.Context, userId uuid.UUID) error {
	reply := make(chan *dto.EventEnvelope, 1)
	c.authMu.Lock()
	c.authReply = reply
	c.authMu.Unlock()
	defer func() {
		c.authMu.Lock()
		c.authReply = nil
		c.authMu.Unlock()
	}()

	if err := c.enqueue(constant.EventAuthenticate, dto.AuthenticatePayload{UserId: userId}); err != nil {
		return err
	}

	timer := time.NewTimer(authReplyWait)
	defer timer.Stop()

	select {
	case envelope := <-reply:
		if envelope.Type == constant.EventAuthError {
			var payload dto.AuthErrorPayload
			_ = json.Unmarshal(envelope.Data, &payload)
			return &model.AuthError{UserId: userId, Reason: payload.Error}
		}
		return nil
	case <-timer.C:
		return &model.ConnectionError{Op: "authenticate", Err: fmt.Errorf("no reply within %s", authReplyWait)}
	case <-ctx.Done():
		return &model.ConnectionError{Op: "authenticate", Err: ctx.Err()}
	}
}

func (c *WebsocketChannel) CreateSession(_ context.Context, title string) error {
	return c.enqueue(constant.EventCreateSession, dto.CreateSessionPayload{Title: title})
}

func (c *WebsocketChannel) JoinSession(_ context.Context, sessionId uuid.UUID) error {
	return c.enqueue(constant.EventJoinSession, dto.JoinSessionPayload{SessionId: sessionId})
}

func (c *WebsocketChannel) Send(_ context.Context, sessionId uuid.UUID, text string) error {
	return c.enqueue(constant.EventSendMessage, dto.SendMessagePayload{
		SessionId: sessionId,
		Text:      text,
		ClientRef: uuid.NewString(),
	})
}

func (c *WebsocketChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *WebsocketChannel) enqueue(eventType string, payload interface{}) error {
	envelope, err := dto.NewEventEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		return &model.ConnectionError{Op: eventType, Err: fmt.Errorf("send queue full")}
	}
}

// readPump pumps events from the websocket connection to the bus.
func (c *WebsocketChannel) readPump(conn *websocket.Conn, generation int) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("WebsocketChannel", "Read failed", map[string]interface{}{"error": err.Error()})
			c.handleDisconnect(generation, err)
			return
		}
		c.dispatchIncoming(data)
	}
}

func (c *WebsocketChannel) dispatchIncoming(data []byte) {
	var envelope dto.EventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logger.Warn("WebsocketChannel", "Dropping malformed event", map[string]interface{}{"error": err.Error()})
		return
	}

	if envelope.Type == constant.EventAuthSuccess || envelope.Type == constant.EventAuthError {
		c.authMu.Lock()
		if c.authReply != nil {
			select {
			case c.authReply <- &envelope:
			default:
			}
		}
		c.authMu.Unlock()
	}

	// authError stops here: the waiting Authenticate call surfaces it and
	// the dispatcher has nothing to apply.
	if envelope.Type == constant.EventAuthError {
		return
	}

	c.publish(data)
}

func (c *WebsocketChannel) publish(data []byte) {
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := c.publisher.Publish(constant.RealtimeEventsTopic, msg); err != nil {
		c.logger.Error("WebsocketChannel", "Failed to publish event to bus", map[string]interface{}{"error": err.Error()})
	}
}

func (c *WebsocketChannel) publishTransportError(text string) {
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

// writePump pumps queued commands to the websocket connection and keeps the
// link alive with pings.
func (c *WebsocketChannel) writePump(conn *websocket.Conn, generation int) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		if c.currentGeneration() != generation {
			return
		}
		select {
		case data, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(data)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WebsocketChannel) currentGeneration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// handleDisconnect redials with linearly growing waits. Only the pump of the
// live generation reconnects, so racing pumps cannot stack connections.
func (c *WebsocketChannel) handleDisconnect(generation int, cause error) {
	c.mu.Lock()
	if c.closed || c.generation != generation {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.publishTransportError(fmt.Sprintf("connection lost: %v", cause))

	for attempt := 1; attempt <= c.maxReconnects; attempt++ {
		time.Sleep(time.Duration(attempt) * c.reconnectWait)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		dialer := websocket.Dialer{HandshakeTimeout: writeWait}
		conn, _, err := dialer.Dial(c.url, nil)
		if err != nil {
			c.logger.Warn("WebsocketChannel", "Reconnect attempt failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.generation++
		next := c.generation
		c.mu.Unlock()

		go c.writePump(conn, next)
		go c.readPump(conn, next)

		c.logger.Info("WebsocketChannel", "Reconnected", map[string]interface{}{"attempt": attempt})
		return
	}

	c.publishTransportError(fmt.Sprintf("gave up reconnecting after %d attempts", c.maxReconnects))
}
