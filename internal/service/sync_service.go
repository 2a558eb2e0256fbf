package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"ai-chat-client/internal/constant"
	"ai-chat-client/internal/dto"
	"ai-chat-client/internal/entity"
	"ai-chat-client/internal/mapper"
	"ai-chat-client/internal/model"
	"ai-chat-client/internal/pkg/logger"
	"ai-chat-client/internal/store"
)

type ISyncService interface {
	Consume(ctx context.Context) error
}

// syncService is the single consumer of the realtime event bus. One
// goroutine dequeues and applies events, so store transitions happen in
// exactly the order events arrived.
type syncService struct {
	subscriber message.Subscriber
	topicName  string
	store      *store.ChannelStore
	identity   IIdentityService
	mapper     *mapper.ChatMapper
	logger     logger.ILogger
}

func NewSyncService(
	subscriber message.Subscriber,
	topicName string,
	channelStore *store.ChannelStore,
	identity IIdentityService,
	log logger.ILogger,
) ISyncService {
	return &syncService{
		subscriber: subscriber,
		topicName:  topicName,
		store:      channelStore,
		identity:   identity,
		mapper:     mapper.NewChatMapper(),
		logger:     log,
	}
}

func (s *syncService) Consume(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *syncService) processMessage(ctx context.Context, msg *message.Message) {
	// Ack everything: events are fire-and-forget pushes, a redelivery would
	// reorder them behind newer ones.
	defer msg.Ack()

	var envelope dto.EventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		s.logger.Warn("SyncService", "Dropping malformed event", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	switch envelope.Type {
	case constant.EventAuthSuccess:
		s.handleAuthSuccess(ctx, envelope.Data)
	case constant.EventSessionCreated:
		s.handleSessionCreated(envelope.Data)
	case constant.EventSessionJoined:
		s.handleSessionJoined(envelope.Data)
	case constant.EventMessageResponse:
		s.handleMessageResponse(envelope.Data)
	case constant.EventError:
		s.handleError(envelope.Data)
	default:
		s.logger.Debug("SyncService", "Ignoring unknown event", map[string]interface{}{
			"type": envelope.Type,
		})
	}
}

func (s *syncService) handleAuthSuccess(ctx context.Context, data json.RawMessage) {
	var payload dto.AuthSuccessPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn("SyncService", "Malformed authSuccess", map[string]interface{}{"error": err.Error()})
		return
	}

	// A changed identity wipes all prior state before hydration.
	s.identity.Apply(ctx, model.Identity{UserId: payload.UserId, DisplayName: payload.DisplayName})

	s.store.Dispatch(store.SetSessions{Sessions: s.mapper.SessionsToEntities(payload.RecentSessions)})
	s.store.Dispatch(store.SetConnectionState{Connection: model.ConnectionState{Authenticated: true}})
}

// authenticated gates every session/message event. Events of a dead
// identity cannot leak through: the bus is FIFO, a logout or auth error
// clears the flag before the next user's authSuccess is enqueued.
func (s *syncService) authenticated() bool {
	return s.store.Snapshot().Connection.Authenticated
}

func (s *syncService) handleSessionCreated(data json.RawMessage) {
	if !s.authenticated() {
		return
	}
	var payload dto.SessionCreatedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn("SyncService", "Malformed sessionCreated", map[string]interface{}{"error": err.Error()})
		return
	}

	s.store.Dispatch(store.AddSession{Session: entity.ChatSession{
		Id:        payload.SessionId,
		Title:     payload.Title,
		CreatedAt: payload.CreatedAt,
	}})
}

func (s *syncService) handleSessionJoined(data json.RawMessage) {
	if !s.authenticated() {
		return
	}
	var payload dto.SessionJoinedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn("SyncService", "Malformed sessionJoined", map[string]interface{}{"error": err.Error()})
		return
	}

	// The reducer discards this atomically when the session is no longer
	// the current one.
	s.store.Dispatch(store.SetMessages{
		SessionId: payload.SessionId,
		Messages:  s.mapper.MessagesToEntities(payload.History),
	})
}

func (s *syncService) handleMessageResponse(data json.RawMessage) {
	if !s.authenticated() {
		return
	}
	var payload dto.MessageResponsePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn("SyncService", "Malformed messageResponse", map[string]interface{}{"error": err.Error()})
		return
	}

	id := uuid.New()
	if payload.Id != nil {
		id = *payload.Id
	}
	createdAt := payload.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	// Appended as a separate entry; the pending optimistic message is left
	// untouched.
	s.store.Dispatch(store.AppendMessage{Message: entity.ChatMessage{
		Id:               id,
		ChatSessionId:    payload.SessionId,
		UserId:           payload.UserId,
		UserInput:        payload.UserInput,
		AgentResponse:    payload.AgentResponse,
		ProcessingTimeMs: payload.ProcessingTimeMs,
		Success:          payload.Success,
		Metadata:         payload.Metadata,
		CreatedAt:        createdAt,
	}})
}

func (s *syncService) handleError(data json.RawMessage) {
	var payload dto.ErrorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}

	snapshot := s.store.Snapshot()
	s.store.Dispatch(store.SetConnectionState{Connection: model.ConnectionState{
		Authenticated: snapshot.Connection.Authenticated,
		LastError:     payload.Message,
	}})
	s.logger.Warn("SyncService", "Realtime error", map[string]interface{}{
		"message": payload.Message,
	})
}
