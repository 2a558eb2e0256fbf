package mapper

import (
	"ai-chat-client/internal/dto"
	"ai-chat-client/internal/entity"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) SessionToEntity(s *dto.SessionDTO) *entity.ChatSession {
	if s == nil {
		return nil
	}
	return &entity.ChatSession{
		Id:           s.Id,
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: s.MessageCount,
	}
}

func (m *ChatMapper) SessionsToEntities(list []dto.SessionDTO) []entity.ChatSession {
	result := make([]entity.ChatSession, 0, len(list))
	for i := range list {
		result = append(result, *m.SessionToEntity(&list[i]))
	}
	return result
}

func (m *ChatMapper) MessageToEntity(msg *dto.MessageDTO) *entity.ChatMessage {
	if msg == nil {
		return nil
	}
	return &entity.ChatMessage{
		Id:               msg.Id,
		ChatSessionId:    msg.SessionId,
		UserId:           msg.UserId,
		UserInput:        msg.UserInput,
		AgentResponse:    msg.AgentResponse,
		ProcessingTimeMs: msg.ProcessingTimeMs,
		Success:          msg.Success,
		Metadata:         msg.Metadata,
		CreatedAt:        msg.CreatedAt,
	}
}

func (m *ChatMapper) MessagesToEntities(list []dto.MessageDTO) []entity.ChatMessage {
	result := make([]entity.ChatMessage, 0, len(list))
	for i := range list {
		result = append(result, *m.MessageToEntity(&list[i]))
	}
	return result
}
