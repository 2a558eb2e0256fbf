package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventEnvelope is the wire shape of every realtime event, in both
// directions: {"type": "...", "data": {...}}.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewEventEnvelope(eventType string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &EventEnvelope{Type: eventType, Data: data}, nil
}

type AuthenticatePayload struct {
	UserId uuid.UUID `json:"user_id"`
}

type AuthSuccessPayload struct {
	UserId         uuid.UUID    `json:"user_id"`
	DisplayName    string       `json:"display_name"`
	RecentSessions []SessionDTO `json:"recent_sessions"`
}

type AuthErrorPayload struct {
	Error string `json:"error"`
}

type CreateSessionPayload struct {
	Title string `json:"title,omitempty"`
}

type SessionCreatedPayload struct {
	SessionId uuid.UUID `json:"session_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type JoinSessionPayload struct {
	SessionId uuid.UUID `json:"session_id"`
}

type SessionJoinedPayload struct {
	SessionId uuid.UUID    `json:"session_id"`
	History   []MessageDTO `json:"history"`
}

type SendMessagePayload struct {
	SessionId uuid.UUID `json:"session_id"`
	Text      string    `json:"text"`
	// ClientRef is echoed back by backends that support it; the engine does
	// not rely on it for correlation (see messageResponse handling).
	ClientRef string `json:"client_ref,omitempty"`
}

type MessageResponsePayload struct {
	Id               *uuid.UUID             `json:"id,omitempty"`
	SessionId        uuid.UUID              `json:"session_id"`
	UserId           uuid.UUID              `json:"user_id"`
	UserInput        string                 `json:"user_input"`
	AgentResponse    string                 `json:"agent_response"`
	ProcessingTimeMs int64                  `json:"processing_time_ms"`
	Success          bool                   `json:"success"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type SessionDTO struct {
	Id           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	MessageCount int        `json:"message_count"`
}

type MessageDTO struct {
	Id               uuid.UUID              `json:"id"`
	SessionId        uuid.UUID              `json:"session_id"`
	UserId           uuid.UUID              `json:"user_id"`
	UserInput        string                 `json:"user_input"`
	AgentResponse    string                 `json:"agent_response"`
	ProcessingTimeMs int64                  `json:"processing_time_ms"`
	Success          bool                   `json:"success"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}
