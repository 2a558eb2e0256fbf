package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one exchange inside a session. AgentResponse is empty and
// Success false while the message is pending (optimistically inserted,
// awaiting the backend confirmation push).
type ChatMessage struct {
	Id               uuid.UUID
	ChatSessionId    uuid.UUID
	UserId           uuid.UUID
	UserInput        string
	AgentResponse    string
	ProcessingTimeMs int64
	Success          bool
	Metadata         map[string]interface{}
	CreatedAt        time.Time
}

// Pending reports whether the message is still awaiting confirmation.
func (m *ChatMessage) Pending() bool {
	return m.AgentResponse == "" && !m.Success
}
