package dto

import "encoding/json"

// APIEnvelope is the backend's uniform {success, data|error} response shape.
type APIEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type ListSessionsData struct {
	Sessions []SessionDTO `json:"sessions"`
}

type ListMessagesData struct {
	Messages []MessageDTO `json:"messages"`
}

type UpdateSessionTitleRequest struct {
	Title string `json:"title"`
}
