package model

import "github.com/google/uuid"

// ConnectionState mirrors the realtime transport status for readers.
// LastError is empty when the last operation succeeded.
type ConnectionState struct {
	Authenticated bool
	LastError     string
}

// Identity is the currently authenticated user as reported by the backend.
type Identity struct {
	UserId      uuid.UUID
	DisplayName string
}
