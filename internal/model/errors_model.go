package model

import (
	"fmt"

	"github.com/google/uuid"
)

// ConnectionError means the transport is down. The channel reconnects on its
// own; callers only surface a non-blocking indicator.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError means the backend rejected the presented identity.
type AuthError struct {
	UserId uuid.UUID
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected for user %s: %s", e.UserId, e.Reason)
}

// MutationError means a send/delete/rename backend call failed after the
// optimistic local apply. Recovery is caller-driven re-hydration; the
// coordinator never retries because retrying a delete or rename risks
// duplicate side effects.
type MutationError struct {
	Op        string
	SessionId uuid.UUID
	Err       error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s failed for session %s: %v", e.Op, e.SessionId, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// ValidationError is rejected before any state mutation or network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
