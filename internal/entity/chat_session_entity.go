package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession is one named conversation thread. Ids are immutable and
// globally unique; Title is the only user-editable field.
type ChatSession struct {
	Id           uuid.UUID
	Title        string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	MessageCount int
	IsActive     bool
}
