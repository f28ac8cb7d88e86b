package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EventStatusPending = "pending"
	EventStatusDone    = "done"
	EventStatusParked  = "parked"
)

// EventRecord journals every dispatched event together with its stage
// cursor. The unique event_id means a redelivered event resumes at the
// next unprocessed stage instead of restarting from admission; events
// whose retries are exhausted are parked for manual replay, never dropped.
type EventRecord struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EventID   string         `gorm:"size:100;not null;uniqueIndex" json:"event_id"`
	Kind      string         `gorm:"size:50;not null;index" json:"kind"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Stage     int            `gorm:"not null;default:0" json:"stage"`
	Status    string         `gorm:"not null;default:'pending';size:20;index" json:"status"`
	Attempts  int            `gorm:"not null;default:0" json:"attempts"`
	LastError string         `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
