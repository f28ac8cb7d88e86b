package models

import (
	"time"

	"github.com/google/uuid"
)

// UserScore is the running gamification point total for a user.
type UserScore struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Points    int64     `gorm:"not null;default:0" json:"points"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PointLog journals every point booking keyed by the upstream event id.
// The unique index makes point accounting idempotent under at-least-once
// delivery: a replayed event inserts nothing and adds nothing.
type PointLog struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID          string    `gorm:"size:100;not null;uniqueIndex" json:"event_id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ActionKind       string    `gorm:"size:50;not null" json:"action_kind"`
	Points           int64     `gorm:"not null" json:"points"`
	RelatedContentID string    `gorm:"size:64" json:"related_content_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
