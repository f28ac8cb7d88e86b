package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	BadgeTypeThreshold = "threshold"
	BadgeTypeEvent     = "event"
)

// Badge is an immutable catalog entry seeded from the rules registry at
// startup and never mutated by runtime events.
type Badge struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"not null;size:100" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	Type        string    `gorm:"not null;size:20" json:"type"`
	Metric      string    `gorm:"size:50" json:"metric,omitempty"`
	Threshold   *int64    `json:"threshold,omitempty"`
	Event       string    `gorm:"size:50" json:"event,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserBadge records a badge award. The (user_id, badge_id) unique index is
// the single point of truth for "already awarded": a second insert is a
// no-op, which closes the race between concurrent qualifying events.
type UserBadge struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeID          string    `gorm:"size:64;not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	RelatedContentID string    `gorm:"size:64" json:"related_content_id,omitempty"`
	AwardedAt        time.Time `json:"awarded_at"`

	Badge Badge `gorm:"foreignKey:BadgeID" json:"-"`
}
