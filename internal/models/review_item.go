package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// ReviewQueueItem is a piece of content held for moderator approval.
// Items are created once at admission, transitioned exactly once to a
// terminal status, and never deleted (kept for audit).
type ReviewQueueItem struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ContentID       string     `gorm:"size:64;not null;uniqueIndex" json:"content_id"`
	AuthorID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"author_id"`
	AuthorLevel     int        `gorm:"not null;default:0" json:"author_level"`
	PriorityScore   int64      `gorm:"not null;default:0;index" json:"priority_score"`
	Flagged         bool       `gorm:"not null;default:false" json:"flagged"`
	Status          string     `gorm:"not null;default:'pending';size:20;index" json:"status"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy      *uuid.UUID `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	RejectionReason string     `gorm:"size:500" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
