package models

import (
	"time"

	"github.com/google/uuid"
)

// Report records a community report against an author. The count of prior
// reports feeds the review-queue priority score.
type Report struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID        string    `gorm:"size:100;not null;uniqueIndex" json:"event_id"`
	ReporterID     uuid.UUID `gorm:"type:uuid;not null;index" json:"reporter_id"`
	ReportedUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"reported_user_id"`
	ContentID      string    `gorm:"size:64;index" json:"content_id,omitempty"`
	Reason         string    `gorm:"not null;size:500" json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
}
