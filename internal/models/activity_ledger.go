package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityLedger holds the durable per-user activity counters that feed
// trust level recomputation. Counters only ever grow; every bump is an
// atomic column update so concurrent events never lose an increment.
type ActivityLedger struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	PostsRead        int64     `gorm:"not null;default:0" json:"posts_read"`
	TimeSpentMinutes int64     `gorm:"not null;default:0" json:"time_spent_minutes"`
	DaysVisited      int64     `gorm:"not null;default:0" json:"days_visited"`
	LikesReceived    int64     `gorm:"not null;default:0" json:"likes_received"`
	LikesGiven       int64     `gorm:"not null;default:0" json:"likes_given"`
	TopicsCreated    int64     `gorm:"not null;default:0" json:"topics_created"`
	PostsCreated     int64     `gorm:"not null;default:0" json:"posts_created"`
	LastCalculatedAt time.Time `json:"last_calculated_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
