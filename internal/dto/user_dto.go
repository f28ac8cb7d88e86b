package dto

import (
	"time"

	"github.com/google/uuid"
)

type StandingResponse struct {
	UserID           uuid.UUID `json:"user_id"`
	Level            int       `json:"level"`
	ComputedAt       time.Time `json:"computed_at"`
	PostsRead        int64     `json:"posts_read"`
	TimeSpentMinutes int64     `json:"time_spent_minutes"`
	DaysVisited      int64     `json:"days_visited"`
	LikesReceived    int64     `json:"likes_received"`
	LikesGiven       int64     `json:"likes_given"`
	TopicsCreated    int64     `json:"topics_created"`
	PostsCreated     int64     `json:"posts_created"`
}

type BadgeResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AwardedAt   time.Time `json:"awarded_at"`
}

type GamificationResponse struct {
	UserID uuid.UUID       `json:"user_id"`
	Points int64           `json:"points"`
	Badges []BadgeResponse `json:"badges"`
}
