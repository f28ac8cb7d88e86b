package dto

import (
	"time"

	"github.com/google/uuid"
)

// IngestEventRequest is the inbound event envelope from the content store.
type IngestEventRequest struct {
	EventID   string    `json:"event_id"`
	Kind      string    `json:"kind"`
	UserID    uuid.UUID `json:"user_id"`
	AuthorID  uuid.UUID `json:"author_id,omitempty"`
	ContentID string    `json:"content_id,omitempty"`
	Body      string    `json:"body,omitempty"`
	Topic     bool      `json:"topic,omitempty"`
	Minutes   int64     `json:"minutes,omitempty"`
	PostsRead int64     `json:"posts_read,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type IngestEventResponse struct {
	EventID  string `json:"event_id"`
	Accepted bool   `json:"accepted"`
}
