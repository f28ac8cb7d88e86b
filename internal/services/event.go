package services

import (
	"time"

	"github.com/google/uuid"
)

// Inbound event kinds accepted by the orchestrator.
const (
	KindContentCreated     = "content_created"
	KindContentLiked       = "content_liked"
	KindUserVisited        = "user_visited"
	KindSolutionMarked     = "solution_marked"
	KindContentReported    = "content_reported"
	KindApprovedExternally = "content_approved_externally"

	// Derived kinds fed to the gamification engine by the core itself.
	KindPostApproved = "post_approved"
	KindTierChanged  = "tier_changed"
)

// Event is one content-lifecycle event from the external content store.
// ID is the upstream delivery id and doubles as the idempotency key for
// both the orchestrator journal and point accounting.
type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	UserID    uuid.UUID `json:"user_id"`
	AuthorID  uuid.UUID `json:"author_id,omitempty"`
	ContentID string    `json:"content_id,omitempty"`
	Body      string    `json:"body,omitempty"`
	Topic     bool      `json:"topic,omitempty"`
	Minutes   int64     `json:"minutes,omitempty"`
	PostsRead int64     `json:"posts_read,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Subject returns the user whose standing the event affects: likes and
// external approvals accrue to the content author, everything else to the
// acting user.
func (e Event) Subject() uuid.UUID {
	switch e.Kind {
	case KindContentLiked, KindApprovedExternally:
		if e.AuthorID != uuid.Nil {
			return e.AuthorID
		}
	}
	return e.UserID
}
