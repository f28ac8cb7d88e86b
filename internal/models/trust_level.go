package models

import (
	"time"

	"github.com/google/uuid"
)

// TrustLevel is the persisted privilege tier derived from a user's
// ActivityLedger. Level is only ever raised by recomputation; demotion
// would be an explicit administrative action, not part of this engine.
type TrustLevel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Level      int       `gorm:"not null;default:0" json:"level"`
	ComputedAt time.Time `json:"computed_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
