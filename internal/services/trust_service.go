package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/forumkit/trustcore/internal/models"
	"github.com/forumkit/trustcore/internal/rules"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TierChange is the outcome of one trust level recomputation.
type TierChange struct {
	UserID   uuid.UUID
	OldLevel int
	NewLevel int
	Raised   bool
}

type TrustService struct {
	db       *gorm.DB
	rules    *rules.Rules
	notifier Notifier
}

func NewTrustService(db *gorm.DB, r *rules.Rules, notifier Notifier) *TrustService {
	return &TrustService{db: db, rules: r, notifier: notifier}
}

// EvaluateLevel returns the highest level k such that every requirement of
// tiers 1..k is met by the ledger. Pure; level 0 needs nothing.
func EvaluateLevel(ledger models.ActivityLedger, tiers []rules.TierRequirement) int {
	level := 0
	for _, t := range tiers {
		if !meetsRequirement(ledger, t) {
			break
		}
		level = t.Level
	}
	return level
}

func meetsRequirement(l models.ActivityLedger, t rules.TierRequirement) bool {
	return l.DaysVisited >= t.DaysVisited &&
		l.PostsRead >= t.PostsRead &&
		l.TimeSpentMinutes >= t.TimeSpentMinutes &&
		l.LikesReceived >= t.LikesReceived &&
		l.LikesGiven >= t.LikesGiven &&
		l.TopicsCreated >= t.TopicsCreated &&
		l.PostsCreated >= t.PostsCreated
}

// CurrentLevel returns the persisted trust level for a user, 0 when none
// has been computed yet.
func (s *TrustService) CurrentLevel(userID uuid.UUID) int {
	var cur models.TrustLevel
	if err := s.db.Where("user_id = ?", userID).First(&cur).Error; err != nil {
		return 0
	}
	return cur.Level
}

// Recompute reads the user's ledger, evaluates the tier table and raises
// the persisted level when the ledger now satisfies a higher tier. The
// persisted level only ever goes up, and concurrent recomputations with
// stale and fresh snapshots settle on the higher candidate: the update is
// guarded by `level < new`, so the max always wins regardless of order.
func (s *TrustService) Recompute(userID uuid.UUID) (TierChange, error) {
	change := TierChange{UserID: userID}

	var ledger models.ActivityLedger
	err := s.db.Where("user_id = ?", userID).First(&ledger).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return change, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	now := time.Now().UTC()
	newLevel := EvaluateLevel(ledger, s.rules.Tiers)

	var cur models.TrustLevel
	err = s.db.Where("user_id = ?", userID).First(&cur).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec := models.TrustLevel{ID: uuid.New(), UserID: userID, Level: newLevel, ComputedAt: now}
		res := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&rec)
		if res.Error != nil {
			return change, fmt.Errorf("failed to persist trust level: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			change.NewLevel = newLevel
			change.Raised = newLevel > 0
		} else {
			// Lost the insert race; re-read what the winner persisted so
			// the reported old level is real, then take the guarded path.
			if err := s.db.Where("user_id = ?", userID).First(&cur).Error; err != nil {
				return change, fmt.Errorf("failed to read trust level: %w", err)
			}
			change.OldLevel = cur.Level
			change.NewLevel = cur.Level
			if newLevel > cur.Level {
				if err := s.raiseTo(userID, newLevel, now, &change); err != nil {
					return change, err
				}
			}
		}
	case err != nil:
		return change, fmt.Errorf("failed to read trust level: %w", err)
	default:
		change.OldLevel = cur.Level
		change.NewLevel = cur.Level
		if newLevel > cur.Level {
			if err := s.raiseTo(userID, newLevel, now, &change); err != nil {
				return change, err
			}
		}
	}

	// last_calculated_at is owned by this engine alone.
	if ledger.UserID != uuid.Nil {
		s.db.Model(&models.ActivityLedger{}).
			Where("user_id = ?", userID).
			UpdateColumn("last_calculated_at", now)
	}

	if change.Raised {
		s.notifier.TierChanged(userID, change.OldLevel, change.NewLevel)
	}
	return change, nil
}

func (s *TrustService) raiseTo(userID uuid.UUID, newLevel int, now time.Time, change *TierChange) error {
	res := s.db.Model(&models.TrustLevel{}).
		Where("user_id = ? AND level < ?", userID, newLevel).
		Updates(map[string]interface{}{"level": newLevel, "computed_at": now})
	if res.Error != nil {
		return fmt.Errorf("failed to raise trust level: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		change.NewLevel = newLevel
		change.Raised = true
	}
	return nil
}

// Standing is the read model: persisted tier plus the raw counters.
func (s *TrustService) Standing(userID uuid.UUID) (models.TrustLevel, models.ActivityLedger, error) {
	var level models.TrustLevel
	var ledger models.ActivityLedger

	err := s.db.Where("user_id = ?", userID).First(&level).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return level, ledger, fmt.Errorf("failed to read trust level: %w", err)
	}
	err = s.db.Where("user_id = ?", userID).First(&ledger).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return level, ledger, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	level.UserID = userID
	ledger.UserID = userID
	return level, ledger, nil
}
