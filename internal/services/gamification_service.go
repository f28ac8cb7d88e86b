package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/forumkit/trustcore/internal/models"
	"github.com/forumkit/trustcore/internal/rules"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AwardResult reports what one qualifying event earned.
type AwardResult struct {
	Points int64    `json:"points"`
	Total  int64    `json:"total"`
	Badges []string `json:"badges,omitempty"`
}

type GamificationService struct {
	db       *gorm.DB
	rules    *rules.Rules
	notifier Notifier
}

func NewGamificationService(db *gorm.DB, r *rules.Rules, notifier Notifier) *GamificationService {
	return &GamificationService{db: db, rules: r, notifier: notifier}
}

// SeedCatalog inserts the configured badge catalog. Existing entries are
// left untouched; the catalog is immutable at runtime.
func (s *GamificationService) SeedCatalog() error {
	for _, b := range s.rules.Badges {
		badge := models.Badge{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			Type:        b.Type,
			Metric:      b.Metric,
			Event:       b.Event,
		}
		if b.Type == models.BadgeTypeThreshold {
			threshold := b.Threshold
			badge.Threshold = &threshold
		}
		res := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&badge)
		if res.Error != nil {
			return fmt.Errorf("failed to seed badge %s: %w", b.ID, res.Error)
		}
	}
	return nil
}

// ApplyEvent books points for the action and evaluates every badge rule
// the action could have affected. Replaying the same event id is a no-op
// for points (unique journal entry) and for badges (unique user/badge
// pair), so at-least-once delivery never double-awards.
func (s *GamificationService) ApplyEvent(evt Event) (AwardResult, error) {
	var result AwardResult

	points, known := s.rules.Points[evt.Kind]
	if !known {
		slog.Warn("unknown action kind, ignoring", "kind", evt.Kind, "event_id", evt.ID)
		return result, nil
	}

	subject := evt.Subject()

	if points > 0 {
		entry := models.PointLog{
			ID:               uuid.New(),
			EventID:          evt.ID,
			UserID:           subject,
			ActionKind:       evt.Kind,
			Points:           points,
			RelatedContentID: evt.ContentID,
		}
		res := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).Create(&entry)
		if res.Error != nil {
			return result, fmt.Errorf("failed to journal points: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			score := models.UserScore{ID: uuid.New(), UserID: subject, Points: points}
			err := s.db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"points": gorm.Expr("points + ?", points)}),
			}).Create(&score).Error
			if err != nil {
				return result, fmt.Errorf("failed to add points: %w", err)
			}
			result.Points = points
		}
	}

	total, counters := s.snapshot(subject)
	result.Total = total

	for _, b := range s.rules.Badges {
		qualified, err := s.qualifies(b, evt, total, counters)
		if err != nil {
			// A broken rule aborts only that badge's evaluation.
			slog.Error("badge evaluation failed", "badge", b.ID, "event_id", evt.ID, "error", err)
			continue
		}
		if !qualified {
			continue
		}
		awarded, err := s.award(subject, b.ID, evt.ContentID)
		if err != nil {
			slog.Error("badge award failed", "badge", b.ID, "user_id", subject, "error", err)
			continue
		}
		if awarded {
			result.Badges = append(result.Badges, b.ID)
			s.notifier.BadgeAwarded(subject, b.ID)
		}
	}

	return result, nil
}

func (s *GamificationService) snapshot(userID uuid.UUID) (int64, models.ActivityLedger) {
	var score models.UserScore
	if err := s.db.Where("user_id = ?", userID).First(&score).Error; err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Error("failed to read score", "user_id", userID, "error", err)
	}
	var ledger models.ActivityLedger
	if err := s.db.Where("user_id = ?", userID).First(&ledger).Error; err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Error("failed to read ledger", "user_id", userID, "error", err)
	}
	return score.Points, ledger
}

func (s *GamificationService) qualifies(b rules.BadgeRule, evt Event, total int64, ledger models.ActivityLedger) (bool, error) {
	switch b.Type {
	case models.BadgeTypeEvent:
		return b.Event == evt.Kind, nil
	case models.BadgeTypeThreshold:
		value, err := metricValue(b.Metric, total, ledger)
		if err != nil {
			return false, err
		}
		return value >= b.Threshold, nil
	default:
		return false, fmt.Errorf("unknown badge type %q", b.Type)
	}
}

func metricValue(metric string, points int64, l models.ActivityLedger) (int64, error) {
	switch metric {
	case "points":
		return points, nil
	case "posts_read":
		return l.PostsRead, nil
	case "time_spent_minutes":
		return l.TimeSpentMinutes, nil
	case "days_visited":
		return l.DaysVisited, nil
	case "likes_received":
		return l.LikesReceived, nil
	case "likes_given":
		return l.LikesGiven, nil
	case "topics_created":
		return l.TopicsCreated, nil
	case "posts_created":
		return l.PostsCreated, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", metric)
	}
}

// award inserts the UserBadge row. The (user_id, badge_id) unique index is
// what makes the award at-most-once; a lost race shows up as zero rows
// affected, not an error.
func (s *GamificationService) award(userID uuid.UUID, badgeID, contentID string) (bool, error) {
	ub := models.UserBadge{
		ID:               uuid.New(),
		UserID:           userID,
		BadgeID:          badgeID,
		RelatedContentID: contentID,
		AwardedAt:        time.Now().UTC(),
	}
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
		DoNothing: true,
	}).Create(&ub)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Profile is the read model: point total plus awarded badges.
func (s *GamificationService) Profile(userID uuid.UUID) (int64, []models.UserBadge, error) {
	var score models.UserScore
	err := s.db.Where("user_id = ?", userID).First(&score).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil, fmt.Errorf("failed to read score: %w", err)
	}

	var badges []models.UserBadge
	if err := s.db.Preload("Badge").Where("user_id = ?", userID).
		Order("awarded_at ASC").Find(&badges).Error; err != nil {
		return 0, nil, fmt.Errorf("failed to read badges: %w", err)
	}
	return score.Points, badges, nil
}
