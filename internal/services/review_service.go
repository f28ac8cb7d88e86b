package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/forumkit/trustcore/internal/models"
	"github.com/forumkit/trustcore/internal/rules"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AdmissionDecision string

const (
	DecisionAutoPublish AdmissionDecision = "auto_publish"
	DecisionEnqueue     AdmissionDecision = "enqueue"
)

// Admission is the outcome of admitting newly authored content. Item is
// set only for DecisionEnqueue.
type Admission struct {
	Decision AdmissionDecision       `json:"decision"`
	Item     *models.ReviewQueueItem `json:"item,omitempty"`
}

// BatchOutcome is the per-item result of a batch resolve.
type BatchOutcome struct {
	ItemID uuid.UUID `json:"item_id"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
}

// ReviewStats aggregates terminal queue items over a period.
type ReviewStats struct {
	Total                int64   `json:"total"`
	Approved             int64   `json:"approved"`
	Rejected             int64   `json:"rejected"`
	ApprovalRate         float64 `json:"approval_rate"`
	AvgResolutionSeconds float64 `json:"avg_resolution_seconds"`
}

type ReviewService struct {
	db           *gorm.DB
	rules        *rules.Rules
	filter       *KeywordFilter
	trust        *TrustService
	gamification *GamificationService
	notifier     Notifier
}

func NewReviewService(db *gorm.DB, r *rules.Rules, trust *TrustService, gamification *GamificationService, notifier Notifier) *ReviewService {
	return &ReviewService{
		db:           db,
		rules:        r,
		filter:       NewKeywordFilter(r.FlaggedKeywords),
		trust:        trust,
		gamification: gamification,
		notifier:     notifier,
	}
}

// Admit decides publication for newly authored content using the author's
// trust tier as persisted right now, before the event's own counters are
// applied. Authors at or above the auto-publish level skip the queue
// entirely; everyone else gets a pending item with a priority score.
func (s *ReviewService) Admit(evt Event) (Admission, error) {
	level := s.trust.CurrentLevel(evt.UserID)

	if level >= s.rules.AutoPublishLevel {
		s.notifier.AdmissionDecided(evt.ContentID, DecisionAutoPublish)
		return Admission{Decision: DecisionAutoPublish}, nil
	}

	flagged := s.filter.Flagged(evt.Body)

	var reportCount int64
	if err := s.db.Model(&models.Report{}).
		Where("reported_user_id = ?", evt.UserID).
		Count(&reportCount).Error; err != nil {
		return Admission{}, fmt.Errorf("failed to count reports: %w", err)
	}

	item := models.ReviewQueueItem{
		ID:            uuid.New(),
		ContentID:     evt.ContentID,
		AuthorID:      evt.UserID,
		AuthorLevel:   level,
		PriorityScore: s.priorityScore(level, flagged, reportCount),
		Flagged:       flagged,
		Status:        models.ReviewStatusPending,
	}
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_id"}},
		DoNothing: true,
	}).Create(&item)
	if res.Error != nil {
		return Admission{}, fmt.Errorf("failed to enqueue review item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Redelivered admission: the earlier decision stands.
		var existing models.ReviewQueueItem
		if err := s.db.Where("content_id = ?", evt.ContentID).First(&existing).Error; err != nil {
			return Admission{}, fmt.Errorf("failed to load existing review item: %w", err)
		}
		return Admission{Decision: DecisionEnqueue, Item: &existing}, nil
	}

	s.notifier.AdmissionDecided(evt.ContentID, DecisionEnqueue)
	return Admission{Decision: DecisionEnqueue, Item: &item}, nil
}

// priorityScore: tier term + keyword term + report term, each monotonic.
// The age term is applied by the escalation ticker so that SQL ordering by
// priority_score stays correct as items wait.
func (s *ReviewService) priorityScore(level int, flagged bool, reportCount int64) int64 {
	w := s.rules.Weights
	score := w.LevelWeight * int64(rules.MaxLevel-level)
	if flagged {
		score += w.KeywordBonus
	}
	score += w.ReportWeight * reportCount
	return score
}

// Resolve applies a moderator decision as a single atomic conditional
// transition guarded by status=pending. Two moderators racing on the same
// item produce exactly one winner; the loser gets ErrInvalidTransition.
func (s *ReviewService) Resolve(itemID uuid.UUID, decision string, moderatorID uuid.UUID, reason string) (*models.ReviewQueueItem, error) {
	if decision != models.ReviewStatusApproved && decision != models.ReviewStatusRejected {
		return nil, fmt.Errorf("%w: decision must be approved or rejected", ErrInvalidInput)
	}
	reason = strings.TrimSpace(reason)
	if decision == models.ReviewStatusRejected && reason == "" {
		return nil, fmt.Errorf("%w: rejection requires a reason", ErrInvalidInput)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      decision,
		"reviewed_at": now,
		"reviewed_by": moderatorID,
	}
	if decision == models.ReviewStatusRejected {
		updates["rejection_reason"] = reason
	}

	res := s.db.Model(&models.ReviewQueueItem{}).
		Where("id = ? AND status = ?", itemID, models.ReviewStatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to resolve review item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var existing models.ReviewQueueItem
		if err := s.db.Where("id = ?", itemID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
			}
			return nil, fmt.Errorf("failed to load review item: %w", err)
		}
		return nil, fmt.Errorf("%w: item is already %s", ErrInvalidTransition, existing.Status)
	}

	var item models.ReviewQueueItem
	if err := s.db.Where("id = ?", itemID).First(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to reload review item: %w", err)
	}

	if decision == models.ReviewStatusApproved {
		s.notifier.ContentApproved(item.ContentID)
		// Approval is itself a qualifying event for the author; creation
		// events of queued content earn nothing until this point.
		if _, err := s.gamification.ApplyEvent(Event{
			ID:        "approval:" + item.ID.String(),
			Kind:      KindPostApproved,
			UserID:    item.AuthorID,
			ContentID: item.ContentID,
			CreatedAt: now,
		}); err != nil {
			slog.Error("approval gamification event failed", "item_id", item.ID, "error", err)
		}
	} else {
		s.notifier.ContentRejected(item.ContentID, reason)
	}

	return &item, nil
}

// ApproveExternally force-approves a pending item on an admin override
// coming from outside the moderation flow. Quietly does nothing when no
// pending item exists for the content.
func (s *ReviewService) ApproveExternally(contentID string) error {
	res := s.db.Model(&models.ReviewQueueItem{}).
		Where("content_id = ? AND status = ?", contentID, models.ReviewStatusPending).
		Updates(map[string]interface{}{
			"status":      models.ReviewStatusApproved,
			"reviewed_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to apply external approval: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		s.notifier.ContentApproved(contentID)
	}
	return nil
}

// ResolveBatch applies Resolve to each id independently; one failed item
// never aborts the rest.
func (s *ReviewService) ResolveBatch(itemIDs []uuid.UUID, decision string, moderatorID uuid.UUID, reason string) []BatchOutcome {
	outcomes := make([]BatchOutcome, 0, len(itemIDs))
	for _, id := range itemIDs {
		item, err := s.Resolve(id, decision, moderatorID, reason)
		if err != nil {
			outcomes = append(outcomes, BatchOutcome{ItemID: id, Status: "error", Error: err.Error()})
			continue
		}
		outcomes = append(outcomes, BatchOutcome{ItemID: id, Status: item.Status})
	}
	return outcomes
}

// PendingQueue returns the queue page moderators work from, most urgent
// first, oldest first within equal priority.
func (s *ReviewService) PendingQueue(limit, offset int) ([]models.ReviewQueueItem, int64, error) {
	var total int64
	if err := s.db.Model(&models.ReviewQueueItem{}).
		Where("status = ?", models.ReviewStatusPending).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count pending items: %w", err)
	}

	var items []models.ReviewQueueItem
	err := s.db.Where("status = ?", models.ReviewStatusPending).
		Order("priority_score DESC, created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pending items: %w", err)
	}
	return items, total, nil
}

// Stats aggregates terminal items reviewed in the last `days` days.
func (s *ReviewService) Stats(days int) (ReviewStats, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)

	var items []models.ReviewQueueItem
	err := s.db.Select("status", "created_at", "reviewed_at").
		Where("status IN ? AND reviewed_at >= ?",
			[]string{models.ReviewStatusApproved, models.ReviewStatusRejected}, since).
		Find(&items).Error
	if err != nil {
		return ReviewStats{}, fmt.Errorf("failed to load resolved items: %w", err)
	}

	var stats ReviewStats
	var totalSeconds float64
	for _, item := range items {
		stats.Total++
		if item.Status == models.ReviewStatusApproved {
			stats.Approved++
		} else {
			stats.Rejected++
		}
		if item.ReviewedAt != nil {
			totalSeconds += item.ReviewedAt.Sub(item.CreatedAt).Seconds()
		}
	}
	if stats.Total > 0 {
		stats.ApprovalRate = float64(stats.Approved) / float64(stats.Total)
		stats.AvgResolutionSeconds = totalSeconds / float64(stats.Total)
	}
	return stats, nil
}

// EscalatePending adds the configured age weight to every pending item.
// Called on a ticker; guarantees priority is non-decreasing in queue age
// so old low-priority items cannot starve.
func (s *ReviewService) EscalatePending() error {
	res := s.db.Model(&models.ReviewQueueItem{}).
		Where("status = ?", models.ReviewStatusPending).
		UpdateColumn("priority_score", gorm.Expr("priority_score + ?", s.rules.Weights.AgeWeight))
	if res.Error != nil {
		return fmt.Errorf("failed to escalate pending items: %w", res.Error)
	}
	return nil
}

// StartEscalation runs EscalatePending on the given interval until done is
// closed.
func (s *ReviewService) StartEscalation(interval time.Duration, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.EscalatePending(); err != nil {
					slog.Error("queue escalation failed", "error", err)
				}
			case <-done:
				return
			}
		}
	}()
}
