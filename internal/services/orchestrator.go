package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/forumkit/trustcore/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Processing stages, in the fixed dispatch order. Admission sees the
// author's trust tier as it was before the event; gamification sees the
// counters after the ledger stage.
const (
	stageAdmission = iota
	stageLedger
	stageTrust
	stageGamification
	stageCount
)

var stageNames = [stageCount]string{"admission", "ledger", "trust", "gamification"}

// errLedgerStageDone aborts the ledger transaction when a racing worker
// already advanced the cursor past the ledger stage.
var errLedgerStageDone = errors.New("ledger stage already applied")

// Orchestrator is the single ingress for content-lifecycle events. Each
// event is journaled with a stage cursor so a redelivery resumes at the
// next unprocessed stage; transient stage failures are retried with
// exponential backoff and exhausted events are parked for manual replay.
type Orchestrator struct {
	db           *gorm.DB
	review       *ReviewService
	trust        *TrustService
	gamification *GamificationService
	maxAttempts  int
	backoffBase  time.Duration
}

func NewOrchestrator(db *gorm.DB, review *ReviewService, trust *TrustService, gamification *GamificationService, maxAttempts int, backoffBase time.Duration) *Orchestrator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Orchestrator{
		db:           db,
		review:       review,
		trust:        trust,
		gamification: gamification,
		maxAttempts:  maxAttempts,
		backoffBase:  backoffBase,
	}
}

// Dispatch journals the event and runs every remaining stage. Safe to call
// again with the same event id: a finished event is a no-op, an
// in-flight one resumes from its cursor, a parked one must go through
// ReplayParked.
func (o *Orchestrator) Dispatch(evt Event) error {
	if evt.ID == "" || evt.Kind == "" {
		return fmt.Errorf("%w: event id and kind are required", ErrInvalidInput)
	}
	if evt.UserID == uuid.Nil {
		return fmt.Errorf("%w: event user id is required", ErrInvalidInput)
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	rec := models.EventRecord{
		ID:      uuid.New(),
		EventID: evt.ID,
		Kind:    evt.Kind,
		Payload: datatypes.JSON(payload),
		Status:  models.EventStatusPending,
	}
	res := o.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&rec)
	if res.Error != nil {
		return fmt.Errorf("failed to journal event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if err := o.db.Where("event_id = ?", evt.ID).First(&rec).Error; err != nil {
			return fmt.Errorf("failed to load event record: %w", err)
		}
		switch rec.Status {
		case models.EventStatusDone:
			return nil
		case models.EventStatusParked:
			return fmt.Errorf("event %s is parked; replay it explicitly", evt.ID)
		}
	}

	return o.process(&rec, evt)
}

// ReplayParked re-runs a parked event from its stage cursor.
func (o *Orchestrator) ReplayParked(eventID string) error {
	var rec models.EventRecord
	if err := o.db.Where("event_id = ?", eventID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		return fmt.Errorf("failed to load event record: %w", err)
	}
	if rec.Status == models.EventStatusDone {
		return nil
	}

	var evt Event
	if err := json.Unmarshal(rec.Payload, &evt); err != nil {
		return fmt.Errorf("failed to decode event payload: %w", err)
	}

	if err := o.db.Model(&models.EventRecord{}).Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"status":     models.EventStatusPending,
			"attempts":   0,
			"last_error": "",
		}).Error; err != nil {
		return fmt.Errorf("failed to reset event record: %w", err)
	}

	slog.Info("replaying parked event", "event_id", eventID, "stage", stageNames[rec.Stage])
	return o.process(&rec, evt)
}

func (o *Orchestrator) process(rec *models.EventRecord, evt Event) error {
	for stage := rec.Stage; stage < stageCount; stage++ {
		if err := o.runWithRetry(rec, stage, evt); err != nil {
			o.park(rec, stage, err)
			return err
		}
		if stage != stageLedger {
			// The ledger stage advances its own cursor inside the
			// increment transaction.
			if err := o.db.Model(&models.EventRecord{}).Where("id = ?", rec.ID).
				UpdateColumn("stage", stage+1).Error; err != nil {
				return fmt.Errorf("failed to advance stage cursor: %w", err)
			}
		}
		rec.Stage = stage + 1
	}

	if err := o.db.Model(&models.EventRecord{}).Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"status":     models.EventStatusDone,
			"last_error": "",
		}).Error; err != nil {
		return fmt.Errorf("failed to finish event record: %w", err)
	}
	return nil
}

func (o *Orchestrator) runWithRetry(rec *models.EventRecord, stage int, evt Event) error {
	var err error
	for attempt := 0; attempt < o.maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(o.backoffBase << (attempt - 1))
		}
		err = o.runStage(stage, evt)
		if err == nil {
			return nil
		}
		if IsTerminal(err) {
			return err
		}
		o.db.Model(&models.EventRecord{}).Where("id = ?", rec.ID).
			UpdateColumn("attempts", gorm.Expr("attempts + 1"))
		slog.Warn("event stage failed",
			"event_id", evt.ID, "stage", stageNames[stage], "attempt", attempt+1, "error", err)
	}
	return err
}

func (o *Orchestrator) runStage(stage int, evt Event) error {
	switch stage {
	case stageAdmission:
		return o.runAdmission(evt)
	case stageLedger:
		return o.runLedger(evt)
	case stageTrust:
		return o.runTrust(evt)
	case stageGamification:
		return o.runGamification(evt)
	}
	return nil
}

func (o *Orchestrator) runAdmission(evt Event) error {
	switch evt.Kind {
	case KindContentCreated:
		_, err := o.review.Admit(evt)
		return err
	case KindApprovedExternally:
		return o.review.ApproveExternally(evt.ContentID)
	}
	return nil
}

// runLedger applies the event's counter increments and advances the stage
// cursor in the same transaction, guarded by the cursor's current value.
// Neither a crash nor a racing redelivery can double-count: the worker that
// loses the cursor update rolls its increments back.
func (o *Orchestrator) runLedger(evt Event) error {
	err := o.db.Transaction(func(tx *gorm.DB) error {
		switch evt.Kind {
		case KindContentCreated:
			deltas := map[string]int64{"posts_created": 1}
			if evt.Topic {
				deltas["topics_created"] = 1
			}
			if err := bumpCounters(tx, evt.UserID, deltas); err != nil {
				return err
			}
		case KindContentLiked:
			if err := bumpCounters(tx, evt.AuthorID, map[string]int64{"likes_received": 1}); err != nil {
				return err
			}
			if err := bumpCounters(tx, evt.UserID, map[string]int64{"likes_given": 1}); err != nil {
				return err
			}
		case KindUserVisited:
			deltas := map[string]int64{"days_visited": 1}
			if evt.Minutes > 0 {
				deltas["time_spent_minutes"] = evt.Minutes
			}
			if evt.PostsRead > 0 {
				deltas["posts_read"] = evt.PostsRead
			}
			if err := bumpCounters(tx, evt.UserID, deltas); err != nil {
				return err
			}
		case KindContentReported:
			report := models.Report{
				ID:             uuid.New(),
				EventID:        evt.ID,
				ReporterID:     evt.UserID,
				ReportedUserID: evt.AuthorID,
				ContentID:      evt.ContentID,
				Reason:         evt.Reason,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "event_id"}},
				DoNothing: true,
			}).Create(&report).Error; err != nil {
				return fmt.Errorf("failed to record report: %w", err)
			}
		}

		res := tx.Model(&models.EventRecord{}).
			Where("event_id = ? AND stage = ?", evt.ID, stageLedger).
			UpdateColumn("stage", stageLedger+1)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errLedgerStageDone
		}
		return nil
	})
	if errors.Is(err, errLedgerStageDone) {
		return nil
	}
	return err
}

// bumpCounters is insert-or-increment: increments are plain column
// updates (`c = c + ?`), commutative under concurrency, never
// read-modify-write.
func bumpCounters(tx *gorm.DB, userID uuid.UUID, deltas map[string]int64) error {
	if userID == uuid.Nil || len(deltas) == 0 {
		return nil
	}
	ledger := models.ActivityLedger{ID: uuid.New(), UserID: userID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&ledger).Error; err != nil {
		return fmt.Errorf("failed to ensure ledger row: %w", err)
	}

	updates := make(map[string]interface{}, len(deltas))
	for column, delta := range deltas {
		updates[column] = gorm.Expr(column+" + ?", delta)
	}
	if err := tx.Model(&models.ActivityLedger{}).
		Where("user_id = ?", userID).
		UpdateColumns(updates).Error; err != nil {
		return fmt.Errorf("failed to bump counters: %w", err)
	}
	return nil
}

func (o *Orchestrator) runTrust(evt Event) error {
	change, err := o.trust.Recompute(evt.Subject())
	if err != nil {
		return err
	}
	if change.Raised {
		o.fanOutTierChange(evt, change)
	}

	// A like moves two ledgers; the liker's tier may move too.
	if evt.Kind == KindContentLiked && evt.UserID != evt.Subject() {
		likerChange, err := o.trust.Recompute(evt.UserID)
		if err != nil {
			return err
		}
		if likerChange.Raised {
			o.fanOutTierChange(evt, likerChange)
		}
	}
	return nil
}

// fanOutTierChange feeds the tier raise back into gamification as its own
// qualifying event. The derived id includes the new level so badge and
// point dedup hold across replays.
func (o *Orchestrator) fanOutTierChange(evt Event, change TierChange) {
	derived := Event{
		ID:        fmt.Sprintf("%s:tier:%d", evt.ID, change.NewLevel),
		Kind:      KindTierChanged,
		UserID:    change.UserID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := o.gamification.ApplyEvent(derived); err != nil {
		slog.Error("tier change gamification event failed",
			"event_id", evt.ID, "user_id", change.UserID, "error", err)
	}
}

// runGamification skips creation events whose content is still held in
// (or was rejected from) the review queue; those authors earn their
// points through the post_approved event instead.
func (o *Orchestrator) runGamification(evt Event) error {
	if evt.Kind == KindContentCreated {
		var item models.ReviewQueueItem
		err := o.db.Select("status").Where("content_id = ?", evt.ContentID).First(&item).Error
		if err == nil && item.Status != models.ReviewStatusApproved {
			return nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check review status: %w", err)
		}
	}
	_, err := o.gamification.ApplyEvent(evt)
	return err
}

func (o *Orchestrator) park(rec *models.EventRecord, stage int, cause error) {
	err := o.db.Model(&models.EventRecord{}).Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"status":     models.EventStatusParked,
			"last_error": cause.Error(),
		}).Error
	if err != nil {
		slog.Error("failed to park event", "event_id", rec.EventID, "error", err)
	}
	slog.Error("event parked",
		"event_id", rec.EventID, "stage", stageNames[stage], "error", cause)
}

// Parked lists parked events for the manual replay surface.
func (o *Orchestrator) Parked(limit, offset int) ([]models.EventRecord, int64, error) {
	var total int64
	if err := o.db.Model(&models.EventRecord{}).
		Where("status = ?", models.EventStatusParked).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count parked events: %w", err)
	}

	var records []models.EventRecord
	err := o.db.Where("status = ?", models.EventStatusParked).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list parked events: %w", err)
	}
	return records, total, nil
}
