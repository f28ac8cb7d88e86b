package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/forumkit/trustcore/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func testOrchestrator(t *testing.T, db *gorm.DB) (*Orchestrator, *recordingNotifier) {
	t.Helper()
	_, trust, gamification, review, notifier := testEngines(t, db)
	return NewOrchestrator(db, review, trust, gamification, 2, time.Millisecond), notifier
}

func ledgerFor(t *testing.T, db *gorm.DB, userID uuid.UUID) models.ActivityLedger {
	t.Helper()
	var ledger models.ActivityLedger
	require.NoError(t, db.Where("user_id = ?", userID).First(&ledger).Error)
	return ledger
}

func eventStatus(t *testing.T, db *gorm.DB, eventID string) models.EventRecord {
	t.Helper()
	var rec models.EventRecord
	require.NoError(t, db.Where("event_id = ?", eventID).First(&rec).Error)
	return rec
}

func TestDispatchContentCreatedNewUser(t *testing.T) {
	db := setupTestDB(t)
	orc, _ := testOrchestrator(t, db)
	author := uuid.New()

	err := orc.Dispatch(Event{
		ID:        "e1",
		Kind:      KindContentCreated,
		UserID:    author,
		ContentID: "c1",
		Body:      "my first post",
		Topic:     true,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	rec := eventStatus(t, db, "e1")
	assert.Equal(t, models.EventStatusDone, rec.Status)
	assert.Equal(t, stageCount, rec.Stage)

	// Tier 0 authors end up in the queue.
	var item models.ReviewQueueItem
	require.NoError(t, db.Where("content_id = ?", "c1").First(&item).Error)
	assert.Equal(t, models.ReviewStatusPending, item.Status)

	ledger := ledgerFor(t, db, author)
	assert.Equal(t, int64(1), ledger.PostsCreated)
	assert.Equal(t, int64(1), ledger.TopicsCreated)

	// Queued content earns nothing until approval.
	err = db.Where("user_id = ?", author).First(&models.UserScore{}).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDispatchReplayDoesNotDoubleCount(t *testing.T) {
	db := setupTestDB(t)
	orc, _ := testOrchestrator(t, db)
	author := uuid.New()
	evt := Event{
		ID: "e1", Kind: KindContentCreated, UserID: author,
		ContentID: "c1", Body: "text", CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, orc.Dispatch(evt))
	require.NoError(t, orc.Dispatch(evt))
	require.NoError(t, orc.Dispatch(evt))

	ledger := ledgerFor(t, db, author)
	assert.Equal(t, int64(1), ledger.PostsCreated)

	var items int64
	db.Model(&models.ReviewQueueItem{}).Count(&items)
	assert.Equal(t, int64(1), items)

	var records int64
	db.Model(&models.EventRecord{}).Count(&records)
	assert.Equal(t, int64(1), records)
}

func TestDispatchAutoPublishedPostEarnsPoints(t *testing.T) {
	db := setupTestDB(t)
	orc, _ := testOrchestrator(t, db)
	author := uuid.New()

	require.NoError(t, db.Create(&models.TrustLevel{
		ID: uuid.New(), UserID: author, Level: 2, ComputedAt: time.Now().UTC(),
	}).Error)

	err := orc.Dispatch(Event{
		ID: "e1", Kind: KindContentCreated, UserID: author,
		ContentID: "c1", Body: "text", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	var items int64
	db.Model(&models.ReviewQueueItem{}).Count(&items)
	assert.Zero(t, items)

	var score models.UserScore
	require.NoError(t, db.Where("user_id = ?", author).First(&score).Error)
	assert.Equal(t, int64(5), score.Points)
}

func TestDispatchLikeCreditsBothLedgers(t *testing.T) {
	db := setupTestDB(t)
	orc, _ := testOrchestrator(t, db)
	liker := uuid.New()
	author := uuid.New()

	err := orc.Dispatch(Event{
		ID: "e1", Kind: KindContentLiked, UserID: liker,
		AuthorID: author, ContentID: "c1", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), ledgerFor(t, db, author).LikesReceived)
	assert.Equal(t, int64(1), ledgerFor(t, db, liker).LikesGiven)

	// Like points accrue to the author, not the liker.
	var score models.UserScore
	require.NoError(t, db.Where("user_id = ?", author).First(&score).Error)
	assert.Equal(t, int64(2), score.Points)
	err = db.Where("user_id = ?", liker).First(&models.UserScore{}).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestLedgerStageRaceCountsOnce(t *testing.T) {
	db := setupTestDB(t)
	orc, _ := testOrchestrator(t, db)
	liker := uuid.New()
	author := uuid.New()
	evt := Event{
		ID: "e1", Kind: KindContentLiked, UserID: liker,
		AuthorID: author, ContentID: "c1", CreatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.EventRecord{
		ID: uuid.New(), EventID: "e1", Kind: evt.Kind,
		Payload: datatypes.JSON(payload),
		Status:  models.EventStatusPending, Stage: stageLedger,
	}).Error)

	// Two workers that both read the cursor at the ledger stage before
	// either advanced it: the loser's increments must roll back.
	require.NoError(t, orc.runLedger(evt))
	require.NoError(t, orc.runLedger(evt))

	assert.Equal(t, int64(1), ledgerFor(t, db, author).LikesReceived)
	assert.Equal(t, int64(1), ledgerFor(t, db, liker).LikesGiven)
	assert.Equal(t, stageLedger+1, eventStatus(t, db, "e1").Stage)
}

func TestDispatchTwoLikesCountTwice(t *testing.T) {
	db := setupTestDB(t)
	orc, _ := testOrchestrator(t, db)
	author := uuid.New()

	for _, eventID := range []string{"like-1", "like-2"} {
		err := orc.Dispatch(Event{
			ID: eventID, Kind: KindContentLiked, UserID: uuid.New(),
			AuthorID: author, ContentID: "c1", CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}
	// A redelivery of the first like changes nothing.
	require.NoError(t, orc.Dispatch(Event{
		ID: "like-1", Kind: KindContentLiked, UserID: uuid.New(),
		AuthorID: author, ContentID: "c1", CreatedAt: time.Now().UTC(),
	}))

	assert.Equal(t, int64(2), ledgerFor(t, db, author).LikesReceived)

	var score models.UserScore
	require.NoError(t, db.Where("user_id = ?", author).First(&score).Error)
	assert.Equal(t, int64(4), score.Points)
}

func TestDispatchVisitRaisesTier(t *testing.T) {
	db := setupTestDB(t)
	orc, notifier := testOrchestrator(t, db)
	userID := uuid.New()

	// One visit short of the first tier.
	require.NoError(t, db.Create(&models.ActivityLedger{
		ID: uuid.New(), UserID: userID,
		DaysVisited: 4, PostsRead: 30, TimeSpentMinutes: 60,
	}).Error)

	err := orc.Dispatch(Event{
		ID: "e1", Kind: KindUserVisited, UserID: userID,
		Minutes: 10, PostsRead: 3, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	ledger := ledgerFor(t, db, userID)
	assert.Equal(t, int64(5), ledger.DaysVisited)
	assert.Equal(t, int64(33), ledger.PostsRead)
	assert.Equal(t, int64(70), ledger.TimeSpentMinutes)

	var level models.TrustLevel
	require.NoError(t, db.Where("user_id = ?", userID).First(&level).Error)
	assert.Equal(t, 1, level.Level)
	assert.Equal(t, []int{1}, notifier.tierChanges)

	// The tier raise is itself a qualifying event.
	var badgeCount int64
	db.Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id = ?", userID, "trusted-member").
		Count(&badgeCount)
	assert.Equal(t, int64(1), badgeCount)
}

func TestDispatchVisitReplayRaisesOnce(t *testing.T) {
	db := setupTestDB(t)
	orc, notifier := testOrchestrator(t, db)
	userID := uuid.New()

	require.NoError(t, db.Create(&models.ActivityLedger{
		ID: uuid.New(), UserID: userID,
		DaysVisited: 4, PostsRead: 30, TimeSpentMinutes: 60,
	}).Error)

	evt := Event{
		ID: "e1", Kind: KindUserVisited, UserID: userID, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, orc.Dispatch(evt))
	require.NoError(t, orc.Dispatch(evt))

	assert.Equal(t, int64(5), ledgerFor(t, db, userID).DaysVisited)
	assert.Equal(t, []int{1}, notifier.tierChanges)
}

func TestDispatchReportRecordsReport(t *testing.T) {
	db := setupTestDB(t)
	orc, _ := testOrchestrator(t, db)
	reporter := uuid.New()
	author := uuid.New()

	evt := Event{
		ID: "e1", Kind: KindContentReported, UserID: reporter,
		AuthorID: author, ContentID: "c1", Reason: "off topic",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, orc.Dispatch(evt))
	require.NoError(t, orc.Dispatch(evt))

	var reports []models.Report
	require.NoError(t, db.Where("reported_user_id = ?", author).Find(&reports).Error)
	require.Len(t, reports, 1)
	assert.Equal(t, reporter, reports[0].ReporterID)
	assert.Equal(t, "off topic", reports[0].Reason)
}

func TestDispatchExternalApproval(t *testing.T) {
	db := setupTestDB(t)
	_, trust, gamification, review, notifier := testEngines(t, db)
	orc := NewOrchestrator(db, review, trust, gamification, 2, time.Millisecond)
	author := uuid.New()
	admin := uuid.New()

	admission, err := review.Admit(Event{
		ID: "create:c1", Kind: KindContentCreated, UserID: author,
		ContentID: "c1", Body: "text", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, DecisionEnqueue, admission.Decision)

	err = orc.Dispatch(Event{
		ID: "e1", Kind: KindApprovedExternally, UserID: admin,
		AuthorID: author, ContentID: "c1", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	var item models.ReviewQueueItem
	require.NoError(t, db.Where("content_id = ?", "c1").First(&item).Error)
	assert.Equal(t, models.ReviewStatusApproved, item.Status)
	assert.Equal(t, []string{"c1"}, notifier.approved)

	// External approval points accrue to the author.
	var score models.UserScore
	require.NoError(t, db.Where("user_id = ?", author).First(&score).Error)
	assert.Equal(t, int64(10), score.Points)
}

func TestDispatchValidation(t *testing.T) {
	db := setupTestDB(t)
	orc, _ := testOrchestrator(t, db)

	err := orc.Dispatch(Event{Kind: KindUserVisited, UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = orc.Dispatch(Event{ID: "e1", UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = orc.Dispatch(Event{ID: "e1", Kind: KindUserVisited})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDispatchParkedEventRequiresReplay(t *testing.T) {
	db := setupTestDB(t)
	orc, _ := testOrchestrator(t, db)
	userID := uuid.New()
	evt := Event{
		ID: "e1", Kind: KindUserVisited, UserID: userID, CreatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.EventRecord{
		ID: uuid.New(), EventID: "e1", Kind: evt.Kind,
		Payload: datatypes.JSON(payload),
		Status:  models.EventStatusParked, Stage: stageLedger,
		Attempts: 2, LastError: "ledger unavailable",
	}).Error)

	err = orc.Dispatch(evt)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidInput)

	parked, total, err := orc.Parked(10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, parked, 1)
	assert.Equal(t, "e1", parked[0].EventID)
}

func TestReplayParkedResumesFromCursor(t *testing.T) {
	db := setupTestDB(t)
	orc, _ := testOrchestrator(t, db)
	userID := uuid.New()
	evt := Event{
		ID: "e1", Kind: KindUserVisited, UserID: userID,
		Minutes: 10, CreatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	// Parked after admission, before the ledger stage ran.
	require.NoError(t, db.Create(&models.EventRecord{
		ID: uuid.New(), EventID: "e1", Kind: evt.Kind,
		Payload: datatypes.JSON(payload),
		Status:  models.EventStatusParked, Stage: stageLedger,
		Attempts: 2, LastError: "ledger unavailable",
	}).Error)

	require.NoError(t, orc.ReplayParked("e1"))

	rec := eventStatus(t, db, "e1")
	assert.Equal(t, models.EventStatusDone, rec.Status)
	assert.Equal(t, stageCount, rec.Stage)
	assert.Zero(t, rec.Attempts)
	assert.Empty(t, rec.LastError)

	ledger := ledgerFor(t, db, userID)
	assert.Equal(t, int64(1), ledger.DaysVisited)
	assert.Equal(t, int64(10), ledger.TimeSpentMinutes)
}

func TestReplayParkedUnknownEvent(t *testing.T) {
	db := setupTestDB(t)
	orc, _ := testOrchestrator(t, db)

	err := orc.ReplayParked("missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestReplayParkedDoneEventIsNoop(t *testing.T) {
	db := setupTestDB(t)
	orc, _ := testOrchestrator(t, db)
	userID := uuid.New()

	evt := Event{
		ID: "e1", Kind: KindUserVisited, UserID: userID, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, orc.Dispatch(evt))
	require.NoError(t, orc.ReplayParked("e1"))

	assert.Equal(t, int64(1), ledgerFor(t, db, userID).DaysVisited)
}

func TestDispatchUnknownKindCompletes(t *testing.T) {
	db := setupTestDB(t)
	orc, _ := testOrchestrator(t, db)

	// Kinds this engine does not know pass through every stage untouched
	// so upstream never sees spurious failures for new event types.
	err := orc.Dispatch(Event{
		ID: "e1", Kind: "content_archived", UserID: uuid.New(), CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusDone, eventStatus(t, db, "e1").Status)
}
