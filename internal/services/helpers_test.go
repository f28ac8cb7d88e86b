package services

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/forumkit/trustcore/internal/models"
	"github.com/forumkit/trustcore/internal/rules"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trustcore.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.ActivityLedger{},
		&models.TrustLevel{},
		&models.Badge{},
		&models.UserBadge{},
		&models.UserScore{},
		&models.PointLog{},
		&models.ReviewQueueItem{},
		&models.Report{},
		&models.EventRecord{},
	)
	require.NoError(t, err)
	return db
}

// recordingNotifier captures outbound notifications for assertions.
type recordingNotifier struct {
	mu          sync.Mutex
	admissions  []string
	approved    []string
	rejected    []string
	tierChanges []int
	badges      []string
}

func (r *recordingNotifier) AdmissionDecided(contentID string, decision AdmissionDecision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admissions = append(r.admissions, contentID+":"+string(decision))
}

func (r *recordingNotifier) ContentApproved(contentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approved = append(r.approved, contentID)
}

func (r *recordingNotifier) ContentRejected(contentID, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, contentID+":"+reason)
}

func (r *recordingNotifier) TierChanged(_ uuid.UUID, _, newLevel int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tierChanges = append(r.tierChanges, newLevel)
}

func (r *recordingNotifier) BadgeAwarded(_ uuid.UUID, badgeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.badges = append(r.badges, badgeID)
}

func testEngines(t *testing.T, db *gorm.DB) (*rules.Rules, *TrustService, *GamificationService, *ReviewService, *recordingNotifier) {
	t.Helper()

	ruleSet := rules.Defaults()
	notifier := &recordingNotifier{}
	trust := NewTrustService(db, ruleSet, notifier)
	gamification := NewGamificationService(db, ruleSet, notifier)
	require.NoError(t, gamification.SeedCatalog())
	review := NewReviewService(db, ruleSet, trust, gamification, notifier)
	return ruleSet, trust, gamification, review, notifier
}
