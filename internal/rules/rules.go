package rules

import (
	"fmt"
)

// MaxLevel is the highest trust tier. Tier 0 is the default and has no
// requirements.
const MaxLevel = 4

// TierRequirement is the conjunction of counter thresholds a ledger must
// meet for one tier. A zero threshold is trivially satisfied.
type TierRequirement struct {
	Level            int   `json:"level"`
	DaysVisited      int64 `json:"days_visited"`
	PostsRead        int64 `json:"posts_read"`
	TimeSpentMinutes int64 `json:"time_spent_minutes"`
	LikesReceived    int64 `json:"likes_received"`
	LikesGiven       int64 `json:"likes_given"`
	TopicsCreated    int64 `json:"topics_created"`
	PostsCreated     int64 `json:"posts_created"`
}

// BadgeRule describes one catalog entry. Threshold badges qualify against
// a named metric; event badges qualify against a specific action kind.
type BadgeRule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Metric      string `json:"metric,omitempty"`
	Threshold   int64  `json:"threshold,omitempty"`
	Event       string `json:"event,omitempty"`
}

// PriorityWeights parameterize the review-queue priority score. The shape
// of the formula (tier + keyword + report + age terms, each monotonic) is
// the contract; the weights are configuration.
type PriorityWeights struct {
	LevelWeight  int64 `json:"level_weight"`
	KeywordBonus int64 `json:"keyword_bonus"`
	ReportWeight int64 `json:"report_weight"`
	AgeWeight    int64 `json:"age_weight"`
}

// Rules is the immutable configuration registry for all three engines:
// tier requirement table, badge catalog, point values, priority weights,
// and the flagged keyword list. Loaded once per process, never reloaded.
type Rules struct {
	AutoPublishLevel int               `json:"auto_publish_level"`
	Tiers            []TierRequirement `json:"tiers"`
	Badges           []BadgeRule       `json:"badges"`
	Points           map[string]int64  `json:"points"`
	Weights          PriorityWeights   `json:"weights"`
	FlaggedKeywords  []string          `json:"flagged_keywords"`
}

// Defaults returns the built-in rules used when no registry file is
// configured.
func Defaults() *Rules {
	return &Rules{
		AutoPublishLevel: 1,
		Tiers: []TierRequirement{
			{Level: 1, DaysVisited: 5, PostsRead: 30, TimeSpentMinutes: 60},
			{Level: 2, DaysVisited: 15, PostsRead: 100, TimeSpentMinutes: 240, LikesReceived: 5},
			{Level: 3, DaysVisited: 50, PostsRead: 500, TimeSpentMinutes: 1500, LikesReceived: 30, LikesGiven: 30},
			{Level: 4, DaysVisited: 150, PostsRead: 2000, TimeSpentMinutes: 6000, LikesReceived: 100, LikesGiven: 100, PostsCreated: 50},
		},
		Badges: []BadgeRule{
			{ID: "regular-reader", Name: "Regular Reader", Description: "Read 100 posts", Type: "threshold", Metric: "posts_read", Threshold: 100},
			{ID: "committed", Name: "Committed", Description: "Visited on 30 days", Type: "threshold", Metric: "days_visited", Threshold: 30},
			{ID: "well-liked", Name: "Well Liked", Description: "Received 25 likes", Type: "threshold", Metric: "likes_received", Threshold: 25},
			{ID: "prolific", Name: "Prolific", Description: "Created 20 posts", Type: "threshold", Metric: "posts_created", Threshold: 20},
			{ID: "point-collector", Name: "Point Collector", Description: "Earned 100 points", Type: "threshold", Metric: "points", Threshold: 100},
			{ID: "first-approval", Name: "First Approval", Description: "Had a post approved by a moderator", Type: "event", Event: "post_approved"},
			{ID: "problem-solver", Name: "Problem Solver", Description: "Had a reply marked as solution", Type: "event", Event: "solution_marked"},
			{ID: "trusted-member", Name: "Trusted Member", Description: "Reached a higher trust level", Type: "event", Event: "tier_changed"},
		},
		Points: map[string]int64{
			"content_created":             5,
			"content_liked":               2,
			"user_visited":                0,
			"solution_marked":             15,
			"post_approved":               10,
			"tier_changed":                0,
			"content_approved_externally": 10,
		},
		Weights: PriorityWeights{
			LevelWeight:  100,
			KeywordBonus: 250,
			ReportWeight: 50,
			AgeWeight:    10,
		},
		FlaggedKeywords: []string{
			"spam", "scam", "phishing", "malware", "crypto giveaway",
			"free money", "click here", "buy now",
		},
	}
}

// Validate checks internal consistency of a loaded registry.
func (r *Rules) Validate() error {
	if r.AutoPublishLevel < 0 || r.AutoPublishLevel > MaxLevel {
		return fmt.Errorf("auto_publish_level %d out of range 0..%d", r.AutoPublishLevel, MaxLevel)
	}
	if len(r.Tiers) == 0 {
		return fmt.Errorf("tier requirement table is empty")
	}
	for i, t := range r.Tiers {
		if t.Level != i+1 {
			return fmt.Errorf("tier table must list levels 1..%d in order, got level %d at index %d", MaxLevel, t.Level, i)
		}
	}
	if len(r.Tiers) > MaxLevel {
		return fmt.Errorf("tier table defines %d levels, max is %d", len(r.Tiers), MaxLevel)
	}
	w := r.Weights
	if w.LevelWeight < 0 || w.KeywordBonus < 0 || w.ReportWeight < 0 || w.AgeWeight < 0 {
		return fmt.Errorf("priority weights must be non-negative")
	}
	seen := make(map[string]bool, len(r.Badges))
	for _, b := range r.Badges {
		if b.ID == "" {
			return fmt.Errorf("badge with empty id")
		}
		if seen[b.ID] {
			return fmt.Errorf("duplicate badge id %q", b.ID)
		}
		seen[b.ID] = true
		switch b.Type {
		case "threshold":
			if b.Metric == "" || b.Threshold <= 0 {
				return fmt.Errorf("threshold badge %q needs a metric and a positive threshold", b.ID)
			}
		case "event":
			if b.Event == "" {
				return fmt.Errorf("event badge %q needs an event kind", b.ID)
			}
		default:
			return fmt.Errorf("badge %q has unknown type %q", b.ID, b.Type)
		}
	}
	return nil
}
