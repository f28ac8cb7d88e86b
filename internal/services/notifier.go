package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// Notifier delivers outbound notifications to the content store and the
// notification system. Deliveries are fire-and-forget: they never hold a
// lock on the state they announce and never roll it back on failure.
type Notifier interface {
	AdmissionDecided(contentID string, decision AdmissionDecision)
	ContentApproved(contentID string)
	ContentRejected(contentID, reason string)
	TierChanged(userID uuid.UUID, oldLevel, newLevel int)
	BadgeAwarded(userID uuid.UUID, badgeID string)
}

// NoopNotifier drops every notification. Used when no webhook URL is
// configured and in tests.
type NoopNotifier struct{}

func (NoopNotifier) AdmissionDecided(string, AdmissionDecision) {}
func (NoopNotifier) ContentApproved(string)                     {}
func (NoopNotifier) ContentRejected(string, string)             {}
func (NoopNotifier) TierChanged(uuid.UUID, int, int)            {}
func (NoopNotifier) BadgeAwarded(uuid.UUID, string)             {}

// WebhookNotifier posts JSON notifications to a single webhook endpoint
// with retry and exponential backoff.
type WebhookNotifier struct {
	url    string
	client *retryablehttp.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	client := retryablehttp.NewClient()
	client.RetryMax = 4
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 8 * time.Second
	client.Logger = nil
	return &WebhookNotifier{url: url, client: client}
}

type notification struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

func (n *WebhookNotifier) send(kind string, payload interface{}) {
	go func() {
		body, err := json.Marshal(notification{Type: kind, Payload: payload, SentAt: time.Now().UTC()})
		if err != nil {
			slog.Error("failed to encode notification", "type", kind, "error", err)
			return
		}
		resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
		if err != nil {
			wrapped := fmt.Errorf("%w: %s: %v", ErrNotificationFailed, kind, err)
			slog.Error("notification delivery failed", "type", kind, "error", err)
			sentry.CaptureException(wrapped)
			return
		}
		resp.Body.Close()
	}()
}

func (n *WebhookNotifier) AdmissionDecided(contentID string, decision AdmissionDecision) {
	n.send("admission_decision", map[string]interface{}{
		"content_id": contentID,
		"decision":   decision,
	})
}

func (n *WebhookNotifier) ContentApproved(contentID string) {
	n.send("content_approved", map[string]interface{}{"content_id": contentID})
}

func (n *WebhookNotifier) ContentRejected(contentID, reason string) {
	n.send("content_rejected", map[string]interface{}{
		"content_id": contentID,
		"reason":     reason,
	})
}

func (n *WebhookNotifier) TierChanged(userID uuid.UUID, oldLevel, newLevel int) {
	n.send("tier_changed", map[string]interface{}{
		"user_id":   userID,
		"old_level": oldLevel,
		"new_level": newLevel,
	})
}

func (n *WebhookNotifier) BadgeAwarded(userID uuid.UUID, badgeID string) {
	n.send("badge_awarded", map[string]interface{}{
		"user_id":  userID,
		"badge_id": badgeID,
	})
}
