// Package notify delivers guardian notifications for crisis detections.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/af-corp/containment-gateway/internal/crisis"
	"github.com/af-corp/containment-gateway/internal/types"
)

// Callback delivers one guardian notification. Failures are reported to the
// caller for logging only.
type Callback func(ctx context.Context, cc types.ContainmentContext, res *crisis.Result) error

var (
	// ErrThrottled is returned when an identical notification was sent recently.
	ErrThrottled = errors.New("notification throttled")
	// ErrNotConfigured is returned when there is nowhere to deliver to.
	ErrNotConfigured = errors.New("notification target not configured")
)

// Event is the notification payload. It never carries user text.
type Event struct {
	Timestamp  string   `json:"timestamp"`
	AuditID    string   `json:"audit_id"`
	GuardianID string   `json:"guardian_id"`
	UserID     string   `json:"user_id"`
	SessionID  string   `json:"session_id"`
	TenantID   string   `json:"tenant_id,omitempty"`
	SchoolID   string   `json:"school_id,omitempty"`
	Severity   string   `json:"severity"`
	Categories []string `json:"categories"`
	Resources  []string `json:"resources"`
}

// NewEvent builds the payload for a detection.
func NewEvent(cc types.ContainmentContext, res *crisis.Result, now time.Time) Event {
	ev := Event{
		Timestamp:  now.UTC().Format(time.RFC3339),
		AuditID:    res.AuditID,
		GuardianID: cc.ParentGuardianID,
		UserID:     cc.UserID,
		SessionID:  cc.SessionID,
		TenantID:   cc.TenantID,
		SchoolID:   cc.SchoolID,
		Severity:   string(res.Severity),
	}
	for _, c := range res.Categories {
		ev.Categories = append(ev.Categories, string(c))
	}
	for _, r := range res.Response.Resources {
		ev.Resources = append(ev.Resources, r.Name)
	}
	return ev
}
