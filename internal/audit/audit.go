// Package audit persists crisis detection records.
package audit

import (
	"context"
	"time"
)

// Entry is one crisis audit record. It never contains user text.
type Entry struct {
	AuditID        string    `json:"audit_id"`
	Timestamp      time.Time `json:"timestamp"`
	UserID         string    `json:"user_id"`
	SessionID      string    `json:"session_id"`
	IsMinor        bool      `json:"is_minor"`
	TenantID       string    `json:"tenant_id,omitempty"`
	SchoolID       string    `json:"school_id,omitempty"`
	Severity       string    `json:"severity"`
	Categories     []string  `json:"categories"`
	Confidence     float64   `json:"confidence"`
	ResourcesShown []string  `json:"resources_shown"`
	ParentNotified bool      `json:"parent_notified"`
	ContentBlocked bool      `json:"content_blocked"`
	Escalated      bool      `json:"escalated"`
}

// Sink stores audit entries.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}
