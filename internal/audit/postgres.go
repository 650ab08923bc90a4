package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// execer is satisfied by *pgxpool.Pool and pgx.Conn.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink writes entries to the crisis_audit table.
type PostgresSink struct {
	db execer
}

func NewPostgresSink(db execer) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Record(ctx context.Context, e Entry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO crisis_audit (
			audit_id, recorded_at, user_id, session_id, is_minor, tenant_id, school_id,
			severity, categories, confidence, resources_shown,
			parent_notified, content_blocked, escalated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (audit_id) DO NOTHING
	`,
		e.AuditID, e.Timestamp, e.UserID, e.SessionID, e.IsMinor,
		nilIfEmpty(e.TenantID), nilIfEmpty(e.SchoolID),
		e.Severity, e.Categories, e.Confidence, e.ResourcesShown,
		e.ParentNotified, e.ContentBlocked, e.Escalated,
	)
	if err != nil {
		return fmt.Errorf("insert crisis_audit: %w", err)
	}
	return nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
