// Package sanitize redacts sensitive content from text entering and leaving
// the gateway.
package sanitize

import (
	"context"
	"fmt"

	"github.com/af-corp/containment-gateway/internal/config"
)

// Stage names which piece of a request is being sanitized.
type Stage string

const (
	StagePrompt   Stage = "prompt"
	StageContext  Stage = "context"
	StageResponse Stage = "response"
)

// Compliance flags attached to a Result.
const (
	FlagPIIRedacted    = "PII_REDACTED"
	FlagSecretRedacted = "SECRET_REDACTED"
	FlagCOPPA          = "COPPA"
	FlagFERPA          = "FERPA"
)

// Meta carries the caller scope that influences compliance flags.
type Meta struct {
	Stage     Stage  `json:"stage"`
	SessionID string `json:"session_id,omitempty"`
	TenantID  string `json:"tenant_id,omitempty"`
	SchoolID  string `json:"school_id,omitempty"`
	IsMinor   bool   `json:"is_minor"`
}

// Item is one redacted span. Only its kind is reported, never the content.
type Item struct {
	Type string `json:"type"` // e.g. "EMAIL", "AWS_ACCESS_KEY"
	Kind string `json:"kind"` // "pii" or "secret"
}

type Result struct {
	SanitizedContent string   `json:"sanitized_content"`
	WasModified      bool     `json:"was_modified"`
	DetectedItems    []Item   `json:"detected_items"`
	ComplianceFlags  []string `json:"compliance_flags"`
}

// Sanitizer redacts text. Implementations never retry; any error must abort
// the request.
type Sanitizer interface {
	Sanitize(ctx context.Context, text string, meta Meta) (*Result, error)
}

// New builds the sanitizer selected by cfg.Mode. The grpc client is
// connected before it is returned.
func New(cfg func() config.SanitizerConfig) (Sanitizer, error) {
	switch mode := cfg().Mode; mode {
	case "local":
		return NewLocal(), nil
	case "grpc":
		c := NewClient(cfg)
		if err := c.Connect(); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown sanitizer mode %q", mode)
	}
}
