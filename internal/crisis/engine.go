package crisis

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/af-corp/containment-gateway/internal/config"
	"github.com/af-corp/containment-gateway/internal/types"
)

const (
	excerptRunes      = 24
	maxMatchedSamples = 5
)

// PatternMatch records which pattern fired. Only the pattern source is kept,
// never the matched user text.
type PatternMatch struct {
	Category Category `json:"category"`
	Excerpt  string   `json:"excerpt"`
}

// Result is the outcome of one Analyze call.
type Result struct {
	Detected                   bool           `json:"detected"`
	Severity                   Severity       `json:"severity"`
	Categories                 []Category     `json:"categories"`
	Confidence                 float64        `json:"confidence"`
	MatchedPatterns            []PatternMatch `json:"matched_patterns"`
	Response                   Response       `json:"response"`
	RequiresParentNotification bool           `json:"requires_parent_notification"`
	AuditID                    string         `json:"audit_id"`
}

// HasCategory reports whether c was matched.
func (r *Result) HasCategory(c Category) bool {
	for _, have := range r.Categories {
		if have == c {
			return true
		}
	}
	return false
}

// Detector scans text against a fixed category table.
type Detector struct {
	defs  []Definition
	cfg   func() config.CrisisConfig
	newID func() (uuid.UUID, error)
}

// NewDetector builds a detector over DefaultDefinitions. cfg is read on every
// call so reloads take effect immediately.
func NewDetector(cfg func() config.CrisisConfig) *Detector {
	return NewDetectorWithDefinitions(DefaultDefinitions(), cfg)
}

func NewDetectorWithDefinitions(defs []Definition, cfg func() config.CrisisConfig) *Detector {
	return &Detector{defs: defs, cfg: cfg, newID: uuid.NewRandom}
}

// Analyze classifies text. cc supplies the minor flag used for the guardian
// notification decision.
func (d *Detector) Analyze(text string, cc types.ContainmentContext) (*Result, error) {
	cfg := d.cfg()

	id, err := d.newID()
	if err != nil {
		return nil, fmt.Errorf("generate audit id: %w", err)
	}

	res := &Result{AuditID: id.String()}
	matches := 0
	for _, def := range d.defs {
		hit := false
		for _, p := range def.Patterns {
			if !p.MatchString(text) {
				continue
			}
			matches++
			hit = true
			if len(res.MatchedPatterns) < maxMatchedSamples {
				res.MatchedPatterns = append(res.MatchedPatterns, PatternMatch{
					Category: def.Category,
					Excerpt:  excerpt(strings.TrimPrefix(p.String(), "(?i)")),
				})
			}
		}
		if hit {
			res.Categories = append(res.Categories, def.Category)
			res.Severity = maxSeverity(res.Severity, def.Severity)
		}
	}

	if matches == 0 {
		return res, nil
	}

	res.Detected = true
	res.Confidence = min(0.5+0.25*float64(matches), 1.0)
	res.Response = BuildResponse(res.Severity, res.Categories, cfg.BlockHighSeverity)
	res.RequiresParentNotification = cc.IsMinor && res.Severity.AtLeast(notificationThreshold(cfg))
	return res, nil
}

func notificationThreshold(cfg config.CrisisConfig) Severity {
	sev, err := ParseSeverity(cfg.ParentNotificationThreshold)
	if err != nil {
		slog.Warn("invalid parent notification threshold, using high",
			"threshold", cfg.ParentNotificationThreshold)
		return SeverityHigh
	}
	return sev
}

func excerpt(src string) string {
	r := []rune(src)
	if len(r) <= excerptRunes {
		return src
	}
	return string(r[:excerptRunes])
}
