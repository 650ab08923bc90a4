package sanitize

import "context"

// Local redacts with in-process regex rules. It is used when no sanitizer
// service is deployed and in tests.
type Local struct {
	patterns []Pattern
}

func NewLocal() *Local {
	return &Local{patterns: DefaultPatterns()}
}

func NewLocalWithPatterns(patterns []Pattern) *Local {
	return &Local{patterns: patterns}
}

// Sanitize replaces every match with a [REDACTED:<TYPE>] marker.
func (l *Local) Sanitize(ctx context.Context, text string, meta Meta) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{SanitizedContent: text}
	var pii, secret bool
	for _, p := range l.patterns {
		n := 0
		res.SanitizedContent = p.Regex.ReplaceAllStringFunc(res.SanitizedContent, func(string) string {
			n++
			return "[REDACTED:" + p.Type + "]"
		})
		for range n {
			res.DetectedItems = append(res.DetectedItems, Item{Type: p.Type, Kind: p.Kind})
		}
		if n > 0 {
			switch p.Kind {
			case "secret":
				secret = true
			default:
				pii = true
			}
		}
	}

	res.WasModified = res.SanitizedContent != text
	res.ComplianceFlags = complianceFlags(pii, secret, meta)
	return res, nil
}

func complianceFlags(pii, secret bool, meta Meta) []string {
	var flags []string
	if pii {
		flags = append(flags, FlagPIIRedacted)
	}
	if secret {
		flags = append(flags, FlagSecretRedacted)
	}
	if pii && meta.IsMinor {
		flags = append(flags, FlagCOPPA)
	}
	if pii && meta.SchoolID != "" {
		flags = append(flags, FlagFERPA)
	}
	return flags
}
