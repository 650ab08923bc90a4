package sanitize

import "regexp"

// Pattern defines one redaction rule.
type Pattern struct {
	Type  string
	Kind  string
	Regex *regexp.Regexp
}

// DefaultPatterns returns the built-in rules. Secrets run first so that
// credentials embedded in URLs are replaced whole before PII rules see them.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Type: "PRIVATE_KEY", Kind: "secret", Regex: regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----[\s\S]*?(?:-----END (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----|$)`)},
		{Type: "CONNECTION_STRING", Kind: "secret", Regex: regexp.MustCompile(`(?:postgres|postgresql|mysql|mongodb|redis)://[^\s]+`)},
		{Type: "AWS_ACCESS_KEY", Kind: "secret", Regex: regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
		{Type: "GITHUB_TOKEN", Kind: "secret", Regex: regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`)},
		{Type: "STRIPE_KEY", Kind: "secret", Regex: regexp.MustCompile(`sk_live_[A-Za-z0-9]{24,}`)},
		{Type: "JWT", Kind: "secret", Regex: regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`)},
		{Type: "CREDENTIAL", Kind: "secret", Regex: regexp.MustCompile(`(?i)\b(?:password|passwd|secret|api_key|apikey)[ \t]*[=:][ \t]*\S+`)},

		{Type: "EMAIL", Kind: "pii", Regex: regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`)},
		{Type: "SSN", Kind: "pii", Regex: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
		{Type: "CREDIT_CARD", Kind: "pii", Regex: regexp.MustCompile(`\b(?:\d{4}[ -]?){3}\d{4}\b`)},
		{Type: "PHONE", Kind: "pii", Regex: regexp.MustCompile(`(?:\+1[ .-]?)?\(?\b\d{3}\)?[ .-]\d{3}[ .-]\d{4}\b`)},
		{Type: "IP_ADDRESS", Kind: "pii", Regex: regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)},
		{Type: "STREET_ADDRESS", Kind: "pii", Regex: regexp.MustCompile(`\b\d{1,5}\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\s+(?:Street|St|Avenue|Ave|Road|Rd|Lane|Ln|Drive|Dr|Boulevard|Blvd)\b\.?`)},
	}
}
