package router

import (
	"strings"
	"unicode"
)

// Placeholder replaces content with a synthetic string of the same shape:
// letters become 'x', digits become '0', everything else is kept.
func Placeholder(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			b.WriteByte('x')
		case unicode.IsDigit(r):
			b.WriteByte('0')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// hybridTarget picks the cloud backend used for hybrid calls: the default if
// it is a cloud route, otherwise the first configured of openai, anthropic.
func hybridTarget(def Route, has func(Route) bool) (Route, bool) {
	if def.IsCloud() && has(def) {
		return def, true
	}
	for _, r := range []Route{RouteOpenAI, RouteAnthropic} {
		if has(r) {
			return r, true
		}
	}
	return "", false
}
