package router

import (
	"testing"

	"github.com/af-corp/containment-gateway/internal/types"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name         string
		level        types.ContainmentLevel
		reqType      types.RequestType
		privacyFirst bool
		def          Route
		want         Route
	}{
		{"strict ignores default", types.LevelStrict, types.TypeChat, false, RouteOpenAI, RouteLocal},
		{"strict ignores privacy", types.LevelStrict, types.TypeChat, true, RouteAnthropic, RouteLocal},
		{"unknown level is strict", types.ContainmentLevel("open"), types.TypeChat, false, RouteOpenAI, RouteLocal},
		{"privacy code review", types.LevelStandard, types.TypeCodeReview, true, RouteOpenAI, RouteLocal},
		{"privacy writing check", types.LevelRelaxed, types.TypeWritingCheck, true, RouteOpenAI, RouteLocal},
		{"privacy embedding", types.LevelStandard, types.TypeEmbedding, true, RouteOpenAI, RouteLocal},
		{"privacy chat hybrid", types.LevelStandard, types.TypeChat, true, RouteOpenAI, RouteHybrid},
		{"privacy completion hybrid", types.LevelRelaxed, types.TypeCompletion, true, RouteLocal, RouteHybrid},
		{"default openai", types.LevelStandard, types.TypeChat, false, RouteOpenAI, RouteOpenAI},
		{"default anthropic", types.LevelRelaxed, types.TypeCodeReview, false, RouteAnthropic, RouteAnthropic},
		{"default local", types.LevelRelaxed, types.TypeCompletion, false, RouteLocal, RouteLocal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.level, tt.reqType, tt.privacyFirst, tt.def); got != tt.want {
				t.Errorf("Decide = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecide_StrictAlwaysLocal(t *testing.T) {
	reqTypes := []types.RequestType{types.TypeCompletion, types.TypeChat, types.TypeEmbedding, types.TypeCodeReview, types.TypeWritingCheck}
	for _, def := range []Route{RouteLocal, RouteOpenAI, RouteAnthropic, RouteHybrid} {
		for _, rt := range reqTypes {
			for _, pf := range []bool{true, false} {
				if got := Decide(types.LevelStrict, rt, pf, def); got != RouteLocal {
					t.Errorf("strict/%s/%v/%s routed to %s", rt, pf, def, got)
				}
			}
		}
	}
}

func TestPlaceholder(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"Hello, World 42!", "xxxxx, xxxxx 00!"},
		{"line1\nline2\ttab", "xxxx0\nxxxx0\txxx"},
		{"Ünïcödé 7", "xxxxxxx 0"},
	}
	for _, tt := range tests {
		if got := Placeholder(tt.in); got != tt.want {
			t.Errorf("Placeholder(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHybridTarget(t *testing.T) {
	only := func(routes ...Route) func(Route) bool {
		return func(r Route) bool {
			for _, have := range routes {
				if have == r {
					return true
				}
			}
			return false
		}
	}
	tests := []struct {
		name   string
		def    Route
		has    func(Route) bool
		want   Route
		wantOK bool
	}{
		{"cloud default", RouteAnthropic, only(RouteOpenAI, RouteAnthropic), RouteAnthropic, true},
		{"local default prefers openai", RouteLocal, only(RouteOpenAI, RouteAnthropic), RouteOpenAI, true},
		{"falls back to anthropic", RouteLocal, only(RouteAnthropic), RouteAnthropic, true},
		{"unconfigured cloud default", RouteOpenAI, only(RouteAnthropic), RouteAnthropic, true},
		{"no cloud", RouteLocal, only(RouteLocal), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := hybridTarget(tt.def, tt.has)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("hybridTarget = %s, %v; want %s, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseRoute(t *testing.T) {
	if r, ok := ParseRoute("anthropic"); !ok || r != RouteAnthropic {
		t.Errorf("ParseRoute(anthropic) = %s, %v", r, ok)
	}
	if _, ok := ParseRoute("gemini"); ok {
		t.Error("expected unknown route")
	}
	if RouteLocal.IsCloud() || RouteHybrid.IsCloud() || !RouteOpenAI.IsCloud() {
		t.Error("IsCloud mismatch")
	}
}
