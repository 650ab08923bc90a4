package router

import "github.com/af-corp/containment-gateway/internal/types"

// Route is a routing decision. Each non-hybrid route names one backend.
type Route string

const (
	RouteLocal     Route = "local"
	RouteOpenAI    Route = "openai"
	RouteAnthropic Route = "anthropic"
	RouteHybrid    Route = "hybrid"
)

func ParseRoute(s string) (Route, bool) {
	switch Route(s) {
	case RouteLocal, RouteOpenAI, RouteAnthropic, RouteHybrid:
		return Route(s), true
	default:
		return "", false
	}
}

// IsCloud reports whether r sends content outside the containment boundary.
func (r Route) IsCloud() bool {
	return r == RouteOpenAI || r == RouteAnthropic
}

// Decide picks a route for one request. It is evaluated fresh every time and
// depends only on its arguments.
func Decide(level types.ContainmentLevel, t types.RequestType, privacyFirst bool, def Route) Route {
	switch level {
	case types.LevelStrict:
		return RouteLocal
	case types.LevelStandard, types.LevelRelaxed:
	default:
		// Unknown tiers get the tightest treatment.
		return RouteLocal
	}

	if !privacyFirst {
		return def
	}
	switch t {
	case types.TypeCodeReview, types.TypeWritingCheck, types.TypeEmbedding:
		return RouteLocal
	case types.TypeCompletion, types.TypeChat:
	}
	return RouteHybrid
}
