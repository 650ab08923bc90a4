package crisis

import (
	"slices"
	"strings"
)

// Response is the guidance attached to a detection.
type Response struct {
	ShowResources bool       `json:"show_resources"`
	Resources     []Resource `json:"resources"`
	Message       string     `json:"message"`
	BlockContent  bool       `json:"block_content"`
	Escalate      bool       `json:"escalate"`
}

const (
	coreMessage = "It sounds like you may be going through something really difficult. " +
		"You are not alone, and talking to someone you trust can help."
	dangerMessage = "If you are in immediate danger or thinking about ending your life, " +
		"please call or text 988 right now, or call 911."
)

var categoryMessages = map[Category]string{
	CategorySuicideIdeation: "Your life matters. A counselor at the 988 Lifeline is ready to listen " +
		"whenever you want to talk.",
	CategorySelfHarm: "Wanting to hurt yourself is a sign of how much pain you are carrying. " +
		"A trusted adult or counselor can help you find safer ways to cope.",
	CategoryEatingDisorder: "Struggles with food and body image are more common than you might think, " +
		"and support is available.",
	CategorySubstanceAbuse: "If alcohol or drugs are becoming a way to cope, reaching out for " +
		"confidential help is a strong first step.",
	CategoryBullyingVictim: "Being bullied is never your fault. Please tell a teacher, counselor " +
		"or family member what is happening.",
	CategoryAbuseDisclosure: "No one has the right to hurt you. What is happening is not your fault, " +
		"and people are ready to help keep you safe.",
	CategoryViolenceThreat: "It sounds like you are feeling a lot of anger right now. Please talk " +
		"to a trusted adult before acting on these feelings.",
	CategoryEmotionalDistress: "It is okay to feel overwhelmed. Taking a break and talking with " +
		"someone you trust can make things feel more manageable.",
}

// BuildResponse composes resources, message and block decision from the
// matched categories. categories must be in definition order.
func BuildResponse(severity Severity, categories []Category, blockHighSeverity bool) Response {
	var resources []Resource
	add := func(r Resource) {
		if !slices.ContainsFunc(resources, func(have Resource) bool { return have.Name == r.Name }) {
			resources = append(resources, r)
		}
	}
	if severity.AtLeast(SeverityHigh) {
		add(ResourceLifeline)
		add(ResourceCrisisTextLine)
	}
	for _, c := range categories {
		for _, r := range categoryResources[c] {
			add(r)
		}
	}

	parts := []string{coreMessage}
	if severity.AtLeast(SeverityHigh) {
		parts = append(parts, dangerMessage)
	}
	seen := make(map[Category]bool, len(categories))
	for _, c := range categories {
		if seen[c] {
			continue
		}
		seen[c] = true
		if m, ok := categoryMessages[c]; ok {
			parts = append(parts, m)
		}
	}

	block := blockHighSeverity &&
		(severity == SeverityCritical || slices.Contains(categories, CategoryViolenceThreat))

	return Response{
		ShowResources: len(resources) > 0,
		Resources:     resources,
		Message:       strings.Join(parts, "\n\n"),
		BlockContent:  block,
		Escalate:      severity.AtLeast(SeverityHigh),
	}
}

// UnavailableResponse is returned in place of a provider answer when analysis
// could not run and the gateway is configured to fail closed.
func UnavailableResponse() Response {
	return Response{
		ShowResources: true,
		Resources:     []Resource{ResourceLifeline, ResourceCrisisTextLine},
		Message:       coreMessage,
		BlockContent:  true,
	}
}
