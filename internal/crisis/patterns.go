package crisis

import "regexp"

// Category is one of the closed set of crisis classifications.
type Category string

const (
	CategorySuicideIdeation   Category = "suicide_ideation"
	CategorySelfHarm          Category = "self_harm"
	CategoryEatingDisorder    Category = "eating_disorder"
	CategorySubstanceAbuse    Category = "substance_abuse"
	CategoryBullyingVictim    Category = "bullying_victim"
	CategoryAbuseDisclosure   Category = "abuse_disclosure"
	CategoryViolenceThreat    Category = "violence_threat"
	CategoryEmotionalDistress Category = "emotional_distress"
)

// Definition binds a category to its severity and ordered pattern list.
type Definition struct {
	Category Category
	Severity Severity
	Patterns []*regexp.Regexp
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// DefaultDefinitions returns the built-in category table in definition order.
// Message templates and resources follow the same order.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Category: CategorySuicideIdeation,
			Severity: SeverityCritical,
			Patterns: patterns(
				`\b(kill|killing)\s+my\s?self\b`,
				`\b(end|ending|take|taking)\s+my\s+(own\s+)?life\b`,
				`\bwant\s+to\s+die\b`,
				`\bsuicid(e|al)\b`,
				`\bbetter\s+off\s+dead\b`,
				`\b(no|don['’]?t\s+have\s+a(ny)?)\s+reason\s+to\s+live\b`,
				`\bwish\s+i\s+(was|were)\s+(dead|never\s+born)\b`,
			),
		},
		{
			Category: CategorySelfHarm,
			Severity: SeverityHigh,
			Patterns: patterns(
				`\b(cut|cutting|burn|burning|hurt|hurting)\s+my\s?self\b`,
				`\bself[\s-]?harm(ing)?\b`,
				`\bscratch(ing)?\s+(my\s+)?(arms?|wrists?|legs?)\s+until\b`,
			),
		},
		{
			Category: CategoryEatingDisorder,
			Severity: SeverityMedium,
			Patterns: patterns(
				`\bstarv(e|ing)\s+my\s?self\b`,
				`\bmake\s+my\s?self\s+(throw\s+up|vomit|puke)\b`,
				`\b(anorexi[ac]|bulimi[ac]|purging)\b`,
				`\bhaven['’]?t\s+eaten\s+in\s+days\b`,
			),
		},
		{
			Category: CategorySubstanceAbuse,
			Severity: SeverityMedium,
			Patterns: patterns(
				`\b(get|getting)\s+(high|drunk|wasted)\s+(every\s+day|to\s+cope|to\s+forget)\b`,
				`\boverdos(e|ed|ing)\b`,
				`\baddicted\s+to\s+(pills|alcohol|drugs|weed|vaping)\b`,
				`\bcan['’]?t\s+stop\s+(drinking|using|vaping)\b`,
			),
		},
		{
			Category: CategoryBullyingVictim,
			Severity: SeverityMedium,
			Patterns: patterns(
				`\b(being|getting|been|am|i['’]?m)\s+bullied\b`,
				`\bbull(y|ies)\s+me\b`,
				`\beveryone\s+(at\s+school\s+)?(hates|laughs\s+at|picks\s+on)\s+me\b`,
				`\b(posting|sharing)\s+(mean|embarrassing)\s+(things|stuff|photos|pictures)\s+about\s+me\b`,
			),
		},
		{
			Category: CategoryAbuseDisclosure,
			Severity: SeverityHigh,
			Patterns: patterns(
				`\b(he|she|they|my\s+(dad|mom|father|mother|stepdad|stepmom|uncle|brother|coach))\s+(hits|beats|hurts)\s+me\b`,
				`\btouche[sd]\s+me\s+(inappropriately|down\s+there)\b`,
				`\b(being|been|was|am)\s+(abused|molested)\b`,
				`\bafraid\s+to\s+go\s+home\b`,
			),
		},
		{
			Category: CategoryViolenceThreat,
			Severity: SeverityHigh,
			Patterns: patterns(
				`\b(kill|shoot|stab)\s+(him|her|them|everyone|everybody)\b`,
				`\b(kill|shoot|stab|hurt)\s+my\s+(teacher|classmates?|parents?|mom|dad|brother|sister)\b`,
				`\b(bring|bringing)\s+a\s+(gun|knife|weapon)\s+to\s+school\b`,
				`\bshoot(ing)?\s+up\s+(the\s+)?school\b`,
				`\bmake\s+them\s+(all\s+)?(pay|suffer)\b`,
			),
		},
		{
			Category: CategoryEmotionalDistress,
			Severity: SeverityLow,
			Patterns: patterns(
				`\b(tired|sick)\s+of\s+(everything|it\s+all|life)\b`,
				`\bfeel(ing)?\s+(so\s+)?(hopeless|worthless|empty|alone|numb)\b`,
				`\bnobody\s+(cares|understands)\b`,
				`\bcan['’]?t\s+(take|handle)\s+(it|this)\s+anymore\b`,
				`\b(really|so)\s+(depressed|overwhelmed)\b`,
			),
		},
	}
}
