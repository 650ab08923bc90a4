package crisis

import (
	"fmt"
	"strings"

	"github.com/af-corp/containment-gateway/internal/types"
)

// Resource is a support service surfaced alongside a detection.
type Resource = types.CrisisResource

var (
	ResourceLifeline = Resource{
		Name:         "988 Suicide & Crisis Lifeline",
		Phone:        "988",
		Text:         "988",
		Website:      "https://988lifeline.org",
		Availability: "24/7",
		Description:  "Free and confidential support for people in distress.",
	}
	ResourceCrisisTextLine = Resource{
		Name:         "Crisis Text Line",
		Text:         "HOME to 741741",
		Website:      "https://www.crisistextline.org",
		Availability: "24/7",
		Description:  "Text with a trained crisis counselor.",
	}
	ResourceChildhelp = Resource{
		Name:         "Childhelp National Child Abuse Hotline",
		Phone:        "1-800-422-4453",
		Text:         "1-800-422-4453",
		Website:      "https://www.childhelp.org",
		Availability: "24/7",
		Description:  "Support for children and adults affected by abuse.",
	}
	ResourceANAD = Resource{
		Name:         "ANAD Eating Disorders Helpline",
		Phone:        "1-888-375-7767",
		Website:      "https://anad.org",
		Availability: "Mon-Fri 9am-9pm CT",
		Description:  "Peer support for people affected by eating disorders.",
	}
	ResourceSAMHSA = Resource{
		Name:         "SAMHSA National Helpline",
		Phone:        "1-800-662-4357",
		Website:      "https://www.samhsa.gov/find-help/national-helpline",
		Availability: "24/7",
		Description:  "Treatment referral and information for substance use.",
	}
	ResourceStopBullying = Resource{
		Name:         "StopBullying.gov",
		Website:      "https://www.stopbullying.gov",
		Availability: "Online",
		Description:  "Guidance for students, parents and schools dealing with bullying.",
	}
)

// categoryResources lists resources attached whenever a category matches,
// independent of aggregate severity.
var categoryResources = map[Category][]Resource{
	CategoryAbuseDisclosure: {ResourceChildhelp},
	CategoryEatingDisorder:  {ResourceANAD},
	CategorySubstanceAbuse:  {ResourceSAMHSA},
	CategoryBullyingVictim:  {ResourceStopBullying},
}

// Catalogue returns every known resource in display order.
func Catalogue() []Resource {
	return []Resource{
		ResourceLifeline,
		ResourceCrisisTextLine,
		ResourceChildhelp,
		ResourceANAD,
		ResourceSAMHSA,
		ResourceStopBullying,
	}
}

// FormatResources renders resources as plain text for display to the user.
func FormatResources(resources []Resource) string {
	if len(resources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Support is available:\n")
	for _, r := range resources {
		fmt.Fprintf(&b, "\n- %s", r.Name)
		if r.Availability != "" {
			fmt.Fprintf(&b, " (%s)", r.Availability)
		}
		b.WriteString("\n")
		if r.Phone != "" {
			fmt.Fprintf(&b, "  Call: %s\n", r.Phone)
		}
		if r.Text != "" {
			fmt.Fprintf(&b, "  Text: %s\n", r.Text)
		}
		if r.Website != "" {
			fmt.Fprintf(&b, "  Web: %s\n", r.Website)
		}
	}
	return b.String()
}
