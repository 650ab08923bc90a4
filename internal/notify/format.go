package notify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, ev Event) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(ev)
	default:
		return json.Marshal(ev)
	}
}

func formatSlack(ev Event) ([]byte, error) {
	payload := map[string]any{
		"text": fmt.Sprintf("Wellbeing alert (%s severity) for student %s", ev.Severity, ev.UserID),
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("Wellbeing alert: %s", ev.Severity),
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Student:* %s", ev.UserID)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Guardian:* %s", ev.GuardianID)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Categories:* %s", strings.Join(ev.Categories, ", "))},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Audit ID:* %s", ev.AuditID)},
				},
			},
		},
	}
	return json.Marshal(payload)
}
