package types

import "time"

// AIResponse is the gateway's answer to one AIRequest. Cached copies live no
// longer than the cache TTL.
type AIResponse struct {
	Content        string        `json:"content"`
	TokensUsed     int           `json:"tokens_used"`
	Provider       string        `json:"provider"`
	ProcessingTime time.Duration `json:"processing_time_ns"`
	Cached         bool          `json:"cached"`

	CrisisDetected  bool             `json:"crisis_detected,omitempty"`
	CrisisResources []CrisisResource `json:"crisis_resources,omitempty"`
	CrisisMessage   string           `json:"crisis_message,omitempty"`
}

// CrisisResource is one entry of the support resource catalogue surfaced on detection.
type CrisisResource struct {
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	Text         string `json:"text,omitempty"`
	Website      string `json:"website"`
	Availability string `json:"availability"`
	Description  string `json:"description"`
}
