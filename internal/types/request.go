package types

// RequestType identifies the kind of AI operation being requested.
type RequestType string

const (
	TypeCompletion   RequestType = "completion"
	TypeChat         RequestType = "chat"
	TypeEmbedding    RequestType = "embedding"
	TypeCodeReview   RequestType = "code_review"
	TypeWritingCheck RequestType = "writing_check"
)

// operationPrefix namespaces AI operation tags inside a session's allowed operations.
const operationPrefix = "ai:"

// Operation returns the permission tag a containment context must allow for this type.
func (t RequestType) Operation() string {
	return operationPrefix + string(t)
}

func ParseRequestType(s string) (RequestType, bool) {
	switch RequestType(s) {
	case TypeCompletion, TypeChat, TypeEmbedding, TypeCodeReview, TypeWritingCheck:
		return RequestType(s), true
	default:
		return "", false
	}
}

// AIRequest is the immutable input of a single gateway call.
type AIRequest struct {
	Type        RequestType `json:"type"`
	Prompt      string      `json:"prompt"`
	Context     string      `json:"context,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Temperature *float64    `json:"temperature,omitempty"`
	SessionID   string      `json:"session_id"`
	UserID      string      `json:"user_id"`
}

// ContainmentContext is the sandbox policy scope supplied with every call.
// The gateway never persists it.
type ContainmentContext struct {
	SessionID         string           `json:"session_id"`
	PodID             string           `json:"pod_id"`
	Level             ContainmentLevel `json:"containment_level"`
	AllowedOperations []string         `json:"allowed_operations"`
	UserID            string           `json:"user_id"`
	IsMinor           bool             `json:"is_minor"`
	ParentGuardianID  string           `json:"parent_guardian_id,omitempty"`
	SchoolID          string           `json:"school_id,omitempty"`
	TenantID          string           `json:"tenant_id,omitempty"`
}

// Allows reports whether op is among the context's allowed operations.
func (c ContainmentContext) Allows(op string) bool {
	for _, allowed := range c.AllowedOperations {
		if allowed == op {
			return true
		}
	}
	return false
}
