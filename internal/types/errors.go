package types

import "fmt"

// PermissionDeniedError is returned when the containment context does not
// permit the request. It is never retried.
type PermissionDeniedError struct {
	Operation string
	Reason    string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied for %s: %s", e.Operation, e.Reason)
}

// ConfigurationError reports a provider that was selected but is not configured.
type ConfigurationError struct {
	Provider string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %s misconfigured: %s", e.Provider, e.Reason)
}

// ProviderError wraps a backend failure. The gateway does not retry it.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// SanitizationError aborts a request when the privacy sanitizer fails.
type SanitizationError struct {
	Stage string // "prompt", "context" or "response"
	Err   error
}

func (e *SanitizationError) Error() string {
	return fmt.Sprintf("sanitize %s: %v", e.Stage, e.Err)
}

func (e *SanitizationError) Unwrap() error { return e.Err }
