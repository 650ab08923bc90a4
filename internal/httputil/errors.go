package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/af-corp/containment-gateway/internal/types"
)

// APIError matches the OpenAI error response format.
type APIError struct {
	Error APIErrorBody `json:"error"`
}

type APIErrorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, requestID string, statusCode int, errType, code, message string) {
	w.Header().Set("X-Request-ID", requestID)
	WriteJSON(w, statusCode, APIError{
		Error: APIErrorBody{
			Message:   message,
			Type:      errType,
			Code:      code,
			RequestID: requestID,
		},
	})
}

func WriteAuthError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusUnauthorized, "authentication_error", "invalid_api_key", message)
}

func WriteForbiddenError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusForbidden, "permission_error", "permission_denied", message)
}

func WriteRateLimitError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusTooManyRequests, "rate_limit_error", "rate_limit_exceeded", message)
}

func WriteQuotaExceededError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusTooManyRequests, "rate_limit_error", "token_quota_exceeded", message)
}

func WriteBadRequestError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, "invalid_request_error", "invalid_request", message)
}

func WriteInternalError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusInternalServerError, "server_error", "internal_error", message)
}

func WriteServiceUnavailableError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusServiceUnavailable, "server_error", "service_unavailable", message)
}

// WriteGatewayError maps a typed gateway error to its HTTP status.
// Anything unrecognised becomes a 500 without leaking the cause.
func WriteGatewayError(w http.ResponseWriter, requestID string, err error) {
	var (
		permErr     *types.PermissionDeniedError
		cfgErr      *types.ConfigurationError
		providerErr *types.ProviderError
		sanitizeErr *types.SanitizationError
	)
	switch {
	case errors.As(err, &permErr):
		WriteForbiddenError(w, requestID, permErr.Error())
	case errors.As(err, &cfgErr):
		WriteError(w, requestID, http.StatusInternalServerError, "server_error", "provider_not_configured", cfgErr.Error())
	case errors.As(err, &providerErr):
		WriteError(w, requestID, http.StatusBadGateway, "upstream_error", "provider_error",
			"AI provider "+providerErr.Provider+" failed")
	case errors.As(err, &sanitizeErr):
		WriteError(w, requestID, http.StatusBadGateway, "upstream_error", "sanitization_failed",
			"privacy sanitizer failed on "+sanitizeErr.Stage)
	default:
		WriteInternalError(w, requestID, "Internal error")
	}
}
