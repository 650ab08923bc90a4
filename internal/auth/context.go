package auth

import (
	"context"
)

type contextKey string

const authContextKey contextKey = "containment_auth"

// AuthInfo holds the identity of the calling control plane, extracted from its service key.
type AuthInfo struct {
	KeyID           string
	TenantID        string
	SchoolID        string
	RPMLimit        *int
	DailyTokenLimit *int64
}

func ContextWithAuth(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authContextKey, info)
}

func AuthFromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authContextKey).(*AuthInfo)
	return info, ok
}
