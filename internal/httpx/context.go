package httpx

import (
	"context"
	"net/http"
)

type contextKey string

const (
	userIDKey    contextKey = "userID"
	roleKey      contextKey = "role"
	jtiKey       contextKey = "jti"
	requestIDKey contextKey = "requestID"
	holderKey    contextKey = "userHolder"
)

// userHolder lets the access log see the user resolved further down the chain.
type userHolder struct {
	userID string
}

func contextWithUserHolder(ctx context.Context, h *userHolder) context.Context {
	return context.WithValue(ctx, holderKey, h)
}

const RoleAdmin = "ADMIN"

// UserIDFrom retrieves the user ID from the request context.
func UserIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// RoleFrom retrieves the user role from the request context.
func RoleFrom(r *http.Request) string {
	if v, ok := r.Context().Value(roleKey).(string); ok {
		return v
	}
	return ""
}

// TokenIDFrom retrieves the access token jti from the request context.
func TokenIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(jtiKey).(string); ok {
		return v
	}
	return ""
}

func IsAdmin(r *http.Request) bool {
	return RoleFrom(r) == RoleAdmin
}

// ContextWithUser returns a new context with the user ID and role.
func ContextWithUser(ctx context.Context, userID, role string) context.Context {
	if h, ok := ctx.Value(holderKey).(*userHolder); ok {
		h.userID = userID
	}
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

func ContextWithTokenID(ctx context.Context, jti string) context.Context {
	return context.WithValue(ctx, jtiKey, jti)
}

func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
