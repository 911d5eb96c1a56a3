// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext describes the authenticated caller. Tokens are issued by an
// external identity provider; only the claims needed for attribution are kept.
type UserContext struct {
	UserID string
	Email  string
	Roles  []string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// Actor returns the name recorded as createdBy on ledger entries: the user ID
// when a caller is authenticated, otherwise the fallback.
func Actor(ctx context.Context, fallback string) string {
	if uid := GetUserID(ctx); uid != "" {
		return uid
	}
	return fallback
}
