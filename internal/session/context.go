package session

import (
	"context"

	"github.com/dukerupert/pixelquest/internal/model"
)

type contextKey struct{}

// WithUser attaches the acting user to ctx.
func WithUser(ctx context.Context, u model.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

func UserFromContext(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(contextKey{}).(model.User)
	return u, ok
}

// UserID returns the acting user's id, or "" when none is attached.
func UserID(ctx context.Context) string {
	u, ok := UserFromContext(ctx)
	if !ok {
		return ""
	}
	return u.ID
}
