package auth

import "context"

type ctxKey struct{}

// WithUserID binds an authenticated user to ctx.
func WithUserID(ctx context.Context, userID uint64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserIDFromContext returns the bound user, if any.
func UserIDFromContext(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(ctxKey{}).(uint64)
	return id, ok && id != 0
}

// RequireUserID returns the bound user or an Unauthenticated error.
func RequireUserID(ctx context.Context) (uint64, error) {
	if id, ok := UserIDFromContext(ctx); ok {
		return id, nil
	}
	return 0, ErrMissingToken
}
