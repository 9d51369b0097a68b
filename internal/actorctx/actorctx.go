// Package actorctx carries the authenticated staff member through the
// request context so core operations can attribute what they change.
package actorctx

import "context"

type userIDKey struct{}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey{}).(string)

	return v, ok && v != ""
}
