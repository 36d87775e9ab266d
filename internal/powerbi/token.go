package powerbi

import (
	"context"

	"golang.org/x/oauth2"
)

type tokenSourceKey struct{}

// WithTokenSource returns a context carrying the access token source of the
// caller. Calls made with that context act on behalf of its owner.
func WithTokenSource(ctx context.Context, ts oauth2.TokenSource) context.Context {
	return context.WithValue(ctx, tokenSourceKey{}, ts)
}

// TokenSourceFromContext returns the token source stored by WithTokenSource.
func TokenSourceFromContext(ctx context.Context) (oauth2.TokenSource, bool) {
	ts, ok := ctx.Value(tokenSourceKey{}).(oauth2.TokenSource)
	return ts, ok && ts != nil
}
