package session

import "context"

type bagContextKey struct{}

// WithBag adds the session bag to the context.
func WithBag(ctx context.Context, b *Bag) context.Context {
	return context.WithValue(ctx, bagContextKey{}, b)
}

// FromContext returns the session bag stored by Middleware.
func FromContext(ctx context.Context) (*Bag, bool) {
	b, ok := ctx.Value(bagContextKey{}).(*Bag)
	return b, ok && b != nil
}
