package abtest

import (
	"context"
	"log/slog"
)

type (
	sessionContextKey    struct{}
	experimentContextKey struct{}
	routeContextKey      struct{}
)

// WithSession adds the visitor's session store to the context.
func WithSession(ctx context.Context, sess SessionStore) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext retrieves the visitor's session store from the context.
func SessionFromContext(ctx context.Context) (SessionStore, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(SessionStore)
	return sess, ok && sess != nil
}

// WithExperiment adds the active experiment name to the context.
func WithExperiment(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, experimentContextKey{}, name)
}

// ExperimentFromContext returns the active experiment stored by the middleware.
func ExperimentFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	name, ok := ctx.Value(experimentContextKey{}).(string)
	return name, ok && name != ""
}

// LoggerExtractor returns a logger.ContextExtractor adding the active experiment.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if name, ok := ExperimentFromContext(ctx); ok {
			return slog.String("experiment", name), true
		}
		return slog.Attr{}, false
	}
}

// routeHolder lets handlers publish their route name to the middleware,
// which reads it after the handler returns.
type routeHolder struct {
	name string
}

// SetRouteName records the route name of the current request for goal detection.
// It is a no-op outside the middleware.
func SetRouteName(ctx context.Context, name string) {
	if h, ok := ctx.Value(routeContextKey{}).(*routeHolder); ok {
		h.name = name
	}
}
