package abtest

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/abkit/pkg/logger"
)

// SessionOpener loads or creates the visitor's session for a request.
type SessionOpener func(w http.ResponseWriter, r *http.Request) (SessionStore, error)

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	autoAssign bool
	routeName  func(r *http.Request) string
	root       func(r *http.Request) string
	skip       func(r *http.Request) bool
}

// WithAutoAssign assigns an experiment to every visitor before the handler runs.
// Without it only visitors assigned by handlers (Experiment, SetExperiment) are tracked.
func WithAutoAssign() MiddlewareOption {
	return func(c *middlewareConfig) { c.autoAssign = true }
}

// WithRouteNameFunc overrides how the route name is resolved when the handler
// did not call SetRouteName. Defaults to the chi route pattern.
func WithRouteNameFunc(fn func(r *http.Request) string) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.routeName = fn
		}
	}
}

// WithRootFunc overrides how the site root URL is derived from the request.
func WithRootFunc(fn func(r *http.Request) string) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.root = fn
		}
	}
}

// WithSkipper excludes requests (assets, health checks) from tracking.
func WithSkipper(fn func(r *http.Request) bool) MiddlewareOption {
	return func(c *middlewareConfig) { c.skip = fn }
}

// Middleware opens the visitor's session, exposes it and the active experiment
// through the request context, and tracks the page view after the handler
// returns. Session and store failures are logged; the request is never failed.
func Middleware(t *Tester, open SessionOpener, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		routeName: chiRoutePattern,
		root:      requestRoot,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.skip != nil && cfg.skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := open(w, r)
			if err != nil {
				t.log.WarnContext(r.Context(), "A/B session unavailable", logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithSession(r.Context(), sess)
			if cfg.autoAssign {
				if name, ok := t.Experiment(ctx, sess); ok {
					ctx = WithExperiment(ctx, name)
				}
			} else if name, ok := t.Current(sess); ok {
				ctx = WithExperiment(ctx, name)
			}

			holder := &routeHolder{}
			ctx = context.WithValue(ctx, routeContextKey{}, holder)
			r = r.WithContext(ctx)

			next.ServeHTTP(w, r)

			route := holder.name
			if route == "" {
				route = cfg.routeName(r)
			}
			page := PageRequest{
				Root:     cfg.root(r),
				Referrer: r.Referer(),
				Path:     r.URL.Path,
				Route:    route,
			}
			if err := t.Track(ctx, sess, page); err != nil {
				t.log.ErrorContext(ctx, "A/B tracking failed", logger.Error(err))
			}
		})
	}
}

// Named wraps h so that goal detection sees name as the route name.
func Named(name string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetRouteName(r.Context(), name)
		h.ServeHTTP(w, r)
	})
}

func chiRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}

func requestRoot(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
