package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/abkit/pkg/abtest"
	"github.com/dmitrymomot/abkit/pkg/config"
	"github.com/dmitrymomot/abkit/pkg/cookie"
	"github.com/dmitrymomot/abkit/pkg/httpserver"
	"github.com/dmitrymomot/abkit/pkg/logger"
	"github.com/dmitrymomot/abkit/pkg/report"
	"github.com/dmitrymomot/abkit/pkg/requestid"
	"github.com/dmitrymomot/abkit/pkg/session"
	"github.com/dmitrymomot/abkit/pkg/useragent"
)

const (
	// ExperimentHeader carries the visitor's experiment to the upstream.
	ExperimentHeader = "X-AB-Experiment"
	// RouteHeader may be set by the upstream to name the served route for goal matching.
	RouteHeader = "X-AB-Route"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the A/B testing HTTP service",
		Long: `Serve the A/B endpoints (/_ab/experiment, /_ab/report), health probes and,
when AB_UPSTREAM_URL is set, proxy every other request to the upstream while
tracking pageviews, engagement and goals. Crawlers are proxied untracked
unless AB_TRACK_BOTS is true.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.openCounters(ctx); err != nil {
				return err
			}
			tester := a.tester()
			if err := a.reconcile(ctx, tester); err != nil {
				return err
			}

			sessCfg, err := config.Load[session.Config]()
			if err != nil {
				return err
			}
			cookieCfg, err := config.Load[cookie.Config]()
			if err != nil {
				return err
			}
			sessions, err := a.sessions(ctx, sessCfg, cookieCfg)
			if err != nil {
				return err
			}

			handler, err := a.router(tester, sessions)
			if err != nil {
				return err
			}

			srvCfg, err := config.Load[httpserver.Config]()
			if err != nil {
				return err
			}
			srv := httpserver.NewFromConfig(srvCfg,
				httpserver.WithLogger(a.log),
				httpserver.WithOnShutdown(func() { _ = sessions.Close() }),
			)
			return srv.Run(ctx, handler)
		},
	}
}

// reconcile syncs the catalog into the counter store. A catalog without goals
// still serves assignment and pageview tracking.
func (a *app) reconcile(ctx context.Context, tester *abtest.Tester) error {
	result, err := tester.Reconcile(ctx)
	if errors.Is(err, abtest.ErrNoGoals) {
		a.log.WarnContext(ctx, "goal tracking disabled", logger.Error(err))
		err = nil
	}
	if err != nil {
		return err
	}
	a.log.InfoContext(ctx, "catalog reconciled", slog.String("result", result.String()))
	return nil
}

// router wires the HTTP surface.
func (a *app) router(tester *abtest.Tester, sessions *session.Manager) (http.Handler, error) {
	h := &abHandlers{
		tester:   tester,
		sessions: sessions,
		counters: a.counters,
		catalog:  a.catalog,
		log:      a.log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP, requestid.Middleware, middleware.Recoverer)

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(a.log, a.cfg.ReadyTimeout, a.checks...))

	r.Route("/_ab", func(r chi.Router) {
		r.Get("/experiment", h.currentExperiment)
		r.Post("/experiment/{name}", h.setExperiment)
		r.Group(func(r chi.Router) {
			if a.cfg.ReportUser != "" {
				r.Use(middleware.BasicAuth("abkit", map[string]string{a.cfg.ReportUser: a.cfg.ReportPassword}))
			}
			r.Get("/report", h.reportHTML)
			r.Get("/report.json", h.reportJSON)
		})
	})

	if a.cfg.UpstreamURL != "" {
		proxy, err := newUpstreamProxy(a.cfg.UpstreamURL, a.log)
		if err != nil {
			return nil, err
		}
		mwOpts := []abtest.MiddlewareOption{
			abtest.WithRouteNameFunc(func(*http.Request) string { return "" }),
		}
		if a.cfg.AutoAssign {
			mwOpts = append(mwOpts, abtest.WithAutoAssign())
		}
		if !a.cfg.TrackBots {
			mwOpts = append(mwOpts, abtest.WithSkipper(useragent.IsBotRequest))
		}
		r.Group(func(r chi.Router) {
			r.Use(abtest.Middleware(tester, openBag(sessions), mwOpts...))
			r.Handle("/*", proxy)
		})
	}

	return r, nil
}

// openBag adapts the session manager to the tracking middleware.
func openBag(m *session.Manager) abtest.SessionOpener {
	return func(w http.ResponseWriter, r *http.Request) (abtest.SessionStore, error) {
		bag, err := m.Open(w, r)
		if err != nil {
			return nil, err
		}
		return bag, nil
	}
}

// newUpstreamProxy forwards requests with the visitor's experiment in
// ExperimentHeader and lets the upstream name the route through RouteHeader.
func newUpstreamProxy(raw string, log *slog.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(raw)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid AB_UPSTREAM_URL %q", raw)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = pr.In.Host
			pr.Out.Header.Del(ExperimentHeader)
			if name, ok := abtest.ExperimentFromContext(pr.In.Context()); ok {
				pr.Out.Header.Set(ExperimentHeader, name)
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			if route := strings.TrimSpace(resp.Header.Get(RouteHeader)); route != "" {
				abtest.SetRouteName(resp.Request.Context(), route)
			}
			resp.Header.Del(RouteHeader)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.ErrorContext(r.Context(), "upstream request failed", logger.Component("proxy"), logger.Error(err))
			w.WriteHeader(http.StatusBadGateway)
		},
	}, nil
}

type abHandlers struct {
	tester   *abtest.Tester
	sessions *session.Manager
	counters abtest.CounterStore
	catalog  abtest.Catalog
	log      *slog.Logger
}

type experimentResponse struct {
	Experiment string `json:"experiment"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// currentExperiment returns the visitor's experiment, assigning one if needed.
func (h *abHandlers) currentExperiment(w http.ResponseWriter, r *http.Request) {
	bag, err := h.sessions.Open(w, r)
	if err != nil {
		h.log.ErrorContext(r.Context(), "session unavailable", logger.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "session unavailable"})
		return
	}
	name, ok := h.tester.Experiment(r.Context(), bag)
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no experiment available"})
		return
	}
	writeJSON(w, http.StatusOK, experimentResponse{Experiment: name})
}

// setExperiment forces the visitor into the named experiment.
func (h *abHandlers) setExperiment(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	bag, err := h.sessions.Open(w, r)
	if err != nil {
		h.log.ErrorContext(r.Context(), "session unavailable", logger.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "session unavailable"})
		return
	}
	if err := h.tester.SetExperiment(r.Context(), bag, name); err != nil {
		if errors.Is(err, abtest.ErrExperimentNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "experiment not found"})
			return
		}
		h.log.ErrorContext(r.Context(), "set experiment failed", logger.Experiment(name), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, experimentResponse{Experiment: name})
}

func (h *abHandlers) reportHTML(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.build(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.HTML(rep).Render(r.Context(), w); err != nil {
		h.log.ErrorContext(r.Context(), "render report failed", logger.Error(err))
	}
}

func (h *abHandlers) reportJSON(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.build(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *abHandlers) build(w http.ResponseWriter, r *http.Request) (*report.Report, bool) {
	rep, err := report.Build(r.Context(), h.counters, h.catalog)
	if err != nil {
		h.log.ErrorContext(r.Context(), "build report failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "report unavailable"})
		return nil, false
	}
	return rep, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
