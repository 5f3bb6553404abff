// Package httpserver runs the abkit HTTP surface with graceful shutdown and
// health probes.
//
// Server listens on the configured address and blocks in Run until the
// context is cancelled, SIGINT/SIGTERM arrives or Shutdown is called.
// Shutdown waits up to the shutdown timeout for in-flight requests and then
// runs the WithOnShutdown callbacks.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// LivenessHandler and ReadinessHandler back /healthz and /readyz:
//
//	r.Get("/healthz", httpserver.LivenessHandler())
//	r.Get("/readyz", httpserver.ReadinessHandler(log, 2*time.Second,
//		httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)},
//	))
package httpserver
