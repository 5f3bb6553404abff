// Package pg bootstraps the PostgreSQL connection used by the counter store.
//
// It wraps pgx/v5 connection pooling and goose/v3 migrations:
//
//   - Config is populated from PG_* environment variables via
//     github.com/caarlos0/env.
//   - Connect opens a *pgxpool.Pool and retries with backoff until the
//     database answers a ping.
//   - Migrate and Reset run goose migrations from an fs.FS, typically an
//     embedded directory shipped with the store that owns the schema.
//   - Healthcheck returns a func(context.Context) error readiness probe.
//
// # Usage
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations, "migrations", cfg, log); err != nil {
//	    return err
//	}
package pg
