package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending goose migration found in dir of migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, dir string, cfg Config, log *slog.Logger) error {
	return withGoose(ctx, pool, migrations, cfg, log, func(db *sql.DB) error {
		if err := goose.UpContext(ctx, db, dir); err != nil {
			return errors.Join(ErrFailedToApplyMigrations, err)
		}
		return nil
	})
}

// Reset rolls back every applied migration found in dir of migrations.
func Reset(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, dir string, cfg Config, log *slog.Logger) error {
	return withGoose(ctx, pool, migrations, cfg, log, func(db *sql.DB) error {
		if err := goose.ResetContext(ctx, db, dir); err != nil {
			return errors.Join(ErrFailedToResetMigrations, err)
		}
		return nil
	})
}

// withGoose bridges the pgx pool to the database/sql handle goose expects.
// goose keeps its settings in package state, so they are applied on every call.
func withGoose(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, cfg Config, log *slog.Logger, fn func(*sql.DB) error) error {
	if migrations == nil {
		return ErrMigrationsNotProvided
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration connection", slog.Any("error", err))
		}
	}()

	goose.SetBaseFS(migrations)
	goose.SetLogger(&gooseLogger{log: log})
	if cfg.MigrationsTable != "" {
		goose.SetTableName(cfg.MigrationsTable)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	return fn(db)
}

// gooseLogger routes goose's Printf-style output to slog.
type gooseLogger struct {
	log *slog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...))
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...))
}
