package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	ErrEmptyConnectionString    = errors.New("empty postgres connection string, use PG_CONN_URL env var")
	ErrFailedToParseDBConfig    = errors.New("invalid postgres connection string")
	ErrFailedToOpenDBConnection = errors.New("postgres did not answer ping before the retries ran out")
	ErrHealthcheckFailed        = errors.New("postgres ping failed")
)

// Schema errors from Migrate and Reset, used by install and flush.
var (
	ErrMigrationsNotProvided   = errors.New("counter schema migrations not provided")
	ErrFailedToApplyMigrations = errors.New("failed to install counter schema")
	ErrFailedToResetMigrations = errors.New("failed to drop counter schema")
)

// IsNotFoundError reports whether a single-row query matched nothing,
// which the counter store maps to its own not-found errors.
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}
