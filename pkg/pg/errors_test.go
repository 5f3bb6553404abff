package pg_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/abkit/pkg/pg"
)

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	assert.False(t, pg.IsNotFoundError(nil))
	assert.False(t, pg.IsNotFoundError(errors.New("boom")))
	assert.True(t, pg.IsNotFoundError(pgx.ErrNoRows))
	assert.True(t, pg.IsNotFoundError(fmt.Errorf("find experiment: %w", pgx.ErrNoRows)))
}

func TestErrorsNameTheCounterSchema(t *testing.T) {
	t.Parallel()

	assert.Contains(t, pg.ErrFailedToApplyMigrations.Error(), "counter schema")
	assert.Contains(t, pg.ErrFailedToResetMigrations.Error(), "counter schema")
	assert.Contains(t, pg.ErrEmptyConnectionString.Error(), "PG_CONN_URL")
}
