// Package pgstore implements abtest.CounterStore on PostgreSQL.
//
// Counters live in two tables, ab_experiments and ab_goals, created by the
// embedded goose migrations (see Install). Every increment is a single
// UPDATE ... SET n = n + 1 statement, so concurrent requests never lose counts.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/abkit/pkg/abtest"
	"github.com/dmitrymomot/abkit/pkg/pg"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// DB is the subset of *pgxpool.Pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL counter store.
type Store struct {
	db DB
}

var (
	_ abtest.CounterStore = (*Store)(nil)
	_ abtest.Flusher      = (*Store)(nil)
)

// New creates a store on top of db.
func New(db DB) *Store {
	return &Store{db: db}
}

// Install creates the counter tables.
func Install(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, migrations, migrationsDir, cfg, log)
}

// Uninstall drops the counter tables.
func Uninstall(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Reset(ctx, pool, migrations, migrationsDir, cfg, log)
}

const experimentColumns = `id, name, visitors, engagement, created_at, updated_at`

// FindExperiment returns the named experiment or abtest.ErrExperimentNotFound.
func (s *Store) FindExperiment(ctx context.Context, name string) (*abtest.Experiment, error) {
	row := s.db.QueryRow(ctx, `SELECT `+experimentColumns+` FROM ab_experiments WHERE name = $1`, name)
	e, err := scanExperiment(row)
	if pg.IsNotFoundError(err) {
		return nil, abtest.ErrExperimentNotFound
	}
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	return e, nil
}

// FirstOrCreateExperiment creates the experiment with zero counters unless it exists.
func (s *Store) FirstOrCreateExperiment(ctx context.Context, name string) (*abtest.Experiment, error) {
	_, err := s.db.Exec(ctx, `INSERT INTO ab_experiments (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	return s.FindExperiment(ctx, name)
}

// FirstOrCreateGoal creates the (experiment, goal) row unless it exists.
func (s *Store) FirstOrCreateGoal(ctx context.Context, experiment, goal string) (*abtest.Goal, error) {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ab_goals (name, experiment_id)
		SELECT $2, id FROM ab_experiments WHERE name = $1
		ON CONFLICT (experiment_id, name) DO NOTHING`,
		experiment, goal,
	)
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}

	row := s.db.QueryRow(ctx, goalSelect+` WHERE e.name = $1 AND g.name = $2`, experiment, goal)
	g, err := scanGoal(row)
	if pg.IsNotFoundError(err) {
		return nil, abtest.ErrExperimentNotFound
	}
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	return g, nil
}

// IncrementExperiment atomically adds one to the given experiment counter.
func (s *Store) IncrementExperiment(ctx context.Context, name string, counter abtest.Counter) error {
	var query string
	switch counter {
	case abtest.CounterVisitors:
		query = `UPDATE ab_experiments SET visitors = visitors + 1, updated_at = now() WHERE name = $1`
	case abtest.CounterEngagement:
		query = `UPDATE ab_experiments SET engagement = engagement + 1, updated_at = now() WHERE name = $1`
	default:
		return abtest.ErrInvalidCounter
	}

	tag, err := s.db.Exec(ctx, query, name)
	if err != nil {
		return errors.Join(abtest.ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return abtest.ErrExperimentNotFound
	}
	return nil
}

// IncrementGoal atomically adds one to the goal count scoped to experiment.
func (s *Store) IncrementGoal(ctx context.Context, experiment, goal string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE ab_goals g SET count = g.count + 1, updated_at = now()
		FROM ab_experiments e
		WHERE g.experiment_id = e.id AND e.name = $1 AND g.name = $2`,
		experiment, goal,
	)
	if err != nil {
		return errors.Join(abtest.ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return abtest.ErrGoalNotFound
	}
	return nil
}

// CountExperiments returns the number of stored experiments.
func (s *Store) CountExperiments(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT count(*) FROM ab_experiments`)
}

// CountGoals returns the number of stored goals.
func (s *Store) CountGoals(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT count(*) FROM ab_goals`)
}

func (s *Store) count(ctx context.Context, query string) (int, error) {
	var n int64
	if err := s.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, errors.Join(abtest.ErrStoreFailure, err)
	}
	return int(n), nil
}

// Experiments returns every experiment in creation order.
func (s *Store) Experiments(ctx context.Context) ([]abtest.Experiment, error) {
	rows, err := s.db.Query(ctx, `SELECT `+experimentColumns+` FROM ab_experiments ORDER BY id`)
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	defer rows.Close()

	var out []abtest.Experiment
	for rows.Next() {
		e, err := scanExperiment(rows)
		if err != nil {
			return nil, errors.Join(abtest.ErrStoreFailure, err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	return out, nil
}

// Goals returns every goal in creation order.
func (s *Store) Goals(ctx context.Context) ([]abtest.Goal, error) {
	rows, err := s.db.Query(ctx, goalSelect+` ORDER BY g.id`)
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	defer rows.Close()

	var out []abtest.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, errors.Join(abtest.ErrStoreFailure, err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	return out, nil
}

// LeastVisited orders by visitors, then by position in names.
func (s *Store) LeastVisited(ctx context.Context, names []string) (*abtest.Experiment, error) {
	if len(names) == 0 {
		return nil, abtest.ErrNoExperiments
	}

	row := s.db.QueryRow(ctx, `
		SELECT `+experimentColumns+` FROM ab_experiments
		WHERE name = ANY($1::text[])
		ORDER BY visitors ASC, array_position($1::text[], name) ASC
		LIMIT 1`,
		names,
	)
	e, err := scanExperiment(row)
	if pg.IsNotFoundError(err) {
		return nil, abtest.ErrNoExperiments
	}
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	return e, nil
}

// Flush empties both tables and restarts their id sequences.
func (s *Store) Flush(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `TRUNCATE ab_goals, ab_experiments RESTART IDENTITY`); err != nil {
		return errors.Join(abtest.ErrStoreFailure, err)
	}
	return nil
}

const goalSelect = `
	SELECT g.id, g.name, e.name, g.count, g.created_at, g.updated_at
	FROM ab_goals g JOIN ab_experiments e ON e.id = g.experiment_id`

func scanExperiment(row pgx.Row) (*abtest.Experiment, error) {
	var (
		e                    abtest.Experiment
		visitors, engagement int64
	)
	if err := row.Scan(&e.ID, &e.Name, &visitors, &engagement, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Visitors = uint64(visitors)
	e.Engagement = uint64(engagement)
	return &e, nil
}

func scanGoal(row pgx.Row) (*abtest.Goal, error) {
	var (
		g     abtest.Goal
		count int64
	)
	if err := row.Scan(&g.ID, &g.Name, &g.Experiment, &count, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.Count = uint64(count)
	return &g, nil
}
