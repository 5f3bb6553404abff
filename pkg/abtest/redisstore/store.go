// Package redisstore implements abtest.CounterStore on Redis.
//
// Each experiment and goal is a hash; two lists keep creation order. Row
// creation and increments run as Lua scripts so a counter is only bumped
// while its row exists and concurrent increments are never lost.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/abkit/pkg/abtest"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "ab:"

// Store is a Redis counter store.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var (
	_ abtest.CounterStore = (*Store)(nil)
	_ abtest.Flusher      = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New creates a store using client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var createExperimentScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], 'name', ARGV[1]) == 0 then
	return 0
end
local id = tostring(redis.call('INCR', KEYS[3]))
redis.call('HSET', KEYS[1], 'id', id, 'visitors', '0', 'engagement', '0', 'created_at', ARGV[2], 'updated_at', ARGV[2])
redis.call('RPUSH', KEYS[2], ARGV[1])
return 1
`)

var createGoalScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[4]) == 0 then
	return -1
end
if redis.call('HSETNX', KEYS[1], 'name', ARGV[1]) == 0 then
	return 0
end
local id = tostring(redis.call('INCR', KEYS[3]))
redis.call('HSET', KEYS[1], 'id', id, 'experiment', ARGV[2], 'count', '0', 'created_at', ARGV[3], 'updated_at', ARGV[3])
redis.call('RPUSH', KEYS[2], KEYS[1])
return 1
`)

var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
redis.call('HSET', KEYS[1], 'updated_at', ARGV[2])
return redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
`)

func (s *Store) experimentKey(name string) string { return s.prefix + "experiment:" + name }

// goalKey length-prefixes the experiment name so names containing ':' cannot collide.
func (s *Store) goalKey(experiment, goal string) string {
	return fmt.Sprintf("%sgoal:%d:%s:%s", s.prefix, len(experiment), experiment, goal)
}

func (s *Store) experimentsIndex() string { return s.prefix + "experiments" }
func (s *Store) goalsIndex() string       { return s.prefix + "goals" }
func (s *Store) sequence() string         { return s.prefix + "seq" }

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// FindExperiment returns the named experiment or abtest.ErrExperimentNotFound.
func (s *Store) FindExperiment(ctx context.Context, name string) (*abtest.Experiment, error) {
	fields, err := s.client.HGetAll(ctx, s.experimentKey(name)).Result()
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	if len(fields) == 0 {
		return nil, abtest.ErrExperimentNotFound
	}
	return parseExperiment(fields), nil
}

// FirstOrCreateExperiment creates the experiment with zero counters unless it exists.
func (s *Store) FirstOrCreateExperiment(ctx context.Context, name string) (*abtest.Experiment, error) {
	keys := []string{s.experimentKey(name), s.experimentsIndex(), s.sequence()}
	if err := createExperimentScript.Run(ctx, s.client, keys, name, now()).Err(); err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	return s.FindExperiment(ctx, name)
}

// FirstOrCreateGoal creates the (experiment, goal) row unless it exists.
func (s *Store) FirstOrCreateGoal(ctx context.Context, experiment, goal string) (*abtest.Goal, error) {
	key := s.goalKey(experiment, goal)
	keys := []string{key, s.goalsIndex(), s.sequence(), s.experimentKey(experiment)}
	res, err := createGoalScript.Run(ctx, s.client, keys, goal, experiment, now()).Int()
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	if res < 0 {
		return nil, abtest.ErrExperimentNotFound
	}

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	return parseGoal(fields), nil
}

// IncrementExperiment atomically adds one to the given experiment counter.
func (s *Store) IncrementExperiment(ctx context.Context, name string, counter abtest.Counter) error {
	if !counter.Valid() {
		return abtest.ErrInvalidCounter
	}
	ok, err := s.increment(ctx, s.experimentKey(name), string(counter))
	if err != nil {
		return err
	}
	if !ok {
		return abtest.ErrExperimentNotFound
	}
	return nil
}

// IncrementGoal atomically adds one to the goal count scoped to experiment.
func (s *Store) IncrementGoal(ctx context.Context, experiment, goal string) error {
	ok, err := s.increment(ctx, s.goalKey(experiment, goal), "count")
	if err != nil {
		return err
	}
	if !ok {
		return abtest.ErrGoalNotFound
	}
	return nil
}

func (s *Store) increment(ctx context.Context, key, field string) (bool, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{key}, field, now()).Int64()
	if err != nil {
		return false, errors.Join(abtest.ErrStoreFailure, err)
	}
	return res >= 0, nil
}

// CountExperiments returns the number of stored experiments.
func (s *Store) CountExperiments(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.experimentsIndex()).Result()
	if err != nil {
		return 0, errors.Join(abtest.ErrStoreFailure, err)
	}
	return int(n), nil
}

// CountGoals returns the number of stored goals.
func (s *Store) CountGoals(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.goalsIndex()).Result()
	if err != nil {
		return 0, errors.Join(abtest.ErrStoreFailure, err)
	}
	return int(n), nil
}

// Experiments returns every experiment in creation order.
func (s *Store) Experiments(ctx context.Context) ([]abtest.Experiment, error) {
	names, err := s.client.LRange(ctx, s.experimentsIndex(), 0, -1).Result()
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = s.experimentKey(name)
	}

	hashes, err := s.hashes(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]abtest.Experiment, 0, len(hashes))
	for _, fields := range hashes {
		out = append(out, *parseExperiment(fields))
	}
	return out, nil
}

// Goals returns every goal in creation order.
func (s *Store) Goals(ctx context.Context) ([]abtest.Goal, error) {
	keys, err := s.client.LRange(ctx, s.goalsIndex(), 0, -1).Result()
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}

	hashes, err := s.hashes(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]abtest.Goal, 0, len(hashes))
	for _, fields := range hashes {
		out = append(out, *parseGoal(fields))
	}
	return out, nil
}

// hashes loads keys in one pipeline, skipping keys that no longer exist.
func (s *Store) hashes(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = p.HGetAll(ctx, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Join(abtest.ErrStoreFailure, err)
	}

	out := make([]map[string]string, 0, len(cmds))
	for _, cmd := range cmds {
		if fields := cmd.Val(); len(fields) > 0 {
			out = append(out, fields)
		}
	}
	return out, nil
}

// LeastVisited returns the experiment among names with the fewest visitors; ties go to the earliest name.
func (s *Store) LeastVisited(ctx context.Context, names []string) (*abtest.Experiment, error) {
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = s.experimentKey(name)
	}
	hashes, err := s.hashes(ctx, keys)
	if err != nil {
		return nil, err
	}

	var best *abtest.Experiment
	for _, fields := range hashes {
		e := parseExperiment(fields)
		if best == nil || e.Visitors < best.Visitors {
			best = e
		}
	}
	if best == nil {
		return nil, abtest.ErrNoExperiments
	}
	return best, nil
}

// Flush deletes every key the store has written.
func (s *Store) Flush(ctx context.Context) error {
	names, err := s.client.LRange(ctx, s.experimentsIndex(), 0, -1).Result()
	if err != nil {
		return errors.Join(abtest.ErrStoreFailure, err)
	}
	goals, err := s.client.LRange(ctx, s.goalsIndex(), 0, -1).Result()
	if err != nil {
		return errors.Join(abtest.ErrStoreFailure, err)
	}

	keys := append(goals, s.experimentsIndex(), s.goalsIndex(), s.sequence())
	for _, name := range names {
		keys = append(keys, s.experimentKey(name))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Join(abtest.ErrStoreFailure, err)
	}
	return nil
}

func parseExperiment(fields map[string]string) *abtest.Experiment {
	return &abtest.Experiment{
		ID:         parseInt(fields["id"]),
		Name:       fields["name"],
		Visitors:   uint64(parseInt(fields["visitors"])),
		Engagement: uint64(parseInt(fields["engagement"])),
		CreatedAt:  parseTime(fields["created_at"]),
		UpdatedAt:  parseTime(fields["updated_at"]),
	}
}

func parseGoal(fields map[string]string) *abtest.Goal {
	return &abtest.Goal{
		ID:         parseInt(fields["id"]),
		Name:       fields["name"],
		Experiment: fields["experiment"],
		Count:      uint64(parseInt(fields["count"])),
		CreatedAt:  parseTime(fields["created_at"]),
		UpdatedAt:  parseTime(fields["updated_at"]),
	}
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
