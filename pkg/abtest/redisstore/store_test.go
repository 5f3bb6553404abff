package redisstore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/abkit/pkg/abtest"
	"github.com/dmitrymomot/abkit/pkg/abtest/redisstore"
)

func newStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redisstore.New(client, redisstore.WithPrefix("test:")), mr
}

func TestStore_FirstOrCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newStore(t)

	a, err := store.FirstOrCreateExperiment(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, int64(1), a.ID)
	assert.Zero(t, a.Visitors)
	assert.False(t, a.CreatedAt.IsZero())

	again, err := store.FirstOrCreateExperiment(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID)

	g, err := store.FirstOrCreateGoal(ctx, "a", "pricing:order")
	require.NoError(t, err)
	assert.Equal(t, "pricing:order", g.Name)
	assert.Equal(t, "a", g.Experiment)

	_, err = store.FirstOrCreateGoal(ctx, "missing", "signup")
	assert.ErrorIs(t, err, abtest.ErrExperimentNotFound)

	assert.True(t, mr.Exists("test:experiment:a"))
	n, err := store.CountGoals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_Increments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newStore(t)

	_, err := store.FirstOrCreateExperiment(ctx, "a")
	require.NoError(t, err)
	_, err = store.FirstOrCreateGoal(ctx, "a", "signup")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.IncrementExperiment(ctx, "a", abtest.CounterVisitors))
			assert.NoError(t, store.IncrementExperiment(ctx, "a", abtest.CounterEngagement))
			assert.NoError(t, store.IncrementGoal(ctx, "a", "signup"))
		}()
	}
	wg.Wait()

	e, err := store.FindExperiment(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, uint64(25), e.Visitors)
	assert.Equal(t, uint64(25), e.Engagement)

	goals, err := store.Goals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, uint64(25), goals[0].Count)

	assert.ErrorIs(t, store.IncrementExperiment(ctx, "b", abtest.CounterVisitors), abtest.ErrExperimentNotFound)
	assert.ErrorIs(t, store.IncrementGoal(ctx, "a", "checkout"), abtest.ErrGoalNotFound)
	assert.ErrorIs(t, store.IncrementExperiment(ctx, "a", abtest.Counter("clicks")), abtest.ErrInvalidCounter)
}

func TestStore_LeastVisited(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newStore(t)

	for _, name := range []string{"a", "b", "c"} {
		_, err := store.FirstOrCreateExperiment(ctx, name)
		require.NoError(t, err)
	}
	require.NoError(t, store.IncrementExperiment(ctx, "a", abtest.CounterVisitors))

	e, err := store.LeastVisited(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, "b", e.Name)

	e, err = store.LeastVisited(ctx, []string{"a", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, "a", e.Name)

	_, err = store.LeastVisited(ctx, []string{"unknown"})
	assert.ErrorIs(t, err, abtest.ErrNoExperiments)
}

func TestStore_Flush(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newStore(t)

	_, err := store.FirstOrCreateExperiment(ctx, "a")
	require.NoError(t, err)
	_, err = store.FirstOrCreateGoal(ctx, "a", "signup")
	require.NoError(t, err)

	require.NoError(t, store.Flush(ctx))
	assert.Empty(t, mr.Keys())

	experiments, err := store.Experiments(ctx)
	require.NoError(t, err)
	assert.Empty(t, experiments)
}

func TestStore_WithTester(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newStore(t)

	tester := abtest.New(abtest.NewCatalog([]string{"ctrl", "var"}, []string{"/thanks"}), store)
	res, err := tester.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, abtest.Reconciled, res)

	n, err := store.CountGoals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err = tester.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, abtest.AlreadyCurrent, res)
}
