package mongostore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/abkit/pkg/abtest"
	"github.com/dmitrymomot/abkit/pkg/abtest/mongostore"
	"github.com/dmitrymomot/abkit/pkg/mongo"
)

func newStore(t *testing.T) *mongostore.Store {
	t.Helper()

	url := os.Getenv("MONGODB_URL")
	if url == "" {
		t.Skip("MONGODB_URL is not set")
	}

	ctx := context.Background()
	db, err := mongo.ConnectDatabase(ctx, mongo.Config{
		ConnectionURL:  url,
		Database:       fmt.Sprintf("abkit_test_%d", time.Now().UnixNano()),
		ConnectTimeout: 5 * time.Second,
		MaxPoolSize:    4,
		RetryAttempts:  1,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = db.Client().Disconnect(context.Background())
	})

	return mongostore.New(db)
}

func TestStore(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	tester := abtest.New(abtest.NewCatalog([]string{"a", "b"}, []string{"signup"}), store)
	res, err := tester.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, abtest.Reconciled, res)

	t.Run("rows keep creation order", func(t *testing.T) {
		experiments, err := store.Experiments(ctx)
		require.NoError(t, err)
		require.Len(t, experiments, 2)
		assert.Equal(t, "a", experiments[0].Name)
		assert.Less(t, experiments[0].ID, experiments[1].ID)
	})

	t.Run("increments", func(t *testing.T) {
		require.NoError(t, store.IncrementExperiment(ctx, "a", abtest.CounterVisitors))
		require.NoError(t, store.IncrementGoal(ctx, "a", "signup"))

		e, err := store.FindExperiment(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), e.Visitors)

		assert.ErrorIs(t, store.IncrementExperiment(ctx, "zzz", abtest.CounterVisitors), abtest.ErrExperimentNotFound)
		assert.ErrorIs(t, store.IncrementGoal(ctx, "a", "zzz"), abtest.ErrGoalNotFound)
	})

	t.Run("least visited", func(t *testing.T) {
		e, err := store.LeastVisited(ctx, []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, "b", e.Name)
	})

	t.Run("flush", func(t *testing.T) {
		require.NoError(t, store.Flush(ctx))
		n, err := store.CountGoals(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
