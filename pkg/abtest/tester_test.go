package abtest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/abkit/pkg/abtest"
)

func TestTester_Assignment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("first visitors balance across experiments", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"ctrl", "var"}, []string{"/thanks"})

		first := newSession()
		name, err := tester.ResolveExperiment(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, "ctrl", name)
		assert.Equal(t, uint64(1), experiment(t, store, "ctrl").Visitors)

		second := newSession()
		name, err = tester.ResolveExperiment(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, "var", name)
		assert.Equal(t, uint64(1), experiment(t, store, "var").Visitors)
	})

	t.Run("picks global minimum, ties by catalog order", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"a", "b", "c"}, []string{"signup"})

		for range 3 {
			require.NoError(t, store.IncrementExperiment(ctx, "a", abtest.CounterVisitors))
		}
		require.NoError(t, store.IncrementExperiment(ctx, "b", abtest.CounterVisitors))
		require.NoError(t, store.IncrementExperiment(ctx, "c", abtest.CounterVisitors))

		name, err := tester.ResolveExperiment(ctx, newSession())
		require.NoError(t, err)
		assert.Equal(t, "b", name)

		name, err = tester.ResolveExperiment(ctx, newSession())
		require.NoError(t, err)
		assert.Equal(t, "c", name)
	})

	t.Run("existing assignment is returned unchanged", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"ctrl", "var"}, []string{"/thanks"})

		sess := newSession()
		_, err := tester.ResolveExperiment(ctx, sess)
		require.NoError(t, err)

		for range 5 {
			name, err := tester.ResolveExperiment(ctx, sess)
			require.NoError(t, err)
			assert.Equal(t, "ctrl", name)
		}
		assert.Equal(t, uint64(1), experiment(t, store, "ctrl").Visitors)
		assert.Equal(t, 1, sess.clears)
	})

	t.Run("is compares with the assignment", func(t *testing.T) {
		t.Parallel()
		tester, _ := newTester(t, []string{"ctrl", "var"}, []string{"/thanks"})

		sess := newSession()
		assert.True(t, tester.Is(ctx, sess, "ctrl"))
		assert.False(t, tester.Is(ctx, sess, "var"))
	})

	t.Run("stale stored experiments are not assigned", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"ctrl"}, []string{"/thanks"})
		_, err := store.FirstOrCreateExperiment(ctx, "retired")
		require.NoError(t, err)
		require.NoError(t, store.IncrementExperiment(ctx, "ctrl", abtest.CounterVisitors))

		name, err := tester.ResolveExperiment(ctx, newSession())
		require.NoError(t, err)
		assert.Equal(t, "ctrl", name)
	})
}

func TestTester_NoExperiments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("store not reconciled", func(t *testing.T) {
		t.Parallel()
		tester := abtest.New(abtest.NewCatalog([]string{"ctrl"}, nil), abtest.NewMemoryStore())

		sess := newSession()
		_, err := tester.ResolveExperiment(ctx, sess)
		assert.ErrorIs(t, err, abtest.ErrNoExperiments)

		name, ok := tester.Experiment(ctx, sess)
		assert.False(t, ok)
		assert.Empty(t, name)
		assert.False(t, tester.Is(ctx, sess, "ctrl"))
		assert.Empty(t, sess.snapshot())
	})

	t.Run("empty catalog", func(t *testing.T) {
		t.Parallel()
		tester := abtest.New(abtest.Catalog{}, abtest.NewMemoryStore())

		_, err := tester.ResolveExperiment(ctx, newSession())
		assert.ErrorIs(t, err, abtest.ErrNoExperiments)
	})

	t.Run("nil session", func(t *testing.T) {
		t.Parallel()
		tester, _ := newTester(t, []string{"ctrl"}, []string{"/thanks"})

		_, err := tester.ResolveExperiment(ctx, nil)
		assert.ErrorIs(t, err, abtest.ErrNoSession)
		assert.ErrorIs(t, tester.Track(ctx, nil, abtest.PageRequest{}), abtest.ErrNoSession)
	})

	t.Run("store failure degrades to no experiment", func(t *testing.T) {
		t.Parallel()
		store := abtest.NewMemoryStore()
		tester := abtest.New(abtest.NewCatalog([]string{"ctrl"}, []string{"/thanks"}), failingStore{store})
		_, err := tester.Reconcile(ctx)
		require.NoError(t, err)

		_, ok := tester.Experiment(ctx, newSession())
		assert.False(t, ok)
	})

	t.Run("on-demand reconciliation", func(t *testing.T) {
		t.Parallel()
		store := abtest.NewMemoryStore()
		tester := abtest.New(
			abtest.NewCatalog([]string{"ctrl", "var"}, []string{"/thanks"}),
			store,
			abtest.WithReconcileOnDemand(),
		)

		name, ok := tester.Experiment(ctx, newSession())
		require.True(t, ok)
		assert.Equal(t, "ctrl", name)

		n, err := store.CountGoals(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestTester_SetExperiment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("same experiment twice is a no-op", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"ctrl", "var"}, []string{"/thanks"})

		sess := newSession()
		require.NoError(t, tester.SetExperiment(ctx, sess, "var"))
		require.NoError(t, sess.Set(ctx, "marker", true))

		require.NoError(t, tester.SetExperiment(ctx, sess, "var"))

		assert.Equal(t, uint64(1), experiment(t, store, "var").Visitors)
		assert.Equal(t, 1, sess.clears)
		assert.Equal(t, true, sess.data["marker"])
	})

	t.Run("switching resets flags", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"a", "b"}, []string{"/thanks"})
		sess := newSession()
		nav := abtest.PageRequest{Root: "http://example.com", Referrer: "http://example.com/", Path: "/thanks"}

		require.NoError(t, tester.SetExperiment(ctx, sess, "a"))
		require.NoError(t, tester.Track(ctx, sess, nav))
		assert.Equal(t, uint64(1), goalCount(t, store, "a", "/thanks"))
		assert.Equal(t, uint64(1), experiment(t, store, "a").Engagement)

		require.NoError(t, tester.SetExperiment(ctx, sess, "b"))
		_, completed := sess.Get(abtest.CompletedKey("/thanks"))
		assert.False(t, completed)
		_, interacted := sess.Get(abtest.KeyInteracted)
		assert.False(t, interacted)
		assert.Equal(t, uint64(1), experiment(t, store, "b").Visitors)

		require.NoError(t, tester.Track(ctx, sess, nav))
		assert.Equal(t, uint64(1), goalCount(t, store, "b", "/thanks"))
		assert.Equal(t, uint64(1), experiment(t, store, "b").Engagement)
		assert.Equal(t, uint64(1), goalCount(t, store, "a", "/thanks"))
	})

	t.Run("unknown experiment", func(t *testing.T) {
		t.Parallel()
		tester, _ := newTester(t, []string{"ctrl"}, []string{"/thanks"})

		sess := newSession()
		require.NoError(t, tester.SetExperiment(ctx, sess, "ctrl"))
		before := sess.snapshot()

		err := tester.SetExperiment(ctx, sess, "missing")
		assert.ErrorIs(t, err, abtest.ErrExperimentNotFound)
		assert.Equal(t, before, sess.snapshot())
	})
}

func TestTester_Pageview(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("counts once per assignment", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"ctrl"}, []string{"/thanks"})
		sess := newSession()

		for range 10 {
			require.NoError(t, tester.Pageview(ctx, sess))
			require.NoError(t, tester.Track(ctx, sess, abtest.PageRequest{Path: "/"}))
		}
		assert.Equal(t, uint64(1), experiment(t, store, "ctrl").Visitors)
	})

	t.Run("flag written after increment", func(t *testing.T) {
		t.Parallel()
		store := abtest.NewMemoryStore()
		tester := abtest.New(abtest.NewCatalog([]string{"ctrl"}, []string{"/thanks"}), failingStore{store})
		_, err := tester.Reconcile(ctx)
		require.NoError(t, err)

		sess := newSession()
		err = tester.SetExperiment(ctx, sess, "ctrl")
		assert.ErrorIs(t, err, errStoreDown)
		_, ok := sess.Get(abtest.KeyPageview)
		assert.False(t, ok)
	})

	t.Run("accepts flags decoded from strings and numbers", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"ctrl"}, []string{"/thanks"})
		sess := newSession()
		sess.data[abtest.KeyExperiment] = "ctrl"
		sess.data[abtest.KeyPageview] = float64(1)
		sess.data[abtest.KeyInteracted] = "true"

		require.NoError(t, tester.Pageview(ctx, sess))
		require.NoError(t, tester.Interact(ctx, sess))

		e := experiment(t, store, "ctrl")
		assert.Zero(t, e.Visitors)
		assert.Zero(t, e.Engagement)
	})
}

func TestTester_Complete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("counts once per session", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"ctrl"}, []string{"signup"})
		sess := newSession()

		for range 3 {
			require.NoError(t, tester.Complete(ctx, sess, "signup"))
		}
		assert.Equal(t, uint64(1), goalCount(t, store, "ctrl", "signup"))

		require.NoError(t, tester.Complete(ctx, newSession(), "signup"))
		assert.Equal(t, uint64(2), goalCount(t, store, "ctrl", "signup"))
	})

	t.Run("unknown goal", func(t *testing.T) {
		t.Parallel()
		tester, _ := newTester(t, []string{"ctrl"}, []string{"signup"})
		sess := newSession()

		err := tester.Complete(ctx, sess, "checkout")
		assert.ErrorIs(t, err, abtest.ErrGoalNotFound)
		_, ok := sess.Get(abtest.CompletedKey("checkout"))
		assert.False(t, ok)
	})

	t.Run("missing goal rows created on demand", func(t *testing.T) {
		t.Parallel()
		store := abtest.NewMemoryStore()
		_, err := store.FirstOrCreateExperiment(ctx, "ctrl")
		require.NoError(t, err)

		tester := abtest.New(abtest.NewCatalog([]string{"ctrl"}, []string{"signup"}), store, abtest.WithReconcileOnDemand())
		sess := newSession()
		require.NoError(t, tester.Complete(ctx, sess, "signup"))
		assert.Equal(t, uint64(1), goalCount(t, store, "ctrl", "signup"))
	})
}

func TestNew_PanicsWithoutStore(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() {
		abtest.New(abtest.Catalog{}, nil)
	})
}
