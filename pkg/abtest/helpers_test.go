package abtest_test

import (
	"context"
	"errors"
	"maps"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/abkit/pkg/abtest"
)

// memSession is a SessionStore backed by a plain map.
type memSession struct {
	data   map[string]any
	clears int
	setErr error
}

func newSession() *memSession {
	return &memSession{data: make(map[string]any)}
}

func (s *memSession) Get(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

func (s *memSession) Set(_ context.Context, key string, value any) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func (s *memSession) Clear(context.Context) error {
	s.data = make(map[string]any)
	s.clears++
	return nil
}

func (s *memSession) snapshot() map[string]any {
	return maps.Clone(s.data)
}

// failingStore fails every experiment increment.
type failingStore struct {
	*abtest.MemoryStore
}

var errStoreDown = errors.New("store down")

func (f failingStore) IncrementExperiment(context.Context, string, abtest.Counter) error {
	return errStoreDown
}

func newTester(t *testing.T, experiments, goals []string, opts ...abtest.Option) (*abtest.Tester, *abtest.MemoryStore) {
	t.Helper()

	store := abtest.NewMemoryStore()
	tester := abtest.New(abtest.NewCatalog(experiments, goals), store, opts...)
	if len(experiments) > 0 && len(goals) > 0 {
		_, err := tester.Reconcile(context.Background())
		require.NoError(t, err)
	}
	return tester, store
}

func experiment(t *testing.T, store *abtest.MemoryStore, name string) abtest.Experiment {
	t.Helper()
	e, err := store.FindExperiment(context.Background(), name)
	require.NoError(t, err)
	return *e
}

func goalCount(t *testing.T, store *abtest.MemoryStore, experiment, goal string) uint64 {
	t.Helper()
	goals, err := store.Goals(context.Background())
	require.NoError(t, err)
	for _, g := range goals {
		if g.Experiment == experiment && g.Name == goal {
			return g.Count
		}
	}
	t.Fatalf("goal %q not found for experiment %q", goal, experiment)
	return 0
}
