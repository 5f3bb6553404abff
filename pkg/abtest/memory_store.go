package abtest

import (
	"context"
	"sync"
	"time"
)

type goalKey struct {
	experiment string
	goal       string
}

// MemoryStore is an in-memory CounterStore. It is safe for concurrent use
// and suits tests and single-instance deployments.
type MemoryStore struct {
	mu          sync.RWMutex
	experiments []*Experiment
	byName      map[string]*Experiment
	goals       []*Goal
	byPair      map[goalKey]*Goal
	lastID      int64
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byName: make(map[string]*Experiment),
		byPair: make(map[goalKey]*Goal),
	}
}

// FindExperiment returns a copy of the named experiment.
func (m *MemoryStore) FindExperiment(ctx context.Context, name string) (*Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.byName[name]
	if !ok {
		return nil, ErrExperimentNotFound
	}
	cp := *e
	return &cp, nil
}

// FirstOrCreateExperiment returns the named experiment, creating it with zero counters.
func (m *MemoryStore) FirstOrCreateExperiment(ctx context.Context, name string) (*Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.byName[name]; ok {
		cp := *e
		return &cp, nil
	}

	now := time.Now()
	m.lastID++
	e := &Experiment{ID: m.lastID, Name: name, CreatedAt: now, UpdatedAt: now}
	m.experiments = append(m.experiments, e)
	m.byName[name] = e

	cp := *e
	return &cp, nil
}

// FirstOrCreateGoal returns the goal for experiment, creating it with a zero count.
// The experiment must exist.
func (m *MemoryStore) FirstOrCreateGoal(ctx context.Context, experiment, goal string) (*Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byName[experiment]; !ok {
		return nil, ErrExperimentNotFound
	}

	key := goalKey{experiment, goal}
	if g, ok := m.byPair[key]; ok {
		cp := *g
		return &cp, nil
	}

	now := time.Now()
	m.lastID++
	g := &Goal{ID: m.lastID, Name: goal, Experiment: experiment, CreatedAt: now, UpdatedAt: now}
	m.goals = append(m.goals, g)
	m.byPair[key] = g

	cp := *g
	return &cp, nil
}

// IncrementExperiment adds one to the experiment counter.
func (m *MemoryStore) IncrementExperiment(ctx context.Context, name string, counter Counter) error {
	if !counter.Valid() {
		return ErrInvalidCounter
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byName[name]
	if !ok {
		return ErrExperimentNotFound
	}
	switch counter {
	case CounterVisitors:
		e.Visitors++
	case CounterEngagement:
		e.Engagement++
	}
	e.UpdatedAt = time.Now()
	return nil
}

// IncrementGoal adds one to the goal count of experiment.
func (m *MemoryStore) IncrementGoal(ctx context.Context, experiment, goal string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.byPair[goalKey{experiment, goal}]
	if !ok {
		return ErrGoalNotFound
	}
	g.Count++
	g.UpdatedAt = time.Now()
	return nil
}

// CountExperiments returns the number of stored experiments.
func (m *MemoryStore) CountExperiments(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.experiments), nil
}

// CountGoals returns the number of stored goal rows.
func (m *MemoryStore) CountGoals(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.goals), nil
}

// Experiments returns copies of all experiments in creation order.
func (m *MemoryStore) Experiments(ctx context.Context) ([]Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Experiment, 0, len(m.experiments))
	for _, e := range m.experiments {
		out = append(out, *e)
	}
	return out, nil
}

// Goals returns copies of all goals in creation order.
func (m *MemoryStore) Goals(ctx context.Context) ([]Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Goal, 0, len(m.goals))
	for _, g := range m.goals {
		out = append(out, *g)
	}
	return out, nil
}

// LeastVisited returns the stored experiment among names with the fewest visitors.
func (m *MemoryStore) LeastVisited(ctx context.Context, names []string) (*Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *Experiment
	for _, name := range names {
		e, ok := m.byName[name]
		if !ok {
			continue
		}
		if best == nil || e.Visitors < best.Visitors {
			best = e
		}
	}
	if best == nil {
		return nil, ErrNoExperiments
	}
	cp := *best
	return &cp, nil
}

// Flush removes every experiment and goal.
func (m *MemoryStore) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.experiments = nil
	m.goals = nil
	m.byName = make(map[string]*Experiment)
	m.byPair = make(map[goalKey]*Goal)
	return nil
}
