package abtest

import (
	"context"
	"errors"

	"github.com/dmitrymomot/abkit/pkg/logger"
)

// Reconcile creates every catalog experiment and (experiment, goal) pair
// missing from the counter store. Existing rows, stale ones included, are
// left alone. ErrNoGoals is returned after experiments were reconciled when
// the catalog has no goals.
func (t *Tester) Reconcile(ctx context.Context) (ReconcileResult, error) {
	experiments, err := t.ReconcileExperiments(ctx)
	if err != nil {
		return experiments, err
	}
	goals, err := t.ReconcileGoals(ctx)
	if experiments == Reconciled || goals == Reconciled {
		return Reconciled, err
	}
	return AlreadyCurrent, err
}

// ReconcileExperiments creates missing catalog experiments with zero counters.
func (t *Tester) ReconcileExperiments(ctx context.Context) (ReconcileResult, error) {
	if len(t.catalog.Experiments) == 0 {
		return AlreadyCurrent, ErrNoExperiments
	}

	stored, err := t.counters.Experiments(ctx)
	if err != nil {
		return AlreadyCurrent, err
	}
	known := make(map[string]struct{}, len(stored))
	for _, e := range stored {
		known[e.Name] = struct{}{}
	}

	result := AlreadyCurrent
	for _, name := range t.catalog.Experiments {
		if _, ok := known[name]; ok {
			continue
		}
		if _, err := t.counters.FirstOrCreateExperiment(ctx, name); err != nil {
			return result, err
		}
		t.log.InfoContext(ctx, "experiment created", logger.Experiment(name))
		result = Reconciled
	}
	return result, nil
}

// ReconcileGoals creates missing goal rows for every stored catalog experiment.
func (t *Tester) ReconcileGoals(ctx context.Context) (ReconcileResult, error) {
	if len(t.catalog.Goals) == 0 {
		return AlreadyCurrent, ErrNoGoals
	}

	experiments, err := t.counters.Experiments(ctx)
	if err != nil {
		return AlreadyCurrent, err
	}
	goals, err := t.counters.Goals(ctx)
	if err != nil {
		return AlreadyCurrent, err
	}

	type pair struct{ experiment, goal string }
	known := make(map[pair]struct{}, len(goals))
	for _, g := range goals {
		known[pair{g.Experiment, g.Name}] = struct{}{}
	}

	result := AlreadyCurrent
	for _, e := range experiments {
		if !t.catalog.HasExperiment(e.Name) {
			continue
		}
		for _, goal := range t.catalog.Goals {
			if _, ok := known[pair{e.Name, goal}]; ok {
				continue
			}
			if _, err := t.counters.FirstOrCreateGoal(ctx, e.Name, goal); err != nil {
				return result, err
			}
			result = Reconciled
		}
	}
	if result == Reconciled {
		t.log.InfoContext(ctx, "goals reconciled", logger.Component("abtest"))
	}
	return result, nil
}

// ensureReconciled runs Reconcile once per process when on-demand
// reconciliation is enabled. A catalog without goals does not block assignment.
func (t *Tester) ensureReconciled(ctx context.Context) error {
	if !t.onDemand || t.reconciled.Load() {
		return nil
	}

	t.reconcileMu.Lock()
	defer t.reconcileMu.Unlock()
	if t.reconciled.Load() {
		return nil
	}

	if _, err := t.Reconcile(ctx); err != nil && !errors.Is(err, ErrNoGoals) {
		return err
	}
	t.reconciled.Store(true)
	return nil
}
