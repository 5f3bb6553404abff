package abtest

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/abkit/pkg/logger"
)

// Session keys written by the Tester.
const (
	KeyExperiment = "experiment"
	KeyPageview   = "pageview"
	KeyInteracted = "interacted"

	completedPrefix = "completed:"
)

// CompletedKey returns the session key flagging goal as completed.
func CompletedKey(goal string) string {
	return completedPrefix + goal
}

// Tester assigns visitors to experiments and records their events.
// It keeps no per-visitor state; every call receives the visitor's SessionStore.
type Tester struct {
	catalog  Catalog
	counters CounterStore
	log      *slog.Logger

	onDemand    bool
	reconcileMu sync.Mutex
	reconciled  atomic.Bool
}

// New creates a Tester for the catalog backed by counters.
// Panics when counters is nil.
func New(catalog Catalog, counters CounterStore, opts ...Option) *Tester {
	if counters == nil {
		panic("abtest: counter store is required")
	}
	t := &Tester{
		catalog:  catalog.Normalize(),
		counters: counters,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Catalog returns the configured catalog.
func (t *Tester) Catalog() Catalog {
	return Catalog{
		Experiments: append([]string(nil), t.catalog.Experiments...),
		Goals:       append([]string(nil), t.catalog.Goals...),
	}
}

// Current returns the experiment assigned to the session without assigning one.
func (t *Tester) Current(sess SessionStore) (string, bool) {
	if sess == nil {
		return "", false
	}
	v, ok := sess.Get(KeyExperiment)
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok && name != ""
}

// ResolveExperiment returns the session's experiment, assigning the least
// visited catalog experiment when the session has none.
func (t *Tester) ResolveExperiment(ctx context.Context, sess SessionStore) (string, error) {
	if sess == nil {
		return "", ErrNoSession
	}
	if name, ok := t.Current(sess); ok {
		return name, nil
	}
	return t.assign(ctx, sess, "")
}

// Experiment is the page-safe form of ResolveExperiment: any failure is
// logged and reported as no active experiment.
func (t *Tester) Experiment(ctx context.Context, sess SessionStore) (string, bool) {
	name, err := t.ResolveExperiment(ctx, sess)
	if err != nil {
		t.log.WarnContext(ctx, "A/B tracking disabled for request", logger.Error(err))
		return "", false
	}
	return name, true
}

// Is reports whether the session is in the target experiment.
func (t *Tester) Is(ctx context.Context, sess SessionStore, target string) bool {
	name, ok := t.Experiment(ctx, sess)
	return ok && name == target
}

// SetExperiment assigns the session to name. Assigning the active experiment
// is a no-op. Unknown experiments yield ErrExperimentNotFound and leave the
// session untouched.
func (t *Tester) SetExperiment(ctx context.Context, sess SessionStore, name string) error {
	if sess == nil {
		return ErrNoSession
	}
	if current, ok := t.Current(sess); ok && current == name {
		return nil
	}
	_, err := t.assign(ctx, sess, name)
	return err
}

// assign resets the session and binds it to name, or to the least visited
// experiment when name is empty.
func (t *Tester) assign(ctx context.Context, sess SessionStore, name string) (string, error) {
	if err := t.ensureReconciled(ctx); err != nil {
		return "", err
	}

	var (
		exp *Experiment
		err error
	)
	if name == "" {
		if len(t.catalog.Experiments) == 0 {
			return "", ErrNoExperiments
		}
		exp, err = t.counters.LeastVisited(ctx, t.catalog.Experiments)
	} else {
		exp, err = t.counters.FindExperiment(ctx, name)
	}
	if err != nil {
		return "", err
	}

	if err := sess.Clear(ctx); err != nil {
		return "", err
	}
	if err := sess.Set(ctx, KeyExperiment, exp.Name); err != nil {
		return "", err
	}

	t.log.DebugContext(ctx, "experiment assigned", logger.Experiment(exp.Name))

	if err := t.Pageview(ctx, sess); err != nil {
		return exp.Name, err
	}
	return exp.Name, nil
}

// Pageview counts the session as a visitor of its experiment, once per assignment.
func (t *Tester) Pageview(ctx context.Context, sess SessionStore) error {
	return t.once(ctx, sess, KeyPageview, CounterVisitors)
}

// Interact counts the session as engaged with its experiment, once per assignment.
func (t *Tester) Interact(ctx context.Context, sess SessionStore) error {
	return t.once(ctx, sess, KeyInteracted, CounterEngagement)
}

func (t *Tester) once(ctx context.Context, sess SessionStore, flag string, counter Counter) error {
	// Resolve first: a fresh assignment records its own pageview.
	name, err := t.ResolveExperiment(ctx, sess)
	if err != nil {
		return err
	}
	if isSet(sess, flag) {
		return nil
	}

	err = t.counters.IncrementExperiment(ctx, name, counter)
	if errors.Is(err, ErrExperimentNotFound) && t.onDemand {
		if _, rerr := t.ReconcileExperiments(ctx); rerr != nil {
			return errors.Join(err, rerr)
		}
		err = t.counters.IncrementExperiment(ctx, name, counter)
	}
	if err != nil {
		return err
	}

	return sess.Set(ctx, flag, true)
}

// Complete records goal for the session's experiment, once per assignment.
func (t *Tester) Complete(ctx context.Context, sess SessionStore, goal string) error {
	name, err := t.ResolveExperiment(ctx, sess)
	if err != nil {
		return err
	}
	key := CompletedKey(goal)
	if isSet(sess, key) {
		return nil
	}

	err = t.counters.IncrementGoal(ctx, name, goal)
	if errors.Is(err, ErrGoalNotFound) && t.onDemand {
		if _, rerr := t.ReconcileGoals(ctx); rerr != nil {
			return errors.Join(err, rerr)
		}
		err = t.counters.IncrementGoal(ctx, name, goal)
	}
	if err != nil {
		return err
	}

	t.log.DebugContext(ctx, "goal completed", logger.Experiment(name), logger.Goal(goal))

	return sess.Set(ctx, key, true)
}

// isSet interprets flag values that may have been round-tripped through
// cookies, JSON or form encoding.
func isSet(sess SessionStore, key string) bool {
	v, ok := sess.Get(key)
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case int:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}
