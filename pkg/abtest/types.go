package abtest

import (
	"context"
	"time"
)

// Experiment is one arm of an A/B test with its aggregate counters.
type Experiment struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Visitors   uint64    `json:"visitors"`
	Engagement uint64    `json:"engagement"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

// Goal is a conversion counter scoped to a single experiment.
type Goal struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Experiment string    `json:"experiment"`
	Count      uint64    `json:"count"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

// Counter names an experiment counter that can be incremented.
type Counter string

const (
	CounterVisitors   Counter = "visitors"
	CounterEngagement Counter = "engagement"
)

// Valid reports whether c is a known experiment counter.
func (c Counter) Valid() bool {
	return c == CounterVisitors || c == CounterEngagement
}

// PageRequest describes an inbound page view.
type PageRequest struct {
	// Root is the site root URL, e.g. "https://example.com".
	Root string
	// Referrer is the raw Referer header value; empty when absent.
	Referrer string
	// Path is the current request path.
	Path string
	// Route is the resolved route name; empty when the router has none.
	Route string
}

// SessionStore is a key-value bag scoped to a single visitor.
// Clear resets every key at once.
type SessionStore interface {
	Get(key string) (any, bool)
	Set(ctx context.Context, key string, value any) error
	Clear(ctx context.Context) error
}

// CounterStore persists experiments and goals.
// Increment methods must perform a single atomic "+1" in the backing store.
type CounterStore interface {
	// FindExperiment returns ErrExperimentNotFound for unknown names.
	FindExperiment(ctx context.Context, name string) (*Experiment, error)
	FirstOrCreateExperiment(ctx context.Context, name string) (*Experiment, error)
	FirstOrCreateGoal(ctx context.Context, experiment, goal string) (*Goal, error)

	// IncrementExperiment returns ErrExperimentNotFound when no row matched.
	IncrementExperiment(ctx context.Context, name string, counter Counter) error
	// IncrementGoal returns ErrGoalNotFound when no row matched.
	IncrementGoal(ctx context.Context, experiment, goal string) error

	CountExperiments(ctx context.Context) (int, error)
	CountGoals(ctx context.Context) (int, error)

	// Experiments and Goals return every stored row in creation order.
	Experiments(ctx context.Context) ([]Experiment, error)
	Goals(ctx context.Context) ([]Goal, error)

	// LeastVisited returns the experiment among names with the fewest visitors.
	// Ties resolve to the earliest name in names. Returns ErrNoExperiments
	// when none of names is stored.
	LeastVisited(ctx context.Context, names []string) (*Experiment, error)
}

// ReconcileResult tags the outcome of a catalog reconciliation.
type ReconcileResult int

const (
	AlreadyCurrent ReconcileResult = iota
	Reconciled
)

// String returns the snake_case name used in logs and CLI output.
func (r ReconcileResult) String() string {
	if r == Reconciled {
		return "reconciled"
	}
	return "already_current"
}

// Flusher is implemented by counter stores that can drop all their data.
type Flusher interface {
	Flush(ctx context.Context) error
}
