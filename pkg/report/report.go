package report

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dmitrymomot/abkit/pkg/abtest"
)

// Source is the read side of a counter store.
type Source interface {
	Experiments(ctx context.Context) ([]abtest.Experiment, error)
	Goals(ctx context.Context) ([]abtest.Goal, error)
}

// Report is a point-in-time snapshot of every stored experiment.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Experiments []Row     `json:"experiments"`
}

// Row is one experiment with its goals.
type Row struct {
	Name           string    `json:"name"`
	Visitors       uint64    `json:"visitors"`
	Engagement     uint64    `json:"engagement"`
	EngagementRate float64   `json:"engagement_rate"`
	Stale          bool      `json:"stale,omitempty"`
	Goals          []GoalRow `json:"goals"`
}

// GoalRow is one goal counter with its conversion rate against the experiment visitors.
type GoalRow struct {
	Name           string  `json:"name"`
	Count          uint64  `json:"count"`
	ConversionRate float64 `json:"conversion_rate"`
	Stale          bool    `json:"stale,omitempty"`
}

// Option configures Build.
type Option func(*builder)

type builder struct {
	now func() time.Time
}

// WithClock overrides the clock used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(b *builder) {
		if now != nil {
			b.now = now
		}
	}
}

// Build reads every experiment and goal from src.
// Experiments follow catalog order; rows no longer in the catalog are appended
// in store order and flagged stale. Goals within a row follow the same rule.
func Build(ctx context.Context, src Source, catalog abtest.Catalog, opts ...Option) (*Report, error) {
	if src == nil {
		return nil, ErrNilStore
	}
	b := builder{now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}

	experiments, err := src.Experiments(ctx)
	if err != nil {
		return nil, errors.Join(ErrBuildFailed, err)
	}
	goals, err := src.Goals(ctx)
	if err != nil {
		return nil, errors.Join(ErrBuildFailed, err)
	}

	goalsByExperiment := make(map[string][]abtest.Goal, len(experiments))
	for _, g := range goals {
		goalsByExperiment[g.Experiment] = append(goalsByExperiment[g.Experiment], g)
	}

	ordered := orderBy(experiments, catalog.Experiments, func(e abtest.Experiment) string { return e.Name })
	rows := make([]Row, 0, len(ordered))
	for _, e := range ordered {
		row := Row{
			Name:           e.Name,
			Visitors:       e.Visitors,
			Engagement:     e.Engagement,
			EngagementRate: rate(e.Engagement, e.Visitors),
			Stale:          !catalog.HasExperiment(e.Name),
		}
		expGoals := orderBy(goalsByExperiment[e.Name], catalog.Goals, func(g abtest.Goal) string { return g.Name })
		row.Goals = make([]GoalRow, 0, len(expGoals))
		for _, g := range expGoals {
			row.Goals = append(row.Goals, GoalRow{
				Name:           g.Name,
				Count:          g.Count,
				ConversionRate: rate(g.Count, e.Visitors),
				Stale:          !catalog.HasGoal(g.Name),
			})
		}
		rows = append(rows, row)
	}

	return &Report{
		GeneratedAt: b.now().UTC(),
		Experiments: rows,
	}, nil
}

// Row returns the row for the named experiment.
func (r *Report) Row(name string) (Row, bool) {
	for _, row := range r.Experiments {
		if row.Name == name {
			return row, true
		}
	}
	return Row{}, false
}

func rate(n, visitors uint64) float64 {
	if visitors == 0 {
		return 0
	}
	return float64(n) / float64(visitors)
}

// orderBy puts items named in order first, then the rest in their original order.
func orderBy[T any](items []T, order []string, name func(T) string) []T {
	out := make([]T, 0, len(items))
	used := make([]bool, len(items))
	for _, n := range order {
		for i, it := range items {
			if !used[i] && name(it) == n {
				out = append(out, it)
				used[i] = true
				break
			}
		}
	}
	for i, it := range items {
		if !used[i] {
			out = append(out, it)
		}
	}
	return slices.Clip(out)
}
