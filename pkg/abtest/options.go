package abtest

import "log/slog"

// Option configures a Tester.
type Option func(*Tester)

// WithLogger sets the logger used for swallowed failures and assignment events.
// A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tester) {
		if l != nil {
			t.log = l
		}
	}
}

// WithReconcileOnDemand makes the Tester reconcile the catalog with the counter
// store the first time a request needs it (assignment, or a missing goal row).
// Reconciliation then runs at most once per process unless it fails.
func WithReconcileOnDemand() Option {
	return func(t *Tester) {
		t.onDemand = true
	}
}
