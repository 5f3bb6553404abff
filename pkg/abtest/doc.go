// Package abtest assigns anonymous visitors to experiments and records
// per-session pageviews, engagement and goal completions.
//
// A Tester combines a static Catalog (experiment and goal names) with a
// CounterStore (durable counters). Every operation receives the visitor's
// SessionStore explicitly; the Tester itself holds no per-visitor state.
//
// # Assignment
//
// A visitor without an experiment is assigned to the catalog experiment with
// the fewest recorded visitors; ties resolve to catalog order. Assignment
// resets the whole session bag and counts the visitor immediately.
// SetExperiment overrides the assignment manually.
//
// # Tracking
//
// Counters move at most once per session per assignment, guarded by session
// flags:
//
//   - "pageview"            experiment visitors
//   - "interacted"          experiment engagement (navigation to a different page)
//   - "completed:<goal>"    goal count for the session's experiment
//
// Increments are single atomic store operations, so concurrent tabs of one
// visitor can at worst attempt an increment twice, never lose one.
//
// # Usage
//
//	store := abtest.NewMemoryStore()
//	tester := abtest.New(abtest.NewCatalog(
//	    []string{"big-logo", "small-buttons"},
//	    []string{"pricing/order", "signup"},
//	), store, abtest.WithLogger(log))
//
//	if _, err := tester.Reconcile(ctx); err != nil {
//	    // handle ErrNoExperiments / ErrNoGoals
//	}
//
//	r := chi.NewRouter()
//	r.Use(abtest.Middleware(tester, openSession, abtest.WithAutoAssign()))
//	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
//	    if name, ok := abtest.ExperimentFromContext(r.Context()); ok && name == "big-logo" {
//	        // render variant
//	    }
//	})
//	r.Method(http.MethodGet, "/signup", abtest.Named("signup", signupHandler))
//
// # Error Handling
//
//   - ErrNoExperiments, ErrNoGoals – incomplete catalog or store; tracking is skipped
//   - ErrExperimentNotFound        – SetExperiment with an unknown name
//   - ErrGoalNotFound              – goal row missing for the session's experiment
//
// Experiment and Middleware log failures and degrade to "no experiment"
// instead of failing the page.
package abtest
