package abtest

import "errors"

var (
	// ErrNoExperiments indicates that the catalog or the counter store holds no experiments
	ErrNoExperiments = errors.New("abtest.no_experiments")

	// ErrNoGoals indicates that the catalog defines no goals
	ErrNoGoals = errors.New("abtest.no_goals")

	// ErrExperimentNotFound indicates an unknown experiment name
	ErrExperimentNotFound = errors.New("abtest.experiment_not_found")

	// ErrGoalNotFound indicates that no goal row exists for the (experiment, goal) pair
	ErrGoalNotFound = errors.New("abtest.goal_not_found")

	// ErrNoSession indicates that no session store was supplied
	ErrNoSession = errors.New("abtest.no_session")

	// ErrInvalidCatalog indicates a malformed catalog definition
	ErrInvalidCatalog = errors.New("abtest.invalid_catalog")

	// ErrInvalidCounter indicates an unknown experiment counter name
	ErrInvalidCounter = errors.New("abtest.invalid_counter")

	// ErrStoreFailure wraps counter store I/O errors
	ErrStoreFailure = errors.New("abtest.store_failure")
)
