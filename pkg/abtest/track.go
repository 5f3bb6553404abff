package abtest

import (
	"context"
	"errors"

	"github.com/dmitrymomot/abkit/pkg/logger"
)

// Track records a page view for a session that already has an experiment.
// Sessions without an assignment are ignored.
//
// Every tracked view counts the visitor once. Navigating to a different page
// than the referrer counts engagement once and completes every goal matched by
// the current path or route name. Reloads and requests without a referrer only
// count the visitor.
func (t *Tester) Track(ctx context.Context, sess SessionStore, req PageRequest) error {
	if sess == nil {
		return ErrNoSession
	}
	if _, ok := t.Current(sess); !ok {
		return nil
	}

	if err := t.Pageview(ctx, sess); err != nil {
		return err
	}

	_, to, moved := isNavigation(req)
	if !moved {
		return nil
	}

	if err := t.Interact(ctx, sess); err != nil {
		return err
	}

	if len(t.catalog.Goals) == 0 {
		t.log.DebugContext(ctx, "goal detection skipped", logger.Error(ErrNoGoals))
		return nil
	}

	var errs []error
	for _, goal := range matchGoals(t.catalog.Goals, to, req.Route) {
		if err := t.Complete(ctx, sess, goal); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
