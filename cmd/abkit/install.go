package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/abkit/pkg/abtest"
	"github.com/dmitrymomot/abkit/pkg/abtest/pgstore"
)

func newInstallCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Prepare the counter store and create catalog experiments and goals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.install(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newFlushCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Clear all A/B testing data and reinstall the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.flush(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

// install migrates the schema where the backend has one, validates the
// catalog and creates missing experiments and goals.
func (a *app) install(ctx context.Context, out io.Writer) error {
	if err := a.openCounters(ctx); err != nil {
		return err
	}

	if a.pgPool != nil {
		if err := pgstore.Install(ctx, a.pgPool, a.pgCfg, a.log); err != nil {
			return err
		}
		fmt.Fprintln(out, "Database schema initialized.")
	}

	if err := a.catalog.Validate(); err != nil {
		switch {
		case errors.Is(err, abtest.ErrNoExperiments):
			return errNoExperimentsSetUp
		case errors.Is(err, abtest.ErrNoGoals):
			return errNoGoalsSetUp
		}
		return err
	}

	result, err := a.tester().Reconcile(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Added %d experiments (%s).\n", len(a.catalog.Experiments), result)
	return nil
}

// flush drops every counter and installs again.
func (a *app) flush(ctx context.Context, out io.Writer) error {
	if err := a.openCounters(ctx); err != nil {
		return err
	}

	switch {
	case a.pgPool != nil:
		if err := pgstore.Uninstall(ctx, a.pgPool, a.pgCfg, a.log); err != nil {
			return err
		}
	default:
		if f, ok := a.counters.(abtest.Flusher); ok {
			if err := f.Flush(ctx); err != nil {
				return err
			}
		}
	}

	if err := a.install(ctx, out); err != nil {
		return err
	}
	fmt.Fprintln(out, "A/B testing data flushed.")
	return nil
}
