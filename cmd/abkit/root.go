package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile     string
	catalogFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "abkit",
		Short: "Session-scoped A/B testing service",
		Long: `abkit assigns visitors to experiments, tracks pageviews, engagement and
goal completions once per session, and reports the aggregate counters.

Configuration is read from the environment (and an optional .env file).
The counter backend is chosen with AB_STORE (memory, postgres, redis, mongo).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file to load before reading configuration")
	cmd.PersistentFlags().StringVarP(&opts.catalogFile, "catalog", "c", "", "catalog YAML file (overrides AB_CATALOG_FILE)")

	cmd.AddCommand(
		newServeCmd(opts),
		newInstallCmd(opts),
		newFlushCmd(opts),
		newReportCmd(opts),
		newExportCmd(opts),
	)
	return cmd
}
