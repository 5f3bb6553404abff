package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/abkit/pkg/config"
	"github.com/dmitrymomot/abkit/pkg/opensearch"
	"github.com/dmitrymomot/abkit/pkg/report"
)

var errNoExportTarget = errors.New("choose at least one export target: --opensearch or --s3")

func newReportCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print experiment and goal counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.writeReport(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatText), "output format: text, csv or json")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var toOpenSearch, toS3 bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Push the current report to OpenSearch and/or S3",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !toOpenSearch && !toS3 {
				return errNoExportTarget
			}
			ctx := cmd.Context()
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			var exporters []report.Exporter
			if toOpenSearch {
				osCfg, err := config.Load[opensearch.Config]()
				if err != nil {
					return err
				}
				client, err := opensearch.Connect(ctx, osCfg)
				if err != nil {
					return err
				}
				exporters = append(exporters, report.NewOpenSearchExporter(client,
					report.WithIndex(osCfg.Index),
					report.WithOpenSearchLogger(a.log),
				))
			}
			if toS3 {
				s3Cfg, err := config.Load[report.S3Config]()
				if err != nil {
					return err
				}
				exp, err := report.NewS3Exporter(ctx, s3Cfg, report.WithS3Logger(a.log))
				if err != nil {
					return err
				}
				exporters = append(exporters, exp)
			}

			return a.export(ctx, exporters...)
		},
	}
	cmd.Flags().BoolVar(&toOpenSearch, "opensearch", false, "index one document per experiment in OpenSearch")
	cmd.Flags().BoolVar(&toS3, "s3", false, "upload the report as CSV to S3")
	return cmd
}

func (a *app) buildReport(ctx context.Context) (*report.Report, error) {
	if err := a.openCounters(ctx); err != nil {
		return nil, err
	}
	return report.Build(ctx, a.counters, a.catalog)
}

func (a *app) writeReport(ctx context.Context, out io.Writer, format report.Format) error {
	rep, err := a.buildReport(ctx)
	if err != nil {
		return err
	}
	return report.Write(out, rep, format)
}

func (a *app) export(ctx context.Context, exporters ...report.Exporter) error {
	rep, err := a.buildReport(ctx)
	if err != nil {
		return err
	}
	return report.ExportAll(ctx, rep, exporters...)
}
