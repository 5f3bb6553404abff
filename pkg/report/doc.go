// Package report turns counter store contents into readable snapshots.
//
// Build reads every experiment and goal from a store, orders them by the
// catalog and computes engagement and conversion rates against visitors.
// A report can then be written as text, CSV or JSON, rendered as an HTML
// dashboard through templ, or shipped to OpenSearch and S3:
//
//	rep, err := report.Build(ctx, store, catalog)
//	if err != nil {
//		return err
//	}
//	_ = report.WriteText(os.Stdout, rep)
//
//	s3exp, err := report.NewS3Exporter(ctx, s3cfg)
//	if err != nil {
//		return err
//	}
//	err = report.ExportAll(ctx, rep, s3exp, report.NewOpenSearchExporter(osClient))
package report
