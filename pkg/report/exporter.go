package report

import (
	"context"
	"errors"
)

// Exporter ships a report to an external system.
type Exporter interface {
	Export(ctx context.Context, r *Report) error
}

// ExportAll runs every exporter and joins their errors.
func ExportAll(ctx context.Context, r *Report, exporters ...Exporter) error {
	var errs []error
	for _, e := range exporters {
		if err := e.Export(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
