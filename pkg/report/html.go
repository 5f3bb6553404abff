package report

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

//go:generate templ generate -f html.templ

// HTML renders the report as a standalone dashboard page.
func HTML(r *Report) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := page(r).Render(ctx, w); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		return nil
	})
}

// rowSpan is the number of table rows an experiment occupies: one per goal.
func rowSpan(row Row) string {
	return strconv.Itoa(max(len(row.Goals), 1))
}
