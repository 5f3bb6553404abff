package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Format names a report output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat maps a case-insensitive name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Write encodes r in the given format.
func Write(w io.Writer, r *Report, format Format) error {
	switch format {
	case FormatText:
		return WriteText(w, r)
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteText renders an aligned table, one line per experiment followed by its goals.
func WriteText(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EXPERIMENT\tVISITORS\tENGAGEMENT\tGOAL\tCOUNT\tCONVERSION")
	for _, row := range r.Experiments {
		name := row.Name
		if row.Stale {
			name += " (stale)"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d (%s)\t\t\t\n", name, row.Visitors, row.Engagement, percent(row.EngagementRate))
		for _, g := range row.Goals {
			goal := g.Name
			if g.Stale {
				goal += " (stale)"
			}
			fmt.Fprintf(tw, "\t\t\t%s\t%d\t%s\n", goal, g.Count, percent(g.ConversionRate))
		}
	}
	fmt.Fprintf(tw, "\ngenerated %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if err := tw.Flush(); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}

var csvHeader = []string{
	"experiment", "visitors", "engagement", "engagement_rate",
	"goal", "count", "conversion_rate",
}

// WriteCSV writes one record per (experiment, goal); experiments without goals
// get a single record with empty goal columns.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	for _, row := range r.Experiments {
		base := []string{
			row.Name,
			strconv.FormatUint(row.Visitors, 10),
			strconv.FormatUint(row.Engagement, 10),
			formatRate(row.EngagementRate),
		}
		if len(row.Goals) == 0 {
			if err := cw.Write(append(base, "", "", "")); err != nil {
				return errors.Join(ErrWriteFailed, err)
			}
			continue
		}
		for _, g := range row.Goals {
			rec := append(append([]string(nil), base...),
				g.Name,
				strconv.FormatUint(g.Count, 10),
				formatRate(g.ConversionRate),
			)
			if err := cw.Write(rec); err != nil {
				return errors.Join(ErrWriteFailed, err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}

func formatRate(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func percent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 1, 64) + "%"
}
