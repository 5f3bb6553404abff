package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/dmitrymomot/abkit/pkg/logger"
)

// DefaultIndex is the OpenSearch index used when none is configured.
const DefaultIndex = "ab-reports"

// OpenSearchExporter indexes one document per experiment snapshot.
type OpenSearchExporter struct {
	transport opensearchapi.Transport
	index     string
	refresh   string
	logger    *slog.Logger
}

// OpenSearchOption configures an OpenSearchExporter.
type OpenSearchOption func(*OpenSearchExporter)

// WithIndex sets the target index.
func WithIndex(index string) OpenSearchOption {
	return func(e *OpenSearchExporter) {
		if index != "" {
			e.index = index
		}
	}
}

// WithRefresh sets the refresh policy passed on each index request ("true", "wait_for").
func WithRefresh(refresh string) OpenSearchOption {
	return func(e *OpenSearchExporter) {
		e.refresh = refresh
	}
}

// WithOpenSearchLogger sets the logger.
func WithOpenSearchLogger(l *slog.Logger) OpenSearchOption {
	return func(e *OpenSearchExporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewOpenSearchExporter accepts any transport, typically *opensearch.Client.
func NewOpenSearchExporter(transport opensearchapi.Transport, opts ...OpenSearchOption) *OpenSearchExporter {
	e := &OpenSearchExporter{
		transport: transport,
		index:     DefaultIndex,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// snapshot is the indexed document shape.
type snapshot struct {
	Experiment     string    `json:"experiment"`
	Visitors       uint64    `json:"visitors"`
	Engagement     uint64    `json:"engagement"`
	EngagementRate float64   `json:"engagement_rate"`
	Stale          bool      `json:"stale"`
	Goals          []GoalRow `json:"goals"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// DocumentID identifies the snapshot of one experiment within a report.
func DocumentID(r *Report, experiment string) string {
	return fmt.Sprintf("%s_%d", experiment, r.GeneratedAt.Unix())
}

// Export indexes every row of r. It stops at the first rejected document.
func (e *OpenSearchExporter) Export(ctx context.Context, r *Report) error {
	if e.transport == nil {
		return errors.Join(ErrInvalidConfig, errors.New("opensearch transport is nil"))
	}
	for _, row := range r.Experiments {
		body, err := json.Marshal(snapshot{
			Experiment:     row.Name,
			Visitors:       row.Visitors,
			Engagement:     row.Engagement,
			EngagementRate: row.EngagementRate,
			Stale:          row.Stale,
			Goals:          row.Goals,
			GeneratedAt:    r.GeneratedAt,
		})
		if err != nil {
			return errors.Join(ErrExportFailed, err)
		}

		req := opensearchapi.IndexRequest{
			Index:      e.index,
			DocumentID: DocumentID(r, row.Name),
			Body:       bytes.NewReader(body),
			Refresh:    e.refresh,
		}
		res, err := req.Do(ctx, e.transport)
		if err != nil {
			return errors.Join(ErrExportFailed, classifyContextError(err), err)
		}
		if res.IsError() {
			msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
			res.Body.Close()
			return fmt.Errorf("%w: %s: %s", ErrIndexRejected, res.Status(), bytes.TrimSpace(msg))
		}
		_, _ = io.Copy(io.Discard, res.Body)
		res.Body.Close()

		e.logger.DebugContext(ctx, "experiment snapshot indexed",
			logger.Component("report.opensearch"),
			logger.Experiment(row.Name),
			slog.String("index", e.index),
		)
	}
	e.logger.InfoContext(ctx, "report exported to opensearch",
		logger.Component("report.opensearch"),
		slog.String("index", e.index),
		slog.Int("documents", len(r.Experiments)),
	)
	return nil
}

func classifyContextError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrExportTimeout
	case errors.Is(err, context.Canceled):
		return ErrExportCanceled
	default:
		return nil
	}
}
