// Package opensearch connects to the OpenSearch cluster that receives
// exported A/B report snapshots.
//
// Connect builds a client from Config and performs an initial Healthcheck:
//
//	cfg, _ := config.Load[opensearch.Config]()
//	client, err := opensearch.Connect(ctx, cfg)
//	if err != nil {
//		// errors.Is(err, opensearch.ErrHealthcheckFailed)
//	}
//	exp := report.NewOpenSearchExporter(client, report.WithIndex(cfg.Index))
//
// The returned *opensearch.Client satisfies opensearchapi.Transport and is
// safe for concurrent use. MaxRetries and DisableRetry map directly to the
// underlying client.
package opensearch
