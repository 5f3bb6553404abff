package opensearch

// Config holds OpenSearch connection parameters for the report exporter.
type Config struct {
	Addresses    []string `env:"OPENSEARCH_ADDRESSES" envSeparator:"," envDefault:"http://localhost:9200"`
	Username     string   `env:"OPENSEARCH_USERNAME"`
	Password     string   `env:"OPENSEARCH_PASSWORD"`
	Index        string   `env:"OPENSEARCH_INDEX" envDefault:"ab-reports"` // Index receives experiment snapshots.
	MaxRetries   int      `env:"OPENSEARCH_MAX_RETRIES" envDefault:"3"`
	DisableRetry bool     `env:"OPENSEARCH_DISABLE_RETRY" envDefault:"false"`
}
