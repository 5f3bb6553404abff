package opensearch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/abkit/pkg/opensearch"
)

func clusterStub(status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"name":"node-1","cluster_name":"ab","version":{"distribution":"opensearch","number":"2.11.0"}}`))
	}))
}

func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("healthy cluster", func(t *testing.T) {
		t.Parallel()
		srv := clusterStub(http.StatusOK)
		t.Cleanup(srv.Close)

		client, err := opensearch.Connect(context.Background(), opensearch.Config{
			Addresses:    []string{srv.URL},
			DisableRetry: true,
		})
		require.NoError(t, err)
		assert.NoError(t, opensearch.Healthcheck(client)(context.Background()))
	})

	t.Run("unhealthy cluster", func(t *testing.T) {
		t.Parallel()
		srv := clusterStub(http.StatusServiceUnavailable)
		t.Cleanup(srv.Close)

		_, err := opensearch.Connect(context.Background(), opensearch.Config{
			Addresses:    []string{srv.URL},
			DisableRetry: true,
		})
		assert.ErrorIs(t, err, opensearch.ErrHealthcheckFailed)
	})

	t.Run("no addresses", func(t *testing.T) {
		t.Parallel()
		_, err := opensearch.Connect(context.Background(), opensearch.Config{})
		assert.ErrorIs(t, err, opensearch.ErrNoAddresses)
	})
}
