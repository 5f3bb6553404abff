package opensearch

import "errors"

var (
	// ErrConnectionFailed indicates the client could not be created.
	ErrConnectionFailed = errors.New("opensearch connection failed")

	// ErrHealthcheckFailed indicates the cluster is unreachable or unhealthy.
	ErrHealthcheckFailed = errors.New("opensearch healthcheck failed")

	ErrNoAddresses = errors.New("no opensearch addresses configured")
)
