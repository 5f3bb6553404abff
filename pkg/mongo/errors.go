package mongo

import "errors"

var (
	ErrEmptyConnectionURL     = errors.New("empty mongo connection URL, use MONGODB_URL env var")
	ErrFailedToConnectToMongo = errors.New("mongo did not answer ping before the connect timeout")
	ErrHealthcheckFailed      = errors.New("mongo ping failed")
)
