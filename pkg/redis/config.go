package redis

import "time"

// Config holds the connection settings shared by the redis counter and session stores.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"` // ConnectionURL is in the form "redis://:password@localhost:6379/0".
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"` // ConnectTimeout bounds all attempts together.
	KeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"ab:"`      // KeyPrefix namespaces counter keys.
}
