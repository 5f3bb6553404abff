package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu         sync.Mutex
	cache      = make(map[reflect.Type]any)
	defaultEnv sync.Once
)

// LoadEnv loads the given dotenv files into the process environment.
// Variables already set are not overridden.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Load parses the environment into a T, using env and envDefault struct tags.
// The result is cached per type: later calls return the first parsed value.
//
//	type DatabaseConfig struct {
//		URL     string `env:"PG_CONN_URL,required"`
//		MaxConn int32  `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
//	}
//
//	cfg, err := config.Load[DatabaseConfig]()
func Load[T any]() (T, error) {
	defaultEnv.Do(func() {
		// The default .env file is optional.
		_ = godotenv.Load()
	})

	key := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := cache[key]; ok {
		return cached.(T), nil
	}

	var cfg T
	if key.Kind() != reflect.Struct {
		return cfg, fmt.Errorf("%w: %s", ErrInvalidConfigType, key)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Join(ErrParsingConfig, err)
	}
	cache[key] = cfg
	return cfg, nil
}

// MustLoad is Load that panics on failure.
func MustLoad[T any]() T {
	cfg, err := Load[T]()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

// Reset drops every cached configuration so the next Load parses again.
func Reset() {
	mu.Lock()
	clear(cache)
	mu.Unlock()
}
