package session

import (
	"log/slog"
	"time"
)

// Option configures a Manager.
type Option func(*Manager)

func WithStore(store Store) Option {
	return func(m *Manager) { m.store = store }
}

func WithTransport(transport Transport) Option {
	return func(m *Manager) { m.transport = transport }
}

func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.config = cfg }
}

// WithLifetime overrides Config.Lifetime.
func WithLifetime(ttl time.Duration) Option {
	return func(m *Manager) { m.config.Lifetime = ttl }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}
