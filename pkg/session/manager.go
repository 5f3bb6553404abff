package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/abkit/pkg/logger"
)

// Manager loads and creates visitor sessions for HTTP requests.
type Manager struct {
	store     Store
	transport Transport
	config    Config
	log       *slog.Logger
}

// New creates a Manager. A transport is required; the store defaults to a MemoryStore.
func New(opts ...Option) *Manager {
	m := &Manager{
		config: DefaultConfig(),
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.transport == nil {
		panic("session: transport is required")
	}
	if m.config.Lifetime <= 0 {
		m.config.Lifetime = DefaultConfig().Lifetime
	}
	if m.store == nil {
		m.store = NewMemoryStore(m.config.CleanupInterval)
	}
	return m
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.config
}

// Open returns the visitor's session, creating a new one when the request
// carries no token or the stored session is gone or expired.
// Every open restarts the idle lifetime.
func (m *Manager) Open(w http.ResponseWriter, r *http.Request) (*Bag, error) {
	ctx := r.Context()

	if token, err := m.transport.GetToken(r); err == nil {
		sess, err := m.store.Get(ctx, token)
		switch {
		case err == nil:
			if err := m.refresh(ctx, w, sess); err != nil {
				return nil, err
			}
			return newBag(m.store, sess, m.config.Lifetime), nil
		case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired), errors.Is(err, ErrInvalidSession):
			m.log.DebugContext(ctx, "session replaced", logger.Session(token), logger.Error(err))
		default:
			return nil, err
		}
	}

	sess := NewSession(m.config.Lifetime)
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	if err := m.transport.SetToken(w, sess.ID, m.config.Lifetime); err != nil {
		_ = m.store.Delete(ctx, sess.ID)
		return nil, err
	}
	return newBag(m.store, sess, m.config.Lifetime), nil
}

func (m *Manager) refresh(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	sess.Extend(m.config.Lifetime)
	if err := m.store.Save(ctx, sess); err != nil {
		return err
	}
	return m.transport.SetToken(w, sess.ID, m.config.Lifetime)
}

// Destroy deletes the visitor's session and clears its token.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	if token, err := m.transport.GetToken(r); err == nil {
		if err := m.store.Delete(r.Context(), token); err != nil {
			return err
		}
	}
	return m.transport.ClearToken(w)
}

// Cleanup removes expired sessions from the store.
func (m *Manager) Cleanup(ctx context.Context) error {
	return m.store.DeleteExpired(ctx)
}

// Close releases the store when it holds resources.
func (m *Manager) Close() error {
	if c, ok := m.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
