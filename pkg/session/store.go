package session

import "context"

// Store persists sessions by ID.
type Store interface {
	// Get returns ErrSessionNotFound or ErrSessionExpired when the session is unusable.
	Get(ctx context.Context, id string) (*Session, error)
	// Save creates or replaces the session.
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes expired sessions. Stores with native expiry may no-op.
	DeleteExpired(ctx context.Context) error
}
