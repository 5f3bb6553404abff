package session

import (
	"context"
	"maps"
	"sync"
	"time"
)

// Bag is the per-request view of a session. Writes go straight to the store,
// so values survive even when the response is already flushed.
// Bag satisfies abtest.SessionStore.
type Bag struct {
	mu    sync.Mutex
	store Store
	sess  *Session
	idle  time.Duration
}

func newBag(store Store, sess *Session, idle time.Duration) *Bag {
	return &Bag{store: store, sess: sess, idle: idle}
}

// ID returns the session id.
func (b *Bag) ID() string {
	return b.sess.ID
}

// Get returns the value stored under key.
func (b *Bag) Get(key string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sess.Get(key)
}

// Set stores value under key and saves the session with a fresh idle expiry.
func (b *Bag) Set(ctx context.Context, key string, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sess.Set(key, value)
	b.sess.Extend(b.idle)
	return b.store.Save(ctx, b.sess)
}

// Clear removes every key with a single save.
func (b *Bag) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sess.Clear()
	b.sess.Extend(b.idle)
	return b.store.Save(ctx, b.sess)
}

// Values returns a copy of the session data.
func (b *Bag) Values() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.sess.Data)
}
