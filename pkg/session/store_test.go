package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/abkit/pkg/session"
)

func TestStores(t *testing.T) {
	t.Parallel()

	stores := map[string]func(t *testing.T) session.Store{
		"memory": func(t *testing.T) session.Store {
			s := session.NewMemoryStore(0)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"redis": func(t *testing.T) session.Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return session.NewRedisStore(client, "")
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := newStore(t)

			sess := session.NewSession(time.Hour)
			sess.Set("experiment", "ctrl")
			sess.Set("pageview", true)
			require.NoError(t, store.Save(ctx, sess))

			got, err := store.Get(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, "ctrl", got.Data["experiment"])
			assert.Equal(t, true, got.Data["pageview"])

			got.Set("experiment", "var")
			stored, err := store.Get(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, "ctrl", stored.Data["experiment"])

			require.NoError(t, store.Delete(ctx, sess.ID))
			_, err = store.Get(ctx, sess.ID)
			assert.ErrorIs(t, err, session.ErrSessionNotFound)

			assert.ErrorIs(t, store.Save(ctx, &session.Session{}), session.ErrInvalidSession)
			assert.NoError(t, store.DeleteExpired(ctx))
		})
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := session.NewMemoryStore(0)
	defer store.Close()

	sess := session.NewSession(time.Hour)
	sess.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(ctx, sess))
	live := session.NewSession(time.Hour)
	require.NoError(t, store.Save(ctx, live))

	require.NoError(t, store.DeleteExpired(ctx))
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Save(ctx, sess))
	_, err := store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrSessionExpired)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_CleanupLoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := session.NewMemoryStore(10 * time.Millisecond)
	defer store.Close()

	sess := session.NewSession(time.Hour)
	sess.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(ctx, sess))

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestRedisStore_TTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := session.NewRedisStore(client, "test:")

	sess := session.NewSession(time.Hour)
	require.NoError(t, store.Save(ctx, sess))
	assert.True(t, mr.Exists("test:"+sess.ID))
	ttl := mr.TTL("test:" + sess.ID)
	assert.Greater(t, ttl, 59*time.Minute)

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	expired := session.NewSession(time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Second)
	require.NoError(t, store.Save(ctx, expired))
	assert.False(t, mr.Exists("test:"+expired.ID))
}
