package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/abkit/pkg/session"
)

func TestSession(t *testing.T) {
	t.Parallel()

	s := session.NewSession(time.Hour)
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.IsExpired())

	s.Set("experiment", "ctrl")
	v, ok := s.Get("experiment")
	assert.True(t, ok)
	assert.Equal(t, "ctrl", v)

	cp := s.Clone()
	cp.Set("pageview", true)
	_, ok = s.Get("pageview")
	assert.False(t, ok)

	s.Clear()
	_, ok = s.Get("experiment")
	assert.False(t, ok)

	s.ExpiresAt = time.Now().Add(-time.Second)
	assert.True(t, s.IsExpired())
	s.Extend(time.Minute)
	assert.False(t, s.IsExpired())

	var nilSession *session.Session
	_, ok = nilSession.Get("x")
	assert.False(t, ok)
}
