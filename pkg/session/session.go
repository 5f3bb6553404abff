package session

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Session is a visitor's server-side key-value bag.
type Session struct {
	ID        string         `json:"id"`
	Data      map[string]any `json:"data,omitempty"`
	ExpiresAt time.Time      `json:"expires_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewSession creates an empty session living for ttl.
func NewSession(ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Data:      make(map[string]any),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsExpired reports whether the session lifetime has passed.
func (s *Session) IsExpired() bool {
	return s != nil && time.Now().After(s.ExpiresAt)
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	if s == nil || s.Data == nil {
		return nil, false
	}
	v, ok := s.Data[key]
	return v, ok
}

// Set stores value under key.
func (s *Session) Set(key string, value any) {
	if s.Data == nil {
		s.Data = make(map[string]any)
	}
	s.Data[key] = value
}

// Clear removes all data.
func (s *Session) Clear() {
	s.Data = make(map[string]any)
}

// Extend pushes the expiry ttl into the future.
func (s *Session) Extend(ttl time.Duration) {
	now := time.Now()
	s.ExpiresAt = now.Add(ttl)
	s.UpdatedAt = now
}

// Clone returns a deep copy of the top-level data map.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Data = maps.Clone(s.Data)
	if cp.Data == nil {
		cp.Data = make(map[string]any)
	}
	return &cp
}
