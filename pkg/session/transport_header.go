package session

import (
	"net/http"
	"strings"
	"time"
)

// HeaderTransport reads the session id from a request header and echoes it
// on the response, for API clients that do not keep cookies.
type HeaderTransport struct {
	name string
}

func NewHeaderTransport(name string) *HeaderTransport {
	return &HeaderTransport{name: name}
}

// GetToken reads the session token from the request.
func (t *HeaderTransport) GetToken(r *http.Request) (string, error) {
	token := strings.TrimSpace(r.Header.Get(t.name))
	if token == "" {
		return "", ErrSessionNotFound
	}
	return token, nil
}

// SetToken writes the session token to the response.
func (t *HeaderTransport) SetToken(w http.ResponseWriter, token string, ttl time.Duration) error {
	w.Header().Set(t.name, token)
	if ttl > 0 {
		w.Header().Set(t.name+"-Expires", time.Now().Add(ttl).UTC().Format(time.RFC3339))
	}
	return nil
}

// ClearToken removes the session token from the client.
func (t *HeaderTransport) ClearToken(w http.ResponseWriter) error {
	w.Header().Del(t.name)
	w.Header().Del(t.name + "-Expires")
	return nil
}
