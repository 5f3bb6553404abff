package session

import (
	"net/http"
	"time"
)

// Transport moves the session id between the visitor and the Manager.
// GetToken returns ErrSessionNotFound when the request has no usable token;
// the Manager then starts a fresh session and assigns it anew.
type Transport interface {
	GetToken(r *http.Request) (string, error)
	// SetToken is called on every Open so the client-side lifetime follows the idle expiry.
	SetToken(w http.ResponseWriter, token string, ttl time.Duration) error
	ClearToken(w http.ResponseWriter) error
}
