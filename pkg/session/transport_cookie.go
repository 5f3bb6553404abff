package session

import (
	"net/http"
	"time"

	"github.com/dmitrymomot/abkit/pkg/cookie"
)

// CookieTransport keeps the session id in a signed cookie.
type CookieTransport struct {
	cookies *cookie.Manager
	name    string
	secure  bool
}

func NewCookieTransport(cookies *cookie.Manager, name string, secure bool) *CookieTransport {
	return &CookieTransport{cookies: cookies, name: name, secure: secure}
}

// GetToken reads the session token from the request.
func (t *CookieTransport) GetToken(r *http.Request) (string, error) {
	token, err := t.cookies.GetSigned(r, t.name)
	if err != nil || token == "" {
		return "", ErrSessionNotFound
	}
	return token, nil
}

// SetToken writes the session token to the response.
func (t *CookieTransport) SetToken(w http.ResponseWriter, token string, ttl time.Duration) error {
	opts := []cookie.Option{
		cookie.WithMaxAge(int(ttl.Seconds())),
		cookie.WithHTTPOnly(true),
	}
	if t.secure {
		opts = append(opts, cookie.WithSecure(true))
	}
	t.cookies.SetSigned(w, t.name, token, opts...)
	return nil
}

// ClearToken removes the session token from the client.
func (t *CookieTransport) ClearToken(w http.ResponseWriter) error {
	t.cookies.Delete(w, t.name)
	return nil
}
