package session

import (
	"net/http"

	"github.com/dmitrymomot/abkit/pkg/logger"
)

// Middleware opens the visitor's session and exposes it through FromContext.
// Store failures are logged and the request continues without a session.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bag, err := m.Open(w, r)
		if err != nil {
			m.log.WarnContext(r.Context(), "session unavailable", logger.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithBag(r.Context(), bag)))
	})
}
