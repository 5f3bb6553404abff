package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/abkit/pkg/cookie"
)

const (
	secret    = "this-is-a-very-long-secret-key-32-chars-long"
	oldSecret = "this-is-old-very-long-secret-key-32-chars-ok"
)

func roundTrip(w *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secrets []string
		wantErr error
	}{
		{"no secrets", nil, cookie.ErrNoSecret},
		{"blank secrets", []string{"", " "}, cookie.ErrNoSecret},
		{"secret too short", []string{"short"}, cookie.ErrSecretTooShort},
		{"valid", []string{secret}, nil},
		{"rotation", []string{secret, oldSecret}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := cookie.New(tt.secrets)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestManager_Signed(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{secret}, cookie.WithSecure(true))
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		m.SetSigned(w, "ab", "visitor-1", cookie.WithMaxAge(60))

		c := w.Result().Cookies()[0]
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, 60, c.MaxAge)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

		got, err := m.GetSigned(roundTrip(w), "ab")
		require.NoError(t, err)
		assert.Equal(t, "visitor-1", got)
	})

	t.Run("tampered value", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		m.SetSigned(w, "ab", "visitor-1")
		c := w.Result().Cookies()[0]

		_, sig, _ := strings.Cut(c.Value, ".")
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "ab", Value: "dmlzaXRvci0y." + sig})

		_, err := m.GetSigned(r, "ab")
		assert.ErrorIs(t, err, cookie.ErrInvalidSignature)
	})

	t.Run("malformed value", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "ab", Value: "no-signature"})

		_, err := m.GetSigned(r, "ab")
		assert.ErrorIs(t, err, cookie.ErrInvalidFormat)
	})

	t.Run("missing cookie", func(t *testing.T) {
		t.Parallel()
		_, err := m.GetSigned(httptest.NewRequest(http.MethodGet, "/", nil), "ab")
		assert.ErrorIs(t, err, cookie.ErrCookieNotFound)
	})
}

func TestManager_Rotation(t *testing.T) {
	t.Parallel()

	old, err := cookie.New([]string{oldSecret})
	require.NoError(t, err)
	rotated, err := cookie.New([]string{secret, oldSecret})
	require.NoError(t, err)
	fresh, err := cookie.New([]string{secret})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	old.SetSigned(w, "ab", "visitor-1")
	r := roundTrip(w)

	got, err := rotated.GetSigned(r, "ab")
	require.NoError(t, err)
	assert.Equal(t, "visitor-1", got)

	_, err = fresh.GetSigned(r, "ab")
	assert.ErrorIs(t, err, cookie.ErrInvalidSignature)
}

func TestManager_Delete(t *testing.T) {
	t.Parallel()

	m, err := cookie.NewFromConfig(cookie.Config{Secrets: []string{secret}, Path: "/app", Domain: "example.com"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	m.Delete(w, "ab")

	c := w.Result().Cookies()[0]
	assert.Equal(t, "ab", c.Name)
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
	assert.Equal(t, "/app", c.Path)
	assert.Equal(t, "example.com", c.Domain)
}

func TestErrors_NameTheToken(t *testing.T) {
	t.Parallel()

	for _, err := range []error{cookie.ErrCookieNotFound, cookie.ErrInvalidFormat, cookie.ErrInvalidSignature} {
		assert.Contains(t, err.Error(), "cookie.token_")
	}
	for _, err := range []error{cookie.ErrNoSecret, cookie.ErrSecretTooShort} {
		assert.Contains(t, err.Error(), "cookie.signing_secret")
	}
}
