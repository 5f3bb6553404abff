package abtest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/abkit/pkg/abtest"
)

func staticOpener(sess abtest.SessionStore) abtest.SessionOpener {
	return func(http.ResponseWriter, *http.Request) (abtest.SessionStore, error) {
		return sess, nil
	}
}

func get(t *testing.T, h http.Handler, path, referrer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "http://example.com"+path, nil)
	if referrer != "" {
		req.Header.Set("Referer", referrer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("auto assign and track navigation", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"ctrl", "var"}, []string{"/thanks"})
		sess := newSession()

		var seen string
		r := chi.NewRouter()
		r.Use(abtest.Middleware(tester, staticOpener(sess), abtest.WithAutoAssign()))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			seen, _ = abtest.ExperimentFromContext(r.Context())
		})
		r.Get("/thanks", ok)

		assert.Equal(t, http.StatusOK, get(t, r, "/", "").Code)
		assert.Equal(t, "ctrl", seen)
		assert.Equal(t, http.StatusOK, get(t, r, "/thanks", "http://example.com/").Code)
		get(t, r, "/thanks", "http://example.com/thanks")

		e := experiment(t, store, "ctrl")
		assert.Equal(t, uint64(1), e.Visitors)
		assert.Equal(t, uint64(1), e.Engagement)
		assert.Equal(t, uint64(1), goalCount(t, store, "ctrl", "/thanks"))
	})

	t.Run("unassigned visitors are not tracked", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"ctrl"}, []string{"/thanks"})
		sess := newSession()

		r := chi.NewRouter()
		r.Use(abtest.Middleware(tester, staticOpener(sess)))
		r.Get("/thanks", ok)

		get(t, r, "/thanks", "http://example.com/")
		assert.Empty(t, sess.snapshot())
		assert.Zero(t, experiment(t, store, "ctrl").Visitors)
	})

	t.Run("handler assigns through context session", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"ctrl", "var"}, []string{"/thanks"})
		sess := newSession()

		r := chi.NewRouter()
		r.Use(abtest.Middleware(tester, staticOpener(sess)))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			s, ok := abtest.SessionFromContext(r.Context())
			require.True(t, ok)
			require.NoError(t, tester.SetExperiment(r.Context(), s, "var"))
		})

		get(t, r, "/", "")
		assert.Equal(t, "var", sess.data[abtest.KeyExperiment])
		assert.Equal(t, uint64(1), experiment(t, store, "var").Visitors)
	})

	t.Run("named route completes goal", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"ctrl"}, []string{"signup"})
		sess := newSession()

		r := chi.NewRouter()
		r.Use(abtest.Middleware(tester, staticOpener(sess), abtest.WithAutoAssign()))
		r.Method(http.MethodGet, "/welcome", abtest.Named("signup", ok))

		get(t, r, "/welcome", "http://example.com/register")
		assert.Equal(t, uint64(1), goalCount(t, store, "ctrl", "signup"))
	})

	t.Run("chi route pattern is the default route name", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"ctrl"}, []string{"/orders/{id}"})
		sess := newSession()

		r := chi.NewRouter()
		r.Use(abtest.Middleware(tester, staticOpener(sess), abtest.WithAutoAssign()))
		r.Get("/orders/{id}", ok)

		get(t, r, "/orders/42", "http://example.com/cart")
		assert.Equal(t, uint64(1), goalCount(t, store, "ctrl", "/orders/{id}"))
	})

	t.Run("session failure still serves", func(t *testing.T) {
		t.Parallel()
		tester, _ := newTester(t, []string{"ctrl"}, []string{"/thanks"})
		opener := func(http.ResponseWriter, *http.Request) (abtest.SessionStore, error) {
			return nil, errors.New("cookie rejected")
		}

		h := abtest.Middleware(tester, opener, abtest.WithAutoAssign())(ok)
		assert.Equal(t, http.StatusOK, get(t, h, "/", "").Code)
	})

	t.Run("skipper bypasses tracking", func(t *testing.T) {
		t.Parallel()
		tester, store := newTester(t, []string{"ctrl"}, []string{"/thanks"})
		sess := newSession()

		h := abtest.Middleware(tester, staticOpener(sess),
			abtest.WithAutoAssign(),
			abtest.WithSkipper(func(r *http.Request) bool { return r.URL.Path == "/healthz" }),
		)(ok)

		get(t, h, "/healthz", "")
		assert.Empty(t, sess.snapshot())
		assert.Zero(t, experiment(t, store, "ctrl").Visitors)
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := abtest.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(abtest.WithExperiment(context.Background(), "ctrl"))
	require.True(t, ok)
	assert.Equal(t, "experiment", attr.Key)
	assert.Equal(t, "ctrl", attr.Value.String())
}
