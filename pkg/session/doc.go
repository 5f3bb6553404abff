// Package session keeps a small server-side key-value bag per visitor.
//
// A Manager pairs a Store (MemoryStore, RedisStore) with a Transport that
// carries the session id: a signed cookie (CookieTransport), a request
// header (HeaderTransport), or both (CompositeTransport).
//
// Manager.Open returns a Bag for the request. Bag writes are saved to the
// store immediately, so they do not depend on the response headers still
// being writable. Bag satisfies abtest.SessionStore:
//
//	mgr := session.NewFromConfig(cfg,
//	    session.WithStore(session.NewRedisStore(client, "")),
//	    session.WithTransport(session.NewCookieTransport(cookies, cfg.CookieName, cfg.SecureCookies)),
//	)
//	open := func(w http.ResponseWriter, r *http.Request) (abtest.SessionStore, error) {
//	    return mgr.Open(w, r)
//	}
//
// Sessions expire after Config.Lifetime (AB_LIFETIME, 60 minutes by default);
// the expiry slides forward once less than half of it remains.
package session
