package cookie

import "errors"

// Configuration errors, returned by New when AB_COOKIE_SECRETS is unusable.
var (
	ErrNoSecret       = errors.New("cookie.signing_secret_missing")
	ErrSecretTooShort = errors.New("cookie.signing_secret_too_short")
)

// Token errors. The session transport treats all of them as "no session".
var (
	ErrCookieNotFound   = errors.New("cookie.token_missing")
	ErrInvalidFormat    = errors.New("cookie.token_malformed")
	ErrInvalidSignature = errors.New("cookie.token_signature_mismatch")
)
