package session

import "errors"

var (
	ErrInvalidSession  = errors.New("session.invalid")
	ErrSessionExpired  = errors.New("session.expired")
	ErrSessionNotFound = errors.New("session.not_found")
	ErrStoreFailure    = errors.New("session.store_failure")
	ErrNotInContext    = errors.New("session.not_in_context")
)
