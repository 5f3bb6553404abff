// Package cookie writes and reads HTTP cookies with shared defaults and
// HMAC-SHA256 signatures.
//
// A Manager is created with one or more secrets of at least 32 bytes. The
// first secret signs; every secret verifies, which allows key rotation.
//
//	m, err := cookie.New([]string{secret})
//	if err != nil {
//	    return err
//	}
//	m.SetSigned(w, "ab", sessionID, cookie.WithMaxAge(3600))
//	id, err := m.GetSigned(r, "ab")
//
// Config maps AB_COOKIE_* environment variables onto NewFromConfig.
package cookie
