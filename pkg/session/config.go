package session

import "time"

// Config holds session settings.
type Config struct {
	// CookieName is the name of the session cookie.
	CookieName string `env:"AB_SESSION_COOKIE" envDefault:"ab"`
	// HeaderName carries the session id for clients without cookies. Empty disables it.
	HeaderName string `env:"AB_SESSION_HEADER" envDefault:"X-AB-Session"`
	// Lifetime is how long a session lives after its last refresh.
	Lifetime        time.Duration `env:"AB_LIFETIME" envDefault:"60m"`
	CleanupInterval time.Duration `env:"AB_SESSION_CLEANUP_INTERVAL" envDefault:"5m"`
	SecureCookies   bool          `env:"AB_SESSION_SECURE_COOKIES" envDefault:"false"`
}

// DefaultConfig returns the defaults above.
func DefaultConfig() Config {
	return Config{
		CookieName:      "ab",
		HeaderName:      "X-AB-Session",
		Lifetime:        60 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewFromConfig creates a Manager from cfg. The transport must be given via options.
func NewFromConfig(cfg Config, opts ...Option) *Manager {
	return New(append([]Option{WithConfig(cfg)}, opts...)...)
}
