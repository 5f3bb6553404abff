package cookie

import "net/http"

// Config holds cookie signing secrets and default attributes.
type Config struct {
	Secrets  []string      `env:"AB_COOKIE_SECRETS" envSeparator:","`
	Path     string        `env:"AB_COOKIE_PATH" envDefault:"/"`
	Domain   string        `env:"AB_COOKIE_DOMAIN"`
	Secure   bool          `env:"AB_COOKIE_SECURE" envDefault:"false"`
	SameSite http.SameSite `env:"AB_COOKIE_SAME_SITE" envDefault:"2"` // 2 = SameSiteLaxMode
}

// NewFromConfig creates a Manager from cfg. Only non-zero values are applied.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	configOpts := make([]Option, 0, 4+len(opts))
	if cfg.Path != "" {
		configOpts = append(configOpts, WithPath(cfg.Path))
	}
	if cfg.Domain != "" {
		configOpts = append(configOpts, WithDomain(cfg.Domain))
	}
	if cfg.Secure {
		configOpts = append(configOpts, WithSecure(true))
	}
	if cfg.SameSite != 0 {
		configOpts = append(configOpts, WithSameSite(cfg.SameSite))
	}
	configOpts = append(configOpts, opts...)

	return New(cfg.Secrets, configOpts...)
}
