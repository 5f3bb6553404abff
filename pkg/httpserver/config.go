package httpserver

import "time"

type Config struct {
	Addr              string        `env:"AB_HTTP_ADDR" envDefault:":8080"`             // Addr is the address the server listens on.
	ReadTimeout       time.Duration `env:"AB_HTTP_READ_TIMEOUT" envDefault:"15s"`       // ReadTimeout is the maximum duration for reading the entire request.
	ReadHeaderTimeout time.Duration `env:"AB_HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"` // ReadHeaderTimeout bounds reading request headers.
	WriteTimeout      time.Duration `env:"AB_HTTP_WRITE_TIMEOUT" envDefault:"15s"`      // WriteTimeout is the maximum duration before timing out writes of the response.
	IdleTimeout       time.Duration `env:"AB_HTTP_IDLE_TIMEOUT" envDefault:"120s"`      // IdleTimeout applies to keep-alive connections.
	ShutdownTimeout   time.Duration `env:"AB_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`   // ShutdownTimeout is the time allowed for graceful shutdown.
}

// NewFromConfig creates a new Server from the provided Config.
// Only non-zero values from the config are applied; opts are applied last.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	configOpts := make([]Option, 0, 6+len(opts))

	if cfg.Addr != "" {
		configOpts = append(configOpts, WithAddr(cfg.Addr))
	}
	if cfg.ReadTimeout > 0 {
		configOpts = append(configOpts, WithReadTimeout(cfg.ReadTimeout))
	}
	if cfg.ReadHeaderTimeout > 0 {
		configOpts = append(configOpts, WithReadHeaderTimeout(cfg.ReadHeaderTimeout))
	}
	if cfg.WriteTimeout > 0 {
		configOpts = append(configOpts, WithWriteTimeout(cfg.WriteTimeout))
	}
	if cfg.IdleTimeout > 0 {
		configOpts = append(configOpts, WithIdleTimeout(cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		configOpts = append(configOpts, WithShutdownTimeout(cfg.ShutdownTimeout))
	}

	return New(append(configOpts, opts...)...)
}
