package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/abkit/pkg/abtest"
	"github.com/dmitrymomot/abkit/pkg/abtest/mongostore"
	"github.com/dmitrymomot/abkit/pkg/abtest/pgstore"
	"github.com/dmitrymomot/abkit/pkg/abtest/redisstore"
	"github.com/dmitrymomot/abkit/pkg/config"
	"github.com/dmitrymomot/abkit/pkg/cookie"
	"github.com/dmitrymomot/abkit/pkg/httpserver"
	"github.com/dmitrymomot/abkit/pkg/logger"
	"github.com/dmitrymomot/abkit/pkg/mongo"
	"github.com/dmitrymomot/abkit/pkg/pg"
	"github.com/dmitrymomot/abkit/pkg/redis"
	"github.com/dmitrymomot/abkit/pkg/requestid"
	"github.com/dmitrymomot/abkit/pkg/session"
)

// AppConfig selects backends and service behavior.
type AppConfig struct {
	Store          string        `env:"AB_STORE" envDefault:"memory"`         // Store is the counter backend: memory, postgres, redis or mongo.
	SessionStore   string        `env:"AB_SESSION_STORE" envDefault:"memory"` // SessionStore is the session backend: memory or redis.
	CatalogFile    string        `env:"AB_CATALOG_FILE"`                      // CatalogFile is a YAML catalog; AB_EXPERIMENTS / AB_GOALS are used when empty.
	AutoAssign     bool          `env:"AB_AUTO_ASSIGN" envDefault:"true"`     // AutoAssign assigns an experiment on every tracked request.
	UpstreamURL    string        `env:"AB_UPSTREAM_URL"`                      // UpstreamURL is proxied behind the tracking middleware.
	TrackBots      bool          `env:"AB_TRACK_BOTS" envDefault:"false"`     // TrackBots counts crawler traffic when set.
	ReadyTimeout   time.Duration `env:"AB_READY_TIMEOUT" envDefault:"2s"`
	ReportUser     string        `env:"AB_REPORT_USER"`
	ReportPassword string        `env:"AB_REPORT_PASSWORD"`
}

const (
	storeMemory   = "memory"
	storePostgres = "postgres"
	storeRedis    = "redis"
	storeMongo    = "mongo"
)

var (
	errUnknownStore       = errors.New("unknown store")
	errNoExperimentsSetUp = errors.New("no experiments configured")
	errNoGoalsSetUp       = errors.New("no goals configured")
)

// app holds the connections shared by the commands.
type app struct {
	cfg      AppConfig
	log      *slog.Logger
	catalog  abtest.Catalog
	counters abtest.CounterStore
	checks   []httpserver.Check
	closers  []func()

	pgPool      *pgxpool.Pool
	pgCfg       pg.Config
	redisClient *goredis.Client
}

// loadApp reads configuration and the catalog; backends are opened on demand.
func loadApp(opts *rootOptions, logOut io.Writer) (*app, error) {
	if opts.envFile != "" {
		if err := config.LoadEnv(opts.envFile); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load[AppConfig]()
	if err != nil {
		return nil, err
	}
	logCfg, err := config.Load[logger.Config]()
	if err != nil {
		return nil, err
	}
	log, err := logger.NewFromConfig(logCfg,
		logger.WithOutput(logOut),
		logger.WithContextExtractors(requestid.LoggerExtractor(), abtest.LoggerExtractor()),
	)
	if err != nil {
		return nil, err
	}

	if opts.catalogFile != "" {
		cfg.CatalogFile = opts.catalogFile
	}
	catalog, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	return newApp(cfg, log, catalog), nil
}

func newApp(cfg AppConfig, log *slog.Logger, catalog abtest.Catalog) *app {
	if log == nil {
		log = logger.Discard()
	}
	return &app{cfg: cfg, log: log, catalog: catalog.Normalize()}
}

func loadCatalog(path string) (abtest.Catalog, error) {
	if path != "" {
		return abtest.LoadCatalogFile(path)
	}
	c, err := config.Load[abtest.Catalog]()
	if err != nil {
		return abtest.Catalog{}, err
	}
	return c.Normalize(), nil
}

// openCounters connects the counter backend selected by AB_STORE.
func (a *app) openCounters(ctx context.Context) error {
	if a.counters != nil {
		return nil
	}

	switch a.cfg.Store {
	case storeMemory, "":
		a.counters = abtest.NewMemoryStore()

	case storePostgres:
		pgCfg, err := config.Load[pg.Config]()
		if err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		a.pgPool, a.pgCfg = pool, pgCfg
		a.closers = append(a.closers, pool.Close)
		a.checks = append(a.checks, httpserver.Check{Name: storePostgres, Fn: pg.Healthcheck(pool)})
		a.counters = pgstore.New(pool)

	case storeRedis:
		client, err := a.redis(ctx)
		if err != nil {
			return err
		}
		redisCfg, err := config.Load[redis.Config]()
		if err != nil {
			return err
		}
		a.counters = redisstore.New(client, redisstore.WithPrefix(redisCfg.KeyPrefix))

	case storeMongo:
		mongoCfg, err := config.Load[mongo.Config]()
		if err != nil {
			return err
		}
		db, err := mongo.ConnectDatabase(ctx, mongoCfg)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = db.Client().Disconnect(context.Background()) })
		a.checks = append(a.checks, httpserver.Check{Name: storeMongo, Fn: mongo.Healthcheck(db.Client())})
		a.counters = mongostore.New(db)

	default:
		return fmt.Errorf("%w %q: use %s, %s, %s or %s", errUnknownStore, a.cfg.Store,
			storeMemory, storePostgres, storeRedis, storeMongo)
	}

	a.log.DebugContext(ctx, "counter store opened", logger.Store(a.cfg.Store))
	return nil
}

// redis returns the shared client, connecting on first use.
func (a *app) redis(ctx context.Context) (*goredis.Client, error) {
	if a.redisClient != nil {
		return a.redisClient, nil
	}
	redisCfg, err := config.Load[redis.Config]()
	if err != nil {
		return nil, err
	}
	client, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return nil, err
	}
	a.redisClient = client
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.checks = append(a.checks, httpserver.Check{Name: storeRedis, Fn: redis.Healthcheck(client)})
	return client, nil
}

// sessions builds the visitor session manager: signed cookie plus header
// transport over the store selected by AB_SESSION_STORE.
func (a *app) sessions(ctx context.Context, sessCfg session.Config, cookieCfg cookie.Config) (*session.Manager, error) {
	cookies, err := cookie.NewFromConfig(cookieCfg)
	if err != nil {
		return nil, fmt.Errorf("session cookies (set AB_COOKIE_SECRETS): %w", err)
	}

	transports := []session.Transport{session.NewCookieTransport(cookies, sessCfg.CookieName, sessCfg.SecureCookies)}
	if sessCfg.HeaderName != "" {
		transports = append(transports, session.NewHeaderTransport(sessCfg.HeaderName))
	}

	var store session.Store
	switch a.cfg.SessionStore {
	case storeMemory, "":
		store = session.NewMemoryStore(sessCfg.CleanupInterval)
	case storeRedis:
		client, err := a.redis(ctx)
		if err != nil {
			return nil, err
		}
		store = session.NewRedisStore(client, "")
	default:
		return nil, fmt.Errorf("%w %q for sessions: use %s or %s", errUnknownStore, a.cfg.SessionStore, storeMemory, storeRedis)
	}

	return session.NewFromConfig(sessCfg,
		session.WithStore(store),
		session.WithTransport(session.NewCompositeTransport(transports...)),
		session.WithLogger(a.log),
	), nil
}

func (a *app) tester() *abtest.Tester {
	return abtest.New(a.catalog, a.counters, abtest.WithLogger(a.log))
}

// Close releases every backend in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
