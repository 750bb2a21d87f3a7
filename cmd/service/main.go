package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dropDatabas3/cachegate/internal/cache"
	rediscache "github.com/dropDatabas3/cachegate/internal/cache/redis"
	"github.com/dropDatabas3/cachegate/internal/config"
	datactrl "github.com/dropDatabas3/cachegate/internal/http/controllers/data"
	healthctrl "github.com/dropDatabas3/cachegate/internal/http/controllers/health"
	usersctrl "github.com/dropDatabas3/cachegate/internal/http/controllers/users"
	mw "github.com/dropDatabas3/cachegate/internal/http/middlewares"
	"github.com/dropDatabas3/cachegate/internal/http/router"
	"github.com/dropDatabas3/cachegate/internal/http/server"
	datasvc "github.com/dropDatabas3/cachegate/internal/http/services/data"
	healthsvc "github.com/dropDatabas3/cachegate/internal/http/services/health"
	userssvc "github.com/dropDatabas3/cachegate/internal/http/services/users"
	"github.com/dropDatabas3/cachegate/internal/observability/logger"
	"github.com/dropDatabas3/cachegate/internal/store/pg"
)

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func printConfigSummary(c *config.Config) {
	dsn := "DISABLED"
	if c.PostgresDSN() != "" {
		dsn = "***masked***"
	}
	redisPass := "NOT_SET"
	if c.Redis.Password != "" {
		redisPass = "***masked***"
	}
	log.Printf(`CONFIG:
  app(env=%s, log_level=%s, service=%s)
  server(addr=%s, readiness_wait=%s, shutdown_timeout=%s)

  redis.nodes=%s password=%s db=%d prefix=%q
  redis.timeouts(call=%s, dial=%s)
  redis.retry(max_attempts=%d, base=%s, max=%s) reprobe=%s
  redis.init(max_retries=%d, delay=%s, seed=%t)

  postgres.dsn=%s max_conns=%d connect_retries=%d

  metrics.enabled=%t
`,
		c.App.Env, c.App.LogLevel, c.App.ServiceName,
		c.Server.Addr, c.Server.ReadinessWait, c.Server.ShutdownTimeout,
		strings.Join(c.Redis.Nodes, ","), redisPass, c.Redis.DB, c.Redis.Prefix,
		c.Redis.CallTimeout, c.Redis.DialTimeout,
		c.Redis.MaxAttempts, c.Redis.BackoffBase, c.Redis.BackoffMax, c.Redis.ReprobeInterval,
		c.Redis.InitMaxRetries, c.Redis.InitRetryDelay, c.SeedEnabled(),
		dsn, c.Postgres.MaxConns, c.Postgres.ConnectRetries,
		c.MetricsEnabled(),
	)
}

func main() {
	var (
		flagConfigPath = flag.String("config", "", "ruta a config.yaml (fallback: $CONFIG_PATH o configs/config.yaml)")
		flagEnvOnly    = flag.Bool("env", false, "usar SOLO env (y .env si se pasa -env-file)")
		flagEnvFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
		flagPrint      = flag.Bool("print-config", false, "imprime config efectiva y termina")
	)
	flag.Parse()

	if *flagEnvFile != "" && (fileExists(*flagEnvFile) || *flagEnvOnly) {
		if err := godotenv.Load(*flagEnvFile); err == nil {
			log.Printf("dotenv: cargado %s", *flagEnvFile)
		}
	}

	cfg, err := loadConfig(*flagEnvOnly, *flagConfigPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *flagPrint {
		printConfigSummary(cfg)
		return
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: cfg.App.ServiceName})
	defer func() { _ = logger.Sync() }()
	lg := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("service failed", logger.Err(err))
	}
	lg.Info("service stopped")
}

func loadConfig(envOnly bool, path string) (*config.Config, error) {
	if envOnly {
		return config.LoadFromEnv()
	}
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" && fileExists("configs/config.yaml") {
		path = "configs/config.yaml"
	}
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	// ─── Cache ───
	eps, err := cfg.Endpoints()
	if err != nil {
		return err
	}
	rcfg := rediscache.Config{
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.CallTimeout,
		WriteTimeout: cfg.Redis.CallTimeout,
	}
	client, err := cache.New(cache.Options{
		Endpoints:    eps,
		Dial:         rediscache.Dialer(rcfg),
		RedirectDial: rediscache.RedirectDialer(rcfg),
		Prefix:       cfg.Redis.Prefix,
		CallTimeout:  cfg.Redis.CallTimeout,
		ProbeTimeout: cfg.Redis.DialTimeout,
		Retry:        cfg.RetryPolicy(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	var seed []cache.Entry
	if cfg.SeedEnabled() {
		seed = cache.DefaultSeed()
	}
	initializer := cache.NewInitializer(client, cache.InitOptions{Seed: seed})
	go func() {
		if ok := initializer.Initialize(ctx, cfg.Redis.InitMaxRetries, cfg.Redis.InitRetryDelay); !ok && ctx.Err() == nil {
			lg.Warn("cache unavailable at startup, serving from fallback store")
		}
	}()
	client.StartReprobe(ctx, cfg.Redis.ReprobeInterval)

	// ─── Postgres (opcional) ───
	var (
		items   datasvc.ItemStore
		dbCheck func(context.Context) error
	)
	if dsn := cfg.PostgresDSN(); dsn != "" {
		store, err := pg.Open(ctx, dsn, pg.Config{
			MaxConns:       cfg.Postgres.MaxConns,
			ConnectRetries: cfg.Postgres.ConnectRetries,
			ConnectDelay:   cfg.Postgres.ConnectDelay,
		})
		if err != nil {
			lg.Warn("postgres unavailable, /api/data/postgres disabled", logger.Err(err))
		} else {
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			items = store
			dbCheck = store.Ping
		}
	} else {
		lg.Info("postgres not configured")
	}

	// ─── HTTP ───
	var metricsHandler http.Handler
	if cfg.MetricsEnabled() {
		h, err := mw.RegisterMetrics(mw.MetricsConfig{})
		if err != nil {
			return err
		}
		metricsHandler = h
	}

	handler := router.New(router.Deps{
		Redis:    datactrl.NewRedisController(datasvc.NewRedisService(client)),
		Postgres: datactrl.NewPostgresController(datasvc.NewPostgresService(items)),
		Users:    usersctrl.NewController(userssvc.NewService(client)),
		Health: healthctrl.NewHealthController(healthsvc.NewService(healthsvc.Deps{
			CacheState: client.State,
			DBCheck:    dbCheck,
			Ready:      initializer.Ready(),
		})),
		Metrics:       metricsHandler,
		Ready:         initializer.Ready(),
		ReadinessWait: cfg.Server.ReadinessWait,
	})

	lg.Info("service up",
		logger.String("addr", cfg.Server.Addr),
		logger.String("env", cfg.App.Env),
		logger.String("redis_nodes", strings.Join(cfg.Redis.Nodes, ",")),
		logger.Bool("postgres", items != nil),
	)
	return server.Run(ctx, server.Config{Addr: cfg.Server.Addr, ShutdownTimeout: cfg.Server.ShutdownTimeout}, handler)
}
