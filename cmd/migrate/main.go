package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/cachegate/internal/config"
	"github.com/dropDatabas3/cachegate/internal/observability/logger"
	"github.com/dropDatabas3/cachegate/internal/store/pg"
)

// migrate aplica las migraciones embebidas de postgres y termina.
func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config (vacío => solo env)")
		envFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
		timeout    = flag.Duration("timeout", 2*time.Minute, "timeout total")
	)
	flag.Parse()

	if *envFile != "" {
		_ = godotenv.Load(*envFile)
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "migrate"})
	defer func() { _ = logger.Sync() }()

	dsn := cfg.PostgresDSN()
	if dsn == "" {
		log.Fatal("postgres no configurado (POSTGRES_DSN o POSTGRES_HOST)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := pg.Open(ctx, dsn, pg.Config{
		MaxConns:       2,
		ConnectRetries: cfg.Postgres.ConnectRetries,
		ConnectDelay:   cfg.Postgres.ConnectDelay,
	})
	if err != nil {
		log.Fatalf("pg open: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	logger.L().Info("migrations applied")
}
