// Package pg implementa el repositorio de data_items sobre pgx/v5.
package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	migrations "github.com/dropDatabas3/cachegate/migrations/postgres"
	"github.com/dropDatabas3/cachegate/internal/observability/logger"
)

// Item es una fila de data_items.
type Item struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

type Config struct {
	MaxConns       int
	ConnectRetries int           // intentos de Ping al abrir
	ConnectDelay   time.Duration // espera entre intentos
}

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Open crea el pool y espera a que postgres responda, reintentando ConnectRetries veces.
func Open(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.ConnectRetries <= 0 {
		cfg.ConnectRetries = 1
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: new pool: %w", err)
	}
	s := &Store{pool: pool, log: logger.Named("pg")}

	for attempt := 1; ; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = pool.Ping(pctx)
		cancel()
		if err == nil {
			s.log.Info("postgres connected", logger.Attempt(attempt))
			return s, nil
		}
		if attempt >= cfg.ConnectRetries {
			break
		}
		s.log.Warn("postgres not ready, retrying",
			logger.Attempt(attempt),
			logger.Delay(cfg.ConnectDelay),
			logger.Err(err),
		)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(cfg.ConnectDelay):
		}
	}
	pool.Close()
	return nil, fmt.Errorf("pg: connect after %d attempts: %w", cfg.ConnectRetries, err)
}

// Migrate aplica las migraciones embebidas en orden. Son idempotentes (IF NOT EXISTS).
func (s *Store) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := migrations.FS.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("pg: migrate %s: %w", name, err)
		}
		s.log.Debug("migration applied", logger.String("file", name))
	}
	return nil
}

func (s *Store) SaveItem(ctx context.Context, key, value string) (Item, error) {
	var it Item
	err := s.pool.QueryRow(ctx,
		`INSERT INTO data_items (key, value) VALUES ($1, $2) RETURNING id, key, value, created_at`,
		key, value,
	).Scan(&it.ID, &it.Key, &it.Value, &it.CreatedAt)
	if err != nil {
		return Item{}, err
	}
	return it, nil
}

// ListItems retorna las filas, más recientes primero.
func (s *Store) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, key, COALESCE(value, ''), created_at FROM data_items ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Key, &it.Value, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// IsConnError indica si err es de conectividad con postgres (no de la query).
func IsConnError(err error) bool {
	if err == nil {
		return false
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08xxx connection exception, 57P0x shutdown
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P")
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "closed pool")
}
