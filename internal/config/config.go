package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/cachegate/internal/cache"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env         string `yaml:"app_env"`
		LogLevel    string `yaml:"log_level"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr"`
		ReadinessWait   time.Duration `yaml:"readiness_wait"`   // cuánto espera una request a que termine el bootstrap
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // graceful shutdown
	} `yaml:"server"`

	Redis struct {
		// host:port en orden de preferencia. Vacío => redis-node-0:6379
		Nodes    []string `yaml:"nodes"`
		Password string   `yaml:"password"`
		DB       int      `yaml:"db"`
		Prefix   string   `yaml:"prefix"`

		CallTimeout time.Duration `yaml:"call_timeout"`
		DialTimeout time.Duration `yaml:"dial_timeout"`

		MaxAttempts int           `yaml:"max_attempts"`
		BackoffBase time.Duration `yaml:"backoff_base"`
		BackoffMax  time.Duration `yaml:"backoff_max"`

		ReprobeInterval time.Duration `yaml:"reprobe_interval"`

		InitMaxRetries int           `yaml:"init_max_retries"`
		InitRetryDelay time.Duration `yaml:"init_retry_delay"`
		SeedSampleData *bool         `yaml:"seed_sample_data"` // nil => true
	} `yaml:"redis"`

	Postgres struct {
		// DSN tiene prioridad; si está vacío se arma con Host/Port/User/Password/DB.
		// Sin DSN ni Host el store queda deshabilitado.
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DB       string `yaml:"db"`

		MaxConns       int           `yaml:"max_conns"`
		ConnectRetries int           `yaml:"connect_retries"`
		ConnectDelay   time.Duration `yaml:"connect_delay"`
	} `yaml:"postgres"`

	Metrics struct {
		Enabled *bool `yaml:"enabled"` // nil => true
	} `yaml:"metrics"`
}

// Load lee el YAML en path, aplica defaults, overrides por env y valida.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c.finish()
}

// LoadFromEnv arma la config solo con defaults + variables de entorno.
func LoadFromEnv() (*Config, error) {
	var c Config
	return c.finish()
}

func (c *Config) finish() (*Config, error) {
	c.applyEnvOverrides()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.ServiceName == "" {
		c.App.ServiceName = "cachegate"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if c.Server.ReadinessWait == 0 {
		c.Server.ReadinessWait = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if len(c.Redis.Nodes) == 0 {
		c.Redis.Nodes = []string{cache.DefaultEndpoint}
	}
	if c.Redis.CallTimeout == 0 {
		c.Redis.CallTimeout = 3 * time.Second
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 3 * time.Second
	}
	if c.Redis.MaxAttempts == 0 {
		c.Redis.MaxAttempts = 3
	}
	if c.Redis.BackoffBase == 0 {
		c.Redis.BackoffBase = 200 * time.Millisecond
	}
	if c.Redis.BackoffMax == 0 {
		c.Redis.BackoffMax = 5 * time.Second
	}
	if c.Redis.ReprobeInterval == 0 {
		c.Redis.ReprobeInterval = 10 * time.Second
	}
	if c.Redis.InitMaxRetries == 0 {
		c.Redis.InitMaxRetries = 5
	}
	if c.Redis.InitRetryDelay == 0 {
		c.Redis.InitRetryDelay = 5 * time.Second
	}

	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.MaxConns == 0 {
		c.Postgres.MaxConns = 10
	}
	if c.Postgres.ConnectRetries == 0 {
		c.Postgres.ConnectRetries = 20
	}
	if c.Postgres.ConnectDelay == 0 {
		c.Postgres.ConnectDelay = 5 * time.Second
	}
}

// SeedEnabled indica si se siembran datos de ejemplo en un store vacío.
func (c *Config) SeedEnabled() bool {
	return c.Redis.SeedSampleData == nil || *c.Redis.SeedSampleData
}

func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Enabled == nil || *c.Metrics.Enabled
}

// Endpoints parsea Redis.Nodes.
func (c *Config) Endpoints() ([]cache.Endpoint, error) {
	return cache.ParseEndpoints(strings.Join(c.Redis.Nodes, ","))
}

// RetryPolicy arma la política de retry del cliente de cache.
func (c *Config) RetryPolicy() cache.RetryPolicy {
	return cache.RetryPolicy{
		MaxAttempts: c.Redis.MaxAttempts,
		BaseDelay:   c.Redis.BackoffBase,
		MaxDelay:    c.Redis.BackoffMax,
	}
}

// PostgresDSN retorna el DSN efectivo ("" => postgres deshabilitado).
func (c *Config) PostgresDSN() string {
	if dsn := strings.TrimSpace(c.Postgres.DSN); dsn != "" {
		return dsn
	}
	if strings.TrimSpace(c.Postgres.Host) == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.Postgres.Host, strconv.Itoa(c.Postgres.Port)),
		Path:     "/" + c.Postgres.DB,
		RawQuery: "sslmode=disable",
	}
	if c.Postgres.User != "" {
		u.User = url.UserPassword(c.Postgres.User, c.Postgres.Password)
	}
	return u.String()
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVICE_NAME"); ok {
		c.App.ServiceName = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	} else if v, ok := getEnvInt("PORT"); ok {
		c.Server.Addr = ":" + strconv.Itoa(v)
	}
	if v, ok := getEnvDur("READINESS_WAIT"); ok {
		c.Server.ReadinessWait = v
	}
	if v, ok := getEnvDur("SHUTDOWN_TIMEOUT"); ok {
		c.Server.ShutdownTimeout = v
	}

	// REDIS
	if v, ok := getEnvCSV("REDIS_NODES"); ok && len(v) > 0 {
		c.Redis.Nodes = v
	} else if host, ok := getEnvStr("REDIS_HOST"); ok {
		// compat: REDIS_HOST + REDIS_PORT de un solo nodo
		port := "6379"
		if p, ok := getEnvStr("REDIS_PORT"); ok {
			port = strings.TrimSpace(p)
		}
		c.Redis.Nodes = []string{net.JoinHostPort(strings.TrimSpace(host), port)}
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_KEY_PREFIX"); ok {
		c.Redis.Prefix = v
	}
	if v, ok := getEnvDur("REDIS_CALL_TIMEOUT"); ok {
		c.Redis.CallTimeout = v
	}
	if v, ok := getEnvDur("REDIS_DIAL_TIMEOUT"); ok {
		c.Redis.DialTimeout = v
	}
	if v, ok := getEnvInt("REDIS_MAX_ATTEMPTS"); ok {
		c.Redis.MaxAttempts = v
	}
	if v, ok := getEnvDur("REDIS_BACKOFF_BASE"); ok {
		c.Redis.BackoffBase = v
	}
	if v, ok := getEnvDur("REDIS_BACKOFF_MAX"); ok {
		c.Redis.BackoffMax = v
	}
	if v, ok := getEnvDur("REDIS_REPROBE_INTERVAL"); ok {
		c.Redis.ReprobeInterval = v
	}
	if v, ok := getEnvInt("REDIS_INIT_MAX_RETRIES"); ok {
		c.Redis.InitMaxRetries = v
	}
	if v, ok := getEnvDur("REDIS_INIT_RETRY_DELAY"); ok {
		c.Redis.InitRetryDelay = v
	}
	if v, ok := getEnvBool("REDIS_SEED_SAMPLE_DATA"); ok {
		c.Redis.SeedSampleData = &v
	}

	// POSTGRES
	if v, ok := getEnvStr("POSTGRES_DSN"); ok {
		c.Postgres.DSN = v
	}
	if v, ok := getEnvStr("POSTGRES_HOST"); ok {
		c.Postgres.Host = v
	}
	if v, ok := getEnvInt("POSTGRES_PORT"); ok {
		c.Postgres.Port = v
	}
	if v, ok := getEnvStr("POSTGRES_USER"); ok {
		c.Postgres.User = v
	}
	if v, ok := getEnvStr("POSTGRES_PASSWORD"); ok {
		c.Postgres.Password = v
	}
	if v, ok := getEnvStr("POSTGRES_DB"); ok {
		c.Postgres.DB = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Postgres.MaxConns = v
	}
	if v, ok := getEnvInt("POSTGRES_CONNECT_RETRIES"); ok {
		c.Postgres.ConnectRetries = v
	}
	if v, ok := getEnvDur("POSTGRES_CONNECT_DELAY"); ok {
		c.Postgres.ConnectDelay = v
	}

	// METRICS
	if v, ok := getEnvBool("METRICS_ENABLED"); ok {
		c.Metrics.Enabled = &v
	}
}

// Validate verifica los valores críticos. Se llama después de defaults.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if _, err := c.Endpoints(); err != nil {
		errs = append(errs, fmt.Errorf("redis.nodes: %w", err))
	}
	if c.Redis.MaxAttempts < 1 {
		errs = append(errs, errors.New("redis.max_attempts must be >= 1"))
	}
	if c.Redis.CallTimeout < 0 || c.Redis.DialTimeout < 0 {
		errs = append(errs, errors.New("redis timeouts must be positive"))
	}
	if c.Redis.BackoffBase < 0 || c.Redis.BackoffMax < c.Redis.BackoffBase {
		errs = append(errs, errors.New("redis.backoff_max must be >= redis.backoff_base"))
	}
	if c.Redis.InitMaxRetries < 1 {
		errs = append(errs, errors.New("redis.init_max_retries must be >= 1"))
	}
	if c.Postgres.MaxConns < 1 {
		errs = append(errs, errors.New("postgres.max_conns must be >= 1"))
	}
	switch c.App.Env {
	case "dev", "staging", "prod", "test":
	default:
		errs = append(errs, fmt.Errorf("app.app_env %q: want dev|staging|prod|test", c.App.Env))
	}
	return errors.Join(errs...)
}
