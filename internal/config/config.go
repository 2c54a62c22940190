package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or a .env file loaded by cmd/api).
// No business logic should depend on raw environment variables.
type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	Auth  AuthConfig
	Pool  PoolConfig
	AMQP  AMQPConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// Connection pool. MaxOpenConns defaults to the worker count, since
	// every storage call runs on a pool worker.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig is optional. An empty Host disables the cluster-wide pool limiter.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	PoolSize        int
	MinIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
}

// PoolConfig sizes the worker pool that runs blocking storage calls.
type PoolConfig struct {
	Workers        int
	AcquireTimeout time.Duration
	TaskTimeout    time.Duration

	// ClusterLimit caps in-flight storage tasks across all API replicas.
	// Only used when Redis is configured; 0 disables it.
	ClusterLimit int
}

// AMQPConfig is optional. An empty URL disables membership event publishing.
type AMQPConfig struct {
	URL   string
	Queue string
}

func Load() (Config, error) {
	c := Config{}
	var p envParser

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port = p.requiredInt("APP_PORT")

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port = p.requiredInt("DB_PORT")
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	c.DB.MaxOpenConns = p.optionalInt("DB_MAX_OPEN_CONNS")
	c.DB.MaxIdleConns = p.optionalInt("DB_MAX_IDLE_CONNS")
	c.DB.ConnMaxLifetime = mustDuration("DB_CONN_MAX_LIFETIME")
	c.DB.ConnMaxIdleTime = mustDuration("DB_CONN_MAX_IDLE_TIME")

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port = p.optionalInt("REDIS_PORT")
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.DB = p.optionalInt("REDIS_DB")
	c.Redis.PoolSize = p.optionalInt("REDIS_POOL_SIZE")
	c.Redis.MinIdleConns = p.optionalInt("REDIS_MIN_IDLE_CONNS")
	c.Redis.ConnMaxIdleTime = mustDuration("REDIS_CONN_MAX_IDLE_TIME")
	c.Redis.ConnMaxLifetime = mustDuration("REDIS_CONN_MAX_LIFETIME")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")
	c.Auth.BcryptCost = p.optionalInt("BCRYPT_COST")

	c.Pool.Workers = p.optionalInt("POOL_WORKERS")
	c.Pool.AcquireTimeout = mustDuration("POOL_ACQUIRE_TIMEOUT")
	c.Pool.TaskTimeout = mustDuration("POOL_TASK_TIMEOUT")
	c.Pool.ClusterLimit = p.optionalInt("POOL_CLUSTER_LIMIT")

	c.AMQP.URL = strings.TrimSpace(os.Getenv("AMQP_URL"))
	c.AMQP.Queue = strings.TrimSpace(os.Getenv("AMQP_MEMBERSHIP_QUEUE"))

	if err := joinErrors(p.errs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills in defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host != "" {
		if c.Redis.Port == 0 {
			c.Redis.Port = 6379
		}
		if c.Redis.Port < 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in production"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 12
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}

	if c.Pool.Workers == 0 {
		c.Pool.Workers = 16
	}
	if c.Pool.Workers < 0 {
		errs = append(errs, fmt.Errorf("POOL_WORKERS must be positive, got %d", c.Pool.Workers))
	}
	if c.Pool.AcquireTimeout <= 0 {
		c.Pool.AcquireTimeout = 2 * time.Second
	}
	if c.Pool.TaskTimeout <= 0 {
		c.Pool.TaskTimeout = 30 * time.Second
	}
	if c.Pool.ClusterLimit < 0 {
		errs = append(errs, fmt.Errorf("POOL_CLUSTER_LIMIT must not be negative, got %d", c.Pool.ClusterLimit))
	}

	errs = append(errs, c.poolDefaults()...)

	if c.AMQP.URL != "" && c.AMQP.Queue == "" {
		c.AMQP.Queue = "class.membership.changed"
	}

	return joinErrors(errs)
}

// poolDefaults sizes the Postgres and Redis connection pools after the
// worker count is known.
func (c *Config) poolDefaults() []error {
	var errs []error

	if c.DB.MaxOpenConns == 0 {
		c.DB.MaxOpenConns = c.Pool.Workers
	}
	if c.DB.MaxIdleConns == 0 {
		c.DB.MaxIdleConns = c.DB.MaxOpenConns
	}
	if c.DB.MaxOpenConns < 0 || c.DB.MaxIdleConns < 0 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS and DB_MAX_IDLE_CONNS must not be negative"))
	} else if c.DB.MaxIdleConns > c.DB.MaxOpenConns {
		errs = append(errs, fmt.Errorf("DB_MAX_IDLE_CONNS (%d) must not exceed DB_MAX_OPEN_CONNS (%d)", c.DB.MaxIdleConns, c.DB.MaxOpenConns))
	}
	if c.DB.ConnMaxLifetime <= 0 {
		c.DB.ConnMaxLifetime = 30 * time.Minute
	}
	if c.DB.ConnMaxIdleTime <= 0 {
		c.DB.ConnMaxIdleTime = 5 * time.Minute
	}

	if !c.RedisEnabled() {
		return errs
	}
	// at most one limiter call per worker is in flight
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = c.Pool.Workers
	}
	if c.Redis.PoolSize < 0 || c.Redis.MinIdleConns < 0 || c.Redis.DB < 0 {
		errs = append(errs, errors.New("REDIS_POOL_SIZE, REDIS_MIN_IDLE_CONNS and REDIS_DB must not be negative"))
	}
	if c.Redis.ConnMaxIdleTime <= 0 {
		c.Redis.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.Redis.ConnMaxLifetime <= 0 {
		c.Redis.ConnMaxLifetime = 30 * time.Minute
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// envParser collects integer parse errors so Load can report all of them at once.
type envParser struct {
	errs []error
}

func (p *envParser) requiredInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		p.errs = append(p.errs, fmt.Errorf("%s is required", key))
		return 0
	}
	return p.parseInt(key, v)
}

func (p *envParser) optionalInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	return p.parseInt(key, v)
}

func (p *envParser) parseInt(key, v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s must be an integer, got %q", key, v))
		return 0
	}
	return n
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
