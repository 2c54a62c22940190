package config

import (
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:  AppConfig{Env: "local", Port: 8080},
		DB:   DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "classboard"},
		Auth: AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLModeAndIssuer(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE and issuer")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute || c.Auth.RefreshTokenTTL != 30*24*time.Hour {
		t.Fatalf("unexpected ttl defaults: %v / %v", c.Auth.AccessTokenTTL, c.Auth.RefreshTokenTTL)
	}
	if c.Pool.Workers != 16 || c.Pool.AcquireTimeout != 2*time.Second {
		t.Fatalf("unexpected pool defaults: %+v", c.Pool)
	}
	if c.Auth.BcryptCost != 12 {
		t.Fatalf("unexpected bcrypt default %d", c.Auth.BcryptCost)
	}
	if c.RedisEnabled() {
		t.Fatalf("redis must be disabled without REDIS_HOST")
	}
}

func TestValidate_RefreshMustOutliveAccess(t *testing.T) {
	c := validLocal()
	c.Auth.AccessTokenTTL = time.Hour
	c.Auth.RefreshTokenTTL = time.Minute
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when refresh ttl <= access ttl")
	}
}

func TestLoad_ReadsEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_NAME", "n")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("POOL_WORKERS", "4")
	t.Setenv("AMQP_URL", "amqp://guest:guest@mq:5672/")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.App.Port != 9000 || c.Auth.AccessTokenTTL != 5*time.Minute || c.Pool.Workers != 4 {
		t.Fatalf("unexpected config: %+v", c)
	}
	if c.RedisAddr() != "cache:6379" {
		t.Fatalf("unexpected redis addr %q", c.RedisAddr())
	}
	if c.Redis.PoolSize != 4 || c.DB.MaxOpenConns != 4 {
		t.Fatalf("connection pools must follow POOL_WORKERS: redis=%d db=%d", c.Redis.PoolSize, c.DB.MaxOpenConns)
	}
	if c.AMQP.Queue != "class.membership.changed" {
		t.Fatalf("unexpected default queue %q", c.AMQP.Queue)
	}
}

func TestLoad_ReportsBadInteger(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "eighty")
	t.Setenv("DB_PORT", "5432")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate_ConnectionPoolDefaults(t *testing.T) {
	c := validLocal()
	c.Pool.Workers = 8
	c.Redis.Host = "cache"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.MaxOpenConns != 8 || c.DB.MaxIdleConns != 8 || c.DB.ConnMaxLifetime != 30*time.Minute || c.DB.ConnMaxIdleTime != 5*time.Minute {
		t.Fatalf("unexpected db pool defaults: %+v", c.DB)
	}
	if c.Redis.PoolSize != 8 || c.Redis.ConnMaxIdleTime != 5*time.Minute || c.Redis.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("unexpected redis pool defaults: %+v", c.Redis)
	}
}

func TestValidate_IdleConnsBoundedByOpen(t *testing.T) {
	c := validLocal()
	c.DB.MaxOpenConns = 4
	c.DB.MaxIdleConns = 10
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when idle connections exceed open connections")
	}
}

func TestLoad_ReadsConnectionPoolTuning(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_NAME", "n")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_MAX_OPEN_CONNS", "12")
	t.Setenv("DB_CONN_MAX_LIFETIME", "1h")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_POOL_SIZE", "6")
	t.Setenv("REDIS_MIN_IDLE_CONNS", "1")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.DB.MaxOpenConns != 12 || c.DB.MaxIdleConns != 12 || c.DB.ConnMaxLifetime != time.Hour {
		t.Fatalf("unexpected db pool: %+v", c.DB)
	}
	if c.Redis.DB != 2 || c.Redis.PoolSize != 6 || c.Redis.MinIdleConns != 1 {
		t.Fatalf("unexpected redis pool: %+v", c.Redis)
	}
}
