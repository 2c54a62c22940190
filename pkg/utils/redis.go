package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis only backs the cluster-wide task cap. Every call is one short
// script, so a slow server fails the task fast instead of holding a worker.
const (
	redisDialTimeout = 2 * time.Second
	redisIOTimeout   = 500 * time.Millisecond
	redisPoolTimeout = time.Second
	redisPingTimeout = 2 * time.Second
)

// RedisOptions carries the tunables read from the environment.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	PoolSize        int
	MinIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func (o RedisOptions) client() *redis.Options {
	return &redis.Options{
		Addr:            o.Addr,
		Password:        o.Password,
		DB:              o.DB,
		DialTimeout:     redisDialTimeout,
		ReadTimeout:     redisIOTimeout,
		WriteTimeout:    redisIOTimeout,
		PoolSize:        o.PoolSize,
		MinIdleConns:    o.MinIdleConns,
		PoolTimeout:     redisPoolTimeout,
		ConnMaxIdleTime: o.ConnMaxIdleTime,
		ConnMaxLifetime: o.ConnMaxLifetime,
	}
}

// OpenRedis connects and PINGs. The password is never part of an error.
func OpenRedis(ctx context.Context, o RedisOptions) (*redis.Client, error) {
	if o.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	rdb := redis.NewClient(o.client())

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", o.Addr, err)
	}
	return rdb, nil
}
