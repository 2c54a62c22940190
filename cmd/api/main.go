package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classboard/internal/audit"
	"classboard/internal/auth"
	"classboard/internal/classes"
	"classboard/internal/config"
	"classboard/internal/events"
	"classboard/internal/httpapi"
	"classboard/internal/rbac"
	"classboard/internal/users"
	"classboard/internal/workerpool"
	"classboard/pkg/logger"
	"classboard/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const clusterLimitKey = "classboard:storage:inflight"

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn(".env load failed", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPool{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
	})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	var poolOpts []workerpool.Option
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisOptions{
			Addr:            cfg.RedisAddr(),
			Password:        cfg.Redis.Password,
			DB:              cfg.Redis.DB,
			PoolSize:        cfg.Redis.PoolSize,
			MinIdleConns:    cfg.Redis.MinIdleConns,
			ConnMaxIdleTime: cfg.Redis.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Redis.ConnMaxLifetime,
		})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		if cfg.Pool.ClusterLimit > 0 {
			poolOpts = append(poolOpts, workerpool.WithLimiter(
				workerpool.NewRedisLimiter(rdb, clusterLimitKey, cfg.Pool.ClusterLimit, 2*cfg.Pool.TaskTimeout),
			))
		}
	}
	pool := workerpool.New(cfg.Pool, log, poolOpts...)

	classOpts := []classes.Option{
		classes.WithAuditor(audit.NewService(audit.NewPostgresRepo(db))),
	}
	if cfg.AMQP.URL != "" {
		pub, err := events.Dial(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			log.Error("amqp init failed", "err", err)
			os.Exit(1)
		}
		defer pub.Close()
		classOpts = append(classOpts, classes.WithPublisher(pub))
	}

	classStore := classes.NewPostgresStore(db)
	h := httpapi.Handlers{
		Users:   users.NewService(users.NewPostgresStore(db), pool, tokens, cfg.Auth.BcryptCost),
		Classes: classes.NewService(classStore, pool, classOpts...),
		Ready:   func(ctx context.Context) error { return utils.Ping(ctx, db) },
	}
	r := newRouter(log, auth.NewAuthenticator(tokens), h, classes.NewResolver(classStore, pool))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "workers", pool.Size())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

func newRouter(log *slog.Logger, authn *auth.Authenticator, h httpapi.Handlers, resolver rbac.RoleResolver) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(httpapi.ClientIP())
	registerRoutes(r, h, authn, resolver)
	return r
}
