package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/optimode/mailscore"
	"github.com/optimode/mailscore/internal/config"
	"github.com/optimode/mailscore/internal/httpapi"
	apimw "github.com/optimode/mailscore/internal/httpapi/middleware"
	"github.com/optimode/mailscore/internal/logging"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	v, err := newValidator(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("validator_init", zap.Error(err))
	}

	var limiter *apimw.Store
	if cfg.RateLimit > 0 {
		limiter = apimw.NewStore(cfg.RateLimit, cfg.RateWindow)
		limiter.StartJanitor(ctx, cfg.RateWindow)
	}

	api := httpapi.NewServer(logger, v, cfg.MaxBulk)
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.Router(httpapi.RouterOptions{
			APIKey:     cfg.APIKey,
			Limiter:    limiter,
			TrustProxy: cfg.TrustProxy,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// a bulk request may wait on MAX_BULK lookups in parallel
		WriteTimeout: cfg.MXTimeout + 30*time.Second,
		IdleTimeout:  90 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api_listen",
			zap.String("addr", cfg.Addr),
			zap.Int("rate_limit", cfg.RateLimit),
			zap.Duration("rate_window", cfg.RateWindow),
			zap.Int("max_bulk", cfg.MaxBulk),
			zap.Duration("mx_timeout", cfg.MXTimeout),
			zap.Duration("mx_cache_ttl", cfg.MXCacheTTL),
			zap.Bool("redis", cfg.RedisAddr != ""),
		)
		if cfg.APIKey == "" {
			logger.Warn("no API_KEY set, running without authentication")
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("api_serve", zap.Error(err))
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	err = multierr.Combine(
		srv.Shutdown(shutdownCtx),
		v.Close(),
	)
	if err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("api_stopped")
	_ = logger.Sync()
}

// newValidator builds the scoring pipeline. MX answers are cached in
// process unless MX_CACHE_TTL_SEC is 0; REDIS_ADDR adds a shared tier.
func newValidator(ctx context.Context, cfg config.Config, logger *zap.Logger) (*mailscore.Validator, error) {
	v := mailscore.New().
		WithLogger(logger.Named("validator")).
		WithMXTimeout(cfg.MXTimeout)

	if cfg.MXCacheTTL <= 0 {
		return v, nil
	}

	opts := mailscore.CacheOptions{
		TTL:        cfg.MXCacheTTL,
		PruneEvery: cfg.MXCacheTTL,
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			return nil, multierr.Append(err, rdb.Close())
		}
		opts.Remote = mailscore.NewRedisCache(rdb)
	}
	return v.WithCache(opts), nil
}
