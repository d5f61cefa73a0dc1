package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"lrucache/internal/cache"
	"lrucache/internal/config"
	"lrucache/internal/httpapi"
	"lrucache/internal/logging"
	"lrucache/internal/metrics"
	"lrucache/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "lrucache:", err)
		os.Exit(1)
	}
}

func run() error {
	// Signal-aware context is the root of ownership for long-lived background work.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel) // validated by config.Load
	logger, err := logging.New(os.Stderr, level, cfg.LogFormat, cfg.LogNoColor)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewPrometheus(reg, cfg.MetricsNamespace)
	if err != nil {
		return err
	}

	backing, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	c, err := cache.New(cache.Config[string]{
		Capacity:     cfg.Capacity,
		QueueSize:    cfg.QueueSize,
		FetchTimeout: cfg.FetchTimeout,
		Logger:       logger,
		Metrics:      collector,
	}, backing)
	if err != nil {
		return err
	}
	if err := metrics.RegisterGauges(reg, cfg.MetricsNamespace, c.Stats); err != nil {
		return err
	}
	if err := c.Start(); err != nil {
		return err
	}
	defer c.Stop()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(c, reg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("lrucache starting",
		"addr", cfg.HTTPAddr,
		"capacity", cfg.Capacity,
		"queue_size", cfg.QueueSize,
		"store", cfg.Store.Kind,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		c.Stop()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore builds the configured backing store, wrapped with retries and
// an optional rate limit. The returned func releases its connections.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (cache.Store[string], func(), error) {
	var (
		backing cache.Store[string]
		closeFn = func() {}
	)

	switch cfg.Kind {
	case config.StoreRedis:
		client, err := store.ConnectRedis(ctx, cfg.RedisURL, cfg.RetryAttempts, cfg.RetryInterval, cfg.ConnectTimeout)
		if err != nil {
			return nil, nil, err
		}
		backing = store.NewRedis(client, cfg.RedisPrefix)
		closeFn = func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", "error", err)
			}
		}

	case config.StorePostgres:
		pool, err := store.ConnectPostgres(ctx, cfg.PostgresURL, cfg.ConnectTimeout)
		if err != nil {
			return nil, nil, err
		}
		pg, err := store.NewPostgres(pool, cfg.PostgresTable)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		backing = pg
		closeFn = pool.Close

	default:
		// Demo: numeric keys read back in canonical decimal form, behind a slow store.
		backing = store.Map[int64, string](
			store.Slow[int64]{Next: store.ParseInt{}, Latency: cfg.Latency},
			func(n int64) (string, error) { return strconv.FormatInt(n, 10), nil },
		)
	}

	backing = store.Retrying[string]{Next: backing, Attempts: cfg.RetryAttempts, Interval: cfg.RetryInterval}
	if cfg.RateLimit > 0 {
		backing = store.NewRateLimited(backing, cfg.RateLimit, cfg.RateBurst)
	}
	return backing, closeFn, nil
}
