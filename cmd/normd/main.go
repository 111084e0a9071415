package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lexstat/pivotnorm/internal/eval"
	"github.com/lexstat/pivotnorm/internal/normd"
	"github.com/lexstat/pivotnorm/internal/normd/cache"
	"github.com/lexstat/pivotnorm/internal/normd/handler"
	"github.com/lexstat/pivotnorm/internal/normd/store"
	"github.com/lexstat/pivotnorm/internal/stream"
	"github.com/lexstat/pivotnorm/internal/weighting"
	"github.com/lexstat/pivotnorm/pkg/config"
	"github.com/lexstat/pivotnorm/pkg/health"
	"github.com/lexstat/pivotnorm/pkg/logger"
	"github.com/lexstat/pivotnorm/pkg/metrics"
	"github.com/lexstat/pivotnorm/pkg/middleware"
	pkgpostgres "github.com/lexstat/pivotnorm/pkg/postgres"
	pkgredis "github.com/lexstat/pivotnorm/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting normalization service", "port", cfg.Server.Port)

	var m *metrics.Metrics
	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var transformCache *cache.TransformCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, transform caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			transformCache = cache.New(redisClient, cfg.Redis, m)
			slog.Info("transform cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var runStore *store.RunStore
	var pgClient *pkgpostgres.Client
	if cfg.Postgres.Enabled {
		pgClient, err = pkgpostgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, sweep history disabled", "error", err)
		} else {
			defer pgClient.Close()
			runStore, err = store.New(ctx, pgClient)
			if err != nil {
				slog.Error("failed to initialize sweep-run store", "error", err)
				os.Exit(1)
			}
			slog.Info("sweep history store enabled", "host", cfg.Postgres.Host)
		}
	}

	pivot, err := parsePivot(cfg.Weighting.Pivot)
	if err != nil {
		slog.Error("invalid weighting.pivot", "value", cfg.Weighting.Pivot, "error", err)
		os.Exit(1)
	}
	sweeper := eval.NewSweeper(
		func() eval.Classifier { return normd.NewCentroidClassifier() },
		pivot,
		cfg.Sweep.MaxConcurrent,
	)

	service := normd.New(transformCache, runStore, sweeper, m, cfg.Weighting.Workers)

	var streamNormalizer *stream.Normalizer
	if cfg.Stream.Enabled {
		streamNormalizer = stream.New(service, cfg.Kafka, cfg.Stream, m)
		go func() {
			if err := streamNormalizer.Start(ctx); err != nil {
				slog.Error("stream normalizer error", "error", err)
			}
		}()
		defer streamNormalizer.Close()
		slog.Info("stream normalizer started",
			"input_topic", cfg.Stream.InputTopic,
			"output_topic", cfg.Stream.OutputTopic,
		)
	}

	checker := health.NewChecker()
	checker.Register("model", func(ctx context.Context) health.ComponentHealth {
		if _, _, err := service.Current(); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not fitted"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusUp, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if pgClient == nil {
			return health.ComponentHealth{Status: health.StatusUp, Message: "not configured"}
		}
		if err := pgClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(service, transformCache, runStore)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/fit", h.Fit)
	mux.HandleFunc("POST /api/v1/transform", h.Transform)
	mux.HandleFunc("GET /api/v1/model", h.Model)
	mux.HandleFunc("POST /api/v1/bias", h.Bias)
	mux.HandleFunc("POST /api/v1/sweep", h.Sweep)
	mux.HandleFunc("GET /api/v1/sweep/history", h.SweepHistory)
	mux.HandleFunc("GET /api/v1/sweep/best", h.SweepBest)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	if metricsShutdown != nil {
		if err := metricsShutdown(shutdownCtx); err != nil {
			slog.Error("metrics shutdown error", "error", err)
		}
	}
	slog.Info("shutdown complete")
}

func parsePivot(value string) (weighting.PivotSetting, error) {
	if value == "" || value == weighting.PivotAuto {
		return weighting.AutoPivot(), nil
	}
	var pivot float64
	if _, err := fmt.Sscanf(value, "%g", &pivot); err != nil {
		return weighting.PivotSetting{}, err
	}
	return weighting.FixedPivot(pivot), nil
}
