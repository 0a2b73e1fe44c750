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
	"time"

	"github.com/corpuskit/novel-analyzer/internal/analytics"
	"github.com/corpuskit/novel-analyzer/internal/api"
	"github.com/corpuskit/novel-analyzer/internal/ingest"
	"github.com/corpuskit/novel-analyzer/internal/search"
	"github.com/corpuskit/novel-analyzer/internal/store"
	"github.com/corpuskit/novel-analyzer/internal/textproc"
	"github.com/corpuskit/novel-analyzer/pkg/config"
	"github.com/corpuskit/novel-analyzer/pkg/health"
	"github.com/corpuskit/novel-analyzer/pkg/kafka"
	"github.com/corpuskit/novel-analyzer/pkg/logger"
	"github.com/corpuskit/novel-analyzer/pkg/metrics"
	"github.com/corpuskit/novel-analyzer/pkg/middleware"
	"github.com/corpuskit/novel-analyzer/pkg/postgres"
	pkgredis "github.com/corpuskit/novel-analyzer/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting novel analyzer", "port", cfg.Server.Port, "data_dir", cfg.Store.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Store)
	if err != nil {
		slog.Error("failed to open document store", "error", err)
		os.Exit(1)
	}
	if n, err := st.Count(); err == nil {
		slog.Info("document store opened", "documents", n)
	}

	segStart := time.Now()
	segmenter, err := textproc.NewSegmenter()
	if err != nil {
		slog.Error("failed to load segmentation dictionary", "error", err)
		os.Exit(1)
	}
	slog.Info("segmentation dictionary loaded", "duration", time.Since(segStart))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
		if n, err := st.Count(); err == nil {
			m.DocumentsStored.Set(float64(n))
		}
	}

	var resultCache *search.ResultCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		resultCache = search.NewCache(redisClient, cfg.Redis)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var queryLog *analytics.QueryLog
	var pgClient *postgres.Client
	if cfg.Analytics.QueryLog {
		pgClient, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, query log disabled", "error", err)
			pgClient = nil
		} else {
			defer pgClient.Close()
			queryLog, err = analytics.NewQueryLog(ctx, pgClient)
			if err != nil {
				slog.Warn("query log migration failed, query log disabled", "error", err)
				queryLog = nil
			} else {
				slog.Info("query log enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
			}
		}
	}

	var collector *analytics.Collector
	var aggregator *analytics.Aggregator
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.UsageEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Analytics.BufferSize)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.UsageEvents)

		aggregator = analytics.NewAggregator(nil)
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.UsageEvents, analytics.HandleEvent(aggregator, queryLog))
		aggregator.AttachConsumer(consumer)

		go func() {
			if err := aggregator.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("analytics aggregator error", "error", err)
			}
		}()
		slog.Info("analytics aggregator started", "group", cfg.Kafka.ConsumerGroup)
	}

	checker := health.NewChecker()
	checker.Register("store", func(ctx context.Context) health.ComponentHealth {
		if n, err := st.Count(); err == nil {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", n)}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "data dir unreadable"}
	})
	checker.Register("segmenter", func(ctx context.Context) health.ComponentHealth {
		if len(segmenter.Cut("测试")) > 0 {
			return health.ComponentHealth{Status: health.StatusUp}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "dictionary not loaded"}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	if cfg.Analytics.QueryLog {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if pgClient == nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
			}
			if err := pgClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	pipeline := ingest.New(st, segmenter, m, cfg.Analysis, cfg.Ingest)
	scanner := search.NewScanner(st, cfg.Search.SnippetRunes)
	h := api.New(pipeline, st, scanner, resultCache, collector, m, cfg)
	analyticsH := analytics.NewHandler(aggregator, queryLog)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /api/v1/analytics/queries", analyticsH.RecentQueries)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("novel analyzer listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("novel analyzer stopped")
}
