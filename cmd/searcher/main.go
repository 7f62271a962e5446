package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/rankengine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/resilience"
)

const bootstrapTimeout = 2 * time.Minute

func main() {
	configPath := pflag.StringP("config", "c", "", "path to YAML config file")
	sourceFile := pflag.String("source-file", "", "JSON-lines file to index at startup")
	watch := pflag.Bool("watch", false, "re-index the source file when it changes")
	port := pflag.IntP("port", "p", 0, "HTTP port (overrides config)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if pflag.CommandLine.Changed("source-file") {
		cfg.Source.File = *sourceFile
	}
	if pflag.CommandLine.Changed("watch") {
		cfg.Source.Watch = *watch
	}
	if pflag.CommandLine.Changed("port") {
		cfg.Server.Port = *port
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	engine := indexer.NewEngine(m)
	exec := executor.New(engine, ranker.NewScorer(cfg.Ranking), m)
	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents", engine.IndexSize()),
		}
	})
	slog.Info("ranking configured", "k1", cfg.Ranking.K1, "b", cfg.Ranking.B, "delta", cfg.Ranking.Delta)

	queryCache, closeCache := buildCache(cfg, m, checker)
	defer closeCache()

	var db *postgres.Client
	if cfg.Postgres.Enabled {
		var err error
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		checker.Register("postgres", health.PingCheck(db.Ping, true))
		err = resilience.WithTimeout(ctx, bootstrapTimeout, "postgres-bootstrap", func(ctx context.Context) error {
			if err := db.EnsureSchema(ctx); err != nil {
				return err
			}
			_, err := source.LoadInto(ctx, source.NewPostgresSource(db), engine)
			return err
		})
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Source.File != "" {
		fileSource := source.NewFileSource(cfg.Source.File)
		if _, err := source.LoadInto(ctx, fileSource, engine); err != nil {
			return err
		}
		if cfg.Source.Watch {
			g.Go(func() error { return fileSource.Watch(gctx, engine) })
		}
	}

	h := handler.New(engine, exec, queryCache, cfg.Search.DefaultLimit, cfg.Search.MaxResults)

	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.DocumentIngest
		indexConsumer := kafka.NewConsumer(cfg.Kafka, topic, consumer.HandleMessage(engine))
		g.Go(func() error { return indexConsumer.Start(gctx) })

		producer := kafka.NewProducer(cfg.Kafka, topic)
		defer producer.Close()
		h.UsePublisher(publisher.New(producer, db))
		slog.Info("kafka ingest enabled", "topic", topic, "brokers", cfg.Kafka.Brokers)
	}

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", m.Handler())
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.WriteRateLimit > 0 {
		chain = middleware.RateLimitWrites(middleware.NewLimiter(cfg.Server.WriteRateLimit, time.Minute))(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr, "documents", engine.IndexSize())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildCache prefers Redis behind a circuit breaker and falls back to an
// in-process LRU when Redis is disabled or unreachable at startup.
func buildCache(cfg *config.Config, m *metrics.Metrics, checker *health.Checker) (*cache.QueryCache, func()) {
	local := func() (*cache.QueryCache, func()) {
		backend := cache.NewLocalBackend(cfg.Search.LocalCacheEntries, cfg.Redis.CacheTTL)
		slog.Info("search cache enabled", "backend", "local", "entries", cfg.Search.LocalCacheEntries)
		return cache.New(backend, cfg.Redis.CacheTTL, m), func() {}
	}
	if !cfg.Redis.Enabled {
		return local()
	}
	client, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, using local cache", "error", err)
		return local()
	}
	checker.Register("redis", health.PingCheck(client.Ping, false))
	breaker := resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     15 * time.Second,
	})
	backend := cache.NewBreakerBackend(cache.NewRedisBackend(client), breaker)
	slog.Info("search cache enabled", "backend", "redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	return cache.New(backend, cfg.Redis.CacheTTL, m), func() { client.Close() }
}
