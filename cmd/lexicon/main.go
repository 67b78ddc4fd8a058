// Command lexicon serves the dictionary lookup API: word discovery across
// every dictionary, tool-calling digests, definition segments and
// highlighting. Redis caching and Kafka analytics are optional.
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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/cache"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/digest"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/discovery"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/handler"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/router"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/store"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/position"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/resilience"
)

const snapshotInterval = 5 * time.Minute

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting lexicon service", "port", cfg.Server.Port, "store", cfg.Store.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Port, prometheus.DefaultGatherer); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	db, err := store.Open(cfg.Store, cfg.Postgres, cfg.Store.ReadOnly)
	if err != nil {
		slog.Error("failed to open dictionary store", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	reader := db.Resilient(cfg.Discovery, func(name string, to resilience.State) {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	})
	slog.Info("dictionary store opened", "dialect", db.Dialect())

	engineCfg := discovery.NewConfig(cfg.Discovery, cfg.Matching)
	engine := discovery.New(reader, engineCfg, m)

	checker := health.NewChecker()
	checker.Register("store", health.PingCheck(db.Ping, health.StatusDown))
	checker.Register("store_circuit", health.BreakerCheck(reader.Breaker()))

	var discoverCache *cache.DiscoverCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis, "lexicon")
		if err != nil {
			slog.Warn("redis unavailable, discovery caching disabled", "error", err)
			checker.Register("redis", health.Static(health.StatusDegraded, err.Error()))
		} else {
			defer redisClient.Close()
			discoverCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.PingCheck(redisClient.Ping, health.StatusDegraded))
			slog.Info("discovery cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	discoverer := cache.NewDiscoverer(engine, discoverCache, m)

	resolver, err := position.NewResolver(cfg.Matching.PositionMemoSize)
	if err != nil {
		slog.Error("failed to create position resolver", "error", err)
		os.Exit(1)
	}

	aggregator := analytics.NewAggregator()
	var tracker analytics.Tracker = aggregator
	var consumers []*kafka.Consumer
	var batcher *collector.BatchCollector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.LookupEvents)
		defer producer.Close()
		batcher = collector.New(producer, 100, 5*time.Second, m)
		batcher.Start(ctx)
		tracker = batcher

		consumers = append(consumers,
			kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.LookupEvents, "", analytics.HandleEvent(aggregator)),
			kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CacheInvalidate, invalidateGroup(cfg.Kafka.ConsumerGroup),
				cache.HandleInvalidate(discoverCache, resolver)),
		)
		for _, c := range consumers {
			go func(c *kafka.Consumer) {
				if err := c.Start(ctx); err != nil {
					slog.Error("kafka consumer stopped", "error", err)
				}
			}(c)
		}
		checker.Register("kafka", health.Static(health.StatusUp, "collector active"))
		slog.Info("lookup analytics enabled", "topic", cfg.Kafka.Topics.LookupEvents)
	} else {
		slog.Info("kafka disabled, lookup analytics aggregated in process")
	}

	if !cfg.Store.ReadOnly {
		snapshots := snapshot.NewStore(db.DB(), db.Dialect())
		if err := snapshots.Init(ctx); err != nil {
			slog.Warn("analytics snapshots disabled", "error", err)
		} else {
			if last, err := snapshots.Latest(ctx); err == nil && last != nil {
				slog.Info("previous analytics snapshot", "total_lookups", last.TotalLookups)
			}
			snapshots.StartPeriodicSave(ctx, aggregator, snapshotInterval)
		}
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(ctx, cfg.RateLimit.Rate, cfg.RateLimit.Burst)
	}
	sampleRate := 0.0
	if cfg.Tracing.Enabled {
		sampleRate = cfg.Tracing.SampleRate
	}

	h := handler.New(discoverer, resolver, tracker, aggregator, m, handler.Config{
		Digest: digest.Options{Concurrency: cfg.Discovery.Concurrency, Segment: engineCfg.Segment},
	})

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.New(h, checker, m, router.Options{
			AllowedOrigins:  cfg.Server.AllowedOrigins,
			RequestTimeout:  cfg.Server.RequestTimeout,
			AdminToken:      cfg.Server.AdminToken,
			TraceSampleRate: sampleRate,
			Limiter:         limiter,
		}),
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

	slog.Info("lexicon service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	if batcher != nil {
		batcher.Close()
	}
	slog.Info("lexicon service stopped")
}

// invalidateGroup gives every instance its own consumer group so each one
// flushes its cache.
func invalidateGroup(base string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = fmt.Sprintf("pid-%d", os.Getpid())
	}
	return base + "-invalidate-" + host
}
