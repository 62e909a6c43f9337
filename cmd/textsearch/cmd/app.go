package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/observe"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

// app is the engine together with the optional infrastructure the
// configuration asks for. Close releases all of it.
type app struct {
	cfg        *config.Config
	engine     *engine.Engine
	metrics    *metrics.Metrics
	aggregator *analytics.Aggregator

	collector *analytics.Collector
	producer  *kafka.Producer
	redis     *pkgredis.Client
	db        *postgres.Client

	logger *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:        cfg,
		metrics:    metrics.New(),
		aggregator: analytics.NewAggregator(),
		logger:     logger.WithComponent("app"),
	}
	observers := observe.Multi{
		observe.NewLogger(logger.WithComponent("events")),
		metrics.NewObserver(a.metrics),
		a.aggregator,
	}
	if cfg.Kafka.Enabled {
		a.producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		a.collector = analytics.NewCollector(a.producer, analytics.CollectorOptions{
			BufferSize:    cfg.Kafka.BufferSize,
			BatchSize:     cfg.Kafka.BatchSize,
			FlushInterval: cfg.Kafka.FlushInterval,
		})
		a.collector.Start(ctx)
		observers = append(observers, a.collector)
	}

	store, err := a.snapshotStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	queryCache, err := a.queryCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	src, err := source.New(source.Options{
		Extensions:  cfg.Index.Extensions,
		MaxFileSize: cfg.Index.MaxFileSize,
		Encodings:   cfg.Index.Encodings,
		Recursive:   cfg.Index.Recursive,
	}, observers)
	if err != nil {
		a.Close()
		return nil, err
	}

	builder := indexer.NewBuilder(src, store, tokenizer.New(cfg.Index.Languages...), observers)
	a.engine = engine.New(builder, engine.Options{
		Cache:            queryCache,
		Observer:         observers,
		DefaultLimit:     cfg.Search.DefaultLimit,
		MaxResults:       cfg.Search.MaxResults,
		BatchConcurrency: cfg.Search.BatchConcurrency,
	})
	return a, nil
}

func (a *app) snapshotStore(ctx context.Context) (snapshot.Store, error) {
	if a.cfg.Storage.Backend != "postgres" {
		return snapshot.NewFileStore(), nil
	}
	db, err := postgres.New(ctx, a.cfg.Storage.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connecting snapshot store: %w", err)
	}
	a.db = db
	store := snapshot.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// queryCache builds the configured cache. An unreachable Redis falls back
// to the in-process LRU so searches keep being cached.
func (a *app) queryCache(ctx context.Context) (*cache.QueryCache, error) {
	switch a.cfg.Cache.Backend {
	case "none":
		return nil, nil
	case "redis":
		client, err := pkgredis.NewClient(ctx, a.cfg.Cache.Redis)
		if err == nil {
			a.redis = client
			breaker := resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
				OnStateChange: a.metrics.BreakerStateHook(),
			})
			a.logger.Info("query cache enabled", "backend", "redis", "addr", a.cfg.Cache.Redis.Addr)
			return cache.New(cache.NewRedis(client, a.cfg.Cache.Redis.CacheTTL, breaker)), nil
		}
		a.logger.Warn("redis unavailable, using in-process cache", "error", err)
	}
	if a.cfg.Cache.LRUSize <= 0 {
		return nil, nil
	}
	backend, err := cache.NewLRU(a.cfg.Cache.LRUSize)
	if err != nil {
		return nil, err
	}
	return cache.New(backend), nil
}

// Close flushes pending analytics and closes every connection the app
// opened.
func (a *app) Close() error {
	var errs []error
	if a.collector != nil {
		a.collector.Close()
	}
	if a.producer != nil {
		errs = append(errs, a.producer.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
