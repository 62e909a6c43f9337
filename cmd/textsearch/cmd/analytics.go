package cmd

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
)

func newAnalyticsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Aggregate search events from Kafka",
		Long: `Analytics consumes the events published by serving processes and exposes
the aggregated query statistics at GET /api/v1/analytics. With the postgres
storage backend the statistics are snapshotted periodically and restored on
start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalytics(cmd.Context(), root)
		},
	}
}

func runAnalytics(ctx context.Context, root *rootOptions) error {
	cfg := root.cfg
	if !cfg.Kafka.Enabled {
		return errors.New("the analytics service needs kafka.enabled")
	}
	log := logger.WithComponent("analytics")
	agg := analytics.NewAggregator()
	m := metrics.New()
	checker := health.NewChecker()

	var store *analytics.Store
	if cfg.Storage.Backend == "postgres" {
		db, err := postgres.New(ctx, cfg.Storage.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		store = analytics.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		latest, err := store.LatestSnapshot(ctx)
		if err != nil {
			return err
		}
		if latest != nil {
			agg.Restore(*latest)
			log.Info("restored analytics snapshot", "stats", latest.String())
		}
		checker.Register("postgres", health.PingCheck(db.Ping, slowPing))
	}

	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port)
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Error("metrics server shutdown", "error", err)
			}
		}()
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logging,
		middleware.Recover,
		middleware.Metrics(m),
	)
	ln, err := listen(cfg.Analytics.Port, cfg.Server)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Start(gctx)
	})
	if store != nil {
		g.Go(func() error {
			store.RunPeriodicSave(gctx, agg, cfg.Analytics.SnapshotInterval)
			return nil
		})
	}
	g.Go(func() error {
		return serveUntilDone(gctx, "analytics", ln, chain, cfg.Server)
	})
	return g.Wait()
}
