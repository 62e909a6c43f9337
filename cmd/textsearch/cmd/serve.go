package cmd

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/middleware"
)

const slowPing = 100 * time.Millisecond

type serveOptions struct {
	dir  string
	port int
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		Long: `Serve loads the index file (or indexes --dir and saves it first) and
answers queries over a JSON HTTP API. It starts without an index when none
can be loaded; readiness reports down until one is installed through
POST /api/v1/index/reload.`,
		Example: `  textsearch serve
  textsearch serve --dir ./docs --port 9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "index this directory before serving")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "listen port (0 uses server.port)")

	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	ctx := cmd.Context()
	cfg := root.cfg
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.dir != "" {
		if _, err := a.engine.Index(ctx, opts.dir); err != nil {
			return err
		}
		if err := a.engine.Save(ctx, cfg.Index.File); err != nil {
			return err
		}
	} else if _, err := a.engine.Load(ctx, cfg.Index.File); err != nil {
		a.logger.Warn("starting without an index", "index_file", cfg.Index.File, "error", err)
	}

	checker := health.NewChecker()
	checker.Register("index", health.ConditionCheck(a.engine.Loaded, "no index loaded"))
	if a.redis != nil {
		checker.Register("redis", optional(health.PingCheck(a.redis.Ping, slowPing)))
	}
	if a.db != nil {
		checker.Register("postgres", health.PingCheck(a.db.Ping, slowPing))
	}

	mux := http.NewServeMux()
	handler.New(a.engine, cfg.Index.File).Register(mux)
	mux.HandleFunc("/api/v1/analytics", analytics.NewHandler(a.aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}

	mws := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Logging,
		middleware.Recover,
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		mws = append(mws, middleware.CORS(middleware.NewCORSConfig(cfg.Server.CORSOrigins)))
	}
	if cfg.Server.RateLimit > 0 {
		mws = append(mws, middleware.RateLimit(middleware.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)))
	}
	mws = append(mws, middleware.Metrics(a.metrics), middleware.Timeout(cfg.Server.WriteTimeout))
	chain := middleware.Chain(mux, mws...)

	port := cfg.Server.Port
	if opts.port > 0 {
		port = opts.port
	}
	ln, err := listen(port, cfg.Server)
	if err != nil {
		return err
	}
	return serveUntilDone(ctx, "search", ln, chain, cfg.Server)
}
