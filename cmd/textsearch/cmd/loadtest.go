package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/loadtest"
)

func newLoadtestCmd() *cobra.Command {
	opts := loadtest.Options{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Send concurrent search traffic to a running server",
		Example: `  textsearch loadtest --url http://localhost:8080 --concurrency 20 --duration 1m
  textsearch loadtest -q "weather moscow" -q "rain london"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "=== textsearch load test ===")
			fmt.Fprintf(out, "Target:      %s\n", opts.BaseURL)
			fmt.Fprintf(out, "Concurrency: %d\n", opts.Concurrency)
			fmt.Fprintf(out, "Duration:    %s\n\n", opts.Duration)

			rep, err := loadtest.Run(cmd.Context(), opts)
			if rep != nil {
				rep.Print(out)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.BaseURL, "url", "http://localhost:8080", "base URL of the search server")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 10, "number of concurrent workers")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 30*time.Second, "test duration")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "limit sent with each query")
	cmd.Flags().StringArrayVarP(&opts.Queries, "query", "q", nil, "query to send (repeatable; defaults to a built-in mix)")

	return cmd
}
