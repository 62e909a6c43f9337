package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/tui"
)

type searchOptions struct {
	limit  int
	format string
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the saved index",
		Long: `Search loads the index file and prints the documents that best match the
query, most relevant first.`,
		Example: `  textsearch search weather in moscow
  textsearch search --limit 3 --format json "rain london"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, root, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "maximum results (0 uses the configured default)")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format: text or json")

	return cmd
}

func runSearch(cmd *cobra.Command, root *rootOptions, opts *searchOptions, query string) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", opts.format)
	}
	if opts.limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, root.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.engine.Load(ctx, root.cfg.Index.File); err != nil {
		return err
	}
	resp, err := a.engine.Search(ctx, query, opts.limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Fprintln(out, tui.FormatResults(resp, nil))
	return nil
}
