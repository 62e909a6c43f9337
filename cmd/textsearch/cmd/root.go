// Package cmd provides the textsearch CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
)

// rootOptions carries the persistent flags and the configuration they
// resolve to. cfg is set by the root PersistentPreRunE.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	indexFile  string

	cfg *config.Config
}

// NewRootCmd creates the root command. Without a subcommand it starts the
// interactive shell.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	interactive := &interactiveOptions{root: opts}

	cmd := &cobra.Command{
		Use:   "textsearch",
		Short: "Full-text TF-IDF search over directories of text files",
		Long: `textsearch builds an inverted index from the .txt files of a directory
and ranks documents against free-text queries with TF-IDF.

Run it without a subcommand for the interactive shell.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: opts.load,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return interactive.run(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")
	cmd.PersistentFlags().StringVarP(&opts.indexFile, "index-file", "f", "", "index snapshot to save to and load from")
	cmd.Flags().BoolVar(&interactive.load, "load", false, "load the index file before the first prompt")

	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newInteractiveCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newAnalyticsCmd(opts))
	cmd.AddCommand(newLoadtestCmd())

	return cmd
}

// load resolves the configuration and applies flag overrides on top of the
// file and environment values.
func (o *rootOptions) load(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	if o.indexFile != "" {
		cfg.Index.File = o.indexFile
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	o.cfg = cfg
	return nil
}

// Execute runs the root command with a context cancelled on SIGINT or
// SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
