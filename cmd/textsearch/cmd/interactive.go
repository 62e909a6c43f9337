package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/tui"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
)

type interactiveOptions struct {
	root *rootOptions
	load bool
}

func newInteractiveCmd(root *rootOptions) *cobra.Command {
	opts := &interactiveOptions{root: root}

	cmd := &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"shell"},
		Short:   "Start the interactive shell",
		Long: `Interactive opens a shell for indexing directories, loading and saving
indexes and running queries. On a terminal it is a full-screen UI; with
redirected input it reads one command per line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.load, "load", false, "load the index file before the first prompt")

	return cmd
}

func (o *interactiveOptions) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := o.root.cfg
	in, inFile := cmd.InOrStdin().(*os.File)
	out, outFile := cmd.OutOrStdout().(*os.File)
	fullScreen := inFile && outFile && tui.IsTerminal(in) && tui.IsTerminal(out)
	if fullScreen {
		// Log lines would tear the alternate screen.
		slog.SetDefault(logger.Discard())
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if o.load {
		docs, err := a.engine.Load(ctx, cfg.Index.File)
		switch {
		case err == nil:
			fmt.Fprintf(cmd.OutOrStdout(), "Index loaded. Documents: %d\n", docs)
		case apperrors.Is(err, apperrors.ErrNotFound):
			fmt.Fprintf(cmd.OutOrStdout(), "No index at %s yet.\n", cfg.Index.File)
		default:
			return err
		}
	}

	session := tui.NewSession(a.engine, cfg.Search.DefaultLimit, cfg.Index.File)
	if fullScreen {
		return tui.Run(ctx, session, in, out)
	}
	return tui.RunREPL(ctx, session, cmd.InOrStdin(), cmd.OutOrStdout())
}
