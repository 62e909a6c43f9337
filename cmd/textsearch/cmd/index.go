package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd(root *rootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index a directory and save the snapshot",
		Long: `Index walks the directory, builds an inverted index from every matching
file and writes it to the index file (or the postgres snapshot store).

A file store keeps <index-file>.lock next to the snapshot to serialise
concurrent readers and writers. It is safe to leave in place.`,
		Example: `  textsearch index --dir ./docs
  textsearch index -d ./docs -f /tmp/docs.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := a.engine.Index(ctx, dir)
			if err != nil {
				return err
			}
			if err := a.engine.Save(ctx, root.cfg.Index.File); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexing finished. Documents: %d\n", docs)
			fmt.Fprintf(cmd.OutOrStdout(), "Index saved to %s\n", root.cfg.Index.File)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory of documents to index")
	_ = cmd.MarkFlagRequired("dir")

	return cmd
}
