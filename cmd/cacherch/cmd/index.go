package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/orchestrator"
)

func newIndexCmd(a *app) *cobra.Command {
	var flushCache bool

	cmd := &cobra.Command{
		Use:   "index <path>",
		Short: "Build the index from the .txt and .pdf files under a directory",
		Long: `Walk <path> recursively and index every .txt and .pdf file in it.

Any other file extension aborts the build before anything is extracted,
and the previously committed index stays in place. With --flush-cache the
cached search results and the existing index are discarded first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.orchestrator()
			if err != nil {
				return err
			}
			a.out.Info("Indexing directory: %s", args[0])
			out, err := o.Index(cmd.Context(), orchestrator.IndexRequest{
				Path:       args[0],
				FlushCache: flushCache,
			})
			if err != nil {
				return err
			}
			if out.FlushErr != nil {
				a.out.Warning("Could not flush cached results: %v", out.FlushErr)
			} else if flushCache {
				a.out.Info("Flushed %d cached queries", out.Invalidated)
			}
			a.out.Success("Indexing complete. %d documents, %d terms in %s",
				out.Stats.Documents, out.Stats.Terms, out.Stats.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&flushCache, "flush-cache", false, "Discard cached results and the existing index before building")
	return cmd
}
