package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/orchestrator"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/ui"
)

type searchOptions struct {
	ttlSeconds int
	flushCache bool
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index, answering from the cache when possible",
		Long: `Search the committed index and print the five best matches.

Terms are OR'ed by default. Use AND, OR and NOT (upper case), +term and
-term, title:term or body:term, and "quoted phrases".

Examples:
  cacherch search banana
  cacherch search "apple AND banana"
  cacherch search '+report -draft title:q3'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.orchestrator()
			if err != nil {
				return err
			}
			ttl := a.cfg.Cache.DefaultTTL
			if cmd.Flags().Changed("ttl") {
				ttl = time.Duration(opts.ttlSeconds) * time.Second
			}
			out, err := o.Search(cmd.Context(), orchestrator.SearchRequest{
				Query:      strings.Join(args, " "),
				TTL:        ttl,
				FlushCache: opts.flushCache,
			})
			if err != nil {
				return err
			}
			reportSearch(a.out, out)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.ttlSeconds, "ttl", 30, "Seconds to cache the results (default from config)")
	cmd.Flags().BoolVar(&opts.flushCache, "flush-cache", false, "Discard all cached results before searching")
	return cmd
}

// reportSearch prints the outcome of a search. Each cache failure gets its own
// warning; the caching notice only appears when the write succeeded.
func reportSearch(p *ui.Printer, out *orchestrator.SearchOutcome) {
	p.CacheStatus(out.CacheHit, out.Elapsed)
	p.Results(out.Results)
	if out.FlushErr != nil {
		p.Warning("Could not flush cached results: %v", out.FlushErr)
	}
	switch {
	case out.PutErr != nil:
		p.Warning("Results were not cached: %v", out.PutErr)
	case !out.CacheHit:
		p.Info("Cached results for the coming %d seconds", int(out.TTL/time.Second))
	}
}
