package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/health"
)

const statusCheckTimeout = 5 * time.Second

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the committed index and the cache store",
		Long: `Report whether an index has been committed, how many documents it holds,
and whether the cache store is reachable. Exits non-zero when no index
exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.resultCache()
			if err != nil {
				return err
			}

			var indexErr error
			checker := health.NewChecker(statusCheckTimeout)
			checker.Register("index", func(ctx context.Context) health.ComponentHealth {
				snap, err := indexer.Open(ctx, a.cfg.Index.Dir, a.cfg.Index.LockTimeout)
				if err != nil {
					indexErr = err
					return health.FromError(err, health.StatusDown)
				}
				defer snap.Close()
				m := snap.Manifest()
				return health.ComponentHealth{
					Status:  health.StatusUp,
					Message: a.cfg.Index.Dir,
					Details: map[string]any{
						"documents":    snap.DocCount(),
						"terms":        snap.Terms(),
						"segment":      snap.SegmentPath(),
						"build_id":     m.BuildID,
						"committed_at": m.CommittedAt.Format(time.RFC3339),
					},
				}
			})
			checker.Register("cache", func(ctx context.Context) health.ComponentHealth {
				if err := rc.Ping(ctx); err != nil {
					return health.FromError(err, health.StatusDegraded)
				}
				return health.ComponentHealth{Status: health.StatusUp, Message: rc.Describe()}
			})

			report := checker.Run(cmd.Context())
			a.out.Health(report)
			if indexErr != nil {
				return fmt.Errorf("index unavailable (run `cacherch index <path>`): %w", indexErr)
			}
			if report.Status != health.StatusUp {
				a.out.Warning("Searches will run without caching until the cache store is reachable")
			}
			return nil
		},
	}
}
