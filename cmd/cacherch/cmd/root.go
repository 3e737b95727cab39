// Package cmd provides the cacherch CLI commands.
package cmd

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/orchestrator"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/ui"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/cacherch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/metrics"
)

const closeTimeout = 5 * time.Second

type globalOptions struct {
	configPath string
	logLevel   string
	cache      string
	noColor    bool
}

// app holds what a single invocation shares between commands. The cache is
// opened on first use.
type app struct {
	opts    globalOptions
	cfg     *config.Config
	metrics *metrics.Metrics
	stdout  io.Writer
	stderr  io.Writer
	out     *ui.Printer
	errOut  *ui.Printer
	cache   *cache.ResultCache
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		out:    ui.NewPrinter(stdout, true),
		errOut: ui.NewPrinter(stderr, true),
	}
}

func (a *app) load() error {
	a.out = ui.NewPrinter(a.stdout, a.opts.noColor)
	a.errOut = ui.NewPrinter(a.stderr, a.opts.noColor)
	cfg, err := config.Load(a.opts.configPath, a.flagOverrides)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err, "loading configuration")
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, a.stderr)
	a.cfg = cfg
	a.metrics = metrics.New()
	slog.Debug("configuration loaded",
		"index_dir", cfg.Index.Dir,
		"cache_backend", cfg.Cache.Backend,
	)
	return nil
}

// flagOverrides applies the global flags, which take precedence over the
// config file and the environment.
func (a *app) flagOverrides(cfg *config.Config) {
	if a.opts.cache != "" {
		cfg.Cache.Backend = a.opts.cache
	}
	if a.opts.logLevel != "" {
		cfg.Logging.Level = a.opts.logLevel
	}
}

func (a *app) resultCache() (*cache.ResultCache, error) {
	if a.cache != nil {
		return a.cache, nil
	}
	store, err := cache.NewStore(a.cfg.Cache)
	if err != nil {
		return nil, err
	}
	a.cache = cache.New(store, cache.OptionsFromConfig(a.cfg.Cache, a.metrics))
	return a.cache, nil
}

func (a *app) orchestrator() (*orchestrator.Orchestrator, error) {
	rc, err := a.resultCache()
	if err != nil {
		return nil, err
	}
	pdf := extract.NewPDFToText(a.cfg.Index.PDFToText)
	if err := pdf.CheckAvailable(); err != nil {
		slog.Debug("pdf extraction unavailable", "error", err)
	}
	engine := indexer.NewEngine(a.cfg.Index, extract.New(pdf), a.metrics)
	return orchestrator.New(rc, searcher.New(a.cfg.Index), engine, a.metrics), nil
}

// close releases the cache connection and pushes the invocation's metrics.
func (a *app) close(ctx context.Context) {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Debug("closing cache store", "error", err)
		}
	}
	if a.cfg == nil || a.metrics == nil {
		return
	}
	if err := a.metrics.Push(ctx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		slog.Warn("pushing metrics failed", "error", err)
	}
}

// newRootCmd creates the root command. Command results go to stdout and
// diagnostics to stderr.
func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cacherch",
		Short: "Index local documents and search them with cached results",
		Long: `cacherch indexes the .txt and .pdf files under a directory and answers
ranked full-text queries against the index. Results are cached for a short
time so repeated queries skip the index.

Examples:
  cacherch index ./docs
  cacherch search "banana AND apple"
  cacherch search 'title:report -draft' --ttl 120`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.load()
		},
	}

	cmd.PersistentFlags().StringVar(&a.opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&a.opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&a.opts.cache, "cache", "", "Cache backend: redis or memory")
	cmd.PersistentFlags().BoolVar(&a.opts.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newIndexCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newStatusCmd(a))
	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	a.close(closeCtx)
	cancel()
	if err != nil {
		a.errOut.Error("%v", err)
		return apperrors.ExitCode(err)
	}
	return 0
}
