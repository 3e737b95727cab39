// Package indexer builds the on-disk index from a directory tree and opens
// committed, read-only views of it.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/cacherch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/tracing"
)

// ContentExtractor returns the text of one classified file.
type ContentExtractor interface {
	Extract(ctx context.Context, path string, kind extract.FileKind) (string, error)
}

// IndexStats describes a committed build.
type IndexStats struct {
	Documents int
	Terms     int
	Segment   string
	BuildID   string
	Duration  time.Duration
}

type sourceFile struct {
	path string
	kind extract.FileKind
}

type Engine struct {
	cfg       config.IndexConfig
	extractor ContentExtractor
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine creates an engine writing to cfg.Dir. A nil m records into a
// throwaway registry.
func NewEngine(cfg config.IndexConfig, extractor ContentExtractor, m *metrics.Metrics) *Engine {
	if m == nil {
		m = metrics.New()
	}
	return &Engine{
		cfg:       cfg,
		extractor: extractor,
		metrics:   m,
		logger:    logger.WithComponent("indexer"),
		now:       time.Now,
	}
}

// Build indexes every file under root and commits the result as the new
// index. With flush set, the existing index is discarded before the new
// segment is written; otherwise an existing index must have a compatible
// schema and is replaced only once the new one is durable. Any failure before
// the manifest swap leaves the previously committed index untouched.
func (e *Engine) Build(ctx context.Context, root string, flush bool) (*IndexStats, error) {
	start := e.now()
	buildID := uuid.NewString()
	ctx, span := tracing.Start(ctx, "index_build", buildID)
	span.SetAttr("root", root)
	span.SetAttr("flush", flush)
	stats, err := e.build(ctx, root, flush, buildID)
	span.End()
	span.Log(e.logger)
	e.metrics.IndexBuildDuration.Observe(e.now().Sub(start).Seconds())
	if err != nil {
		e.metrics.IndexBuildsTotal.WithLabelValues("error").Inc()
		e.logger.Error("index build failed", "root", root, "error", err)
		return nil, err
	}
	stats.Duration = e.now().Sub(start)
	e.metrics.IndexBuildsTotal.WithLabelValues("success").Inc()
	e.metrics.DocsIndexedTotal.Add(float64(stats.Documents))
	e.logger.Info("index build committed",
		"root", root,
		"documents", stats.Documents,
		"terms", stats.Terms,
		"segment", stats.Segment,
		"build_id", stats.BuildID,
		"duration", stats.Duration,
	)
	return stats, nil
}

func (e *Engine) build(ctx context.Context, root string, flush bool, buildID string) (*IndexStats, error) {
	dir := e.cfg.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIndexStorage, err, "creating index directory")
	}

	wl := newDirLock(dir, WriteLockName)
	if err := wl.lock(ctx, e.cfg.LockTimeout); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIndexStorage, err, "index is locked by another build")
	}
	defer func() {
		if err := wl.unlock(); err != nil {
			e.logger.Warn("releasing write lock", "error", err)
		}
	}()

	if !flush {
		if err := e.checkExisting(); err != nil {
			return nil, err
		}
	}

	_, walkSpan := tracing.StartChild(ctx, "walk")
	files, err := e.walk(root)
	walkSpan.SetAttr("files", len(files))
	walkSpan.End()
	if err != nil {
		return nil, err
	}
	e.logger.Info("indexing directory", "root", root, "files", len(files), "flush", flush)

	extractCtx, extractSpan := tracing.StartChild(ctx, "extract")
	texts, err := e.extractAll(extractCtx, files)
	extractSpan.End()
	if err != nil {
		return nil, err
	}

	mi := index.NewMemoryIndex()
	for i, f := range files {
		mi.AddDocument(index.Document{
			Title: filepath.Base(f.path),
			Body:  texts[i],
			Path:  f.path,
		})
	}
	snap := mi.Snapshot()
	e.logger.Debug("documents indexed in memory",
		"documents", len(snap.Docs),
		"terms", len(snap.Terms),
		"approx_bytes", mi.Size(),
	)
	mi.Reset()

	if flush {
		if err := e.discard(ctx); err != nil {
			return nil, err
		}
	}

	_, writeSpan := tracing.StartChild(ctx, "write_segment")
	name, err := segment.NewWriter(dir).Write(snap)
	writeSpan.SetAttr("terms", len(snap.Terms))
	writeSpan.End()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIndexStorage, err, "writing segment")
	}

	m := &segment.Manifest{
		FormatVersion: segment.FormatVersion,
		Schema:        segment.CurrentSchema(),
		BuildID:       buildID,
		Segment:       name,
		DocCount:      len(snap.Docs),
		TermCount:     len(snap.Terms),
		CommittedAt:   e.now().UTC(),
	}
	_, commitSpan := tracing.StartChild(ctx, "commit")
	err = e.commit(ctx, m)
	commitSpan.End()
	if err != nil {
		if rmErr := os.Remove(filepath.Join(dir, name)); rmErr != nil {
			e.logger.Warn("removing uncommitted segment", "segment", name, "error", rmErr)
		}
		return nil, err
	}

	return &IndexStats{
		Documents: m.DocCount,
		Terms:     m.TermCount,
		Segment:   name,
		BuildID:   m.BuildID,
	}, nil
}

// checkExisting validates the schema of a committed index that is about to
// be reused. No index at all is fine.
func (e *Engine) checkExisting() error {
	m, err := segment.ReadManifest(e.cfg.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return apperrors.Wrap(apperrors.ErrIndexStorage, err, "opening existing index")
	}
	if err := m.Compatible(); err != nil {
		return apperrors.Wrap(apperrors.ErrIndexStorage, err, "existing index is incompatible; rebuild with --flush-cache")
	}
	e.logger.Debug("reusing existing index", "build_id", m.BuildID, "documents", m.DocCount)
	return nil
}

// walk lists the files under root in lexical order, classifying each one.
// The first unsupported file fails the walk, so nothing is extracted from a
// tree that cannot be indexed in full.
func (e *Engine) walk(root string) ([]sourceFile, error) {
	// WalkDir does not follow a symlinked root, so walk its target and report
	// paths under the name the caller gave.
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, root)
	}
	indexDir := resolveDir(e.cfg.Dir)

	var files []sourceFile
	err = filepath.WalkDir(realRoot, func(path string, d fs.DirEntry, err error) error {
		display := path
		if rel, relErr := filepath.Rel(realRoot, path); relErr == nil {
			display = filepath.Join(root, rel)
		}
		if err != nil {
			return apperrors.Wrap(apperrors.ErrIO, err, display)
		}
		if d.IsDir() {
			if path != realRoot && resolveDir(path) == indexDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !isRegularFile(path, d) {
			return nil
		}
		kind := extract.Classify(path)
		if kind.Kind == extract.KindUnsupported {
			return apperrors.New(apperrors.ErrUnsupportedExtension, kind.Extension)
		}
		files = append(files, sourceFile{path: display, kind: kind})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// resolveDir returns dir as an absolute path with symlinks resolved, or just
// absolute when it does not exist yet.
func resolveDir(dir string) string {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// isRegularFile accepts regular files and symlinks to regular files. Links to
// directories are not followed.
func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// extractAll extracts every file with at most cfg.Workers in flight. Texts
// are returned in walk order. On failure the error of the earliest failing
// file is returned.
func (e *Engine) extractAll(ctx context.Context, files []sourceFile) ([]string, error) {
	texts := make([]string, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Workers, 1))
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			text, err := e.extractor.Extract(gctx, f.path, f.kind)
			e.metrics.ExtractionDuration.WithLabelValues(f.kind.Kind.String()).Observe(time.Since(start).Seconds())
			if err != nil {
				errs[i] = err
				return err
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, fileErr := range errs {
			if fileErr != nil && !errors.Is(fileErr, context.Canceled) {
				return nil, fileErr
			}
		}
		return nil, err
	}
	return texts, nil
}

// discard removes the committed index: the manifest first, so that readers
// see no index rather than a dangling one, then every segment.
func (e *Engine) discard(ctx context.Context) error {
	rl := newDirLock(e.cfg.Dir, ReadLockName)
	if err := rl.lock(ctx, e.cfg.LockTimeout); err != nil {
		return apperrors.Wrap(apperrors.ErrIndexStorage, err, "waiting for readers")
	}
	defer rl.unlock()

	err := os.Remove(filepath.Join(e.cfg.Dir, segment.ManifestName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.Wrap(apperrors.ErrIndexStorage, err, "removing manifest")
	}
	if err := e.removeStale(""); err != nil {
		return apperrors.Wrap(apperrors.ErrIndexStorage, err, "removing segments")
	}
	e.logger.Info("existing index discarded", "dir", e.cfg.Dir)
	return nil
}

// commit swaps the manifest to m while readers are held off, then removes
// every segment other than the one m names.
func (e *Engine) commit(ctx context.Context, m *segment.Manifest) error {
	rl := newDirLock(e.cfg.Dir, ReadLockName)
	if err := rl.lock(ctx, e.cfg.LockTimeout); err != nil {
		return apperrors.Wrap(apperrors.ErrIndexStorage, err, "waiting for readers")
	}
	defer rl.unlock()

	if err := segment.WriteManifest(e.cfg.Dir, m); err != nil {
		return apperrors.Wrap(apperrors.ErrIndexStorage, err, "committing manifest")
	}
	if err := e.removeStale(m.Segment); err != nil {
		// The commit already happened; leftovers are removed by the next build.
		e.logger.Warn("removing superseded segments", "error", err)
	}
	return nil
}

// removeStale deletes segment and temp files in the index directory except
// keep.
func (e *Engine) removeStale(keep string) error {
	segments, err := segment.ListSegments(e.cfg.Dir)
	if err != nil {
		return err
	}
	temps, err := segment.ListTemp(e.cfg.Dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range append(segments, temps...) {
		if name == keep {
			continue
		}
		if err := os.Remove(filepath.Join(e.cfg.Dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("removing %s: %w", name, err))
			continue
		}
		e.logger.Debug("removed stale index file", "file", name)
	}
	return errors.Join(errs...)
}
