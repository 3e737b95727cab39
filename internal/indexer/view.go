package indexer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/cacherch/pkg/errors"
)

// Snapshot is a read-only view of one committed index. It keeps its segment
// file open, so it stays usable after a later build replaces the index.
type Snapshot struct {
	manifest *segment.Manifest
	reader   *segment.Reader
}

// Open resolves the committed index in dir. A directory without a committed
// index yields ErrIndexNotFound.
func Open(ctx context.Context, dir string, lockTimeout time.Duration) (*Snapshot, error) {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.New(apperrors.ErrIndexNotFound, dir)
		}
		return nil, apperrors.Wrap(apperrors.ErrIO, err, dir)
	}

	rl := newDirLock(dir, ReadLockName)
	if err := rl.rlock(ctx, lockTimeout); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIndexStorage, err, "index is being replaced")
	}
	defer rl.unlock()

	m, err := segment.ReadManifest(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.New(apperrors.ErrIndexNotFound, dir)
		}
		return nil, apperrors.Wrap(apperrors.ErrIndexStorage, err, "reading manifest")
	}
	if err := m.Compatible(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIndexStorage, err, "index is incompatible; rebuild it")
	}
	r, err := segment.OpenReader(filepath.Join(dir, m.Segment))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIndexStorage, err, "opening segment "+m.Segment)
	}
	return &Snapshot{manifest: m, reader: r}, nil
}

func (s *Snapshot) Manifest() segment.Manifest {
	return *s.manifest
}

func (s *Snapshot) Postings(field index.Field, term string) (index.PostingList, error) {
	return s.reader.Postings(field, term)
}

func (s *Snapshot) Doc(docID uint32) (index.StoredDoc, bool) {
	return s.reader.Doc(docID)
}

func (s *Snapshot) DocCount() int {
	return s.reader.DocCount()
}

// Terms returns the number of distinct field/term pairs in the segment.
func (s *Snapshot) Terms() int {
	return s.reader.Terms()
}

func (s *Snapshot) SegmentPath() string {
	return s.reader.Path()
}

func (s *Snapshot) AvgFieldLength(field index.Field) float64 {
	return s.reader.AvgFieldLength(field)
}

func (s *Snapshot) Close() error {
	return s.reader.Close()
}
