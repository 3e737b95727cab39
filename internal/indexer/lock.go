package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	// WriteLockName is held exclusively for the whole of a build.
	WriteLockName = "write.lock"
	// ReadLockName is held shared by readers while they resolve the manifest
	// and open the segment, and exclusively by a build while it swaps them.
	ReadLockName = "read.lock"

	lockRetryDelay = 20 * time.Millisecond
)

var errLockTimeout = errors.New("timed out waiting for lock")

// dirLock is a cross-process lock on a file inside the index directory.
type dirLock struct {
	path  string
	flock *flock.Flock
}

func newDirLock(dir, name string) *dirLock {
	path := filepath.Join(dir, name)
	return &dirLock{path: path, flock: flock.New(path)}
}

// lock acquires the lock exclusively, waiting at most timeout.
func (l *dirLock) lock(ctx context.Context, timeout time.Duration) error {
	return l.acquire(ctx, timeout, l.flock.TryLockContext)
}

// rlock acquires the lock shared, waiting at most timeout.
func (l *dirLock) rlock(ctx context.Context, timeout time.Duration) error {
	return l.acquire(ctx, timeout, l.flock.TryRLockContext)
}

func (l *dirLock) acquire(ctx context.Context, timeout time.Duration, try func(context.Context, time.Duration) (bool, error)) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ok, err := try(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", errLockTimeout, l.path)
		}
		return fmt.Errorf("acquiring lock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", errLockTimeout, l.path)
	}
	return nil
}

func (l *dirLock) unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.path, err)
	}
	return nil
}
