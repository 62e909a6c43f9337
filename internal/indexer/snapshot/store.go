package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

// Store moves encoded snapshots to and from durable storage. name is a file
// path for FileStore and a row key for PostgresStore.
type Store interface {
	Save(ctx context.Context, name string, data []byte) error
	Load(ctx context.Context, name string) ([]byte, error)
}

const lockRetryDelay = 50 * time.Millisecond

// FileStore keeps one snapshot per file. Writes go to a temporary file in the
// same directory which is synced and renamed over the target, so readers see
// either the old or the new snapshot. A sibling <path>.lock file serialises
// writers and readers across processes. It is never removed, so every
// process locks the same inode. Readers that cannot create it, in a
// read-only directory or on a read-only mount, read without the lock.
type FileStore struct {
	logger *slog.Logger
}

func NewFileStore() *FileStore {
	return &FileStore{
		logger: slog.Default().With("component", "snapshot-file"),
	}
}

func (s *FileStore) Save(ctx context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	lock := flock.New(LockPath(path))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("locking snapshot %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("locking snapshot %s: %w", path, apperrors.ErrTimeout)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming snapshot file: %w", err)
	}
	s.logger.Debug("snapshot written", "path", path, "bytes", len(data))
	return nil
}

func (s *FileStore) Load(ctx context.Context, path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFoundf("index file %s does not exist", path)
		}
		return nil, fmt.Errorf("stat snapshot %s: %w", path, err)
	}
	lock := flock.New(LockPath(path))
	locked, err := lock.TryRLockContext(ctx, lockRetryDelay)
	switch {
	case err != nil && lockUnavailable(err):
		s.logger.Debug("reading snapshot without lock", "path", path, "error", err)
	case err != nil:
		return nil, fmt.Errorf("locking snapshot %s: %w", path, err)
	case !locked:
		return nil, fmt.Errorf("locking snapshot %s: %w", path, apperrors.ErrTimeout)
	default:
		defer lock.Unlock()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFoundf("index file %s does not exist", path)
		}
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	return data, nil
}

// LockPath is the lock file FileStore keeps next to the snapshot at path.
func LockPath(path string) string {
	return path + ".lock"
}

// lockUnavailable reports whether the lock file could not be opened because
// its directory is not writable.
func lockUnavailable(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EROFS)
}
