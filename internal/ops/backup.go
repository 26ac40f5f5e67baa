package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"taskpad/internal/model"
	"taskpad/internal/task"
)

var ErrLockTimeout = errors.New("store lock acquisition timed out")

const lockRetryDelay = 25 * time.Millisecond

func withLock(storePath string, shared bool, timeout time.Duration, fn func() error) error {
	flk := flock.New(task.LockPath(storePath))
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	try := flk.TryLockContext
	if shared {
		try = flk.TryRLockContext
	}
	ok, err := try(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return fmt.Errorf("acquire store lock: %w", err)
	}
	if !ok {
		return ErrLockTimeout
	}
	defer flk.Unlock()

	return fn()
}

// SnapshotStore copies the task file to dstPath under the store's shared
// lock, so the snapshot is never a torn read of an in-flight write. The
// copy itself lands via temp-file-and-rename.
func SnapshotStore(storePath, dstPath string, lockTimeout time.Duration) error {
	storePath = filepath.Clean(strings.TrimSpace(storePath))
	dstPath = filepath.Clean(strings.TrimSpace(dstPath))
	if storePath == "" || dstPath == "" {
		return fmt.Errorf("storePath and dstPath are required")
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return err
	}

	return withLock(storePath, true, lockTimeout, func() error {
		b, err := os.ReadFile(storePath)
		if err != nil {
			return fmt.Errorf("read store: %w", err)
		}
		return writeAtomic(dstPath, b)
	})
}

// RestoreStore replaces the task file with a previously taken snapshot. The
// snapshot must parse as a task array; a bad archive never reaches the
// store.
func RestoreStore(snapshotPath, storePath string, lockTimeout time.Duration) error {
	snapshotPath = filepath.Clean(strings.TrimSpace(snapshotPath))
	storePath = filepath.Clean(strings.TrimSpace(storePath))
	if snapshotPath == "" || storePath == "" {
		return fmt.Errorf("snapshotPath and storePath are required")
	}

	b, err := os.ReadFile(snapshotPath)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if _, err := parseTasks(b); err != nil {
		return fmt.Errorf("snapshot is not a valid task file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		return err
	}

	return withLock(storePath, false, lockTimeout, func() error {
		return writeAtomic(storePath, b)
	})
}

// VerifyStore parses the task file and reports how many tasks it holds.
func VerifyStore(storePath string) (int, error) {
	b, err := os.ReadFile(filepath.Clean(storePath))
	if err != nil {
		return 0, fmt.Errorf("read store: %w", err)
	}
	tasks, err := parseTasks(b)
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

func parseTasks(b []byte) ([]model.Task, error) {
	if len(strings.TrimSpace(string(b))) == 0 {
		return []model.Task{}, nil
	}
	var tasks []model.Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func writeAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
