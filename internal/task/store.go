package task

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"taskpad/internal/model"
)

var (
	// ErrCorruptStore is returned in strict mode when the persisted file is
	// not a valid JSON task array.
	ErrCorruptStore = errors.New("task store is corrupt")

	// ErrLockTimeout is returned when the store lock cannot be acquired
	// within the configured bound.
	ErrLockTimeout = errors.New("task store lock acquisition timed out")
)

const defaultLockTimeout = 5 * time.Second

// lockRetryDelay is how often flock re-attempts acquisition while waiting.
const lockRetryDelay = 10 * time.Millisecond

// ValidatedInput is a creation payload that already passed ValidateCreate.
type ValidatedInput struct {
	Title       string
	Description string
	Priority    model.Priority
	Due         *string
}

// Patch represents a partial update.
// nil pointer => "no change"
// empty string for Due => clear (set to nil)
type Patch struct {
	Title       *string
	Description *string
	Priority    *model.Priority
	Due         *string
	Completed   *bool
}

// Criteria are AND-combined filter constraints. Zero values impose nothing.
type Criteria struct {
	Q         string
	Priority  model.Priority
	Completed *bool
}

func (c Criteria) matches(t model.Task) bool {
	if q := strings.ToLower(strings.TrimSpace(c.Q)); q != "" {
		title := strings.ToLower(t.Title)
		desc := strings.ToLower(t.Description)
		if !strings.Contains(title, q) && !strings.Contains(desc, q) {
			return false
		}
	}
	if c.Priority != "" && t.Priority != c.Priority {
		return false
	}
	if c.Completed != nil && t.Completed != *c.Completed {
		return false
	}
	return true
}

type StoreOptions struct {
	Clock  Clock
	Logger *log.Logger

	// Strict makes LoadAll fail with ErrCorruptStore on malformed content.
	// The production default degrades to an empty list and logs.
	Strict bool

	LockTimeout time.Duration
}

// Store owns the persisted task list. Every operation is a full
// read-modify-write over the backing file: mutations write to a temp file
// and rename it over the target, so readers never observe a partial write.
// An advisory file lock serializes access across processes; the RWMutex
// serializes goroutines within this one.
type Store struct {
	mu          sync.RWMutex
	path        string
	clock       Clock
	logger      *log.Logger
	strict      bool
	lockTimeout time.Duration
}

func NewStore(dataDir string, opts StoreOptions) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}
	path := filepath.Join(dataDir, "tasks.json")
	s := &Store{
		path:        path,
		clock:       opts.Clock,
		logger:      opts.Logger,
		strict:      opts.Strict,
		lockTimeout: opts.LockTimeout,
	}

	// Create-if-missing runs under the exclusive lock: two processes
	// initializing against a missing store must not rename an empty list
	// over the other's first write.
	flk, err := s.acquire(false)
	if err != nil {
		return nil, err
	}
	defer s.release(flk)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.writeLocked([]model.Task{}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the location of the backing file.
func (s *Store) Path() string { return s.path }

// LockPath returns the advisory lock file guarding a store file. The lock
// lives next to the data file rather than on it: atomic renames swap the
// data file's inode out from under any lock held on it.
func LockPath(storePath string) string {
	return storePath + ".lock"
}

// acquire takes the advisory lock with a bounded wait. Each call gets its
// own flock handle: a shared one would collapse concurrent readers onto a
// single OS-level lock state, and the first release would drop it for all.
func (s *Store) acquire(shared bool) (*flock.Flock, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()

	flk := flock.New(LockPath(s.path))
	try := flk.TryLockContext
	if shared {
		try = flk.TryRLockContext
	}
	ok, err := try(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !ok {
		return nil, ErrLockTimeout
	}
	return flk, nil
}

func (s *Store) release(flk *flock.Flock) {
	_ = flk.Close()
}

func (s *Store) readLocked() ([]model.Task, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Task{}, nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return []model.Task{}, nil
	}
	var tasks []model.Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		if s.strict {
			return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
		}
		s.logger.Printf("[store] corrupt task file %s, treating as empty: %v", s.path, err)
		return []model.Task{}, nil
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

func (s *Store) writeLocked(tasks []model.Task) error {
	b, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".tasks-*.json")
	if err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}

// LoadAll returns every task in insertion order.
func (s *Store) LoadAll() ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flk, err := s.acquire(true)
	if err != nil {
		return nil, err
	}
	defer s.release(flk)

	return s.readLocked()
}

// newTaskID combines the creation timestamp with random bytes. Sufficiently
// unique for single-process use, not cryptographically guaranteed.
func newTaskID(now time.Time) model.TaskID {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return model.TaskID("task_" + strconv.FormatInt(now.UnixNano(), 36) + "_" + hex.EncodeToString(b[:]))
}

// Add appends a new task built from a validated input and persists the
// list. The task only exists once the write succeeds.
func (s *Store) Add(in ValidatedInput) (model.TaskID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flk, err := s.acquire(false)
	if err != nil {
		return "", err
	}
	defer s.release(flk)

	tasks, err := s.readLocked()
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	t := model.Task{
		ID:          newTaskID(now),
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Due:         in.Due,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tasks = append(tasks, t)

	if err := s.writeLocked(tasks); err != nil {
		return "", err
	}
	return t.ID, nil
}

// GetByID does a linear scan; the second return is false when absent.
func (s *Store) GetByID(id model.TaskID) (model.Task, bool, error) {
	tasks, err := s.LoadAll()
	if err != nil {
		return model.Task{}, false, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, true, nil
		}
	}
	return model.Task{}, false, nil
}

func applyPatch(t *model.Task, p Patch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Due != nil {
		if *p.Due == "" {
			t.Due = nil
		} else {
			t.Due = p.Due
		}
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}

// Update merges a patch into the matching task, refreshes updated_at and
// persists. Returns false without error when the id is not found.
func (s *Store) Update(id model.TaskID, p Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flk, err := s.acquire(false)
	if err != nil {
		return false, err
	}
	defer s.release(flk)

	tasks, err := s.readLocked()
	if err != nil {
		return false, err
	}

	for i := range tasks {
		if tasks[i].ID != id {
			continue
		}
		applyPatch(&tasks[i], p)
		tasks[i].UpdatedAt = s.clock.Now()
		if err := s.writeLocked(tasks); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Delete removes the matching task via a filtered rebuild of the list.
// Returns false without error (and without rewriting) when absent.
func (s *Store) Delete(id model.TaskID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flk, err := s.acquire(false)
	if err != nil {
		return false, err
	}
	defer s.release(flk)

	tasks, err := s.readLocked()
	if err != nil {
		return false, err
	}

	out := make([]model.Task, 0, len(tasks))
	found := false
	for _, t := range tasks {
		if t.ID == id {
			found = true
			continue
		}
		out = append(out, t)
	}
	if !found {
		return false, nil
	}
	if err := s.writeLocked(out); err != nil {
		return false, err
	}
	return true, nil
}

// SetCompleted is a convenience wrapper over Update.
func (s *Store) SetCompleted(id model.TaskID, completed bool) (bool, error) {
	return s.Update(id, Patch{Completed: &completed})
}

// Filter returns the tasks matching the criteria, in stored order. It never
// mutates or reorders the persisted data; with empty criteria it is
// equivalent to LoadAll.
func (s *Store) Filter(c Criteria) ([]model.Task, error) {
	tasks, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if c.matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}
