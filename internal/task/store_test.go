package task

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpad/internal/model"
)

func testStore(t *testing.T, opts StoreOptions) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), opts)
	require.NoError(t, err)
	return s
}

func testInput(title string) ValidatedInput {
	return ValidatedInput{
		Title:    title,
		Priority: model.PriorityMedium,
	}
}

func TestStore_AddThenGetByID(t *testing.T) {
	clock := NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	s := testStore(t, StoreOptions{Clock: clock})

	due := "2025-04-01"
	id, err := s.Add(ValidatedInput{
		Title:       "water plants",
		Description: "front porch",
		Priority:    model.PriorityHigh,
		Due:         &due,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, ok, err := s.GetByID(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "water plants", got.Title)
	assert.Equal(t, "front porch", got.Description)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.Equal(t, "2025-04-01", got.DueDate())
	assert.False(t, got.Completed)
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)
}

func TestStore_GetByID_Absent(t *testing.T) {
	s := testStore(t, StoreOptions{})

	_, ok, err := s.GetByID("task_nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_AddGeneratesDistinctIDs(t *testing.T) {
	s := testStore(t, StoreOptions{})

	seen := map[model.TaskID]bool{}
	for n := 0; n < 20; n++ {
		id, err := s.Add(testInput("x"))
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestStore_Update(t *testing.T) {
	clock := NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	s := testStore(t, StoreOptions{Clock: clock})

	id, err := s.Add(testInput("draft title"))
	require.NoError(t, err)

	clock.Advance(time.Hour)
	title := "final title"
	ok, err := s.Update(id, Patch{Title: &title})
	require.NoError(t, err)
	require.True(t, ok)

	got, found, err := s.GetByID(id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "final title", got.Title)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestStore_Update_NotFoundIsNotAnError(t *testing.T) {
	s := testStore(t, StoreOptions{})

	title := "anything"
	ok, err := s.Update("task_missing", Patch{Title: &title})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Update_ClearsDueDate(t *testing.T) {
	s := testStore(t, StoreOptions{})

	due := "2030-01-01"
	id, err := s.Add(ValidatedInput{Title: "t", Priority: model.PriorityLow, Due: &due})
	require.NoError(t, err)

	clear := ""
	ok, err := s.Update(id, Patch{Due: &clear})
	require.NoError(t, err)
	require.True(t, ok)

	got, _, err := s.GetByID(id)
	require.NoError(t, err)
	assert.Nil(t, got.Due)
}

func TestStore_DeleteThenGet(t *testing.T) {
	s := testStore(t, StoreOptions{})

	id, err := s.Add(testInput("doomed"))
	require.NoError(t, err)

	deleted, err := s.Delete(id)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok, err := s.GetByID(id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Delete_MissingIsNoOp(t *testing.T) {
	s := testStore(t, StoreOptions{})

	_, err := s.Add(testInput("keeper"))
	require.NoError(t, err)

	before, err := s.LoadAll()
	require.NoError(t, err)

	deleted, err := s.Delete("task_missing")
	require.NoError(t, err)
	assert.False(t, deleted)

	after, err := s.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStore_SetCompleted(t *testing.T) {
	s := testStore(t, StoreOptions{})

	id, err := s.Add(testInput("toggle me"))
	require.NoError(t, err)

	ok, err := s.SetCompleted(id, true)
	require.NoError(t, err)
	require.True(t, ok)

	got, _, err := s.GetByID(id)
	require.NoError(t, err)
	assert.True(t, got.Completed)

	ok, err = s.SetCompleted(id, false)
	require.NoError(t, err)
	require.True(t, ok)

	got, _, err = s.GetByID(id)
	require.NoError(t, err)
	assert.False(t, got.Completed)
}

func seedFilterTasks(t *testing.T, s *Store) {
	t.Helper()
	inputs := []ValidatedInput{
		{Title: "Buy groceries", Description: "milk and eggs", Priority: model.PriorityHigh},
		{Title: "Write report", Description: "quarterly numbers", Priority: model.PriorityMedium},
		{Title: "Clean garage", Description: "", Priority: model.PriorityLow},
	}
	for _, in := range inputs {
		_, err := s.Add(in)
		require.NoError(t, err)
	}
	done, err := s.Filter(Criteria{Q: "garage"})
	require.NoError(t, err)
	require.Len(t, done, 1)
	_, err = s.SetCompleted(done[0].ID, true)
	require.NoError(t, err)
}

func TestStore_Filter_EmptyCriteriaIsLoadAll(t *testing.T) {
	s := testStore(t, StoreOptions{})
	seedFilterTasks(t, s)

	all, err := s.LoadAll()
	require.NoError(t, err)

	filtered, err := s.Filter(Criteria{})
	require.NoError(t, err)
	assert.Equal(t, all, filtered)
}

func TestStore_Filter_QueryMatchesTitleOrDescription(t *testing.T) {
	s := testStore(t, StoreOptions{})
	seedFilterTasks(t, s)

	byTitle, err := s.Filter(Criteria{Q: "GROCERIES"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Buy groceries", byTitle[0].Title)

	byDesc, err := s.Filter(Criteria{Q: "quarterly"})
	require.NoError(t, err)
	require.Len(t, byDesc, 1)
	assert.Equal(t, "Write report", byDesc[0].Title)

	none, err := s.Filter(Criteria{Q: "zzz"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Filter_Priority(t *testing.T) {
	s := testStore(t, StoreOptions{})
	seedFilterTasks(t, s)

	high, err := s.Filter(Criteria{Priority: model.PriorityHigh})
	require.NoError(t, err)
	require.Len(t, high, 1)
	for _, task := range high {
		assert.Equal(t, model.PriorityHigh, task.Priority)
	}
}

func TestStore_Filter_CompletedAndCombined(t *testing.T) {
	s := testStore(t, StoreOptions{})
	seedFilterTasks(t, s)

	completed := true
	done, err := s.Filter(Criteria{Completed: &completed})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "Clean garage", done[0].Title)

	open := false
	openHigh, err := s.Filter(Criteria{Priority: model.PriorityHigh, Completed: &open})
	require.NoError(t, err)
	require.Len(t, openHigh, 1)
	assert.Equal(t, "Buy groceries", openHigh[0].Title)
}

func TestStore_Filter_DoesNotReorderStoredData(t *testing.T) {
	s := testStore(t, StoreOptions{})
	seedFilterTasks(t, s)

	before, err := s.LoadAll()
	require.NoError(t, err)

	_, err = s.Filter(Criteria{Q: "e"})
	require.NoError(t, err)

	after, err := s.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStore_CorruptFile_StrictFails(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, StoreOptions{Strict: true})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.json"), []byte("{not json"), 0o644))

	_, err = s.LoadAll()
	assert.ErrorIs(t, err, ErrCorruptStore)
}

func TestStore_CorruptFile_DefaultDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, StoreOptions{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.json"), []byte("{not json"), 0o644))

	tasks, err := s.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestStore_MissingFileTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, StoreOptions{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "tasks.json")))

	tasks, err := s.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestStore_FileIsAlwaysAValidTaskArray(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, StoreOptions{})
	require.NoError(t, err)

	id, err := s.Add(testInput("a"))
	require.NoError(t, err)
	_, err = s.Add(testInput("b"))
	require.NoError(t, err)
	_, err = s.Delete(id)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "tasks.json"))
	require.NoError(t, err)

	var tasks []model.Task
	require.NoError(t, json.Unmarshal(b, &tasks))
	assert.Len(t, tasks, 1)
}

func TestStore_ConcurrentAddsLoseNothing(t *testing.T) {
	s := testStore(t, StoreOptions{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.Add(testInput("concurrent"))
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	tasks, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.NotEqual(t, tasks[0].ID, tasks[1].ID)
}

func TestStore_LockTimeoutSurfacesAsError(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, StoreOptions{LockTimeout: 200 * time.Millisecond})
	require.NoError(t, err)

	holder := flock.New(LockPath(s.Path()))
	require.NoError(t, holder.Lock())
	defer func() { _ = holder.Unlock() }()

	start := time.Now()
	_, err = s.Add(testInput("blocked"))
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestStore_NewStoreWaitsForAdvisoryLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")

	holder := flock.New(LockPath(path))
	require.NoError(t, holder.Lock())
	defer func() { _ = holder.Unlock() }()

	_, err := NewStore(dir, StoreOptions{LockTimeout: 200 * time.Millisecond})
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestStore_NewStorePreservesExistingData(t *testing.T) {
	dir := t.TempDir()
	s1, err := NewStore(dir, StoreOptions{})
	require.NoError(t, err)
	_, err = s1.Add(testInput("keeper"))
	require.NoError(t, err)

	s2, err := NewStore(dir, StoreOptions{})
	require.NoError(t, err)

	tasks, err := s2.LoadAll()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "keeper", tasks[0].Title)
}

func TestStore_ConcurrentReadersAndWriters(t *testing.T) {
	s := testStore(t, StoreOptions{})

	const writers = 4
	var wg sync.WaitGroup
	for n := 0; n < writers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(testInput("w"))
			assert.NoError(t, err)
		}()
	}
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.LoadAll()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	tasks, err := s.LoadAll()
	require.NoError(t, err)
	assert.Len(t, tasks, writers)
}

func TestStore_ManyConcurrentWriters(t *testing.T) {
	s := testStore(t, StoreOptions{})

	const n = 16
	var wg sync.WaitGroup
	for j := 0; j < n; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(testInput("w"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	tasks, err := s.LoadAll()
	require.NoError(t, err)
	assert.Len(t, tasks, n)
}
