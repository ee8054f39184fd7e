package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"todo-planner/internal/model"
)

// tickingClock returns a strictly increasing time on every call so that rows
// created one after another never share a timestamp.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTickingClock() *tickingClock {
	return &tickingClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	clock := newTickingClock()
	db, err := NewDB(Options{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "todo.db"),
		Now:    clock.Now,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func ptr[T any](v T) *T {
	return &v
}

func mustCreateTask(t *testing.T, repo *TaskRepository, task model.Task) model.Task {
	t.Helper()

	if task.Status == "" {
		task.Status = model.StatusPending
	}
	require.NoError(t, repo.Create(context.Background(), &task))
	return task
}

func mustDate(t *testing.T, s string) model.Date {
	t.Helper()

	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

func taskIDs(tasks []model.Task) []uint {
	ids := make([]uint, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}
