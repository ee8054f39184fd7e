package service

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"todo-planner/internal/repository"
	"todo-planner/internal/storage"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	db, err := repository.NewDB(repository.Options{
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

type taskFixture struct {
	svc   *TaskService
	repo  *repository.TaskRepository
	fs    afero.Fs
	db    *gorm.DB
	store *storage.AttachmentStore
}

func newTaskFixture(t *testing.T) taskFixture {
	t.Helper()

	db := newTestDB(t)
	fs := afero.NewMemMapFs()
	store := storage.NewAttachmentStore(fs, "")
	repo := repository.NewTaskRepository(db)
	logger, _ := test.NewNullLogger()
	return taskFixture{
		svc:   NewTaskService(repo, store, logger, time.UTC),
		repo:  repo,
		fs:    fs,
		db:    db,
		store: store,
	}
}

func ptr[T any](v T) *T {
	return &v
}
