package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"todo-planner/internal/model"
)

// Options configure NewDB.
type Options struct {
	Driver string
	DSN    string
	Logger *log.Logger
	// Now overrides the clock used for created_at/updated_at/deleted_at.
	Now func() time.Time
}

// NewDB opens the configured database and runs migrations.
func NewDB(opts Options) (*gorm.DB, error) {
	dialector, err := dialectorFor(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}

	cfg := &gorm.Config{
		Logger:         newGormLogger(opts.Logger),
		TranslateError: true,
	}
	if opts.Now != nil {
		cfg.NowFunc = opts.Now
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Category{}, &model.Task{}); err != nil {
		return errors.Wrap(err, "migrate db")
	}
	return nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "data/todo.db"
		}
		if dir := sqliteDir(dsn); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrapf(err, "create db dir %q", dir)
			}
		}
		return sqlite.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

func newGormLogger(l *log.Logger) logger.Interface {
	if l == nil {
		return logger.Default.LogMode(logger.Silent)
	}
	return logger.New(
		l,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// sqliteDir is the directory a file-backed SQLite DSN lives in, or "" for
// in-memory databases and files in the working directory.
func sqliteDir(dsn string) string {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	file, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	switch dir := filepath.Dir(file); dir {
	case ".", "":
		return ""
	default:
		return dir
	}
}
