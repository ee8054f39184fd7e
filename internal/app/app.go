// Package app assembles the services shared by the API server and the
// reminder commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"todo-planner/internal/api"
	"todo-planner/internal/auth"
	"todo-planner/internal/config"
	"todo-planner/internal/ledger"
	"todo-planner/internal/notify"
	"todo-planner/internal/repository"
	"todo-planner/internal/service"
	"todo-planner/internal/storage"
)

// App owns the database handle and every service built on it.
type App struct {
	Config     config.Config
	Log        *log.Logger
	DB         *gorm.DB
	Location   *time.Location
	Users      *repository.UserRepository
	Tasks      *service.TaskService
	Categories *service.CategoryService
	Reminders  *service.ReminderService
	Files      *storage.AttachmentStore

	closers []func() error
}

// New opens the database, runs migrations and wires the services.
func New(ctx context.Context, cfg config.Config, logger *log.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := repository.NewDB(repository.Options{Driver: cfg.DB.Driver, DSN: cfg.DB.DSN, Logger: logger})
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: logger, DB: db, Location: loc}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	files, err := storage.NewDiskStore(cfg.Storage.Dir, cfg.App.URL)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Files = files

	taskRepo := repository.NewTaskRepository(db)
	a.Users = repository.NewUserRepository(db)
	a.Tasks = service.NewTaskService(taskRepo, files, logger, loc)
	a.Categories = service.NewCategoryService(repository.NewCategoryRepository(db))
	a.Reminders = service.NewReminderService(taskRepo, a.Users, a.sender(), service.ReminderConfig{
		Location:    loc,
		SendTimeout: cfg.Reminder.SendTimeout,
		Workers:     cfg.Reminder.Workers,
		AppName:     cfg.App.Name,
		AppURL:      cfg.App.URL,
	}, logger)

	if cfg.Redis.URL != "" {
		l, err := ledger.Open(ctx, cfg.Redis.URL, cfg.Redis.TTL)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Reminders.UseLedger(l)
		a.closers = append(a.closers, l.Close)
	}

	if cfg.Telegram.Token != "" && cfg.Telegram.ReportChatID != 0 {
		reporter, err := notify.NewTelegramReporter(cfg.Telegram.Token, cfg.Telegram.ReportChatID)
		if err != nil {
			logger.WithError(err).Warn("telegram run reports disabled")
		} else {
			a.Reminders.UseReporter(reporter)
		}
	}
	return a, nil
}

func (a *App) sender() notify.Sender {
	if a.Config.Mail.Host == "" {
		a.Log.Info("SMTP_HOST not set, reminders go to the log")
		return notify.NewLogSender(a.Log)
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     a.Config.Mail.Host,
		Port:     a.Config.Mail.Port,
		Username: a.Config.Mail.Username,
		Password: a.Config.Mail.Password,
		From:     a.Config.MailFrom(),
		Attempts: a.Config.Mail.Attempts,
	})
}

// Router builds the HTTP handler. It fails when the API settings are
// incomplete, which the reminder commands never look at.
func (a *App) Router() (*gin.Engine, error) {
	if err := a.Config.CheckAPI(); err != nil {
		return nil, err
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	return api.NewRouter(api.Deps{
		Tasks:        a.Tasks,
		Categories:   a.Categories,
		Files:        a.Files,
		Verifier:     auth.NewVerifier(a.Config.Auth.Secret),
		DB:           sqlDB,
		Log:          a.Log,
		AuthRequired: a.Config.Auth.Required,
		Timeout:      a.Config.HTTP.Timeout,
	}), nil
}

// RemindOnce runs the reminder job and prints one line per sent reminder to out.
func (a *App) RemindOnce(ctx context.Context, now time.Time, out io.Writer) (service.Report, error) {
	report, err := a.Reminders.Run(ctx, now)
	if report.Selected == 0 && err == nil {
		fmt.Fprintln(out, "No tasks due tomorrow.")
		return report, nil
	}
	for _, d := range report.Delivered {
		fmt.Fprintf(out, "Reminder sent for task #%d to %s\n", d.TaskID, d.Email)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(out, "Reminder failed for task #%d to %s: %v\n", f.TaskID, f.Email, f.Err)
	}
	return report, err
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
