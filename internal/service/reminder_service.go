package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"todo-planner/internal/model"
	"todo-planner/internal/notify"
	"todo-planner/internal/repository"
)

// SentLedger remembers reminders that already went out.
type SentLedger interface {
	Claim(ctx context.Context, taskID uint, due model.Date) (bool, error)
	Release(ctx context.Context, taskID uint, due model.Date) error
}

// RunReporter receives a summary after every run.
type RunReporter interface {
	Report(ctx context.Context, s notify.RunSummary) error
}

// ReminderConfig tunes a reminder run.
type ReminderConfig struct {
	// Location decides which calendar day "tomorrow" is.
	Location    *time.Location
	SendTimeout time.Duration
	Workers     int
	AppName     string
	AppURL      string
}

// Delivery is a reminder that was handed to the sender.
type Delivery struct {
	TaskID uint
	Email  string
}

// Failure is a reminder that could not be sent.
type Failure struct {
	TaskID uint
	Email  string
	Err    error
}

func (f Failure) String() string {
	return fmt.Sprintf("task #%d to %s: %v", f.TaskID, f.Email, f.Err)
}

// Report describes one run.
type Report struct {
	Date     model.Date
	Selected int
	// Skipped counts tasks whose owner is unknown or has no email.
	Skipped int
	// AlreadySent counts tasks the ledger had seen earlier the same day.
	AlreadySent int
	Delivered   []Delivery
	Failures    []Failure
}

func (r Report) Sent() int {
	return len(r.Delivered)
}

// Summary converts the report for operator notifications.
func (r Report) Summary() notify.RunSummary {
	s := notify.RunSummary{
		Date:     r.Date.String(),
		Selected: r.Selected,
		Sent:     r.Sent(),
		Skipped:  r.Skipped + r.AlreadySent,
	}
	for _, f := range r.Failures {
		s.Failures = append(s.Failures, f.String())
	}
	return s
}

// ReminderService emails owners about their tasks that are due tomorrow.
type ReminderService struct {
	tasks    *repository.TaskRepository
	users    *repository.UserRepository
	sender   notify.Sender
	cfg      ReminderConfig
	log      *log.Logger
	ledger   SentLedger
	reporter RunReporter
}

func NewReminderService(tasks *repository.TaskRepository, users *repository.UserRepository, sender notify.Sender, cfg ReminderConfig, logger *log.Logger) *ReminderService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	return &ReminderService{tasks: tasks, users: users, sender: sender, cfg: cfg, log: logger}
}

// UseLedger makes runs skip reminders already sent for the same due date.
func (s *ReminderService) UseLedger(l SentLedger) {
	s.ledger = l
}

// UseReporter posts a summary after every run.
func (s *ReminderService) UseReporter(r RunReporter) {
	s.reporter = r
}

// Run sends one reminder per active, unfinished task due on the day after now.
// A failed send is recorded and never stops the others. The returned error is
// set only when tasks could not be selected or ctx ended.
func (s *ReminderService) Run(ctx context.Context, now time.Time) (Report, error) {
	due := model.DateOf(now.In(s.cfg.Location)).AddDays(1)
	report := Report{Date: due}

	tasks, err := s.tasks.DueOn(ctx, due)
	if err != nil {
		return report, err
	}
	report.Selected = len(tasks)
	if len(tasks) == 0 {
		s.log.WithField("date", due.String()).Info("no tasks due tomorrow")
		s.report(ctx, report)
		return report, nil
	}

	owners, err := s.users.FindByIDs(ctx, ownerIDs(tasks))
	if err != nil {
		return report, err
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Workers)

	for _, task := range tasks {
		user, ok := ownerOf(task, owners)
		if !ok {
			report.Skipped++
			s.log.WithField("task_id", task.ID).Info("skip reminder: owner has no email")
			continue
		}

		g.Go(func() error {
			sent, err := s.deliver(ctx, task, user, due)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failures = append(report.Failures, Failure{TaskID: task.ID, Email: user.Email, Err: err})
			case !sent:
				report.AlreadySent++
			default:
				report.Delivered = append(report.Delivered, Delivery{TaskID: task.ID, Email: user.Email})
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Delivered, func(i, j int) bool { return report.Delivered[i].TaskID < report.Delivered[j].TaskID })
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].TaskID < report.Failures[j].TaskID })

	s.log.WithFields(log.Fields{
		"date":     due.String(),
		"selected": report.Selected,
		"sent":     report.Sent(),
		"skipped":  report.Skipped,
		"repeated": report.AlreadySent,
		"failed":   len(report.Failures),
	}).Info("reminder run finished")

	s.report(ctx, report)
	return report, ctx.Err()
}

// deliver sends one reminder. It returns false without error when the ledger
// says the reminder already went out.
func (s *ReminderService) deliver(ctx context.Context, task model.Task, user model.User, due model.Date) (bool, error) {
	claimed := false
	if s.ledger != nil {
		ok, err := s.ledger.Claim(ctx, task.ID, due)
		switch {
		case err != nil:
			s.log.WithError(err).WithField("task_id", task.ID).Warn("reminder ledger unavailable, sending anyway")
		case !ok:
			return false, nil
		default:
			claimed = true
		}
	}

	msg, err := renderReminder(task, user, s.cfg.AppName, s.cfg.AppURL)
	if err == nil {
		sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
		err = s.sender.Send(sendCtx, msg)
		cancel()
	}
	if err != nil {
		s.log.WithError(err).WithFields(log.Fields{"task_id": task.ID, "email": user.Email}).Warn("send reminder")
		if claimed {
			if rerr := s.ledger.Release(context.WithoutCancel(ctx), task.ID, due); rerr != nil {
				s.log.WithError(rerr).WithField("task_id", task.ID).Warn("release reminder claim")
			}
		}
		return false, err
	}
	return true, nil
}

func (s *ReminderService) report(ctx context.Context, r Report) {
	if s.reporter == nil {
		return
	}
	if err := s.reporter.Report(ctx, r.Summary()); err != nil {
		s.log.WithError(err).Warn("post reminder run report")
	}
}

func ownerIDs(tasks []model.Task) []uint {
	seen := make(map[uint]struct{})
	var ids []uint
	for _, t := range tasks {
		if t.UserID == nil {
			continue
		}
		if _, ok := seen[*t.UserID]; ok {
			continue
		}
		seen[*t.UserID] = struct{}{}
		ids = append(ids, *t.UserID)
	}
	return ids
}

func ownerOf(task model.Task, owners map[uint]model.User) (model.User, bool) {
	if task.UserID == nil {
		return model.User{}, false
	}
	user, ok := owners[*task.UserID]
	if !ok || user.Email == "" {
		return model.User{}, false
	}
	return user, true
}
