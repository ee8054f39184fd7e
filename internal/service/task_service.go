package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"todo-planner/internal/errs"
	"todo-planner/internal/model"
	"todo-planner/internal/repository"
	"todo-planner/internal/storage"
)

const (
	attachmentLimitKiB = storage.MaxAttachmentSize / 1024
	filterAll          = "all"
)

var statusRule = "oneof=" + strings.Join([]string{
	string(model.StatusPending), string(model.StatusProcessing), string(model.StatusDone),
}, " ")

// Attachment is an uploaded file.
type Attachment struct {
	Name    string
	Size    int64
	Content io.Reader
}

// TaskInput carries the fields of a create or update request. A nil pointer
// means the field was not sent at all; an empty string clears the field.
type TaskInput struct {
	Title       *string
	Description *string
	Status      *string
	Category    *string
	DueDate     *string
	Attachment  *Attachment
}

// TaskQuery is a raw listing request. Status and Category accept "" and "all"
// as "no filter".
type TaskQuery struct {
	Search   string
	Status   string
	Category string
	Page     int
	PerPage  int
}

// AttachmentStore keeps uploaded files.
type AttachmentStore interface {
	Put(originalName string, r io.Reader) (string, error)
	Delete(rel string) error
}

// TaskService wraps task-related business logic.
type TaskService struct {
	tasks *repository.TaskRepository
	files AttachmentStore
	log   *log.Logger
	loc   *time.Location
}

func NewTaskService(tasks *repository.TaskRepository, files AttachmentStore, logger *log.Logger, loc *time.Location) *TaskService {
	if loc == nil {
		loc = time.Local
	}
	return &TaskService{tasks: tasks, files: files, log: logger, loc: loc}
}

// Create validates in and stores a new task owned by owner. The attachment,
// if any, is written first and removed again when the row cannot be saved.
func (s *TaskService) Create(ctx context.Context, owner *uint, in TaskInput) (*model.Task, error) {
	if err := validateTask(in, true); err != nil {
		return nil, err
	}

	task := model.Task{UserID: owner, Status: model.StatusPending}
	applyInput(&task, in)

	undo, err := s.attach(&task, in.Attachment)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		undo()
		return nil, err
	}
	return &task, nil
}

// Update changes only the fields present in in. A replaced attachment file is
// removed once the new one is saved.
func (s *TaskService) Update(ctx context.Context, owner *uint, id uint, in TaskInput) (*model.Task, error) {
	task, err := s.tasks.FindActive(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := validateTask(in, false); err != nil {
		return nil, err
	}

	previous := task.AttachmentPath
	applyInput(task, in)

	undo, err := s.attach(task, in.Attachment)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.Save(ctx, task); err != nil {
		undo()
		return nil, err
	}
	if in.Attachment != nil && previous != nil {
		s.removeFile(*previous)
	}
	return task, nil
}

// Delete moves a task to the trash.
func (s *TaskService) Delete(ctx context.Context, owner *uint, id uint) error {
	return s.tasks.SoftDelete(ctx, owner, id)
}

func (s *TaskService) Restore(ctx context.Context, owner *uint, id uint) error {
	return s.tasks.Restore(ctx, owner, id)
}

// Purge removes a trashed task for good, including its attachment file.
func (s *TaskService) Purge(ctx context.Context, owner *uint, id uint) error {
	task, err := s.tasks.Purge(ctx, owner, id)
	if err != nil {
		return err
	}
	if task.AttachmentPath != nil {
		s.removeFile(*task.AttachmentPath)
	}
	return nil
}

// Get returns an active task visible to owner.
func (s *TaskService) Get(ctx context.Context, owner *uint, id uint) (*model.Task, error) {
	return s.tasks.FindActive(ctx, owner, id)
}

func (s *TaskService) List(ctx context.Context, owner *uint, q TaskQuery) (repository.TaskPage, error) {
	f := repository.TaskFilter{
		Search:   q.Search,
		Category: NormalizeFilter(q.Category),
		Page:     q.Page,
		PerPage:  q.PerPage,
	}
	if status := NormalizeFilter(q.Status); status != nil {
		st := model.TaskStatus(*status)
		f.Status = &st
	}
	return s.tasks.List(ctx, owner, f)
}

func (s *TaskService) ListTrashed(ctx context.Context, owner *uint, search string, page, perPage int) (repository.TaskPage, error) {
	return s.tasks.ListTrashed(ctx, owner, repository.TrashFilter{Search: search, Page: page, PerPage: perPage})
}

// Latest returns the five newest active tasks.
func (s *TaskService) Latest(ctx context.Context, owner *uint) ([]model.Task, error) {
	return s.tasks.Latest(ctx, owner, repository.LatestLimit)
}

// Stats is the dashboard summary of active tasks.
type Stats struct {
	Total    int                      `json:"total"`
	ByStatus map[model.TaskStatus]int `json:"by_status"`
	ByDate   []DateCount              `json:"by_date"`
}

type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats counts active tasks per status and per day, where a task's day is its
// due date or, without one, the day it was created.
func (s *TaskService) Stats(ctx context.Context, owner *uint) (Stats, error) {
	tasks, err := s.tasks.AllActive(ctx, owner)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(tasks), ByStatus: map[model.TaskStatus]int{}, ByDate: []DateCount{}}
	for _, st := range model.Statuses() {
		stats.ByStatus[st] = 0
	}

	perDay := map[string]int{}
	for _, t := range tasks {
		stats.ByStatus[t.Status]++
		day := model.DateOf(t.CreatedAt.In(s.loc)).String()
		if t.DueDate != nil {
			day = t.DueDate.String()
		}
		perDay[day]++
	}
	for day, n := range perDay {
		stats.ByDate = append(stats.ByDate, DateCount{Date: day, Count: n})
	}
	sort.Slice(stats.ByDate, func(i, j int) bool { return stats.ByDate[i].Date < stats.ByDate[j].Date })
	return stats, nil
}

type calendarRange struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

// Calendar returns active tasks due between from and to inclusive.
func (s *TaskService) Calendar(ctx context.Context, owner *uint, from, to string) ([]model.Task, error) {
	r := calendarRange{From: strings.TrimSpace(from), To: strings.TrimSpace(to)}
	if err := checkStruct(r); err != nil {
		return nil, err
	}
	start, _ := model.ParseDate(r.From)
	end, _ := model.ParseDate(r.To)
	if end.Before(start) {
		return nil, errs.Invalid("to", "The to field must be a date after or equal to from.")
	}
	return s.tasks.DueBetween(ctx, owner, start, end)
}

// NormalizeFilter folds the "" and "all" listing sentinels into nil.
func NormalizeFilter(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" || v == filterAll {
		return nil
	}
	return &v
}

func validateTask(in TaskInput, creating bool) error {
	var rules []rule
	switch {
	case in.Title != nil:
		rules = append(rules, rule{"title", strings.TrimSpace(*in.Title), "required,max=255"})
	case creating:
		rules = append(rules, rule{"title", "", "required"})
	}
	if in.Status != nil && (!creating || *in.Status != "") {
		rules = append(rules, rule{"status", strings.TrimSpace(*in.Status), statusRule})
	}
	if in.Category != nil {
		rules = append(rules, rule{"category", strings.TrimSpace(*in.Category), "max=100"})
	}
	if in.DueDate != nil {
		rules = append(rules, rule{"due_date", strings.TrimSpace(*in.DueDate), "omitempty,datetime=2006-01-02"})
	}
	if in.Attachment != nil {
		rules = append(rules, rule{"attachment", in.Attachment.Size, "lte=" + strconv.FormatInt(storage.MaxAttachmentSize, 10)})
	}
	return checkRules(rules...)
}

func applyInput(task *model.Task, in TaskInput) {
	if in.Title != nil {
		task.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		task.Description = blankToNil(*in.Description)
	}
	if in.Status != nil && strings.TrimSpace(*in.Status) != "" {
		task.Status = model.TaskStatus(strings.TrimSpace(*in.Status))
	}
	if in.Category != nil {
		task.Category = blankToNil(*in.Category)
	}
	if in.DueDate != nil {
		task.DueDate = nil
		if d, err := model.ParseDate(*in.DueDate); err == nil {
			task.DueDate = &d
		}
	}
}

// attach stores a and points task at it. The returned func removes the stored
// file again and is a no-op when nothing was stored.
func (s *TaskService) attach(task *model.Task, a *Attachment) (func(), error) {
	if a == nil {
		return func() {}, nil
	}
	rel, err := s.files.Put(a.Name, a.Content)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, errs.Invalid("attachment", fmt.Sprintf("The attachment field must not be greater than %d kilobytes.", attachmentLimitKiB))
		}
		return nil, err
	}
	name := a.Name
	task.AttachmentPath = &rel
	task.AttachmentName = &name
	return func() { s.removeFile(rel) }, nil
}

func (s *TaskService) removeFile(rel string) {
	if err := s.files.Delete(rel); err != nil {
		s.log.WithError(err).WithField("path", rel).Warn("remove attachment")
	}
}

func blankToNil(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
