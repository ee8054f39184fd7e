package repository

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"todo-planner/internal/errs"
	"todo-planner/internal/model"
)

// TaskRepository handles persistence and the soft-delete lifecycle of tasks.
// Every method taking an owner restricts itself to that owner's rows; a nil
// owner sees all rows.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return errors.Wrap(err, "create task")
	}
	return nil
}

// FindActive returns a task that is not in the trash.
func (r *TaskRepository) FindActive(ctx context.Context, owner *uint, id uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Scopes(ownedBy(owner)).Where("id = ?", id).First(&task).Error
	if err != nil {
		return nil, notFound(err, "find task")
	}
	return &task, nil
}

// FindTrashed returns a task that is in the trash.
func (r *TaskRepository) FindTrashed(ctx context.Context, owner *uint, id uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Unscoped().Scopes(ownedBy(owner)).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		First(&task).Error
	if err != nil {
		return nil, notFound(err, "find trashed task")
	}
	return &task, nil
}

// Save writes every column of an active task.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	res := r.db.WithContext(ctx).Select("*").Omit("created_at", "deleted_at").
		Where("deleted_at IS NULL").
		Updates(task)
	if res.Error != nil {
		return errors.Wrap(res.Error, "save task")
	}
	if res.RowsAffected == 0 {
		return errs.ErrTaskNotFound
	}
	return nil
}

// SoftDelete moves an active task to the trash.
func (r *TaskRepository) SoftDelete(ctx context.Context, owner *uint, id uint) error {
	res := r.db.WithContext(ctx).Scopes(ownedBy(owner)).Where("id = ?", id).Delete(&model.Task{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete task")
	}
	if res.RowsAffected == 0 {
		return errs.ErrTaskNotFound
	}
	return nil
}

// Restore takes a task out of the trash.
func (r *TaskRepository) Restore(ctx context.Context, owner *uint, id uint) error {
	res := r.db.WithContext(ctx).Unscoped().Model(&model.Task{}).Scopes(ownedBy(owner)).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return errors.Wrap(res.Error, "restore task")
	}
	if res.RowsAffected == 0 {
		return errs.ErrTaskNotFound
	}
	return nil
}

// Purge removes a trashed task row for good and returns what was removed.
func (r *TaskRepository) Purge(ctx context.Context, owner *uint, id uint) (*model.Task, error) {
	var purged model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Scopes(ownedBy(owner)).
			Where("id = ? AND deleted_at IS NOT NULL", id).
			First(&purged).Error; err != nil {
			return notFound(err, "find trashed task")
		}
		res := tx.Unscoped().Where("id = ? AND deleted_at IS NOT NULL", id).Delete(&model.Task{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "purge task")
		}
		if res.RowsAffected == 0 {
			return errs.ErrTaskNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &purged, nil
}

// List returns one page of active tasks, newest first.
func (r *TaskRepository) List(ctx context.Context, owner *uint, f TaskFilter) (TaskPage, error) {
	page, perPage := NormalizePage(f.Page, f.PerPage)
	tx := r.db.WithContext(ctx).Model(&model.Task{}).
		Scopes(ownedBy(owner), matching(f.Search), filtered(f))
	return r.paginate(tx, "created_at DESC, id DESC", page, perPage)
}

// ListTrashed returns one page of trashed tasks, most recently trashed first.
func (r *TaskRepository) ListTrashed(ctx context.Context, owner *uint, f TrashFilter) (TaskPage, error) {
	page, perPage := NormalizePage(f.Page, f.PerPage)
	tx := r.db.WithContext(ctx).Unscoped().Model(&model.Task{}).
		Where("deleted_at IS NOT NULL").
		Scopes(ownedBy(owner), matching(f.Search))
	return r.paginate(tx, "deleted_at DESC, id DESC", page, perPage)
}

// Latest returns the newest active tasks.
func (r *TaskRepository) Latest(ctx context.Context, owner *uint, limit int) ([]model.Task, error) {
	tasks := []model.Task{}
	if err := r.db.WithContext(ctx).Scopes(ownedBy(owner)).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&tasks).Error; err != nil {
		return nil, errors.Wrap(err, "latest tasks")
	}
	return tasks, nil
}

// DueOn returns active tasks of every owner due on date that are not done.
func (r *TaskRepository) DueOn(ctx context.Context, date model.Date) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("due_date = ? AND status <> ?", date, model.StatusDone).
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, errors.Wrap(err, "tasks due on date")
	}
	return tasks, nil
}

// DueBetween returns active tasks with a due date in [from, to].
func (r *TaskRepository) DueBetween(ctx context.Context, owner *uint, from, to model.Date) ([]model.Task, error) {
	tasks := []model.Task{}
	if err := r.db.WithContext(ctx).Scopes(ownedBy(owner)).
		Where("due_date IS NOT NULL AND due_date >= ? AND due_date <= ?", from, to).
		Order("due_date ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, errors.Wrap(err, "tasks due between dates")
	}
	return tasks, nil
}

// AllActive returns every active task visible to owner, newest first.
func (r *TaskRepository) AllActive(ctx context.Context, owner *uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Scopes(ownedBy(owner)).
		Select("id", "status", "due_date", "created_at").
		Order("created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, errors.Wrap(err, "list active tasks")
	}
	return tasks, nil
}

func (r *TaskRepository) paginate(tx *gorm.DB, order string, page, perPage int) (TaskPage, error) {
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return TaskPage{}, errors.Wrap(err, "count tasks")
	}

	tasks := []model.Task{}
	if err := tx.Order(order).
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&tasks).Error; err != nil {
		return TaskPage{}, errors.Wrap(err, "list tasks")
	}

	return TaskPage{
		Tasks:       tasks,
		Total:       total,
		CurrentPage: page,
		PerPage:     perPage,
		LastPage:    LastPage(total, perPage),
	}, nil
}

func notFound(err error, op string) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errs.ErrTaskNotFound
	}
	return errors.Wrap(err, op)
}
