package repository

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"todo-planner/internal/errs"
	"todo-planner/internal/model"
)

// CategoryRepository manages the shared category names.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create inserts a category; an existing row with exactly the same name
// yields errs.ErrCategoryExists.
func (r *CategoryRepository) Create(ctx context.Context, name string) (*model.Category, error) {
	db := r.db.WithContext(ctx)

	var existing model.Category
	err := db.Where("name = ?", name).First(&existing).Error
	switch {
	case err == nil:
		return nil, errs.ErrCategoryExists
	case !stderrors.Is(err, gorm.ErrRecordNotFound):
		return nil, errors.Wrap(err, "find category")
	}

	category := model.Category{Name: name}
	if err := db.Create(&category).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.ErrCategoryExists
		}
		return nil, errors.Wrap(err, "create category")
	}
	return &category, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	categories := []model.Category{}
	if err := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&categories).Error; err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return categories, nil
}

// Delete removes the category row only. Tasks carry the name by value and
// are left as they are.
func (r *CategoryRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Category{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete category")
	}
	if res.RowsAffected == 0 {
		return errs.ErrCategoryNotFound
	}
	return nil
}
