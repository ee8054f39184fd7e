package service

import (
	"context"
	"strings"

	"todo-planner/internal/model"
	"todo-planner/internal/repository"
)

// CategoryInput is a create request.
type CategoryInput struct {
	Name string `json:"name" form:"name" validate:"required,max=100"`
}

// CategoryService manages the shared list of category names.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.repo.List(ctx)
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*model.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, in.Name)
}

// Delete removes the category. Tasks that carry its name keep it.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}
