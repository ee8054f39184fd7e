package repository

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"todo-planner/internal/errs"
	"todo-planner/internal/model"
)

// UserRepository reads and registers task owners. Authentication itself lives
// elsewhere; this table only carries what reminders need.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create registers a user, or updates the name of an existing user with the
// same email.
func (r *UserRepository) Create(ctx context.Context, name, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	db := r.db.WithContext(ctx)

	var user model.User
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if err := db.Model(&user).Update("name", name).Error; err != nil {
			return nil, errors.Wrap(err, "update user")
		}
		user.Name = name
		return &user, nil
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{Name: name, Email: email}
		if err := db.Create(&user).Error; err != nil {
			return nil, errors.Wrap(err, "create user")
		}
		return &user, nil
	default:
		return nil, errors.Wrap(err, "find user")
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "find user")
	}
	return &user, nil
}

// FindByIDs returns the users that exist among ids, keyed by id.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]model.User, error) {
	out := make(map[uint]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "find users")
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}
