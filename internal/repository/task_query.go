package repository

import (
	"math"
	"strings"

	"gorm.io/gorm"

	"todo-planner/internal/model"
)

const (
	DefaultPerPage = 5
	MaxPerPage     = 1000
	LatestLimit    = 5
	// MaxPage keeps (page-1)*perPage within int for every allowed perPage.
	MaxPage = math.MaxInt / MaxPerPage
)

// TaskFilter narrows the active task listing. Nil pointers mean "no filter";
// the "all" and empty-string sentinels are folded into nil by the caller.
type TaskFilter struct {
	Search   string
	Status   *model.TaskStatus
	Category *string
	Page     int
	PerPage  int
}

// TrashFilter narrows the trash listing.
type TrashFilter struct {
	Search  string
	Page    int
	PerPage int
}

// TaskPage is one page of an ordered task listing.
type TaskPage struct {
	Tasks       []model.Task
	Total       int64
	CurrentPage int
	PerPage     int
	LastPage    int
}

// From is the 1-based position of the first item on the page, 0 when empty.
func (p TaskPage) From() int {
	if len(p.Tasks) == 0 {
		return 0
	}
	return (p.CurrentPage-1)*p.PerPage + 1
}

// To is the 1-based position of the last item on the page, 0 when empty.
func (p TaskPage) To() int {
	if len(p.Tasks) == 0 {
		return 0
	}
	return p.From() + len(p.Tasks) - 1
}

// NormalizePage clamps page to [1, MaxPage] and perPage to [1, MaxPerPage], with 0
// meaning the default page size.
func NormalizePage(page, perPage int) (int, int) {
	switch {
	case page < 1:
		page = 1
	case page > MaxPage:
		page = MaxPage
	}
	switch {
	case perPage == 0:
		perPage = DefaultPerPage
	case perPage < 1:
		perPage = 1
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}
	return page, perPage
}

// LastPage is ceil(total/perPage), never below 1.
func LastPage(total int64, perPage int) int {
	if perPage < 1 {
		perPage = 1
	}
	last := int((total + int64(perPage) - 1) / int64(perPage))
	if last < 1 {
		return 1
	}
	return last
}

func ownedBy(owner *uint) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if owner == nil {
			return tx
		}
		return tx.Where("user_id = ?", *owner)
	}
}

func matching(search string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		search = strings.TrimSpace(search)
		if search == "" {
			return tx
		}
		like := "%" + strings.ToLower(search) + "%"
		return tx.Where("(LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)", like, like)
	}
}

func filtered(f TaskFilter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if f.Status != nil {
			tx = tx.Where("status = ?", string(*f.Status))
		}
		if f.Category != nil {
			tx = tx.Where("category = ?", *f.Category)
		}
		return tx
	}
}
