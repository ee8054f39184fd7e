package model

import (
	"time"

	"gorm.io/gorm"
)

// TaskStatus is the progress marker shown on the board.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusDone       TaskStatus = "done"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDone:
		return true
	}
	return false
}

// Statuses lists every known status in display order.
func Statuses() []TaskStatus {
	return []TaskStatus{StatusPending, StatusProcessing, StatusDone}
}

// Task represents a single to-do item.
//
// Category is a copy of a category name taken when the task was saved, not a
// reference, so deleting a category leaves existing tasks untouched.
// A non-null DeletedAt means the task sits in the trash.
type Task struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         *uint          `gorm:"index" json:"user_id"`
	Title          string         `gorm:"size:255;not null" json:"title"`
	Description    *string        `gorm:"type:text" json:"description"`
	Status         TaskStatus     `gorm:"size:32;not null;default:pending;index" json:"status"`
	Category       *string        `gorm:"size:100;index" json:"category"`
	DueDate        *Date          `gorm:"index" json:"due_date"`
	AttachmentPath *string        `gorm:"size:255" json:"attachment_path"`
	AttachmentName *string        `gorm:"size:255" json:"attachment_name"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
