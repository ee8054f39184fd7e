package model

import "time"

// User is the task owner as known to the reminder job.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:255"`
	Email     string `gorm:"size:255;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
