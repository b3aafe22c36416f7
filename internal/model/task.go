package model

import "time"

// Task is a one-off reminder owned by a chat.
type Task struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Owner     int64     `gorm:"index;not null"`
	Text      string    `gorm:"not null"`
	DueAt     time.Time `gorm:"index;not null"` // always UTC
	Done      bool      `gorm:"default:false;not null"`
	CreatedAt time.Time
}
