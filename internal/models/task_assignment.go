package models

import "time"

// TaskAssignment links an assignee to a task and remembers when the
// assignment was made.
type TaskAssignment struct {
	TaskID     uint64    `gorm:"primarykey" json:"task_id"`
	UserID     uint64    `gorm:"primarykey" json:"user_id"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`

	// Relations
	Task Task `gorm:"foreignKey:TaskID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"-"`
}
