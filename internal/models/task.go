package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TaskStatus is stored as an integer column.
type TaskStatus int

const (
	TaskStatusTodo       TaskStatus = 0
	TaskStatusInProgress TaskStatus = 1
	TaskStatusDone       TaskStatus = 2
)

var ErrInvalidStatus = errors.New("invalid task status")

var taskStatusLabels = map[TaskStatus]string{
	TaskStatusTodo:       "To Do",
	TaskStatusInProgress: "In Progress",
	TaskStatusDone:       "Done",
}

// TaskStatuses lists every valid status in order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}
}

// ParseTaskStatus validates a raw status value.
func ParseTaskStatus(value int) (TaskStatus, error) {
	status := TaskStatus(value)
	if !status.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidStatus, value)
	}
	return status, nil
}

func (s TaskStatus) Valid() bool {
	_, ok := taskStatusLabels[s]
	return ok
}

func (s TaskStatus) Label() string {
	if label, ok := taskStatusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// StatusView is the {value, label} wire form of a status.
type StatusView struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

func (s TaskStatus) View() StatusView {
	return StatusView{Value: int(s), Label: s.Label()}
}

func (s TaskStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.View())
}

type Task struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	Title       string     `gorm:"type:varchar(100);index;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Category    string     `gorm:"type:varchar(100);index;not null" json:"category"`
	Status      TaskStatus `gorm:"not null;default:0;index" json:"status"`
	ProjectID   uint64     `gorm:"not null;index" json:"project_id"`
	ParentID    *uint64    `gorm:"index" json:"parent_id"`
	Deadline    *time.Time `gorm:"index" json:"deadline"`
	SoftDeletable

	// Relations
	Project     Project          `gorm:"foreignKey:ProjectID" json:"-"`
	Parent      *Task            `gorm:"foreignKey:ParentID" json:"-"`
	Subtasks    []Task           `gorm:"foreignKey:ParentID" json:"-"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"-"`
}

func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusDone
}

// IsOverdue reports whether the deadline lies before today and the task is
// not done. A completed task is never overdue.
func (t *Task) IsOverdue(today time.Time) bool {
	if t.Deadline == nil || t.IsCompleted() {
		return false
	}
	return DateOf(*t.Deadline).Before(DateOf(today))
}

// DeadlinePassed ignores the status.
func (t *Task) DeadlinePassed(today time.Time) bool {
	return t.Deadline != nil && DateOf(*t.Deadline).Before(DateOf(today))
}

// IsAssignee requires Assignments to be preloaded.
func (t *Task) IsAssignee(userID uint64) bool {
	for _, a := range t.Assignments {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// AssigneeIDs requires Assignments to be preloaded.
func (t *Task) AssigneeIDs() []uint64 {
	ids := make([]uint64, len(t.Assignments))
	for i, a := range t.Assignments {
		ids[i] = a.UserID
	}
	return ids
}
