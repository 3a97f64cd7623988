package dto

import (
	"time"

	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/services"
)

const dateLayout = "2006-01-02"

// TaskBriefDTO is the abbreviated task used for parents and subtasks
type TaskBriefDTO struct {
	ID     uint64            `json:"id"`
	Title  string            `json:"title"`
	Status models.StatusView `json:"status"`
}

// TaskDTO represents a task in list responses. IsOverdue and IsCompleted are
// computed on every read.
type TaskDTO struct {
	ID          uint64            `json:"id"`
	Title       string            `json:"title"`
	Category    string            `json:"category"`
	Status      models.StatusView `json:"status"`
	Deadline    *string           `json:"deadline"`
	IsOverdue   bool              `json:"is_overdue"`
	IsCompleted bool              `json:"is_completed"`
	ProjectID   uint64            `json:"project_id"`
	ParentID    *uint64           `json:"parent_id"`
	Assignees   []UserBriefDTO    `json:"assignees"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   *time.Time        `json:"deleted_at,omitempty"`
}

// TaskAssignmentDTO represents an assignee and when they were assigned
type TaskAssignmentDTO struct {
	User       UserBriefDTO `json:"user"`
	AssignedAt time.Time    `json:"assigned_at"`
}

// TaskDetailDTO adds the description, project, parent, subtasks and
// assignment times
type TaskDetailDTO struct {
	TaskDTO
	Description string              `json:"description"`
	Project     ProjectBriefDTO     `json:"project"`
	Parent      *TaskBriefDTO       `json:"parent"`
	Subtasks    []TaskBriefDTO      `json:"subtasks"`
	Assignments []TaskAssignmentDTO `json:"assignments"`
}

// GeneratedTaskDTO represents an AI task draft
type GeneratedTaskDTO struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Deadline    *string `json:"deadline"`
}

func ToTaskBriefDTO(task models.Task) TaskBriefDTO {
	return TaskBriefDTO{ID: task.ID, Title: task.Title, Status: task.Status.View()}
}

// ToTaskDTO converts a Task model; Assignments.User should be preloaded
func ToTaskDTO(task models.Task, today time.Time) TaskDTO {
	assignees := make([]UserBriefDTO, len(task.Assignments))
	for i, a := range task.Assignments {
		assignees[i] = ToUserBriefDTO(a.User)
	}

	return TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Category:    task.Category,
		Status:      task.Status.View(),
		Deadline:    formatDate(task.Deadline),
		IsOverdue:   task.IsOverdue(today),
		IsCompleted: task.IsCompleted(),
		ProjectID:   task.ProjectID,
		ParentID:    task.ParentID,
		Assignees:   assignees,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		DeletedAt:   task.DeletedAtTime(),
	}
}

// ToTaskDTOs converts a list of tasks
func ToTaskDTOs(tasks []models.Task, today time.Time) []TaskDTO {
	return mapSlice(tasks, func(t models.Task) TaskDTO { return ToTaskDTO(t, today) })
}

// ToTaskDetailDTO converts a task loaded with its relations
func ToTaskDetailDTO(task models.Task, today time.Time) TaskDetailDTO {
	detail := TaskDetailDTO{
		TaskDTO:     ToTaskDTO(task, today),
		Description: task.Description,
		Project:     ToProjectBriefDTO(task.Project),
		Subtasks:    mapSlice(task.Subtasks, ToTaskBriefDTO),
		Assignments: mapSlice(task.Assignments, func(a models.TaskAssignment) TaskAssignmentDTO {
			return TaskAssignmentDTO{User: ToUserBriefDTO(a.User), AssignedAt: a.AssignedAt}
		}),
	}
	if task.Parent != nil {
		parent := ToTaskBriefDTO(*task.Parent)
		detail.Parent = &parent
	}
	return detail
}

// ToGeneratedTaskDTO converts an AI draft
func ToGeneratedTaskDTO(task services.GeneratedTask) GeneratedTaskDTO {
	return GeneratedTaskDTO{
		Title:       task.Title,
		Description: task.Description,
		Category:    task.Category,
		Deadline:    formatDate(task.Deadline),
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
