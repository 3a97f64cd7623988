package dto

import (
	"time"

	"github.com/yukikurage/project-tracker-api/internal/models"
)

// ProjectBriefDTO is the abbreviated project shown inside other resources
type ProjectBriefDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// ProjectDTO represents a project in list responses
type ProjectDTO struct {
	ID         uint64          `json:"id"`
	Name       string          `json:"name"`
	Company    CompanyBriefDTO `json:"company"`
	Author     UserBriefDTO    `json:"author"`
	TasksCount int64           `json:"tasks_count"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  *time.Time      `json:"deleted_at,omitempty"`
}

// ProjectMemberDTO represents a member and when they joined
type ProjectMemberDTO struct {
	User     UserBriefDTO `json:"user"`
	JoinedAt time.Time    `json:"joined_at"`
}

// ProjectDetailDTO adds members and the active tasks
type ProjectDetailDTO struct {
	ProjectDTO
	Members []ProjectMemberDTO `json:"members"`
	Tasks   []TaskDTO          `json:"tasks"`
}

func ToProjectBriefDTO(project models.Project) ProjectBriefDTO {
	return ProjectBriefDTO{ID: project.ID, Name: project.Name}
}

// ToProjectDTO requires Company and Author to be preloaded
func ToProjectDTO(project models.Project, tasksCount int64) ProjectDTO {
	return ProjectDTO{
		ID:         project.ID,
		Name:       project.Name,
		Company:    ToCompanyBriefDTO(project.Company),
		Author:     ToUserBriefDTO(project.Author),
		TasksCount: tasksCount,
		CreatedAt:  project.CreatedAt,
		UpdatedAt:  project.UpdatedAt,
		DeletedAt:  project.DeletedAtTime(),
	}
}

// ToProjectMemberDTO converts a member row with its user preloaded
func ToProjectMemberDTO(member models.ProjectMember) ProjectMemberDTO {
	return ProjectMemberDTO{
		User:     ToUserBriefDTO(member.User),
		JoinedAt: member.JoinedAt,
	}
}

// ToProjectDetailDTO converts a project with members and its active tasks
func ToProjectDetailDTO(project models.Project, tasks []models.Task, today time.Time) ProjectDetailDTO {
	return ProjectDetailDTO{
		ProjectDTO: ToProjectDTO(project, int64(len(tasks))),
		Members:    mapSlice(project.Members, ToProjectMemberDTO),
		Tasks:      ToTaskDTOs(tasks, today),
	}
}
