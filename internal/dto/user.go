package dto

import (
	"time"

	"github.com/yukikurage/project-tracker-api/internal/models"
)

// UserBriefDTO is the abbreviated user shown inside other resources
type UserBriefDTO struct {
	ID       uint64 `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// UserDTO represents a user in API responses. The password hash is never
// included.
type UserDTO struct {
	ID          uint64     `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	IsActive    bool       `json:"is_active"`
	IsStaff     bool       `json:"is_staff"`
	IsSuperuser bool       `json:"is_superuser"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// UserDetailDTO adds the projects the user takes part in
type UserDetailDTO struct {
	UserDTO
	Projects []ProjectBriefDTO `json:"projects"`
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	ID       uint64 `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
}

// StatusCountDTO is one row of the dashboard summary
type StatusCountDTO struct {
	Status models.StatusView `json:"status"`
	Count  int64             `json:"count"`
}

// UserSummaryDTO is the dashboard view of a user's assigned tasks
type UserSummaryDTO struct {
	UserID   uint64           `json:"user_id"`
	Total    int64            `json:"total"`
	Overdue  int64            `json:"overdue"`
	ByStatus []StatusCountDTO `json:"by_status"`
}

// ToUserBriefDTO converts a User model to UserBriefDTO
func ToUserBriefDTO(user models.User) UserBriefDTO {
	return UserBriefDTO{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
	}
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		IsActive:    user.IsActive,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
		DeletedAt:   user.DeletedAtTime(),
	}
}

// ToUserDetailDTO converts a user and their projects
func ToUserDetailDTO(user models.User, projects []models.Project) UserDetailDTO {
	return UserDetailDTO{
		UserDTO:  ToUserDTO(user),
		Projects: mapSlice(projects, ToProjectBriefDTO),
	}
}

// ToUserSummaryDTO lists every status in order, including empty ones
func ToUserSummaryDTO(userID uint64, counts map[models.TaskStatus]int64, overdue, total int64) UserSummaryDTO {
	rows := make([]StatusCountDTO, 0, len(models.TaskStatuses()))
	for _, status := range models.TaskStatuses() {
		rows = append(rows, StatusCountDTO{Status: status.View(), Count: counts[status]})
	}
	return UserSummaryDTO{
		UserID:   userID,
		Total:    total,
		Overdue:  overdue,
		ByStatus: rows,
	}
}

// mapSlice converts every element and never returns nil, so empty lists
// serialize as [].
func mapSlice[T, U any](items []T, fn func(T) U) []U {
	out := make([]U, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return out
}
