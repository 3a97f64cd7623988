package dto

import (
	"time"

	"github.com/yukikurage/project-tracker-api/internal/models"
)

// CompanyBriefDTO is the abbreviated company shown inside projects
type CompanyBriefDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// CompanyDTO represents a company in list responses
type CompanyDTO struct {
	ID            uint64     `json:"id"`
	Name          string     `json:"name"`
	ProjectsCount int64      `json:"projects_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// CompanyDetailDTO adds the active projects
type CompanyDetailDTO struct {
	CompanyDTO
	Projects []ProjectBriefDTO `json:"projects"`
}

func ToCompanyBriefDTO(company models.Company) CompanyBriefDTO {
	return CompanyBriefDTO{ID: company.ID, Name: company.Name}
}

// ToCompanyDTO converts a Company model with its project count
func ToCompanyDTO(company models.Company, projectsCount int64) CompanyDTO {
	return CompanyDTO{
		ID:            company.ID,
		Name:          company.Name,
		ProjectsCount: projectsCount,
		CreatedAt:     company.CreatedAt,
		UpdatedAt:     company.UpdatedAt,
		DeletedAt:     company.DeletedAtTime(),
	}
}

// ToCompanyDetailDTO requires Projects to be preloaded
func ToCompanyDetailDTO(company models.Company) CompanyDetailDTO {
	return CompanyDetailDTO{
		CompanyDTO: ToCompanyDTO(company, int64(len(company.Projects))),
		Projects:   mapSlice(company.Projects, ToProjectBriefDTO),
	}
}
