package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-tracker-api/internal/database"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/utils"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create inserts the project and the member rows it carries.
func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := project.Members
		if err := tx.Omit("Company", "Author", "Members", "Tasks").Create(project).Error; err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		for i := range members {
			members[i].ProjectID = project.ID
		}
		if err := tx.Omit("Project", "User").Create(&members).Error; err != nil {
			return err
		}
		project.Members = members
		return nil
	})
}

func (r *GormProjectRepository) FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Scopes(database.WithDeleted(includeDeleted)).
		Preload("Company", database.Unscoped).
		Preload("Author", database.Unscoped).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("project_members.joined_at ASC")
		}).
		Preload("Members.User", database.Unscoped).
		First(&project, id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *GormProjectRepository) List(ctx context.Context, visibleTo *uint64, includeDeleted bool) utils.Source[models.Project] {
	query := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Scopes(database.WithDeleted(includeDeleted), database.Newest("projects")).
		Preload("Company", database.Unscoped).
		Preload("Author", database.Unscoped)
	if visibleTo != nil {
		query = query.Scopes(participantOf(*visibleTo))
	}
	return database.NewQuerySource[models.Project](query)
}

func (r *GormProjectRepository) Update(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit("Company", "Author", "Members", "Tasks").Save(project).Error
}

func (r *GormProjectRepository) ReplaceMembers(ctx context.Context, projectID uint64, userIDs []uint64, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []uint64
		if err := tx.Model(&models.ProjectMember{}).Where("project_id = ?", projectID).Pluck("user_id", &current).Error; err != nil {
			return err
		}

		removed, added := diffIDs(current, userIDs)
		if len(removed) > 0 {
			if err := tx.Where("project_id = ? AND user_id IN ?", projectID, removed).Delete(&models.ProjectMember{}).Error; err != nil {
				return err
			}
		}
		if len(added) == 0 {
			return nil
		}

		members := make([]models.ProjectMember, len(added))
		for i, userID := range added {
			members[i] = models.ProjectMember{ProjectID: projectID, UserID: userID, JoinedAt: at}
		}
		return tx.Omit("Project", "User").Create(&members).Error
	})
}

func (r *GormProjectRepository) CountTasks(ctx context.Context, projectIDs []uint64) (map[uint64]int64, error) {
	return countBy(ctx, r.db, &models.Task{}, "project_id", projectIDs)
}

func (r *GormProjectRepository) CountAuthoredBy(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Project{}).Where("author_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *GormProjectRepository) ListForUser(ctx context.Context, userID uint64) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Scopes(participantOf(userID), database.Newest("projects")).
		Preload("Company", database.Unscoped).
		Find(&projects).Error
	return projects, err
}

func (r *GormProjectRepository) SoftDelete(ctx context.Context, id uint64, at time.Time, cascade bool) error {
	if !cascade {
		return database.SoftDelete(r.db.WithContext(ctx), &models.Project{}, id, at)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.SoftDelete(tx, &models.Project{}, id, at); err != nil {
			return err
		}
		_, err := database.SoftDeleteWhere(tx, &models.Task{}, at, "project_id = ?", id)
		return err
	})
}

func (r *GormProjectRepository) Restore(ctx context.Context, id uint64) error {
	return database.Restore(r.db.WithContext(ctx), &models.Project{}, id)
}

// participantOf keeps projects the user authors or is a member of.
func participantOf(userID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"(projects.author_id = ? OR EXISTS (SELECT 1 FROM project_members WHERE project_members.project_id = projects.id AND project_members.user_id = ?))",
			userID, userID,
		)
	}
}

// diffIDs returns the ids only in current and the ids only in wanted.
// Duplicates in wanted are collapsed.
func diffIDs(current, wanted []uint64) (removed, added []uint64) {
	keep := make(map[uint64]bool, len(wanted))
	for _, id := range wanted {
		keep[id] = true
	}
	have := make(map[uint64]bool, len(current))
	for _, id := range current {
		have[id] = true
		if !keep[id] {
			removed = append(removed, id)
		}
	}
	for _, id := range wanted {
		if !have[id] {
			added = append(added, id)
			have[id] = true
		}
	}
	return removed, added
}
