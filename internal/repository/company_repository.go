package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-tracker-api/internal/database"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/utils"
	"gorm.io/gorm"
)

// GormCompanyRepository is a GORM implementation of CompanyRepository
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new CompanyRepository
func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &GormCompanyRepository{db: db}
}

func (r *GormCompanyRepository) Create(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Omit("Projects").Create(company).Error
}

func (r *GormCompanyRepository) FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.Company, error) {
	var company models.Company
	err := r.db.WithContext(ctx).
		Scopes(database.WithDeleted(includeDeleted)).
		Preload("Projects", func(db *gorm.DB) *gorm.DB {
			return db.Scopes(database.Newest("projects"))
		}).
		First(&company, id).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *GormCompanyRepository) List(ctx context.Context, includeDeleted bool) utils.Source[models.Company] {
	query := r.db.WithContext(ctx).
		Model(&models.Company{}).
		Scopes(database.WithDeleted(includeDeleted), database.Newest("companies"))
	return database.NewQuerySource[models.Company](query)
}

func (r *GormCompanyRepository) Update(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Omit("Projects").Save(company).Error
}

func (r *GormCompanyRepository) CountProjects(ctx context.Context, companyIDs []uint64) (map[uint64]int64, error) {
	return countBy(ctx, r.db, &models.Project{}, "company_id", companyIDs)
}

func (r *GormCompanyRepository) SoftDelete(ctx context.Context, id uint64, at time.Time, cascade bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.SoftDelete(tx, &models.Company{}, id, at); err != nil {
			return err
		}
		if !cascade {
			return nil
		}

		var projectIDs []uint64
		if err := tx.Model(&models.Project{}).Where("company_id = ?", id).Pluck("id", &projectIDs).Error; err != nil {
			return err
		}
		return softDeleteProjectTree(tx, projectIDs, at)
	})
}

func (r *GormCompanyRepository) Restore(ctx context.Context, id uint64) error {
	return database.Restore(r.db.WithContext(ctx), &models.Company{}, id)
}

// softDeleteProjectTree marks the given active projects and all their active
// tasks deleted.
func softDeleteProjectTree(tx *gorm.DB, projectIDs []uint64, at time.Time) error {
	if len(projectIDs) == 0 {
		return nil
	}
	if _, err := database.SoftDeleteWhere(tx, &models.Task{}, at, "project_id IN ?", projectIDs); err != nil {
		return err
	}
	_, err := database.SoftDeleteWhere(tx, &models.Project{}, at, "id IN ?", projectIDs)
	return err
}

type groupCount struct {
	GroupKey uint64
	Total    int64
}

// countBy counts active rows of model grouped by column for the given keys.
// Keys without rows are reported as zero.
func countBy(ctx context.Context, db *gorm.DB, model interface{}, column string, keys []uint64) (map[uint64]int64, error) {
	counts := make(map[uint64]int64, len(keys))
	if len(keys) == 0 {
		return counts, nil
	}
	for _, k := range keys {
		counts[k] = 0
	}

	var rows []groupCount
	err := db.WithContext(ctx).
		Model(model).
		Select(column + " AS group_key, COUNT(*) AS total").
		Where(column+" IN ?", keys).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.GroupKey] = row.Total
	}
	return counts, nil
}
