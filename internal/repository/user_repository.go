package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-tracker-api/internal/database"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/utils"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user. IsActive is written explicitly so a false value
// does not fall back to the column default.
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	active := user.IsActive
	if err := r.db.WithContext(ctx).Omit("AuthoredProjects", "Memberships", "Assignments").Create(user).Error; err != nil {
		return err
	}
	if !active {
		user.IsActive = false
		return r.db.WithContext(ctx).Model(user).UpdateColumn("is_active", false).Error
	}
	return nil
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Scopes(database.WithDeleted(includeDeleted)).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email regardless of case
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string, includeDeleted bool) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Scopes(database.WithDeleted(includeDeleted)).
		Where("LOWER(email) = LOWER(?)", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) List(ctx context.Context, includeDeleted bool) utils.Source[models.User] {
	query := r.db.WithContext(ctx).
		Model(&models.User{}).
		Scopes(database.WithDeleted(includeDeleted)).
		Order("users.id ASC")
	return database.NewQuerySource[models.User](query)
}

func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("AuthoredProjects", "Memberships", "Assignments").Save(user).Error
}

func (r *GormUserRepository) CountActiveByIDs(ctx context.Context, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Count(&count).Error
	return count, err
}

func (r *GormUserRepository) SoftDelete(ctx context.Context, id uint64, at time.Time) error {
	return database.SoftDelete(r.db.WithContext(ctx), &models.User{}, id, at)
}

func (r *GormUserRepository) Restore(ctx context.Context, id uint64) error {
	return database.Restore(r.db.WithContext(ctx), &models.User{}, id)
}
