package services

import (
	"context"
	"errors"
	"fmt"

	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
	"github.com/yukikurage/project-tracker-api/internal/events"
	"github.com/yukikurage/project-tracker-api/internal/filters"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/permissions"
	"github.com/yukikurage/project-tracker-api/internal/repository"
	"github.com/yukikurage/project-tracker-api/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserHasProjects   = errors.New("user still authors active projects")
	ErrWrongPassword     = errors.New("old password is incorrect")
	ErrUserListForbidden = errors.New("only staff can list users")
)

// UserService handles account management
type UserService struct {
	base
}

// NewUserService creates a new UserService
func NewUserService(store repository.Store, publisher events.Publisher, logger *zap.Logger) *UserService {
	return &UserService{base: newBase(store, publisher, logger, "user_service")}
}

// UpdateUserInput represents input for updating a profile. IsActive and
// IsStaff are only honoured for staff actors.
type UpdateUserInput struct {
	FullName *string
	IsActive *bool
	IsStaff  *bool
}

// ChangePasswordInput represents input for a password change
type ChangePasswordInput struct {
	OldPassword string
	NewPassword string
}

// UserSummary is the dashboard view of a user's assigned tasks.
type UserSummary struct {
	UserID  uint64
	Counts  map[models.TaskStatus]int64
	Overdue int64
	Total   int64
}

// List returns every user ordered by id. Staff only.
func (s *UserService) List(ctx context.Context, actor *models.User, withDeleted bool, params utils.PageParams) (utils.Page[models.User], error) {
	if !actor.IsAdmin() {
		return utils.Page[models.User]{}, &apierrors.DomainError{
			Kind:    apierrors.KindForbidden,
			Message: "Only staff can list users",
			Err:     ErrUserListForbidden,
		}
	}

	page, err := utils.Paginate(ctx, s.store.Users().List(ctx, includeDeleted(actor, withDeleted)), params)
	if err != nil {
		return utils.Page[models.User]{}, fmt.Errorf("failed to list users: %w", err)
	}
	return page, nil
}

// Get returns a user with the active projects they take part in.
func (s *UserService) Get(ctx context.Context, actor *models.User, id uint64, withDeleted bool) (*models.User, []models.Project, error) {
	user, err := s.find(ctx, id, includeDeleted(actor, withDeleted))
	if err != nil {
		return nil, nil, err
	}
	if err := permissions.ForUser(actor, user, permissions.OpRead).Err("user"); err != nil {
		return nil, nil, err
	}

	projects, err := s.store.Projects().ListForUser(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load user projects: %w", err)
	}
	return user, projects, nil
}

// Update changes the profile. Users edit themselves, staff edit anyone.
func (s *UserService) Update(ctx context.Context, actor *models.User, id uint64, input UpdateUserInput) (*models.User, error) {
	user, err := s.find(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := permissions.ForUser(actor, user, permissions.OpUpdate).Err("user"); err != nil {
		return nil, err
	}

	fields := fieldErrors{}
	if input.FullName != nil {
		user.FullName = validateFullName(fields, *input.FullName, user.Email)
	}
	if input.IsActive != nil || input.IsStaff != nil {
		if !actor.IsAdmin() {
			return nil, apierrors.NewPermissionError("only staff can change account flags")
		}
		if input.IsActive != nil {
			user.IsActive = *input.IsActive
		}
		if input.IsStaff != nil {
			user.IsStaff = *input.IsStaff
		}
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.publish(events.UserUpdated, user.ID, actor, nil)
	return user, nil
}

// ChangePassword sets a new password. Staff may skip the old password.
func (s *UserService) ChangePassword(ctx context.Context, actor *models.User, id uint64, input ChangePasswordInput) error {
	user, err := s.find(ctx, id, false)
	if err != nil {
		return err
	}
	if err := permissions.ForUser(actor, user, permissions.OpUpdate).Err("user"); err != nil {
		return err
	}

	fields := fieldErrors{}
	validatePassword(fields, "new_password", input.NewPassword)
	if err := fields.err(); err != nil {
		return err
	}

	if !actor.IsAdmin() {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)); err != nil {
			return &apierrors.DomainError{
				Kind:    apierrors.KindValidation,
				Message: "Old password is incorrect",
				Fields:  map[string]string{"old_password": "Old password is incorrect"},
				Err:     ErrWrongPassword,
			}
		}
	}

	hash, err := hashPassword(input.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.store.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password changed", zap.Uint64("user_id", user.ID), zap.Uint64("actor_id", actor.ID))
	return nil
}

// Delete soft-deletes the account. Users who still author active projects
// are protected.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id uint64) error {
	user, err := s.find(ctx, id, false)
	if err != nil {
		return err
	}
	if err := permissions.ForUser(actor, user, permissions.OpDelete).Err("user"); err != nil {
		return err
	}

	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		authored, err := tx.Projects().CountAuthoredBy(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to count authored projects: %w", err)
		}
		if authored > 0 {
			message := fmt.Sprintf("User authors %d active project(s) and cannot be deleted", authored)
			return &apierrors.DomainError{Kind: apierrors.KindReferentialViolation, Message: message, Err: ErrUserHasProjects}
		}
		if err := tx.Users().SoftDelete(ctx, user.ID, s.now()); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("user deleted", zap.Uint64("user_id", user.ID), zap.Uint64("actor_id", actor.ID))
	s.publish(events.UserDeleted, user.ID, actor, nil)
	return nil
}

// Restore reactivates a deleted account. Staff only.
func (s *UserService) Restore(ctx context.Context, actor *models.User, id uint64) (*models.User, error) {
	user, err := s.find(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if err := permissions.ForUser(actor, user, permissions.OpRestore).Err("user"); err != nil {
		return nil, err
	}

	if err := s.store.Users().Restore(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to restore user: %w", err)
	}

	s.publish(events.UserRestored, id, actor, nil)
	return s.find(ctx, id, false)
}

// Tasks lists the tasks assigned to a user. Other users only see tasks in
// projects they can read themselves.
func (s *UserService) Tasks(ctx context.Context, actor *models.User, id uint64, pipeline filters.Pipeline, params utils.PageParams) (utils.Page[models.Task], error) {
	if _, err := s.find(ctx, id, false); err != nil {
		return utils.Page[models.Task]{}, err
	}

	query := repository.TaskQuery{
		Filters: append(filters.Pipeline{filters.AssigneeIs(id)}, pipeline...),
		Today:   s.today(),
	}
	if !actor.IsSuperuser && actor.ID != id {
		query.VisibleTo = &actor.ID
	}

	page, err := utils.Paginate(ctx, s.store.Tasks().List(ctx, query), params)
	if err != nil {
		return utils.Page[models.Task]{}, fmt.Errorf("failed to list user tasks: %w", err)
	}
	return page, nil
}

// Summary counts the user's active assigned tasks per status.
func (s *UserService) Summary(ctx context.Context, actor *models.User, id uint64) (*UserSummary, error) {
	user, err := s.find(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := permissions.ForUser(actor, user, permissions.OpRead).Err("user"); err != nil {
		return nil, err
	}

	counts, overdue, err := s.store.Tasks().StatusCounts(ctx, user.ID, s.today())
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	summary := &UserSummary{UserID: user.ID, Counts: counts, Overdue: overdue}
	for _, n := range counts {
		summary.Total += n
	}
	return summary, nil
}

func (s *UserService) find(ctx context.Context, id uint64, withDeleted bool) (*models.User, error) {
	user, err := s.store.Users().FindByID(ctx, id, withDeleted)
	if err != nil {
		return nil, lookupError(err, ErrUserNotFound, "user")
	}
	return user, nil
}
