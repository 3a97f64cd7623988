package services

import (
	"context"
	"fmt"

	"github.com/yukikurage/project-tracker-api/internal/constants"
	"github.com/yukikurage/project-tracker-api/internal/events"
	"github.com/yukikurage/project-tracker-api/internal/filters"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/permissions"
	"github.com/yukikurage/project-tracker-api/internal/repository"
	"github.com/yukikurage/project-tracker-api/internal/utils"
	"go.uber.org/zap"
)

// ProjectService handles project business logic
type ProjectService struct {
	base
	cascade bool
}

// NewProjectService creates a new ProjectService. With cascade, deleting a
// project also deletes its tasks.
func NewProjectService(store repository.Store, publisher events.Publisher, logger *zap.Logger, cascade bool) *ProjectService {
	return &ProjectService{
		base:    newBase(store, publisher, logger, "project_service"),
		cascade: cascade,
	}
}

// ProjectListItem is a project with its active task count.
type ProjectListItem struct {
	Project    models.Project
	TasksCount int64
}

// ProjectInput represents input for creating a project
type ProjectInput struct {
	Name      string
	CompanyID uint64
	MemberIDs []uint64
}

// UpdateProjectInput represents input for updating a project
type UpdateProjectInput struct {
	Name      *string
	CompanyID *uint64
}

// List returns the projects the actor authors or belongs to. Superusers see
// every project.
func (s *ProjectService) List(ctx context.Context, actor *models.User, withDeleted bool, params utils.PageParams) (utils.Page[ProjectListItem], error) {
	var visibleTo *uint64
	if !actor.IsSuperuser {
		visibleTo = &actor.ID
	}

	src := s.store.Projects().List(ctx, visibleTo, includeDeleted(actor, withDeleted))
	page, err := utils.Paginate(ctx, src, params)
	if err != nil {
		return utils.Page[ProjectListItem]{}, fmt.Errorf("failed to list projects: %w", err)
	}

	ids := make([]uint64, len(page.Data))
	for i, p := range page.Data {
		ids[i] = p.ID
	}
	counts, err := s.store.Projects().CountTasks(ctx, ids)
	if err != nil {
		return utils.Page[ProjectListItem]{}, fmt.Errorf("failed to count tasks: %w", err)
	}

	return utils.MapPage(page, func(p models.Project) ProjectListItem {
		return ProjectListItem{Project: p, TasksCount: counts[p.ID]}
	}), nil
}

// Get returns a project with its members and active tasks.
func (s *ProjectService) Get(ctx context.Context, actor *models.User, id uint64, withDeleted bool) (*models.Project, []models.Task, error) {
	project, err := s.load(ctx, actor, id, withDeleted, permissions.OpRead)
	if err != nil {
		return nil, nil, err
	}

	src := s.store.Tasks().List(ctx, repository.TaskQuery{
		Filters: filters.Pipeline{filters.ProjectIs(id)},
		Today:   s.today(),
	})
	tasks, err := collect(ctx, src)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load project tasks: %w", err)
	}
	return project, tasks, nil
}

// Create creates a project authored by the actor.
func (s *ProjectService) Create(ctx context.Context, actor *models.User, input ProjectInput) (*models.Project, error) {
	fields := fieldErrors{}
	name := fields.text("name", input.Name, constants.MaxNameLength)
	if input.CompanyID == 0 {
		fields.add("company_id", "This field is required")
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	memberIDs := uniqueIDs(input.MemberIDs)
	project := &models.Project{
		Name:      name,
		CompanyID: input.CompanyID,
		AuthorID:  actor.ID,
	}
	now := s.now()
	for _, userID := range memberIDs {
		project.Members = append(project.Members, models.ProjectMember{UserID: userID, JoinedAt: now})
	}

	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Companies().FindByID(ctx, input.CompanyID, false); err != nil {
			return referenceError(err, "company_id", "company")
		}
		if err := ensureActiveUsers(ctx, tx.Users(), "member_ids", memberIDs); err != nil {
			return err
		}
		if err := tx.Projects().Create(ctx, project); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events.ProjectCreated, project.ID, actor, map[string]interface{}{
		"company_id": project.CompanyID,
		"member_ids": memberIDs,
	})
	return s.reload(ctx, project.ID)
}

// Update changes the project's own fields. Author only.
func (s *ProjectService) Update(ctx context.Context, actor *models.User, id uint64, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.load(ctx, actor, id, false, permissions.OpUpdate)
	if err != nil {
		return nil, err
	}

	fields := fieldErrors{}
	if input.Name != nil {
		project.Name = fields.text("name", *input.Name, constants.MaxNameLength)
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	if input.CompanyID != nil && *input.CompanyID != project.CompanyID {
		if _, err := s.store.Companies().FindByID(ctx, *input.CompanyID, false); err != nil {
			return nil, referenceError(err, "company_id", "company")
		}
		project.CompanyID = *input.CompanyID
	}

	if err := s.store.Projects().Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.publish(events.ProjectUpdated, project.ID, actor, nil)
	return s.reload(ctx, project.ID)
}

// ReplaceMembers sets the member list. Author only.
func (s *ProjectService) ReplaceMembers(ctx context.Context, actor *models.User, id uint64, userIDs []uint64) (*models.Project, error) {
	if _, err := s.load(ctx, actor, id, false, permissions.OpManageMembers); err != nil {
		return nil, err
	}

	memberIDs := uniqueIDs(userIDs)
	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if err := ensureActiveUsers(ctx, tx.Users(), "user_ids", memberIDs); err != nil {
			return err
		}
		if err := tx.Projects().ReplaceMembers(ctx, id, memberIDs, s.now()); err != nil {
			return fmt.Errorf("failed to replace members: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events.ProjectMembersChanged, id, actor, map[string][]uint64{"member_ids": memberIDs})
	return s.reload(ctx, id)
}

// Delete soft-deletes the project. Author only.
func (s *ProjectService) Delete(ctx context.Context, actor *models.User, id uint64) error {
	if _, err := s.load(ctx, actor, id, false, permissions.OpDelete); err != nil {
		return err
	}

	if err := s.store.Projects().SoftDelete(ctx, id, s.now(), s.cascade); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.logger.Info("project deleted", zap.Uint64("project_id", id), zap.Uint64("actor_id", actor.ID), zap.Bool("cascade", s.cascade))
	s.publish(events.ProjectDeleted, id, actor, map[string]bool{"cascade": s.cascade})
	return nil
}

// Restore clears the deletion mark. Author only.
func (s *ProjectService) Restore(ctx context.Context, actor *models.User, id uint64) (*models.Project, error) {
	if _, err := s.load(ctx, actor, id, true, permissions.OpRestore); err != nil {
		return nil, err
	}

	if err := s.store.Projects().Restore(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to restore project: %w", err)
	}

	s.publish(events.ProjectRestored, id, actor, nil)
	return s.reload(ctx, id)
}

// Tasks lists the project's tasks through the filter pipeline.
func (s *ProjectService) Tasks(ctx context.Context, actor *models.User, id uint64, pipeline filters.Pipeline, withDeleted bool, params utils.PageParams) (utils.Page[models.Task], error) {
	if _, err := s.load(ctx, actor, id, false, permissions.OpRead); err != nil {
		return utils.Page[models.Task]{}, err
	}

	query := repository.TaskQuery{
		IncludeDeleted: includeDeleted(actor, withDeleted),
		Filters:        append(filters.Pipeline{filters.ProjectIs(id)}, pipeline...),
		Today:          s.today(),
	}
	page, err := utils.Paginate(ctx, s.store.Tasks().List(ctx, query), params)
	if err != nil {
		return utils.Page[models.Task]{}, fmt.Errorf("failed to list tasks: %w", err)
	}
	return page, nil
}

// load fetches the project and applies the permission check for op.
// Soft-deleted projects are only reachable when withDeleted is honoured.
func (s *ProjectService) load(ctx context.Context, actor *models.User, id uint64, withDeleted bool, op permissions.Operation) (*models.Project, error) {
	deleted := withDeleted
	if op == permissions.OpRead {
		deleted = includeDeleted(actor, withDeleted)
	}

	project, err := s.store.Projects().FindByID(ctx, id, deleted)
	if err != nil {
		return nil, lookupError(err, ErrProjectNotFound, "project")
	}
	if err := permissions.ForProject(actor, project, op).Err("project"); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) reload(ctx context.Context, id uint64) (*models.Project, error) {
	project, err := s.store.Projects().FindByID(ctx, id, false)
	if err != nil {
		return nil, lookupError(err, ErrProjectNotFound, "project")
	}
	return project, nil
}

// collect reads every row of a source.
func collect[T any](ctx context.Context, src utils.Source[T]) ([]T, error) {
	total, err := src.Count(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return []T{}, nil
	}
	return src.Slice(ctx, 0, int(total))
}
