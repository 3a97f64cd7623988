package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/project-tracker-api/internal/constants"
	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
	"github.com/yukikurage/project-tracker-api/internal/events"
	"github.com/yukikurage/project-tracker-api/internal/filters"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/permissions"
	"github.com/yukikurage/project-tracker-api/internal/repository"
	"github.com/yukikurage/project-tracker-api/internal/utils"
	"go.uber.org/zap"
)

var (
	ErrParentOtherProject     = errors.New("parent task belongs to another project")
	ErrParentCycle            = errors.New("task cannot be its own ancestor")
	ErrAssigneeNotParticipant = errors.New("assignee is not a member of the project")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// TaskService handles task business logic
type TaskService struct {
	base
	cascade   bool
	aiService *AIService
}

// NewTaskService creates a new TaskService. aiService may be nil when no API
// key is configured.
func NewTaskService(store repository.Store, publisher events.Publisher, logger *zap.Logger, cascade bool, aiService *AIService) *TaskService {
	return &TaskService{
		base:      newBase(store, publisher, logger, "task_service"),
		cascade:   cascade,
		aiService: aiService,
	}
}

// Today is the day the service evaluates overdue against.
func (s *TaskService) Today() time.Time {
	return s.today()
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Filters        filters.Pipeline
	IncludeDeleted bool
	Page           utils.PageParams
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Category    string
	Status      *int
	ProjectID   uint64
	ParentID    *uint64
	Deadline    *time.Time
	AssigneeIDs []uint64
}

// UpdateTaskInput represents input for updating a task. The project cannot
// change.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Category      *string
	Status        *int
	ParentID      *uint64
	ClearParent   bool
	Deadline      *time.Time
	ClearDeadline bool
	AssigneeIDs   *[]uint64
}

// List returns tasks in projects visible to the actor, newest first.
func (s *TaskService) List(ctx context.Context, actor *models.User, input ListTasksInput) (utils.Page[models.Task], error) {
	query := repository.TaskQuery{
		IncludeDeleted: includeDeleted(actor, input.IncludeDeleted),
		Filters:        input.Filters,
		Today:          s.today(),
	}
	if !actor.IsSuperuser {
		query.VisibleTo = &actor.ID
	}

	page, err := utils.Paginate(ctx, s.store.Tasks().List(ctx, query), input.Page)
	if err != nil {
		return utils.Page[models.Task]{}, fmt.Errorf("failed to list tasks: %w", err)
	}
	return page, nil
}

// Get returns a task with its parent, subtasks and assignees.
func (s *TaskService) Get(ctx context.Context, actor *models.User, id uint64, withDeleted bool) (*models.Task, error) {
	return s.load(ctx, actor, id, includeDeleted(actor, withDeleted), permissions.OpRead)
}

// Create creates a task in a project the actor participates in.
func (s *TaskService) Create(ctx context.Context, actor *models.User, input CreateTaskInput) (*models.Task, error) {
	fields := fieldErrors{}
	task := &models.Task{
		Title:       fields.text("title", input.Title, constants.MaxTitleLength),
		Description: strings.TrimSpace(input.Description),
		Category:    fields.text("category", input.Category, constants.MaxCategoryLength),
		Status:      models.TaskStatusTodo,
		ProjectID:   input.ProjectID,
		ParentID:    input.ParentID,
	}
	if input.ProjectID == 0 {
		fields.add("project_id", "This field is required")
	}
	if input.Status != nil {
		task.Status = parseStatus(fields, *input.Status)
	}
	if input.Deadline != nil {
		deadline := models.DateOf(*input.Deadline)
		task.Deadline = &deadline
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	project, err := s.store.Projects().FindByID(ctx, input.ProjectID, false)
	if err != nil {
		return nil, referenceError(err, "project_id", "project")
	}
	if err := permissions.ForProject(actor, project, permissions.OpCreateTask).Err("project"); err != nil {
		return nil, err
	}

	assigneeIDs := uniqueIDs(input.AssigneeIDs)
	now := s.now()
	for _, userID := range assigneeIDs {
		task.Assignments = append(task.Assignments, models.TaskAssignment{UserID: userID, AssignedAt: now})
	}

	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if task.ParentID != nil {
			if err := checkParent(ctx, tx.Tasks(), 0, project.ID, *task.ParentID); err != nil {
				return err
			}
		}
		if err := checkAssignees(ctx, tx.Users(), project, assigneeIDs); err != nil {
			return err
		}
		if err := tx.Tasks().Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events.TaskCreated, task.ID, actor, map[string]interface{}{
		"project_id":   task.ProjectID,
		"assignee_ids": assigneeIDs,
	})
	return s.reload(ctx, task.ID)
}

// Update changes the task's fields and, when given, its assignees.
func (s *TaskService) Update(ctx context.Context, actor *models.User, id uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.load(ctx, actor, id, false, permissions.OpUpdate)
	if err != nil {
		return nil, err
	}
	previousStatus := task.Status

	fields := fieldErrors{}
	if input.Title != nil {
		task.Title = fields.text("title", *input.Title, constants.MaxTitleLength)
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		task.Category = fields.text("category", *input.Category, constants.MaxCategoryLength)
	}
	if input.Status != nil {
		task.Status = parseStatus(fields, *input.Status)
	}
	switch {
	case input.ClearDeadline:
		task.Deadline = nil
	case input.Deadline != nil:
		deadline := models.DateOf(*input.Deadline)
		task.Deadline = &deadline
	}
	switch {
	case input.ClearParent:
		task.ParentID = nil
		task.Parent = nil
	case input.ParentID != nil:
		task.ParentID = input.ParentID
		task.Parent = nil
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if input.ParentID != nil && !input.ClearParent {
			if err := checkParent(ctx, tx.Tasks(), task.ID, task.ProjectID, *input.ParentID); err != nil {
				return err
			}
		}
		if input.AssigneeIDs != nil {
			assigneeIDs := uniqueIDs(*input.AssigneeIDs)
			if err := checkAssignees(ctx, tx.Users(), &task.Project, assigneeIDs); err != nil {
				return err
			}
			if err := tx.Tasks().ReplaceAssignees(ctx, task.ID, assigneeIDs, s.now()); err != nil {
				return fmt.Errorf("failed to replace assignees: %w", err)
			}
		}
		if err := tx.Tasks().Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events.TaskUpdated, task.ID, actor, nil)
	if task.Status != previousStatus {
		s.publishStatusChange(task, actor, previousStatus)
	}
	return s.reload(ctx, task.ID)
}

// UpdateStatus changes only the status.
func (s *TaskService) UpdateStatus(ctx context.Context, actor *models.User, id uint64, status int) (*models.Task, error) {
	fields := fieldErrors{}
	newStatus := parseStatus(fields, status)
	if err := fields.err(); err != nil {
		return nil, err
	}

	task, err := s.load(ctx, actor, id, false, permissions.OpUpdate)
	if err != nil {
		return nil, err
	}

	previous := task.Status
	task.Status = newStatus
	if err := s.store.Tasks().Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	if previous != newStatus {
		s.publishStatusChange(task, actor, previous)
	}
	return task, nil
}

// ReplaceAssignees sets the assignee list. Users that stay assigned keep
// their original assignment time.
func (s *TaskService) ReplaceAssignees(ctx context.Context, actor *models.User, id uint64, userIDs []uint64) (*models.Task, error) {
	task, err := s.load(ctx, actor, id, false, permissions.OpUpdate)
	if err != nil {
		return nil, err
	}

	assigneeIDs := uniqueIDs(userIDs)
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if err := checkAssignees(ctx, tx.Users(), &task.Project, assigneeIDs); err != nil {
			return err
		}
		if err := tx.Tasks().ReplaceAssignees(ctx, task.ID, assigneeIDs, s.now()); err != nil {
			return fmt.Errorf("failed to replace assignees: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events.TaskAssigneesChanged, task.ID, actor, map[string][]uint64{"assignee_ids": assigneeIDs})
	return s.reload(ctx, task.ID)
}

// Delete soft-deletes the task.
func (s *TaskService) Delete(ctx context.Context, actor *models.User, id uint64) error {
	if _, err := s.load(ctx, actor, id, false, permissions.OpDelete); err != nil {
		return err
	}

	if err := s.store.Tasks().SoftDelete(ctx, id, s.now(), s.cascade); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.publish(events.TaskDeleted, id, actor, map[string]bool{"cascade": s.cascade})
	return nil
}

// Restore clears the deletion mark. Subtasks deleted with it stay deleted.
func (s *TaskService) Restore(ctx context.Context, actor *models.User, id uint64) (*models.Task, error) {
	if _, err := s.load(ctx, actor, id, true, permissions.OpRestore); err != nil {
		return nil, err
	}

	if err := s.store.Tasks().Restore(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to restore task: %w", err)
	}

	s.publish(events.TaskRestored, id, actor, nil)
	return s.reload(ctx, id)
}

// GenerateDraftsInput represents input for AI task drafting
type GenerateDraftsInput struct {
	ProjectID uint64
	Text      string
}

// GenerateDrafts asks the AI for task drafts for a project. Drafts are not
// saved.
func (s *TaskService) GenerateDrafts(ctx context.Context, actor *models.User, input GenerateDraftsInput) ([]GeneratedTask, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}

	fields := fieldErrors{}
	text := fields.text("text", input.Text, constants.MaxAIInputLength)
	if err := fields.err(); err != nil {
		return nil, err
	}

	project, err := s.store.Projects().FindByID(ctx, input.ProjectID, false)
	if err != nil {
		return nil, lookupError(err, ErrProjectNotFound, "project")
	}
	if err := permissions.ForProject(actor, project, permissions.OpCreateTask).Err("project"); err != nil {
		return nil, err
	}

	aiTasks, err := s.aiService.GenerateTasksFromText(ctx, project.Name, text, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}
	if len(aiTasks) == 0 {
		return nil, &apierrors.DomainError{Kind: apierrors.KindValidation, Message: "AI did not generate any tasks", Err: ErrAINoTasksGenerated}
	}

	today := s.today()
	drafts := make([]GeneratedTask, 0, len(aiTasks))
	for _, aiTask := range aiTasks {
		aiTask.Title = strings.TrimSpace(aiTask.Title)
		if aiTask.Title == "" {
			continue
		}
		aiTask.Category = strings.TrimSpace(aiTask.Category)
		if aiTask.Category == "" {
			aiTask.Category = defaultDraftCategory
		}
		if aiTask.Deadline != nil {
			deadline := models.DateOf(*aiTask.Deadline)
			if deadline.Before(today) {
				aiTask.Deadline = nil
			} else {
				aiTask.Deadline = &deadline
			}
		}

		drafts = append(drafts, aiTask)
		if len(drafts) == constants.MaxAIGeneratedTasks {
			break
		}
	}

	if len(drafts) == 0 {
		return nil, &apierrors.DomainError{Kind: apierrors.KindValidation, Message: "No valid tasks could be created from AI output", Err: ErrAINoValidTasks}
	}

	s.logger.Info("generated task drafts",
		zap.Uint64("project_id", project.ID),
		zap.Int("received", len(aiTasks)),
		zap.Int("kept", len(drafts)),
	)
	return drafts, nil
}

func (s *TaskService) load(ctx context.Context, actor *models.User, id uint64, withDeleted bool, op permissions.Operation) (*models.Task, error) {
	task, err := s.store.Tasks().FindByID(ctx, id, withDeleted)
	if err != nil {
		return nil, lookupError(err, ErrTaskNotFound, "task")
	}
	if err := permissions.ForTask(actor, task, op).Err("task"); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) reload(ctx context.Context, id uint64) (*models.Task, error) {
	task, err := s.store.Tasks().FindByID(ctx, id, false)
	if err != nil {
		return nil, lookupError(err, ErrTaskNotFound, "task")
	}
	return task, nil
}

func (s *TaskService) publishStatusChange(task *models.Task, actor *models.User, from models.TaskStatus) {
	s.publish(events.TaskStatusChanged, task.ID, actor, map[string]int{
		"from": int(from),
		"to":   int(task.Status),
	})
}

func parseStatus(fields fieldErrors, value int) models.TaskStatus {
	status, err := models.ParseTaskStatus(value)
	if err != nil {
		fields.add("status", fmt.Sprintf("%d is not a valid choice", value))
	}
	return status
}

// checkParent requires the parent to be an active task of the same project
// that is neither the task itself nor one of its descendants. taskID is 0
// for a task that does not exist yet.
func checkParent(ctx context.Context, tasks repository.TaskRepository, taskID, projectID, parentID uint64) error {
	if taskID != 0 && parentID == taskID {
		return &apierrors.DomainError{
			Kind:    apierrors.KindValidation,
			Message: "A task cannot be its own parent",
			Fields:  map[string]string{"parent_id": "A task cannot be its own parent"},
			Err:     ErrParentCycle,
		}
	}

	parent, err := tasks.FindByID(ctx, parentID, false)
	if err != nil {
		return referenceError(err, "parent_id", "parent task")
	}
	if parent.ProjectID != projectID {
		return &apierrors.DomainError{
			Kind:    apierrors.KindValidation,
			Message: "Parent task must belong to the same project",
			Fields:  map[string]string{"parent_id": "Parent task must belong to the same project"},
			Err:     ErrParentOtherProject,
		}
	}
	if taskID == 0 {
		return nil
	}

	ancestors, err := tasks.AncestorIDs(ctx, parentID)
	if err != nil {
		return fmt.Errorf("failed to resolve parent chain: %w", err)
	}
	for _, id := range ancestors {
		if id == taskID {
			return &apierrors.DomainError{
				Kind:    apierrors.KindValidation,
				Message: "A task cannot be moved under its own subtask",
				Fields:  map[string]string{"parent_id": "A task cannot be moved under its own subtask"},
				Err:     ErrParentCycle,
			}
		}
	}
	return nil
}

// checkAssignees requires every assignee to be an active user taking part in
// the project. project must have Members loaded.
func checkAssignees(ctx context.Context, users repository.UserRepository, project *models.Project, userIDs []uint64) error {
	if err := ensureActiveUsers(ctx, users, "assignee_ids", userIDs); err != nil {
		return err
	}
	for _, id := range userIDs {
		if !project.IsParticipant(id) {
			message := fmt.Sprintf("User %d is not a member of the project", id)
			return &apierrors.DomainError{
				Kind:    apierrors.KindValidation,
				Message: message,
				Fields:  map[string]string{"assignee_ids": message},
				Err:     ErrAssigneeNotParticipant,
			}
		}
	}
	return nil
}
