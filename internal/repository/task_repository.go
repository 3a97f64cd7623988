package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-tracker-api/internal/database"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/utils"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts the task and the assignment rows it carries.
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignments := task.Assignments
		if err := tx.Omit("Project", "Parent", "Subtasks", "Assignments").Create(task).Error; err != nil {
			return err
		}
		if len(assignments) == 0 {
			return nil
		}
		for i := range assignments {
			assignments[i].TaskID = task.ID
		}
		if err := tx.Omit("Task", "User").Create(&assignments).Error; err != nil {
			return err
		}
		task.Assignments = assignments
		return nil
	})
}

// FindByID finds a task by ID with its relations preloaded
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Scopes(database.WithDeleted(includeDeleted)).
		Preload("Project", database.Unscoped).
		Preload("Project.Members").
		Preload("Parent", database.Unscoped).
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB {
			return db.Scopes(database.Newest("tasks"))
		}).
		Preload("Assignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("task_assignments.assigned_at ASC")
		}).
		Preload("Assignments.User", database.Unscoped).
		First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering, newest first
func (r *GormTaskRepository) List(ctx context.Context, q TaskQuery) utils.Source[models.Task] {
	query := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Scopes(database.WithDeleted(q.IncludeDeleted), q.Filters.Scope(q.Today), database.Newest("tasks")).
		Preload("Project", database.Unscoped).
		Preload("Assignments.User", database.Unscoped)

	if q.VisibleTo != nil {
		userID := *q.VisibleTo
		query = query.Where(
			"tasks.project_id IN (SELECT projects.id FROM projects WHERE projects.deleted_at IS NULL AND (projects.author_id = ? OR EXISTS (SELECT 1 FROM project_members WHERE project_members.project_id = projects.id AND project_members.user_id = ?)))",
			userID, userID,
		)
	}
	return database.NewQuerySource[models.Task](query)
}

// Update updates a task's own columns
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit("Project", "Parent", "Subtasks", "Assignments").Save(task).Error
}

func (r *GormTaskRepository) ReplaceAssignees(ctx context.Context, taskID uint64, userIDs []uint64, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []uint64
		if err := tx.Model(&models.TaskAssignment{}).Where("task_id = ?", taskID).Pluck("user_id", &current).Error; err != nil {
			return err
		}

		removed, added := diffIDs(current, userIDs)
		if len(removed) > 0 {
			if err := tx.Where("task_id = ? AND user_id IN ?", taskID, removed).Delete(&models.TaskAssignment{}).Error; err != nil {
				return err
			}
		}
		if len(added) == 0 {
			return nil
		}

		assignments := make([]models.TaskAssignment, len(added))
		for i, userID := range added {
			assignments[i] = models.TaskAssignment{TaskID: taskID, UserID: userID, AssignedAt: at}
		}
		return tx.Omit("Task", "User").Create(&assignments).Error
	})
}

func (r *GormTaskRepository) AncestorIDs(ctx context.Context, taskID uint64) ([]uint64, error) {
	var ancestors []uint64
	seen := map[uint64]bool{taskID: true}
	current := taskID

	for {
		var task models.Task
		err := r.db.WithContext(ctx).Unscoped().Select("id", "parent_id").First(&task, current).Error
		if err != nil {
			return nil, err
		}
		if task.ParentID == nil || seen[*task.ParentID] {
			return ancestors, nil
		}
		current = *task.ParentID
		seen[current] = true
		ancestors = append(ancestors, current)
	}
}

type statusCount struct {
	Status models.TaskStatus
	Total  int64
}

func (r *GormTaskRepository) StatusCounts(ctx context.Context, userID uint64, today time.Time) (map[models.TaskStatus]int64, int64, error) {
	assigned := func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.Task{}).
			Joins("JOIN task_assignments ON task_assignments.task_id = tasks.id").
			Where("task_assignments.user_id = ?", userID)
	}

	counts := make(map[models.TaskStatus]int64)
	for _, s := range models.TaskStatuses() {
		counts[s] = 0
	}

	var rows []statusCount
	err := r.db.WithContext(ctx).
		Scopes(assigned).
		Select("tasks.status AS status, COUNT(*) AS total").
		Group("tasks.status").
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}

	var overdue int64
	day := models.DateOf(today)
	err = r.db.WithContext(ctx).
		Scopes(assigned).
		Where("tasks.deadline IS NOT NULL AND tasks.deadline < ? AND tasks.status <> ?", day, models.TaskStatusDone).
		Count(&overdue).Error
	if err != nil {
		return nil, 0, err
	}

	return counts, overdue, nil
}

// SoftDelete soft deletes a task. With cascade every active descendant is
// deleted in the same transaction.
func (r *GormTaskRepository) SoftDelete(ctx context.Context, id uint64, at time.Time, cascade bool) error {
	if !cascade {
		return database.SoftDelete(r.db.WithContext(ctx), &models.Task{}, id, at)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.SoftDelete(tx, &models.Task{}, id, at); err != nil {
			return err
		}

		frontier := []uint64{id}
		seen := map[uint64]bool{id: true}
		for len(frontier) > 0 {
			var children []uint64
			if err := tx.Model(&models.Task{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return err
			}

			next := children[:0]
			for _, child := range children {
				if !seen[child] {
					seen[child] = true
					next = append(next, child)
				}
			}
			if len(next) == 0 {
				return nil
			}
			if _, err := database.SoftDeleteWhere(tx, &models.Task{}, at, "id IN ?", next); err != nil {
				return err
			}
			frontier = next
		}
		return nil
	})
}

func (r *GormTaskRepository) Restore(ctx context.Context, id uint64) error {
	return database.Restore(r.db.WithContext(ctx), &models.Task{}, id)
}
