package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-tracker-api/internal/filters"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/utils"
)

// Store groups the repositories that share one database handle and runs
// multi-row mutations atomically.
type Store interface {
	Companies() CompanyRepository
	Projects() ProjectRepository
	Tasks() TaskRepository
	Users() UserRepository
	Tokens() TokenRepository

	// WithTransaction runs fn against a store bound to a single transaction.
	// Any error rolls every write back.
	WithTransaction(ctx context.Context, fn func(tx Store) error) error
}

// CompanyRepository defines the interface for company data access
type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error

	// FindByID loads a company with its active projects.
	FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.Company, error)

	// List returns companies newest first.
	List(ctx context.Context, includeDeleted bool) utils.Source[models.Company]

	Update(ctx context.Context, company *models.Company) error

	// CountProjects returns the number of active projects per company.
	CountProjects(ctx context.Context, companyIDs []uint64) (map[uint64]int64, error)

	// SoftDelete marks the company deleted, and with cascade also its active
	// projects and their tasks.
	SoftDelete(ctx context.Context, id uint64, at time.Time, cascade bool) error

	Restore(ctx context.Context, id uint64) error
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error

	// FindByID loads a project with its company, author and members. The
	// company and author resolve even when soft-deleted.
	FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.Project, error)

	// List returns projects newest first. A non-nil visibleTo limits the
	// result to projects that user authors or is a member of.
	List(ctx context.Context, visibleTo *uint64, includeDeleted bool) utils.Source[models.Project]

	Update(ctx context.Context, project *models.Project) error

	// ReplaceMembers sets the member set. Users that stay members keep
	// their join time.
	ReplaceMembers(ctx context.Context, projectID uint64, userIDs []uint64, at time.Time) error

	// CountTasks returns the number of active tasks per project.
	CountTasks(ctx context.Context, projectIDs []uint64) (map[uint64]int64, error)

	// CountAuthoredBy counts the active projects a user authors.
	CountAuthoredBy(ctx context.Context, userID uint64) (int64, error)

	// ListForUser returns the active projects a user authors or belongs to.
	ListForUser(ctx context.Context, userID uint64) ([]models.Project, error)

	// SoftDelete marks the project deleted, and with cascade also its active
	// tasks.
	SoftDelete(ctx context.Context, id uint64, at time.Time, cascade bool) error

	Restore(ctx context.Context, id uint64) error
}

// TaskQuery selects tasks for listing.
type TaskQuery struct {
	// VisibleTo limits tasks to projects this user authors or belongs to.
	VisibleTo      *uint64
	IncludeDeleted bool
	Filters        filters.Pipeline
	Today          time.Time
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error

	// FindByID loads a task with its project and members, parent, active
	// subtasks and assignees.
	FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.Task, error)

	// List returns tasks newest first with project and assignees preloaded.
	List(ctx context.Context, query TaskQuery) utils.Source[models.Task]

	Update(ctx context.Context, task *models.Task) error

	// ReplaceAssignees sets the assignee set. Users that stay assigned keep
	// their assignment time.
	ReplaceAssignees(ctx context.Context, taskID uint64, userIDs []uint64, at time.Time) error

	// AncestorIDs walks the parent chain upwards from the task.
	AncestorIDs(ctx context.Context, taskID uint64) ([]uint64, error)

	// StatusCounts counts the active tasks assigned to a user per status,
	// plus the overdue ones.
	StatusCounts(ctx context.Context, userID uint64, today time.Time) (map[models.TaskStatus]int64, int64, error)

	// SoftDelete marks the task deleted, and with cascade also its subtasks
	// recursively.
	SoftDelete(ctx context.Context, id uint64, at time.Time, cascade bool) error

	Restore(ctx context.Context, id uint64) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error

	FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.User, error)

	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string, includeDeleted bool) (*models.User, error)

	// List returns users ordered by id.
	List(ctx context.Context, includeDeleted bool) utils.Source[models.User]

	Update(ctx context.Context, user *models.User) error

	// CountActiveByIDs counts how many of the given ids are active users.
	CountActiveByIDs(ctx context.Context, ids []uint64) (int64, error)

	SoftDelete(ctx context.Context, id uint64, at time.Time) error

	Restore(ctx context.Context, id uint64) error
}

// TokenRepository tracks revoked refresh tokens.
type TokenRepository interface {
	Revoke(ctx context.Context, token *models.RevokedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
