// Package permissions decides what an actor may do with an entity. The checks
// are pure functions over loaded models; callers preload the relations each
// check reads (project members, task assignments).
package permissions

import (
	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
	"github.com/yukikurage/project-tracker-api/internal/models"
)

type Operation string

const (
	OpRead          Operation = "read"
	OpCreate        Operation = "create"
	OpUpdate        Operation = "update"
	OpDelete        Operation = "delete"
	OpRestore       Operation = "restore"
	OpCreateTask    Operation = "create_task"
	OpManageMembers Operation = "manage_members"
	OpListDeleted   Operation = "list_deleted"
)

// Decision is the outcome of a permission check. Hidden denials are reported
// as not found so the caller cannot tell the resource exists.
type Decision struct {
	Allowed bool
	Hidden  bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

func hide(reason string) Decision {
	return Decision{Hidden: true, Reason: reason}
}

// Err converts a denial to the matching domain error, or nil when allowed.
func (d Decision) Err(resource string) error {
	if d.Allowed {
		return nil
	}
	if d.Hidden {
		return apierrors.NewNotFoundError(resource)
	}
	return apierrors.NewPermissionError(d.Reason)
}

// ForCompany: anyone signed in may read, only staff may change companies.
func ForCompany(actor *models.User, op Operation) Decision {
	if op == OpRead {
		return allow()
	}
	if actor.IsAdmin() {
		return allow()
	}
	return deny("only staff can manage companies")
}

// ForProject checks access to a project with Members loaded.
func ForProject(actor *models.User, project *models.Project, op Operation) Decision {
	canRead := project.IsParticipant(actor.ID) || actor.IsSuperuser

	switch op {
	case OpRead:
		if canRead {
			return allow()
		}
		return hide("not a project member")
	case OpCreateTask:
		if project.IsParticipant(actor.ID) {
			return allow()
		}
		if canRead {
			return deny("only project members can create tasks")
		}
		return hide("not a project member")
	case OpUpdate, OpDelete, OpRestore, OpManageMembers:
		if project.IsAuthor(actor.ID) {
			return allow()
		}
		if canRead {
			return deny("only the project author can " + describe(op) + " this project")
		}
		return hide("not a project member")
	default:
		return deny("unsupported operation")
	}
}

// ForTask checks access to a task with Assignments and Project.Members
// loaded. Reading follows the project, so a task is readable exactly when it
// shows up in the actor's task list.
func ForTask(actor *models.User, task *models.Task, op Operation) Decision {
	project := &task.Project
	canRead := project.IsParticipant(actor.ID) || actor.IsSuperuser

	if op == OpRead {
		if canRead {
			return allow()
		}
		return hide("not a project member")
	}

	if task.IsAssignee(actor.ID) || project.IsAuthor(actor.ID) {
		return allow()
	}
	if canRead {
		return deny("only assignees or the project author can " + describe(op) + " this task")
	}
	return hide("not a project member")
}

// ForUser checks account management. Reading any profile is allowed.
func ForUser(actor *models.User, target *models.User, op Operation) Decision {
	switch op {
	case OpRead:
		return allow()
	case OpUpdate, OpDelete:
		if actor.ID == target.ID || actor.IsAdmin() {
			return allow()
		}
		return deny("you can only " + describe(op) + " your own account")
	case OpRestore, OpListDeleted:
		if actor.IsAdmin() {
			return allow()
		}
		return deny("only staff can " + describe(op) + " users")
	default:
		return deny("unsupported operation")
	}
}

// CanSeeDeleted reports whether the actor may use include_deleted.
func CanSeeDeleted(actor *models.User) bool {
	return actor.IsAdmin()
}

func describe(op Operation) string {
	switch op {
	case OpManageMembers:
		return "manage members of"
	case OpListDeleted:
		return "list deleted"
	default:
		return string(op)
	}
}
