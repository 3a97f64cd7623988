// Package filters narrows task collections. Every predicate has an in-memory
// form and a gorm scope form that select the same tasks.
package filters

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yukikurage/project-tracker-api/internal/models"
	"gorm.io/gorm"
)

// Predicate is one single-purpose task filter.
type Predicate interface {
	Name() string
	// Match evaluates the predicate against a loaded task. Assignee matching
	// needs Assignments preloaded.
	Match(task *models.Task, today time.Time) bool
	// Apply narrows a query over the tasks table.
	Apply(db *gorm.DB, today time.Time) *gorm.DB
}

// Pipeline is the conjunction of its predicates, so order never changes the
// result.
type Pipeline []Predicate

// Filter keeps the tasks matching every predicate.
func (p Pipeline) Filter(tasks []models.Task, today time.Time) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for i := range tasks {
		if p.Match(&tasks[i], today) {
			out = append(out, tasks[i])
		}
	}
	return out
}

func (p Pipeline) Match(task *models.Task, today time.Time) bool {
	for _, pred := range p {
		if !pred.Match(task, today) {
			return false
		}
	}
	return true
}

// Scope returns a gorm scope applying every predicate.
func (p Pipeline) Scope(today time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, pred := range p {
			db = pred.Apply(db, today)
		}
		return db
	}
}

// Names lists the active predicates, mostly for logging.
func (p Pipeline) Names() []string {
	names := make([]string, len(p))
	for i, pred := range p {
		names[i] = pred.Name()
	}
	return names
}

type ProjectIs uint64

func (f ProjectIs) Name() string { return "project" }

func (f ProjectIs) Match(task *models.Task, _ time.Time) bool {
	return task.ProjectID == uint64(f)
}

func (f ProjectIs) Apply(db *gorm.DB, _ time.Time) *gorm.DB {
	return db.Where("tasks.project_id = ?", uint64(f))
}

type AssigneeIs uint64

func (f AssigneeIs) Name() string { return "assignee" }

func (f AssigneeIs) Match(task *models.Task, _ time.Time) bool {
	return task.IsAssignee(uint64(f))
}

func (f AssigneeIs) Apply(db *gorm.DB, _ time.Time) *gorm.DB {
	return db.Where(
		"EXISTS (SELECT 1 FROM task_assignments WHERE task_assignments.task_id = tasks.id AND task_assignments.user_id = ?)",
		uint64(f),
	)
}

// CategoryIs is a case-insensitive exact match.
type CategoryIs string

func (f CategoryIs) Name() string { return "category" }

func (f CategoryIs) Match(task *models.Task, _ time.Time) bool {
	return strings.EqualFold(task.Category, string(f))
}

func (f CategoryIs) Apply(db *gorm.DB, _ time.Time) *gorm.DB {
	return db.Where("LOWER(tasks.category) = ?", strings.ToLower(string(f)))
}

type StatusIs models.TaskStatus

func (f StatusIs) Name() string { return "status" }

func (f StatusIs) Match(task *models.Task, _ time.Time) bool {
	return task.Status == models.TaskStatus(f)
}

func (f StatusIs) Apply(db *gorm.DB, _ time.Time) *gorm.DB {
	return db.Where("tasks.status = ?", models.TaskStatus(f))
}

type ParentIs uint64

func (f ParentIs) Name() string { return "parent" }

func (f ParentIs) Match(task *models.Task, _ time.Time) bool {
	return task.ParentID != nil && *task.ParentID == uint64(f)
}

func (f ParentIs) Apply(db *gorm.DB, _ time.Time) *gorm.DB {
	return db.Where("tasks.parent_id = ?", uint64(f))
}

// Overdue keeps overdue tasks when true and the rest when false.
type Overdue bool

func (f Overdue) Name() string { return "overdue" }

func (f Overdue) Match(task *models.Task, today time.Time) bool {
	return task.IsOverdue(today) == bool(f)
}

func (f Overdue) Apply(db *gorm.DB, today time.Time) *gorm.DB {
	day := models.DateOf(today)
	if f {
		return db.Where("(tasks.deadline IS NOT NULL AND tasks.deadline < ? AND tasks.status <> ?)", day, models.TaskStatusDone)
	}
	return db.Where("(tasks.deadline IS NULL OR tasks.deadline >= ? OR tasks.status = ?)", day, models.TaskStatusDone)
}

// Completed keeps done tasks when true and open tasks when false.
type Completed bool

func (f Completed) Name() string { return "completed" }

func (f Completed) Match(task *models.Task, _ time.Time) bool {
	return task.IsCompleted() == bool(f)
}

func (f Completed) Apply(db *gorm.DB, _ time.Time) *gorm.DB {
	if f {
		return db.Where("tasks.status = ?", models.TaskStatusDone)
	}
	return db.Where("tasks.status <> ?", models.TaskStatusDone)
}

// DeadlinePassed ignores the status, unlike Overdue.
type DeadlinePassed bool

func (f DeadlinePassed) Name() string { return "deadline_passed" }

func (f DeadlinePassed) Match(task *models.Task, today time.Time) bool {
	return task.DeadlinePassed(today) == bool(f)
}

func (f DeadlinePassed) Apply(db *gorm.DB, today time.Time) *gorm.DB {
	day := models.DateOf(today)
	if f {
		return db.Where("(tasks.deadline IS NOT NULL AND tasks.deadline < ?)", day)
	}
	return db.Where("(tasks.deadline IS NULL OR tasks.deadline >= ?)", day)
}

// ParseTaskFilter builds a pipeline from query parameters. Malformed values
// are skipped as if they were absent so listings never fail on bad input.
func ParseTaskFilter(query url.Values) Pipeline {
	var p Pipeline

	if id, ok := parseID(query.Get("project")); ok {
		p = append(p, ProjectIs(id))
	}
	if id, ok := parseID(query.Get("assignee")); ok {
		p = append(p, AssigneeIs(id))
	}
	if category := strings.TrimSpace(query.Get("category")); category != "" {
		p = append(p, CategoryIs(category))
	}
	if raw := query.Get("status"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			if status, err := models.ParseTaskStatus(n); err == nil {
				p = append(p, StatusIs(status))
			}
		}
	}
	if id, ok := parseID(query.Get("parent")); ok {
		p = append(p, ParentIs(id))
	}
	if v, ok := parseBool(query.Get("overdue")); ok {
		p = append(p, Overdue(v))
	}
	if v, ok := parseBool(query.Get("completed")); ok {
		p = append(p, Completed(v))
	}
	if v, ok := parseBool(query.Get("deadline_passed")); ok {
		p = append(p, DeadlinePassed(v))
	}

	return p
}

func parseID(raw string) (uint64, bool) {
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func parseBool(raw string) (bool, bool) {
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
