package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-tracker-api/internal/dto"
	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
	"github.com/yukikurage/project-tracker-api/internal/filters"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/services"
	"github.com/yukikurage/project-tracker-api/internal/utils"
	"go.uber.org/zap"
)

type TaskHandler struct {
	tasks  *services.TaskService
	logger *zap.Logger
}

func NewTaskHandler(tasks *services.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

type createTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Status      *int     `json:"status"`
	ProjectID   uint64   `json:"project_id"`
	ParentID    *uint64  `json:"parent_id"`
	Deadline    *string  `json:"deadline"`
	AssigneeIDs []uint64 `json:"assignee_ids"`
}

func (r createTaskRequest) toInput() (services.CreateTaskInput, error) {
	deadline, err := parseDate("deadline", r.Deadline)
	if err != nil {
		return services.CreateTaskInput{}, err
	}
	return services.CreateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Status:      r.Status,
		ProjectID:   r.ProjectID,
		ParentID:    r.ParentID,
		Deadline:    deadline,
		AssigneeIDs: r.AssigneeIDs,
	}, nil
}

// updateTaskRequest is a partial update. parent_id and deadline accept an
// explicit null to clear them.
type updateTaskRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Category    *string            `json:"category"`
	Status      *int               `json:"status"`
	ParentID    optional[uint64]   `json:"parent_id"`
	Deadline    optional[string]   `json:"deadline"`
	AssigneeIDs optional[[]uint64] `json:"assignee_ids"`
}

func (r updateTaskRequest) toInput() (services.UpdateTaskInput, error) {
	input := services.UpdateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Status:      r.Status,
	}

	if r.ParentID.Set {
		input.ParentID = r.ParentID.Value
		input.ClearParent = r.ParentID.Value == nil
	}
	if r.Deadline.Set {
		deadline, err := parseDate("deadline", r.Deadline.Value)
		if err != nil {
			return services.UpdateTaskInput{}, err
		}
		input.Deadline = deadline
		input.ClearDeadline = deadline == nil
	}
	if r.AssigneeIDs.Set {
		ids := []uint64{}
		if r.AssigneeIDs.Value != nil {
			ids = *r.AssigneeIDs.Value
		}
		input.AssigneeIDs = &ids
	}
	return input, nil
}

// ListTasks returns tasks from projects visible to the caller. Query
// parameters feed the filter pipeline; malformed values are ignored.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	query := c.Request.URL.Query()
	page, err := h.tasks.List(c.Request.Context(), user, services.ListTasksInput{
		Filters:        filters.ParseTaskFilter(query),
		IncludeDeleted: includeDeleted(c),
		Page:           utils.ParsePageParams(query),
	})
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	today := h.tasks.Today()
	c.JSON(http.StatusOK, utils.MapPage(page, func(t models.Task) dto.TaskDTO {
		return dto.ToTaskDTO(t, today)
	}))
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), user, id, includeDeleted(c))
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDetailDTO(*task, h.tasks.Today()))
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}
	var req createTaskRequest
	if err := bindJSON(c, &req); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	input, err := req.toInput()
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}
	task, err := h.tasks.Create(c.Request.Context(), user, input)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDetailDTO(*task, h.tasks.Today()))
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := bindJSON(c, &req); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	input, err := req.toInput()
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}
	task, err := h.tasks.Update(c.Request.Context(), user, id, input)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDetailDTO(*task, h.tasks.Today()))
}

// UpdateStatus moves a task to another status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}
	var req struct {
		Status *int `json:"status"`
	}
	if err := bindJSON(c, &req); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}
	if req.Status == nil {
		apierrors.Respond(c, h.logger, apierrors.NewFieldError("status", "This field is required"))
		return
	}

	task, err := h.tasks.UpdateStatus(c.Request.Context(), user, id, *req.Status)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDetailDTO(*task, h.tasks.Today()))
}

// ReplaceAssignees sets the assignee list
func (h *TaskHandler) ReplaceAssignees(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}
	var req userIDsRequest
	if err := bindJSON(c, &req); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	task, err := h.tasks.ReplaceAssignees(c.Request.Context(), user, id, req.UserIDs)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDetailDTO(*task, h.tasks.Today()))
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), user, id); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) RestoreTask(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	task, err := h.tasks.Restore(c.Request.Context(), user, id)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDetailDTO(*task, h.tasks.Today()))
}

func (h *TaskHandler) target(c *gin.Context) (*models.User, uint64, bool) {
	user, err := actor(c)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return nil, 0, false
	}
	id, err := pathID(c, "id", "task")
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return nil, 0, false
	}
	return user, id, true
}
