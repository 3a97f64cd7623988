package handlers

import (
	"errors"
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

// ProjectHandler serves projects and the tasks nested under them.
type ProjectHandler struct {
	projects *services.ProjectService
	tasks    *services.TaskService
	logger   *zap.Logger
}

func NewProjectHandler(projects *services.ProjectService, tasks *services.TaskService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, tasks: tasks, logger: logger}
}

type createProjectRequest struct {
	Name      string   `json:"name"`
	CompanyID uint64   `json:"company_id"`
	MemberIDs []uint64 `json:"member_ids"`
}

type updateProjectRequest struct {
	Name      *string `json:"name"`
	CompanyID *uint64 `json:"company_id"`
}

type userIDsRequest struct {
	UserIDs []uint64 `json:"user_ids"`
}

// ListProjects returns projects the caller authors or is a member of
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	page, err := h.projects.List(c.Request.Context(), user, includeDeleted(c), utils.ParsePageParams(c.Request.URL.Query()))
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, utils.MapPage(page, func(item services.ProjectListItem) dto.ProjectDTO {
		return dto.ToProjectDTO(item.Project, item.TasksCount)
	}))
}

// GetProject returns the project with members and active tasks
func (h *ProjectHandler) GetProject(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	project, tasks, err := h.projects.Get(c.Request.Context(), user, id, includeDeleted(c))
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDetailDTO(*project, tasks, h.tasks.Today()))
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}
	var req createProjectRequest
	if err := bindJSON(c, &req); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	project, err := h.projects.Create(c.Request.Context(), user, services.ProjectInput{
		Name:      req.Name,
		CompanyID: req.CompanyID,
		MemberIDs: req.MemberIDs,
	})
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDetailDTO(*project, nil, h.tasks.Today()))
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}
	var req updateProjectRequest
	if err := bindJSON(c, &req); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	if _, err := h.projects.Update(c.Request.Context(), user, id, services.UpdateProjectInput{
		Name:      req.Name,
		CompanyID: req.CompanyID,
	}); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	h.respondDetail(c, user, id, http.StatusOK)
}

// ReplaceMembers sets the member list; existing members keep their join time
func (h *ProjectHandler) ReplaceMembers(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}
	var req userIDsRequest
	if err := bindJSON(c, &req); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	if _, err := h.projects.ReplaceMembers(c.Request.Context(), user, id, req.UserIDs); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	h.respondDetail(c, user, id, http.StatusOK)
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	if err := h.projects.Delete(c.Request.Context(), user, id); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ProjectHandler) RestoreProject(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	if _, err := h.projects.Restore(c.Request.Context(), user, id); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	h.respondDetail(c, user, id, http.StatusOK)
}

// ListTasks returns the project's tasks through the filter pipeline
func (h *ProjectHandler) ListTasks(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	query := c.Request.URL.Query()
	page, err := h.projects.Tasks(c.Request.Context(), user, id, filters.ParseTaskFilter(query), includeDeleted(c), utils.ParsePageParams(query))
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	today := h.tasks.Today()
	c.JSON(http.StatusOK, utils.MapPage(page, func(t models.Task) dto.TaskDTO {
		return dto.ToTaskDTO(t, today)
	}))
}

// CreateTask creates a task in the project named by the path
func (h *ProjectHandler) CreateTask(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := bindJSON(c, &req); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}
	req.ProjectID = id

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

// GenerateTasks asks the AI for task drafts. Nothing is saved.
func (h *ProjectHandler) GenerateTasks(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := bindJSON(c, &req); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	drafts, err := h.tasks.GenerateDrafts(c.Request.Context(), user, services.GenerateDraftsInput{
		ProjectID: id,
		Text:      req.Text,
	})
	if errors.Is(err, services.ErrAIServiceNotConfigured) {
		apierrors.ServiceUnavailable(c, "AI service is not configured")
		return
	}
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	out := make([]dto.GeneratedTaskDTO, len(drafts))
	for i, draft := range drafts {
		out[i] = dto.ToGeneratedTaskDTO(draft)
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

func (h *ProjectHandler) target(c *gin.Context) (*models.User, uint64, bool) {
	user, err := actor(c)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return nil, 0, false
	}
	id, err := pathID(c, "id", "project")
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return nil, 0, false
	}
	return user, id, true
}

func (h *ProjectHandler) respondDetail(c *gin.Context, user *models.User, id uint64, status int) {
	project, tasks, err := h.projects.Get(c.Request.Context(), user, id, false)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}
	c.JSON(status, dto.ToProjectDetailDTO(*project, tasks, h.tasks.Today()))
}
