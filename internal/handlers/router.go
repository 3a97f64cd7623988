package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-tracker-api/internal/constants"
	"github.com/yukikurage/project-tracker-api/internal/middleware"
	"github.com/yukikurage/project-tracker-api/internal/services"
	"go.uber.org/zap"
)

// Services bundles what the router needs.
type Services struct {
	Auth      *services.AuthService
	Companies *services.CompanyService
	Projects  *services.ProjectService
	Tasks     *services.TaskService
	Users     *services.UserService
}

// NewRouter builds the engine with every route under /api/v1 plus /health.
func NewRouter(svc Services, sessionStore sessions.Store, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger.Named("http")))
	r.Use(sessions.Sessions(constants.SessionCookieName, sessionStore))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Project Tracker API is running",
		})
	})

	authHandler := NewAuthHandler(svc.Auth, logger)
	companyHandler := NewCompanyHandler(svc.Companies, logger)
	projectHandler := NewProjectHandler(svc.Projects, svc.Tasks, logger)
	taskHandler := NewTaskHandler(svc.Tasks, logger)
	userHandler := NewUserHandler(svc.Users, svc.Tasks.Today, logger)

	requireAuth := middleware.RequireAuth(svc.Auth, logger)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.Me)
		}

		companies := api.Group("/companies")
		companies.Use(requireAuth)
		{
			companies.GET("", companyHandler.ListCompanies)
			companies.POST("", companyHandler.CreateCompany)
			companies.GET("/:id", companyHandler.GetCompany)
			companies.PATCH("/:id", companyHandler.UpdateCompany)
			companies.DELETE("/:id", companyHandler.DeleteCompany)
			companies.POST("/:id/restore", companyHandler.RestoreCompany)
		}

		projects := api.Group("/projects")
		projects.Use(requireAuth)
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PATCH("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)
			projects.POST("/:id/restore", projectHandler.RestoreProject)
			projects.PUT("/:id/members", projectHandler.ReplaceMembers)
			projects.GET("/:id/tasks", projectHandler.ListTasks)
			projects.POST("/:id/tasks", projectHandler.CreateTask)
			projects.POST("/:id/tasks/generate", projectHandler.GenerateTasks)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PATCH("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.POST("/:id/restore", taskHandler.RestoreTask)
			tasks.POST("/:id/status", taskHandler.UpdateStatus)
			tasks.PUT("/:id/assignees", taskHandler.ReplaceAssignees)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.PATCH("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
			users.POST("/:id/restore", userHandler.RestoreUser)
			users.POST("/:id/password", userHandler.ChangePassword)
			users.GET("/:id/tasks", userHandler.ListTasks)
			users.GET("/:id/summary", userHandler.Summary)
		}
	}

	return r
}
