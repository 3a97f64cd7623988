package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-tracker-api/internal/dto"
	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
	"github.com/yukikurage/project-tracker-api/internal/services"
	"github.com/yukikurage/project-tracker-api/internal/utils"
	"go.uber.org/zap"
)

type CompanyHandler struct {
	companies *services.CompanyService
	logger    *zap.Logger
}

func NewCompanyHandler(companies *services.CompanyService, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{companies: companies, logger: logger}
}

type companyRequest struct {
	Name *string `json:"name"`
}

// ListCompanies returns one page of companies with their project counts
func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	page, err := h.companies.List(c.Request.Context(), user, includeDeleted(c), utils.ParsePageParams(c.Request.URL.Query()))
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, utils.MapPage(page, func(item services.CompanyListItem) dto.CompanyDTO {
		return dto.ToCompanyDTO(item.Company, item.ProjectsCount)
	}))
}

func (h *CompanyHandler) GetCompany(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}
	id, err := pathID(c, "id", "company")
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	company, err := h.companies.Get(c.Request.Context(), user, id, includeDeleted(c))
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCompanyDetailDTO(*company))
}

func (h *CompanyHandler) CreateCompany(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}
	var req companyRequest
	if err := bindJSON(c, &req); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	input := services.CompanyInput{}
	if req.Name != nil {
		input.Name = *req.Name
	}
	company, err := h.companies.Create(c.Request.Context(), user, input)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCompanyDTO(*company, 0))
}

func (h *CompanyHandler) UpdateCompany(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}
	id, err := pathID(c, "id", "company")
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}
	var req companyRequest
	if err := bindJSON(c, &req); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	company, err := h.companies.Update(c.Request.Context(), user, id, services.UpdateCompanyInput{Name: req.Name})
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCompanyDetailDTO(*company))
}

func (h *CompanyHandler) DeleteCompany(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}
	id, err := pathID(c, "id", "company")
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	if err := h.companies.Delete(c.Request.Context(), user, id); err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *CompanyHandler) RestoreCompany(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}
	id, err := pathID(c, "id", "company")
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	company, err := h.companies.Restore(c.Request.Context(), user, id)
	if err != nil {
		apierrors.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCompanyDetailDTO(*company))
}
