package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-tracker-api/internal/dto"
	"github.com/yukikurage/project-tracker-api/internal/utils"
)

func (suite *HandlerTestSuite) TestCompanyLifecycle() {
	user := suite.createUser("user@example.com", false)
	staff := suite.createUser("staff@example.com", true)

	w := suite.do(http.MethodPost, "/api/v1/companies", gin.H{"name": "Acme"}, suite.token(user))
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/companies", gin.H{"name": ""}, suite.token(staff))
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/companies", gin.H{"name": "Acme"}, suite.token(staff))
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var company dto.CompanyDTO
	suite.decode(w, &company)
	suite.Equal("Acme", company.Name)

	w = suite.do(http.MethodGet, "/api/v1/companies", nil, suite.token(user))
	suite.Require().Equal(http.StatusOK, w.Code)
	var page utils.Page[dto.CompanyDTO]
	suite.decode(w, &page)
	suite.Equal(int64(1), page.Pagination.TotalCount)
	suite.Require().Len(page.Data, 1)
	suite.Equal(int64(0), page.Data[0].ProjectsCount)

	path := fmt.Sprintf("/api/v1/companies/%d", company.ID)
	w = suite.do(http.MethodPatch, path, gin.H{"name": "Acme Corp"}, suite.token(staff))
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"name":"Acme Corp"`)

	w = suite.do(http.MethodDelete, path, nil, suite.token(staff))
	suite.Require().Equal(http.StatusNoContent, w.Code)

	w = suite.do(http.MethodGet, path, nil, suite.token(user))
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.do(http.MethodGet, path+"?include_deleted=true", nil, suite.token(staff))
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"deleted_at"`)

	w = suite.do(http.MethodPost, path+"/restore", nil, suite.token(staff))
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.NotContains(w.Body.String(), `"deleted_at"`)
}

func (suite *HandlerTestSuite) TestCompanyList_EmptyPagePastEnd() {
	user := suite.createUser("user@example.com", false)

	w := suite.do(http.MethodGet, "/api/v1/companies?page=5&page_size=abc", nil, suite.token(user))
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"data":[]`)
	suite.Contains(w.Body.String(), `"page_size":20`)
}
