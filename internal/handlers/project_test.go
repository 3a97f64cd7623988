package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-tracker-api/internal/dto"
	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
	"github.com/yukikurage/project-tracker-api/internal/utils"
)

func (suite *HandlerTestSuite) TestProjectCreate_UnknownCompany() {
	author := suite.createUser("author@example.com", false)

	w := suite.do(http.MethodPost, "/api/v1/projects", gin.H{"name": "Apollo", "company_id": 9999}, suite.token(author))
	suite.Require().Equal(http.StatusBadRequest, w.Code)

	var body errorBody
	suite.decode(w, &body)
	suite.Equal(apierrors.ErrCodeReferentialViolation, body.Code)
	suite.Contains(body.Details, "company_id")
}

func (suite *HandlerTestSuite) TestProjectDetailAndMembers() {
	author := suite.createUser("author@example.com", false)
	member := suite.createUser("member@example.com", false)
	outsider := suite.createUser("outsider@example.com", false)
	id := suite.createProject(author, "Apollo", member.ID)
	path := fmt.Sprintf("/api/v1/projects/%d", id)

	w := suite.do(http.MethodGet, path, nil, suite.token(member))
	suite.Require().Equal(http.StatusOK, w.Code)
	var detail dto.ProjectDetailDTO
	suite.decode(w, &detail)
	suite.Equal("Apollo", detail.Name)
	suite.Equal("Apollo Inc", detail.Company.Name)
	suite.Equal(author.ID, detail.Author.ID)
	suite.Require().Len(detail.Members, 1)
	suite.Equal(member.ID, detail.Members[0].User.ID)
	suite.Empty(detail.Tasks)

	w = suite.do(http.MethodGet, path, nil, suite.token(outsider))
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.do(http.MethodPut, path+"/members", gin.H{"user_ids": []uint64{outsider.ID}}, suite.token(member))
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.do(http.MethodPut, path+"/members", gin.H{"user_ids": []uint64{outsider.ID}}, suite.token(author))
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &detail)
	suite.Require().Len(detail.Members, 1)
	suite.Equal(outsider.ID, detail.Members[0].User.ID)

	w = suite.do(http.MethodGet, "/api/v1/projects", nil, suite.token(member))
	suite.Require().Equal(http.StatusOK, w.Code)
	var page utils.Page[dto.ProjectDTO]
	suite.decode(w, &page)
	suite.Empty(page.Data)
}

func (suite *HandlerTestSuite) TestProjectDelete() {
	author := suite.createUser("author@example.com", false)
	member := suite.createUser("member@example.com", false)
	id := suite.createProject(author, "Apollo", member.ID)
	path := fmt.Sprintf("/api/v1/projects/%d", id)

	w := suite.do(http.MethodDelete, path, nil, suite.token(member))
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.do(http.MethodDelete, path, nil, suite.token(author))
	suite.Require().Equal(http.StatusNoContent, w.Code)

	w = suite.do(http.MethodGet, path, nil, suite.token(author))
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.do(http.MethodPost, path+"/restore", nil, suite.token(author))
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *HandlerTestSuite) TestGenerateTasks_NotConfigured() {
	author := suite.createUser("author@example.com", false)
	id := suite.createProject(author, "Apollo")

	w := suite.do(http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/tasks/generate", id), gin.H{"text": "Ship the launch"}, suite.token(author))
	suite.Require().Equal(http.StatusServiceUnavailable, w.Code)
	suite.Contains(w.Body.String(), apierrors.ErrCodeServiceUnavailable)
}
