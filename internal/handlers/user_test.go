package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-tracker-api/internal/dto"
)

func (suite *HandlerTestSuite) TestUserList_StaffOnly() {
	user := suite.createUser("user@example.com", false)
	staff := suite.createUser("staff@example.com", true)

	w := suite.do(http.MethodGet, "/api/v1/users", nil, suite.token(user))
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/users", nil, suite.token(staff))
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.NotContains(w.Body.String(), "password")
	suite.Contains(w.Body.String(), `"total_count":2`)
}

func (suite *HandlerTestSuite) TestUserDetailUpdateAndPassword() {
	author := suite.createUser("author@example.com", false)
	member := suite.createUser("member@example.com", false)
	suite.createProject(author, "Apollo", member.ID)
	path := fmt.Sprintf("/api/v1/users/%d", member.ID)

	w := suite.do(http.MethodGet, path, nil, suite.token(author))
	suite.Require().Equal(http.StatusOK, w.Code)
	var detail dto.UserDetailDTO
	suite.decode(w, &detail)
	suite.Require().Len(detail.Projects, 1)
	suite.Equal("Apollo", detail.Projects[0].Name)

	w = suite.do(http.MethodPatch, path, gin.H{"full_name": "Ms Jones"}, suite.token(author))
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.do(http.MethodPatch, path, gin.H{"full_name": "Ms Jones"}, suite.token(member))
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"full_name":"Ms Jones"`)

	w = suite.do(http.MethodPost, path+"/password", gin.H{"old_password": "wrong-one", "new_password": "new-password"}, suite.token(member))
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, path+"/password", gin.H{"old_password": "password123", "new_password": "new-password"}, suite.token(member))
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "member@example.com", "password": "new-password"}, "")
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *HandlerTestSuite) TestUserDelete_Protected() {
	author := suite.createUser("author@example.com", false)
	suite.createProject(author, "Apollo")

	w := suite.do(http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", author.ID), nil, suite.token(author))
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), "REFERENTIAL_VIOLATION")
}

func (suite *HandlerTestSuite) TestUserTasksAndSummary() {
	author := suite.createUser("author@example.com", false)
	member := suite.createUser("member@example.com", false)
	project := suite.createProject(author, "Apollo", member.ID)

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	for _, body := range []gin.H{
		{"title": "Late", "category": "Ops", "project_id": project, "deadline": yesterday, "assignee_ids": []uint64{member.ID}},
		{"title": "Done", "category": "Ops", "project_id": project, "status": 2, "assignee_ids": []uint64{member.ID}},
		{"title": "Not mine", "category": "Ops", "project_id": project},
	} {
		w := suite.do(http.MethodPost, "/api/v1/tasks", body, suite.token(author))
		suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	}

	path := fmt.Sprintf("/api/v1/users/%d", member.ID)
	w := suite.do(http.MethodGet, path+"/tasks", nil, suite.token(member))
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"total_count":2`)

	w = suite.do(http.MethodGet, path+"/summary", nil, suite.token(member))
	suite.Require().Equal(http.StatusOK, w.Code)
	var summary dto.UserSummaryDTO
	suite.decode(w, &summary)
	suite.Equal(member.ID, summary.UserID)
	suite.Equal(int64(2), summary.Total)
	suite.Equal(int64(1), summary.Overdue)
	suite.Require().Len(summary.ByStatus, 3)
	suite.Equal("To Do", summary.ByStatus[0].Status.Label)
	suite.Equal(int64(1), summary.ByStatus[0].Count)
	suite.Equal(int64(0), summary.ByStatus[1].Count)
	suite.Equal(int64(1), summary.ByStatus[2].Count)
}
