package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-tracker-api/internal/dto"
	"github.com/yukikurage/project-tracker-api/internal/utils"
)

func (suite *HandlerTestSuite) TestTaskCreate_OverdueFlags() {
	author := suite.createUser("author@example.com", false)
	member := suite.createUser("member@example.com", false)
	project := suite.createProject(author, "Apollo", member.ID)

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	w := suite.do(http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/tasks", project), gin.H{
		"title":        "Launch",
		"category":     "Ops",
		"deadline":     yesterday,
		"assignee_ids": []uint64{member.ID},
	}, suite.token(author))
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var task dto.TaskDetailDTO
	suite.decode(w, &task)
	suite.Equal("Launch", task.Title)
	suite.Equal(0, task.Status.Value)
	suite.Equal("To Do", task.Status.Label)
	suite.Require().NotNil(task.Deadline)
	suite.Equal(yesterday, *task.Deadline)
	suite.True(task.IsOverdue)
	suite.False(task.IsCompleted)
	suite.Equal(project, task.Project.ID)
	suite.Require().Len(task.Assignments, 1)
	suite.Equal(member.ID, task.Assignments[0].User.ID)

	path := fmt.Sprintf("/api/v1/tasks/%d", task.ID)
	w = suite.do(http.MethodPost, path+"/status", gin.H{"status": 2}, suite.token(member))
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &task)
	suite.True(task.IsCompleted)
	suite.False(task.IsOverdue)

	w = suite.do(http.MethodPost, path+"/status", gin.H{"status": 7}, suite.token(member))
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestTaskCreate_Validation() {
	author := suite.createUser("author@example.com", false)
	outsider := suite.createUser("outsider@example.com", false)
	project := suite.createProject(author, "Apollo")

	w := suite.do(http.MethodPost, "/api/v1/tasks", gin.H{
		"title": "Launch", "category": "Ops", "project_id": project, "deadline": "15/10/2026",
	}, suite.token(author))
	suite.Require().Equal(http.StatusBadRequest, w.Code)
	var body errorBody
	suite.decode(w, &body)
	suite.Contains(body.Details, "deadline")

	w = suite.do(http.MethodPost, "/api/v1/tasks", gin.H{
		"title": "Launch", "category": "Ops", "project_id": project, "assignee_ids": []uint64{outsider.ID},
	}, suite.token(author))
	suite.Require().Equal(http.StatusBadRequest, w.Code)
	suite.decode(w, &body)
	suite.Contains(body.Details, "assignee_ids")

	w = suite.do(http.MethodPost, "/api/v1/tasks", gin.H{
		"title": "Launch", "category": "Ops", "project_id": project,
	}, suite.token(outsider))
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/tasks", "not an object", suite.token(author))
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestTaskUpdate_ClearsNullableFields() {
	author := suite.createUser("author@example.com", false)
	project := suite.createProject(author, "Apollo")

	w := suite.do(http.MethodPost, "/api/v1/tasks", gin.H{"title": "Parent", "category": "Ops", "project_id": project}, suite.token(author))
	suite.Require().Equal(http.StatusCreated, w.Code)
	var parent dto.TaskDetailDTO
	suite.decode(w, &parent)

	w = suite.do(http.MethodPost, "/api/v1/tasks", gin.H{
		"title": "Child", "category": "Ops", "project_id": project, "parent_id": parent.ID, "deadline": "2030-01-01",
	}, suite.token(author))
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var child dto.TaskDetailDTO
	suite.decode(w, &child)
	suite.Require().NotNil(child.Parent)
	suite.Equal(parent.ID, child.Parent.ID)

	w = suite.do(http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", parent.ID), nil, suite.token(author))
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &parent)
	suite.Require().Len(parent.Subtasks, 1)

	// A parent cannot become a child of its own subtask.
	w = suite.do(http.MethodPatch, fmt.Sprintf("/api/v1/tasks/%d", parent.ID), gin.H{"parent_id": child.ID}, suite.token(author))
	suite.Equal(http.StatusBadRequest, w.Code)

	path := fmt.Sprintf("/api/v1/tasks/%d", child.ID)
	w = suite.do(http.MethodPatch, path, gin.H{"title": "Renamed"}, suite.token(author))
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &child)
	suite.Equal("Renamed", child.Title)
	suite.NotNil(child.Deadline)
	suite.NotNil(child.ParentID)

	w = suite.do(http.MethodPatch, path, gin.H{"parent_id": nil, "deadline": nil}, suite.token(author))
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	child = dto.TaskDetailDTO{}
	suite.decode(w, &child)
	suite.Nil(child.Deadline)
	suite.Nil(child.ParentID)
	suite.Nil(child.Parent)
}

func (suite *HandlerTestSuite) TestTaskList_Filters() {
	author := suite.createUser("author@example.com", false)
	member := suite.createUser("member@example.com", false)
	project := suite.createProject(author, "Apollo", member.ID)
	other := suite.createProject(author, "Gemini")

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	for _, body := range []gin.H{
		{"title": "Late", "category": "Ops", "project_id": project, "deadline": yesterday, "assignee_ids": []uint64{member.ID}},
		{"title": "Fine", "category": "Dev", "project_id": project},
		{"title": "Elsewhere", "category": "Ops", "project_id": other},
	} {
		w := suite.do(http.MethodPost, "/api/v1/tasks", body, suite.token(author))
		suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	}

	list := func(query string, user string) utils.Page[dto.TaskDTO] {
		w := suite.do(http.MethodGet, "/api/v1/tasks"+query, nil, user)
		suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		var page utils.Page[dto.TaskDTO]
		suite.decode(w, &page)
		return page
	}

	suite.Equal(int64(3), list("", suite.token(author)).Pagination.TotalCount)
	suite.Equal(int64(2), list("", suite.token(member)).Pagination.TotalCount)
	suite.Equal(int64(1), list("?overdue=true", suite.token(author)).Pagination.TotalCount)
	suite.Equal(int64(2), list("?category=Ops", suite.token(author)).Pagination.TotalCount)
	suite.Equal(int64(3), list("?status=banana", suite.token(author)).Pagination.TotalCount)
	suite.Equal(int64(1), list(fmt.Sprintf("?assignee=%d", member.ID), suite.token(author)).Pagination.TotalCount)

	page := list("?page_size=2", suite.token(author))
	suite.Len(page.Data, 2)
	suite.True(page.Pagination.HasNext)

	w := suite.do(http.MethodGet, fmt.Sprintf("/api/v1/projects/%d/tasks?completed=false", project), nil, suite.token(member))
	suite.Require().Equal(http.StatusOK, w.Code)
	var projectPage utils.Page[dto.TaskDTO]
	suite.decode(w, &projectPage)
	suite.Equal(int64(2), projectPage.Pagination.TotalCount)
}

func (suite *HandlerTestSuite) TestTaskDeleteAndRestore() {
	author := suite.createUser("author@example.com", false)
	project := suite.createProject(author, "Apollo")

	w := suite.do(http.MethodPost, "/api/v1/tasks", gin.H{"title": "Launch", "category": "Ops", "project_id": project}, suite.token(author))
	suite.Require().Equal(http.StatusCreated, w.Code)
	var task dto.TaskDetailDTO
	suite.decode(w, &task)
	path := fmt.Sprintf("/api/v1/tasks/%d", task.ID)

	w = suite.do(http.MethodDelete, path, nil, suite.token(author))
	suite.Require().Equal(http.StatusNoContent, w.Code)

	w = suite.do(http.MethodGet, path, nil, suite.token(author))
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.do(http.MethodPost, path+"/restore", nil, suite.token(author))
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, path, nil, suite.token(author))
	suite.Equal(http.StatusOK, w.Code)
}
