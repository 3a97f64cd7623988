package services

import (
	"time"

	"github.com/stretchr/testify/assert"
	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
	"github.com/yukikurage/project-tracker-api/internal/events"
	"github.com/yukikurage/project-tracker-api/internal/filters"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/utils"
)

func (suite *ServiceTestSuite) TestProjectCreate_UnknownCompany() {
	author := suite.createUser("author@example.com")

	_, err := suite.projects.Create(suite.ctx, author, ProjectInput{Name: "Apollo", CompanyID: 9999})
	suite.assertKind(err, apierrors.KindReferentialViolation)

	var de *apierrors.DomainError
	suite.Require().ErrorAs(err, &de)
	assert.Contains(suite.T(), de.Fields, "company_id")

	var count int64
	suite.Require().NoError(suite.db.Model(&models.Project{}).Count(&count).Error)
	assert.Zero(suite.T(), count)
}

func (suite *ServiceTestSuite) TestProjectCreate_DeletedCompany() {
	author := suite.createUser("author@example.com")
	company := suite.createCompany("Acme")
	suite.Require().NoError(suite.store.Companies().SoftDelete(suite.ctx, company.ID, now, false))

	_, err := suite.projects.Create(suite.ctx, author, ProjectInput{Name: "Apollo", CompanyID: company.ID})
	suite.assertKind(err, apierrors.KindReferentialViolation)
}

func (suite *ServiceTestSuite) TestProjectCreate_UnknownMember() {
	author := suite.createUser("author@example.com")
	company := suite.createCompany("Acme")

	_, err := suite.projects.Create(suite.ctx, author, ProjectInput{Name: "Apollo", CompanyID: company.ID, MemberIDs: []uint64{9999}})
	suite.assertKind(err, apierrors.KindReferentialViolation)
}

func (suite *ServiceTestSuite) TestProjectCreate_Success() {
	author := suite.createUser("author@example.com")
	member := suite.createUser("member@example.com")

	project := suite.createProject("Apollo", author, member, member)

	assert.Equal(suite.T(), author.ID, project.AuthorID)
	assert.Equal(suite.T(), "Apollo Inc", project.Company.Name)
	suite.Require().Len(project.Members, 1)
	assert.Equal(suite.T(), member.ID, project.Members[0].UserID)
	suite.assertPublished(events.ProjectCreated)
}

func (suite *ServiceTestSuite) TestProjectDelete_NonAuthorMemberForbidden() {
	author := suite.createUser("author@example.com")
	member := suite.createUser("member@example.com")
	outsider := suite.createUser("outsider@example.com")
	project := suite.createProject("Apollo", author, member)

	err := suite.projects.Delete(suite.ctx, member, project.ID)
	suite.assertKind(err, apierrors.KindForbidden)

	err = suite.projects.Delete(suite.ctx, outsider, project.ID)
	suite.assertKind(err, apierrors.KindNotFound)

	_, _, err = suite.projects.Get(suite.ctx, author, project.ID, false)
	suite.Require().NoError(err)
}

func (suite *ServiceTestSuite) TestProjectDelete_RestoreByAuthor() {
	author := suite.createUser("author@example.com")
	member := suite.createUser("member@example.com")
	project := suite.createProject("Apollo", author, member)

	suite.Require().NoError(suite.projects.Delete(suite.ctx, author, project.ID))
	suite.assertPublished(events.ProjectDeleted)

	_, _, err := suite.projects.Get(suite.ctx, author, project.ID, false)
	suite.assertKind(err, apierrors.KindNotFound)

	_, err = suite.projects.Restore(suite.ctx, member, project.ID)
	suite.assertKind(err, apierrors.KindForbidden)

	restored, err := suite.projects.Restore(suite.ctx, author, project.ID)
	suite.Require().NoError(err)
	assert.False(suite.T(), restored.IsDeleted())
}

func (suite *ServiceTestSuite) TestProjectList_OnlyParticipating() {
	author := suite.createUser("author@example.com")
	member := suite.createUser("member@example.com")
	outsider := suite.createUser("outsider@example.com")
	apollo := suite.createProject("Apollo", author, member)
	suite.createProject("Gemini", author)
	suite.createTask(author, apollo, "One")
	suite.createTask(author, apollo, "Two")

	params := utils.PageParams{Page: 1, PageSize: 20}

	page, err := suite.projects.List(suite.ctx, member, false, params)
	suite.Require().NoError(err)
	suite.Require().Len(page.Data, 1)
	assert.Equal(suite.T(), "Apollo", page.Data[0].Project.Name)
	assert.Equal(suite.T(), int64(2), page.Data[0].TasksCount)

	page, err = suite.projects.List(suite.ctx, author, false, params)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(2), page.Pagination.TotalCount)

	page, err = suite.projects.List(suite.ctx, outsider, false, params)
	suite.Require().NoError(err)
	assert.Empty(suite.T(), page.Data)
}

func (suite *ServiceTestSuite) TestProjectGet_Detail() {
	author := suite.createUser("author@example.com")
	outsider := suite.createUser("outsider@example.com")
	project := suite.createProject("Apollo", author)
	suite.createTask(author, project, "One")
	deleted := suite.createTask(author, project, "Two")
	suite.Require().NoError(suite.tasks.Delete(suite.ctx, author, deleted.ID))

	found, tasks, err := suite.projects.Get(suite.ctx, author, project.ID, false)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "Apollo", found.Name)
	suite.Require().Len(tasks, 1)
	assert.Equal(suite.T(), "One", tasks[0].Title)

	_, _, err = suite.projects.Get(suite.ctx, outsider, project.ID, false)
	suite.assertKind(err, apierrors.KindNotFound)
}

func (suite *ServiceTestSuite) TestProjectUpdate() {
	author := suite.createUser("author@example.com")
	member := suite.createUser("member@example.com")
	project := suite.createProject("Apollo", author, member)
	other := suite.createCompany("Other")

	name := "Artemis"
	_, err := suite.projects.Update(suite.ctx, member, project.ID, UpdateProjectInput{Name: &name})
	suite.assertKind(err, apierrors.KindForbidden)

	missing := uint64(9999)
	_, err = suite.projects.Update(suite.ctx, author, project.ID, UpdateProjectInput{CompanyID: &missing})
	suite.assertKind(err, apierrors.KindReferentialViolation)

	updated, err := suite.projects.Update(suite.ctx, author, project.ID, UpdateProjectInput{Name: &name, CompanyID: &other.ID})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "Artemis", updated.Name)
	assert.Equal(suite.T(), other.ID, updated.CompanyID)
	assert.Equal(suite.T(), "Other", updated.Company.Name)
}

func (suite *ServiceTestSuite) TestProjectReplaceMembers_KeepsJoinTime() {
	author := suite.createUser("author@example.com")
	alice := suite.createUser("alice@example.com")
	bob := suite.createUser("bob@example.com")
	carol := suite.createUser("carol@example.com")
	project := suite.createProject("Apollo", author, alice, bob)

	later := now.Add(72 * time.Hour)
	suite.projects.SetClock(func() time.Time { return later })

	_, err := suite.projects.ReplaceMembers(suite.ctx, alice, project.ID, []uint64{carol.ID})
	suite.assertKind(err, apierrors.KindForbidden)

	updated, err := suite.projects.ReplaceMembers(suite.ctx, author, project.ID, []uint64{alice.ID, carol.ID})
	suite.Require().NoError(err)
	suite.Require().Len(updated.Members, 2)

	joined := map[uint64]time.Time{}
	for _, m := range updated.Members {
		joined[m.UserID] = m.JoinedAt
	}
	assert.True(suite.T(), joined[alice.ID].Equal(now))
	assert.True(suite.T(), joined[carol.ID].Equal(later))
	assert.NotContains(suite.T(), joined, bob.ID)
	suite.assertPublished(events.ProjectMembersChanged)
}

func (suite *ServiceTestSuite) TestProjectTasks_Filtered() {
	author := suite.createUser("author@example.com")
	member := suite.createUser("member@example.com")
	project := suite.createProject("Apollo", author, member)
	other := suite.createProject("Gemini", author)
	suite.createTask(author, project, "Mine", member)
	suite.createTask(author, project, "Unassigned")
	suite.createTask(author, other, "Elsewhere", author)

	page, err := suite.projects.Tasks(suite.ctx, member, project.ID, filters.Pipeline{filters.AssigneeIs(member.ID)}, false, utils.PageParams{Page: 1, PageSize: 20})
	suite.Require().NoError(err)
	suite.Require().Len(page.Data, 1)
	assert.Equal(suite.T(), "Mine", page.Data[0].Title)

	page, err = suite.projects.Tasks(suite.ctx, member, project.ID, nil, false, utils.PageParams{Page: 1, PageSize: 20})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(2), page.Pagination.TotalCount)
}
