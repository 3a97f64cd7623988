package services

import (
	"github.com/stretchr/testify/assert"
	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
	"github.com/yukikurage/project-tracker-api/internal/events"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/utils"
	"go.uber.org/zap/zaptest"
)

func (suite *ServiceTestSuite) TestCompanyCreate_StaffOnly() {
	user := suite.createUser("user@example.com")
	staff := suite.createStaff("staff@example.com")

	_, err := suite.companies.Create(suite.ctx, user, CompanyInput{Name: "Acme"})
	suite.assertKind(err, apierrors.KindForbidden)

	company, err := suite.companies.Create(suite.ctx, staff, CompanyInput{Name: "  Acme  "})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "Acme", company.Name)
	suite.assertPublished(events.CompanyCreated)
}

func (suite *ServiceTestSuite) TestCompanyCreate_Validation() {
	staff := suite.createStaff("staff@example.com")

	_, err := suite.companies.Create(suite.ctx, staff, CompanyInput{Name: ""})
	suite.assertKind(err, apierrors.KindValidation)

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	_, err = suite.companies.Create(suite.ctx, staff, CompanyInput{Name: string(long)})
	suite.assertKind(err, apierrors.KindValidation)
}

func (suite *ServiceTestSuite) TestCompanyList_ProjectsCount() {
	author := suite.createUser("author@example.com")
	company := suite.createCompany("Acme")
	for _, name := range []string{"Apollo", "Gemini", "Mercury"} {
		_, err := suite.projects.Create(suite.ctx, author, ProjectInput{Name: name, CompanyID: company.ID})
		suite.Require().NoError(err)
	}
	suite.createCompany("Empty")

	page, err := suite.companies.List(suite.ctx, author, false, utils.PageParams{Page: 1, PageSize: 20})
	suite.Require().NoError(err)
	suite.Require().Len(page.Data, 2)

	counts := map[string]int64{}
	for _, item := range page.Data {
		counts[item.Company.Name] = item.ProjectsCount
	}
	assert.Equal(suite.T(), int64(3), counts["Acme"])
	assert.Equal(suite.T(), int64(0), counts["Empty"])
}

func (suite *ServiceTestSuite) TestCompanyDelete_HiddenAndRestorable() {
	user := suite.createUser("user@example.com")
	staff := suite.createStaff("staff@example.com")
	company := suite.createCompany("Acme")

	suite.assertKind(suite.companies.Delete(suite.ctx, user, company.ID), apierrors.KindForbidden)
	suite.Require().NoError(suite.companies.Delete(suite.ctx, staff, company.ID))
	suite.assertPublished(events.CompanyDeleted)

	_, err := suite.companies.Get(suite.ctx, user, company.ID, false)
	suite.assertKind(err, apierrors.KindNotFound)
	assert.ErrorIs(suite.T(), err, ErrCompanyNotFound)

	// include_deleted is ignored for regular users.
	_, err = suite.companies.Get(suite.ctx, user, company.ID, true)
	suite.assertKind(err, apierrors.KindNotFound)

	found, err := suite.companies.Get(suite.ctx, staff, company.ID, true)
	suite.Require().NoError(err)
	assert.True(suite.T(), found.IsDeleted())

	suite.assertKind(suite.companies.Delete(suite.ctx, staff, company.ID), apierrors.KindNotFound)

	restored, err := suite.companies.Restore(suite.ctx, staff, company.ID)
	suite.Require().NoError(err)
	assert.False(suite.T(), restored.IsDeleted())
	suite.assertPublished(events.CompanyRestored)
}

func (suite *ServiceTestSuite) TestCompanyDelete_NoCascadeByDefault() {
	staff := suite.createStaff("staff@example.com")
	project := suite.createProject("Apollo", staff)

	suite.Require().NoError(suite.companies.Delete(suite.ctx, staff, project.CompanyID))

	_, _, err := suite.projects.Get(suite.ctx, staff, project.ID, false)
	suite.Require().NoError(err)
}

func (suite *ServiceTestSuite) TestCompanyDelete_Cascade() {
	staff := suite.createStaff("staff@example.com")
	project := suite.createProject("Apollo", staff)
	task := suite.createTask(staff, project, "Launch")

	cascading := NewCompanyService(suite.store, suite.publisher, zaptest.NewLogger(suite.T()), true)
	cascading.SetClock(clock)
	suite.Require().NoError(cascading.Delete(suite.ctx, staff, project.CompanyID))

	_, _, err := suite.projects.Get(suite.ctx, staff, project.ID, false)
	suite.assertKind(err, apierrors.KindNotFound)

	var deleted models.Task
	suite.Require().NoError(suite.db.Unscoped().First(&deleted, task.ID).Error)
	assert.True(suite.T(), deleted.IsDeleted())

	// Restoring the company leaves its projects deleted.
	_, err = cascading.Restore(suite.ctx, staff, project.CompanyID)
	suite.Require().NoError(err)
	_, _, err = suite.projects.Get(suite.ctx, staff, project.ID, false)
	suite.assertKind(err, apierrors.KindNotFound)
}

func (suite *ServiceTestSuite) TestCompanyUpdate() {
	staff := suite.createStaff("staff@example.com")
	company := suite.createCompany("Acme")

	name := "Acme Corp"
	updated, err := suite.companies.Update(suite.ctx, staff, company.ID, UpdateCompanyInput{Name: &name})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "Acme Corp", updated.Name)

	_, err = suite.companies.Update(suite.ctx, staff, 9999, UpdateCompanyInput{Name: &name})
	suite.assertKind(err, apierrors.KindNotFound)
}
