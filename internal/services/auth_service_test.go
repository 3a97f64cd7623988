package services

import (
	"strings"
	"time"

	"github.com/stretchr/testify/assert"
	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
	"github.com/yukikurage/project-tracker-api/internal/events"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func (suite *ServiceTestSuite) TestRegister_Success() {
	user, err := suite.auth.Register(suite.ctx, RegisterInput{
		Email:    "  Jane.Doe@Example.com ",
		FullName: "Jane Smith",
		Password: "correct-horse",
	})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), "jane.doe@example.com", user.Email)
	assert.True(suite.T(), user.IsActive)
	assert.False(suite.T(), user.IsStaff)
	assert.NotEqual(suite.T(), "correct-horse", user.PasswordHash)
	suite.assertPublished(events.UserRegistered)
}

func (suite *ServiceTestSuite) TestRegister_Validation() {
	tests := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{"blocked domain", RegisterInput{Email: "ivan@mail.ru", FullName: "Ivan Petrov", Password: "password123"}, "email"},
		{"invalid email", RegisterInput{Email: "not-an-email", FullName: "Someone", Password: "password123"}, "email"},
		{"name contains local part", RegisterInput{Email: "jsmith@example.com", FullName: "JSmith Junior", Password: "password123"}, "full_name"},
		{"blank name", RegisterInput{Email: "a.b@example.com", FullName: "   ", Password: "password123"}, "full_name"},
		{"short password", RegisterInput{Email: "a.b@example.com", FullName: "Someone", Password: "short"}, "password"},
		{"password over 72 bytes", RegisterInput{Email: "a.b@example.com", FullName: "Someone", Password: strings.Repeat("a", 80)}, "password"},
		{"multibyte password over 72 bytes", RegisterInput{Email: "a.b@example.com", FullName: "Someone", Password: strings.Repeat("é", 37)}, "password"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.auth.Register(suite.ctx, tt.input)
			suite.assertKind(err, apierrors.KindValidation)

			var de *apierrors.DomainError
			suite.Require().ErrorAs(err, &de)
			assert.Contains(suite.T(), de.Fields, tt.field)
		})
	}
}

func (suite *ServiceTestSuite) TestRegister_SeventyTwoBytePassword() {
	password := strings.Repeat("p", 72)
	_, err := suite.auth.Register(suite.ctx, RegisterInput{Email: "long.pw@example.com", FullName: "Someone", Password: password})
	suite.Require().NoError(err)

	_, err = suite.auth.Login(suite.ctx, LoginInput{Email: "long.pw@example.com", Password: password})
	suite.Require().NoError(err)
}

func (suite *ServiceTestSuite) TestRegister_DuplicateEmailIgnoresCase() {
	suite.createUser("taken@example.com")

	_, err := suite.auth.Register(suite.ctx, RegisterInput{Email: "TAKEN@example.com", FullName: "Someone Else", Password: "password123"})
	suite.assertKind(err, apierrors.KindConflict)
	assert.ErrorIs(suite.T(), err, ErrEmailTaken)

	var de *apierrors.DomainError
	suite.Require().ErrorAs(err, &de)
	assert.Equal(suite.T(), "A user with this email already exists", de.Message)
	assert.Equal(suite.T(), 409, de.Status())
}

func (suite *ServiceTestSuite) TestRegister_DeletedUserKeepsEmail() {
	user := suite.createUser("gone@example.com")
	suite.Require().NoError(suite.store.Users().SoftDelete(suite.ctx, user.ID, now))

	_, err := suite.auth.Register(suite.ctx, RegisterInput{Email: "gone@example.com", FullName: "Someone Else", Password: "password123"})
	assert.ErrorIs(suite.T(), err, ErrEmailTaken)
}

func (suite *ServiceTestSuite) TestLogin() {
	user := suite.createUser("login@example.com")

	result, err := suite.auth.Login(suite.ctx, LoginInput{Email: "LOGIN@example.com", Password: "password123"})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), user.ID, result.User.ID)
	assert.NotEmpty(suite.T(), result.Tokens.Access)
	assert.NotEmpty(suite.T(), result.Tokens.Refresh)

	_, err = suite.auth.Login(suite.ctx, LoginInput{Email: "login@example.com", Password: "wrong-password"})
	suite.assertKind(err, apierrors.KindUnauthorized)
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)

	_, err = suite.auth.Login(suite.ctx, LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
}

func (suite *ServiceTestSuite) TestLogin_InactiveOrDeleted() {
	inactive := suite.createUser("inactive@example.com")
	inactive.IsActive = false
	suite.Require().NoError(suite.store.Users().Update(suite.ctx, inactive))

	deleted := suite.createUser("deleted@example.com")
	suite.Require().NoError(suite.store.Users().SoftDelete(suite.ctx, deleted.ID, now))

	for _, email := range []string{"inactive@example.com", "deleted@example.com"} {
		_, err := suite.auth.Login(suite.ctx, LoginInput{Email: email, Password: "password123"})
		assert.ErrorIs(suite.T(), err, ErrInvalidCredentials, email)
	}
}

func (suite *ServiceTestSuite) TestRefresh_RotatesToken() {
	suite.createUser("refresh@example.com")
	result, err := suite.auth.Login(suite.ctx, LoginInput{Email: "refresh@example.com", Password: "password123"})
	suite.Require().NoError(err)

	pair, err := suite.auth.Refresh(suite.ctx, result.Tokens.Refresh)
	suite.Require().NoError(err)
	assert.NotEqual(suite.T(), result.Tokens.Refresh, pair.Refresh)

	_, err = suite.auth.Refresh(suite.ctx, result.Tokens.Refresh)
	suite.assertKind(err, apierrors.KindUnauthorized)
	assert.ErrorIs(suite.T(), err, ErrTokenRevoked)

	_, err = suite.auth.Refresh(suite.ctx, pair.Refresh)
	assert.NoError(suite.T(), err)
}

func (suite *ServiceTestSuite) TestRefresh_RejectsAccessToken() {
	suite.createUser("refresh@example.com")
	result, err := suite.auth.Login(suite.ctx, LoginInput{Email: "refresh@example.com", Password: "password123"})
	suite.Require().NoError(err)

	_, err = suite.auth.Refresh(suite.ctx, result.Tokens.Access)
	suite.assertKind(err, apierrors.KindUnauthorized)
}

func (suite *ServiceTestSuite) TestLogout() {
	suite.createUser("logout@example.com")
	result, err := suite.auth.Login(suite.ctx, LoginInput{Email: "logout@example.com", Password: "password123"})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.auth.Logout(suite.ctx, result.Tokens.Refresh))
	assert.NoError(suite.T(), suite.auth.Logout(suite.ctx, result.Tokens.Refresh))

	_, err = suite.auth.Refresh(suite.ctx, result.Tokens.Refresh)
	assert.ErrorIs(suite.T(), err, ErrTokenRevoked)

	suite.assertKind(suite.auth.Logout(suite.ctx, "garbage"), apierrors.KindUnauthorized)
}

func (suite *ServiceTestSuite) TestAuthenticate() {
	user := suite.createUser("me@example.com")
	result, err := suite.auth.Login(suite.ctx, LoginInput{Email: "me@example.com", Password: "password123"})
	suite.Require().NoError(err)

	found, err := suite.auth.Authenticate(suite.ctx, result.Tokens.Access)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), user.ID, found.ID)

	suite.Require().NoError(suite.store.Users().SoftDelete(suite.ctx, user.ID, now))
	_, err = suite.auth.Authenticate(suite.ctx, result.Tokens.Access)
	suite.assertKind(err, apierrors.KindUnauthorized)
}

func (suite *ServiceTestSuite) TestPurgeRevokedTokens() {
	suite.createUser("purge@example.com")
	result, err := suite.auth.Login(suite.ctx, LoginInput{Email: "purge@example.com", Password: "password123"})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.auth.Logout(suite.ctx, result.Tokens.Refresh))

	purged, err := suite.auth.PurgeRevokedTokens(suite.ctx)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(0), purged)

	suite.auth.SetClock(func() time.Time { return now.Add(48 * time.Hour) })
	purged, err = suite.auth.PurgeRevokedTokens(suite.ctx)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1), purged)
}

func (suite *ServiceTestSuite) TestPurgeRevokedTokens_LogsCountOnce() {
	core, logs := observer.New(zap.InfoLevel)
	authService := NewAuthService(suite.store, suite.tokens, suite.publisher, zap.New(core))
	authService.SetClock(clock)

	suite.createUser("purge@example.com")
	result, err := authService.Login(suite.ctx, LoginInput{Email: "purge@example.com", Password: "password123"})
	suite.Require().NoError(err)
	suite.Require().NoError(authService.Logout(suite.ctx, result.Tokens.Refresh))

	authService.SetClock(func() time.Time { return now.Add(48 * time.Hour) })
	purged, err := authService.PurgeRevokedTokens(suite.ctx)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1), purged)

	entries := logs.FilterField(zap.Int64("count", 1)).All()
	suite.Require().Len(entries, 1)
	assert.Equal(suite.T(), "purged expired token revocations", entries[0].Message)
}
