package handlers

import (
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-tracker-api/internal/dto"
	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
)

func (suite *HandlerTestSuite) TestAuthFlow() {
	w := suite.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"email":     "Newbie@Example.com",
		"full_name": "Nina Park",
		"password":  "supersecret",
	}, "")
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	suite.NotContains(w.Body.String(), "password")

	var registered dto.UserDTO
	suite.decode(w, &registered)
	suite.Equal("newbie@example.com", registered.Email)

	w = suite.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "NEWBIE@example.com", "password": "supersecret"}, "")
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var login dto.LoginResponse
	suite.decode(w, &login)
	suite.Equal(registered.ID, login.ID)
	suite.Equal("Nina Park", login.FullName)
	suite.NotEmpty(login.Access)
	suite.NotEmpty(login.Refresh)

	w = suite.do(http.MethodGet, "/api/v1/auth/me", nil, login.Access)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"email":"newbie@example.com"`)

	w = suite.do(http.MethodPost, "/api/v1/auth/refresh", gin.H{"refresh": login.Refresh}, "")
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	// The old refresh token was rotated out.
	w = suite.do(http.MethodPost, "/api/v1/auth/refresh", gin.H{"refresh": login.Refresh}, "")
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlerTestSuite) TestRegister_Errors() {
	suite.createUser("taken@example.com", false)

	w := suite.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"email": "TAKEN@example.com", "full_name": "Some One", "password": "supersecret",
	}, "")
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"email": "someone@mail.ru", "full_name": "Some One", "password": "short",
	}, "")
	suite.Require().Equal(http.StatusBadRequest, w.Code)
	var body errorBody
	suite.decode(w, &body)
	suite.Equal(apierrors.ErrCodeValidation, body.Code)
	suite.Contains(body.Details, "email")
	suite.Contains(body.Details, "password")
}

func (suite *HandlerTestSuite) TestLogin_WrongPassword() {
	suite.createUser("user@example.com", false)

	w := suite.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "user@example.com", "password": "nope-nope"}, "")
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlerTestSuite) TestLogin_SessionFallback() {
	suite.createUser("user@example.com", false)

	w := suite.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "user@example.com", "password": "password123"}, "")
	suite.Require().Equal(http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	me := httptest.NewRecorder()
	suite.router.ServeHTTP(me, req)
	suite.Equal(http.StatusOK, me.Code)

	w = suite.do(http.MethodPost, "/api/v1/auth/logout", nil, "")
	suite.Equal(http.StatusOK, w.Code)
}
