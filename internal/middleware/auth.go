package middleware

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-tracker-api/internal/constants"
	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"go.uber.org/zap"
)

// Authenticator resolves the caller from a bearer token or a session.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
	CurrentUser(ctx context.Context, userID uint64) (*models.User, error)
}

// RequireAuth accepts a Bearer access token, falling back to the session
// cookie. The resolved user is stored in the context.
func RequireAuth(authenticator Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			user *models.User
			err  error
		)

		if token, ok := bearerToken(c); ok {
			user, err = authenticator.Authenticate(c.Request.Context(), token)
		} else if userID, ok := sessionUserID(c); ok {
			user, err = authenticator.CurrentUser(c.Request.Context(), userID)
		} else {
			apierrors.Unauthorized(c, "")
			return
		}

		if err != nil {
			apierrors.Respond(c, logger, err)
			return
		}

		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyCurrentUser, user)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

// CurrentUser retrieves the authenticated user set by RequireAuth
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(constants.ContextKeyCurrentUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func sessionUserID(c *gin.Context) (uint64, bool) {
	session := sessions.Default(c)
	return toUint64(session.Get(constants.ContextKeyUserID))
}

// toUint64 handles the numeric types session codecs hand back.
func toUint64(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}
