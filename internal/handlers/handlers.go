package handlers

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
	"github.com/yukikurage/project-tracker-api/internal/middleware"
	"github.com/yukikurage/project-tracker-api/internal/models"
)

const dateLayout = "2006-01-02"

// optional distinguishes an absent JSON field from an explicit null.
type optional[T any] struct {
	Set   bool
	Value *T
}

func (o *optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// pathID parses a positive numeric path parameter. A malformed id cannot
// match any row, so it is reported as not found.
func pathID(c *gin.Context, name, resource string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apierrors.NewNotFoundError(resource)
	}
	return id, nil
}

// actor returns the authenticated user. RequireAuth guarantees it exists on
// protected routes.
func actor(c *gin.Context) (*models.User, error) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, apierrors.NewUnauthorizedError("")
	}
	return user, nil
}

// includeDeleted reads include_deleted; services decide whether to honour it.
func includeDeleted(c *gin.Context) bool {
	v, err := strconv.ParseBool(c.Query("include_deleted"))
	return err == nil && v
}

// bindJSON decodes the body, reporting malformed JSON as a validation error.
func bindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apierrors.NewValidationError("Invalid request body", nil)
	}
	return nil
}

// parseDate parses a YYYY-MM-DD field; nil and empty strings yield nil.
func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, apierrors.NewFieldError(field, "Date has wrong format. Use YYYY-MM-DD")
	}
	return &t, nil
}
