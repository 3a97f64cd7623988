package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Kind classifies expected failures. Each kind maps to one HTTP status.
type Kind string

const (
	KindValidation           Kind = ErrCodeValidation
	KindNotFound             Kind = ErrCodeNotFound
	KindForbidden            Kind = ErrCodeForbidden
	KindReferentialViolation Kind = ErrCodeReferentialViolation
	KindConflict             Kind = ErrCodeConflict
	KindUnauthorized         Kind = ErrCodeUnauthorized
)

// DomainError is an expected failure raised by services. Fields carries
// per-field validation messages.
type DomainError struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status for the error kind.
func (e *DomainError) Status() int {
	switch e.Kind {
	case KindValidation, KindReferentialViolation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError reports invalid input. fields may be nil.
func NewValidationError(message string, fields map[string]string) *DomainError {
	return &DomainError{Kind: KindValidation, Message: message, Fields: fields}
}

// NewFieldError is a validation error on a single field.
func NewFieldError(field, message string) *DomainError {
	return NewValidationError(message, map[string]string{field: message})
}

// NewNotFoundError names the missing resource, e.g. "project".
func NewNotFoundError(resource string) *DomainError {
	return &DomainError{Kind: KindNotFound, Message: capitalize(resource) + " not found"}
}

func NewPermissionError(reason string) *DomainError {
	if reason == "" {
		reason = "Access denied"
	}
	return &DomainError{Kind: KindForbidden, Message: reason}
}

// NewReferenceError reports a reference to a missing related entity.
func NewReferenceError(field, resource string) *DomainError {
	message := capitalize(resource) + " does not exist"
	return &DomainError{
		Kind:    KindReferentialViolation,
		Message: message,
		Fields:  map[string]string{field: message},
	}
}

func NewConflictError(message string) *DomainError {
	return &DomainError{Kind: KindConflict, Message: message}
}

func NewUnauthorizedError(message string) *DomainError {
	if message == "" {
		message = "Authentication required"
	}
	return &DomainError{Kind: KindUnauthorized, Message: message}
}

// IsKind reports whether err wraps a DomainError of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Kind == kind
}

// Respond writes err as an APIError. Domain errors map to their status;
// anything else is logged and reported as a generic 500 without the cause.
func Respond(c *gin.Context, logger *zap.Logger, err error) {
	var de *DomainError
	if errors.As(err, &de) {
		apiErr := NewAPIError(string(de.Kind), de.Message)
		if len(de.Fields) > 0 {
			apiErr.Details = de.Fields
		}
		c.AbortWithStatusJSON(de.Status(), apiErr)
		return
	}

	logger.Error("request failed",
		zap.Error(err),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrInternalError)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
