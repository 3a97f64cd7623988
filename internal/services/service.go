package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
	"github.com/yukikurage/project-tracker-api/internal/events"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/permissions"
	"github.com/yukikurage/project-tracker-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrUserNotFound    = errors.New("user not found")
)

var validate = validator.New()

// base holds what every service shares.
type base struct {
	store  repository.Store
	events events.Publisher
	logger *zap.Logger
	now    func() time.Time
}

func newBase(store repository.Store, publisher events.Publisher, logger *zap.Logger, name string) base {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return base{
		store:  store,
		events: publisher,
		logger: logger.Named(name),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source, for tests.
func (b *base) SetClock(now func() time.Time) {
	b.now = now
}

// today is the calendar day overdue checks compare against.
func (b *base) today() time.Time {
	return models.DateOf(b.now())
}

func (b *base) publish(eventType events.EventType, entityID uint64, actor *models.User, data interface{}) {
	event := events.Event{
		Type:       eventType,
		EntityID:   entityID,
		OccurredAt: b.now(),
		Data:       data,
	}
	if actor != nil {
		event.ActorID = actor.ID
	}
	b.events.Publish(event)
}

// lookupError turns a missing row into the resource's not found error.
func lookupError(err error, sentinel error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		de := apierrors.NewNotFoundError(resource)
		de.Err = sentinel
		return de
	}
	return fmt.Errorf("failed to find %s: %w", resource, err)
}

// referenceError reports a request field pointing at a missing row.
func referenceError(err error, field, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierrors.NewReferenceError(field, resource)
	}
	return fmt.Errorf("failed to find %s: %w", resource, err)
}

// includeDeleted honours the include_deleted flag for staff only.
func includeDeleted(actor *models.User, requested bool) bool {
	return requested && permissions.CanSeeDeleted(actor)
}

// fieldErrors collects per-field validation messages. The first message per
// field wins.
type fieldErrors map[string]string

func (f fieldErrors) add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = message
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apierrors.NewValidationError("Invalid input", f)
}

// text trims value and checks it is non-blank and at most max characters.
func (f fieldErrors) text(field, value string, max int) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		f.add(field, "This field may not be blank")
	case utf8.RuneCountInString(value) > max:
		f.add(field, fmt.Sprintf("Ensure this field has no more than %d characters", max))
	}
	return value
}

// uniqueIDs drops duplicates and keeps the first occurrence order.
func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	result := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

// ensureActiveUsers fails with a reference error unless every id is an
// active, non-deleted user.
func ensureActiveUsers(ctx context.Context, repo repository.UserRepository, field string, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	count, err := repo.CountActiveByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to check users: %w", err)
	}
	if count != int64(len(ids)) {
		return apierrors.NewReferenceError(field, "user")
	}
	return nil
}
