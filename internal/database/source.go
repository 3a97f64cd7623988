package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/yukikurage/project-tracker-api/internal/utils"
)

// QuerySource counts and slices a gorm query lazily. Preloads and ordering
// on the query are applied only when slicing.
type QuerySource[T any] struct {
	query *gorm.DB
}

func NewQuerySource[T any](query *gorm.DB) QuerySource[T] {
	return QuerySource[T]{query: query}
}

func (s QuerySource[T]) Count(ctx context.Context) (int64, error) {
	var total int64
	var model T
	err := s.query.Session(&gorm.Session{}).WithContext(ctx).Model(&model).Count(&total).Error
	return total, err
}

// Slice rejects negative offsets, which gorm would otherwise treat as no
// offset at all.
func (s QuerySource[T]) Slice(ctx context.Context, offset, limit int) ([]T, error) {
	if offset < 0 {
		return nil, utils.ErrNegativeOffset
	}
	items := []T{}
	err := s.query.Session(&gorm.Session{}).WithContext(ctx).
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	return items, err
}
