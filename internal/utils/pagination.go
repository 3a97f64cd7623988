package utils

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strconv"

	"github.com/yukikurage/project-tracker-api/internal/constants"
)

// PageParams holds the validated pagination parameters.
type PageParams struct {
	Page     int
	PageSize int
}

// Offset is the number of items before the requested page. It saturates at
// math.MaxInt instead of overflowing.
func (p PageParams) Offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// PaginationResponse represents the pagination metadata in API responses
type PaginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Page is one slice of a collection plus its metadata.
type Page[T any] struct {
	Data       []T                `json:"data"`
	Pagination PaginationResponse `json:"pagination"`
}

// Source is anything that can be counted and sliced: a database query or an
// in-memory list.
type Source[T any] interface {
	Count(ctx context.Context) (int64, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

// ErrNegativeOffset is returned by SliceSource.Slice for offsets below zero.
var ErrNegativeOffset = errors.New("pagination: negative offset")

// SliceSource adapts a materialized list to Source.
type SliceSource[T any] []T

func (s SliceSource[T]) Count(context.Context) (int64, error) {
	return int64(len(s)), nil
}

func (s SliceSource[T]) Slice(_ context.Context, offset, limit int) ([]T, error) {
	if offset < 0 {
		return nil, ErrNegativeOffset
	}
	if offset >= len(s) || limit <= 0 {
		return []T{}, nil
	}
	end := len(s)
	if limit < end-offset {
		end = offset + limit
	}
	return s[offset:end], nil
}

// ParsePageParams extracts and validates pagination parameters. Invalid or
// non-positive values fall back to page 1 and the default page size. The page
// is clamped so that page*page_size fits in an int.
func ParsePageParams(query url.Values) PageParams {
	page, err := strconv.Atoi(query.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(query.Get("page_size"))
	if err != nil || pageSize < constants.MinPageSize {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}
	if maxPage := math.MaxInt / pageSize; page > maxPage {
		page = maxPage
	}

	return PageParams{Page: page, PageSize: pageSize}
}

// Paginate counts src and returns the requested page. A page past the end
// yields an empty, non-nil Data slice.
func Paginate[T any](ctx context.Context, src Source[T], params PageParams) (Page[T], error) {
	total, err := src.Count(ctx)
	if err != nil {
		return Page[T]{}, err
	}

	offset := int64(params.Offset())
	items := []T{}
	if offset < total {
		items, err = src.Slice(ctx, params.Offset(), params.PageSize)
		if err != nil {
			return Page[T]{}, err
		}
		if items == nil {
			items = []T{}
		}
	}

	return Page[T]{
		Data: items,
		Pagination: PaginationResponse{
			Page:       params.Page,
			PageSize:   params.PageSize,
			TotalCount: total,
			HasNext:    offset < total && total-offset > int64(params.PageSize),
			HasPrev:    params.Page > 1,
		},
	}, nil
}

// MapPage converts the items of a page while keeping its metadata.
func MapPage[T, U any](page Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(page.Data))
	for i, item := range page.Data {
		out[i] = fn(item)
	}
	return Page[U]{Data: out, Pagination: page.Pagination}
}
