// Package domain provides types shared by the business packages.
package domain

import "time"

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ListFilter contains common pagination and date options for list operations.
type ListFilter struct {
	FromDate *time.Time
	ToDate   *time.Time

	// Pagination
	Limit  int
	Offset int
}

// Normalize clamps pagination to sane bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// Paginate slices an in-memory result set according to the filter.
func Paginate[T any](all []T, f ListFilter) ListResult[T] {
	f = f.Normalize()
	res := ListResult[T]{Items: []T{}, TotalCount: int64(len(all)), Limit: f.Limit, Offset: f.Offset}
	if f.Offset >= len(all) {
		return res
	}
	end := f.Offset + f.Limit
	if end > len(all) {
		end = len(all)
	}
	res.Items = append(res.Items, all[f.Offset:end]...)
	return res
}
