// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/core/id"
	"cashpoint/internal/domain"
)

// --- Pagination ---

// ListQuery contains common pagination and date query parameters.
type ListQuery struct {
	Limit    int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset   int        `form:"offset" binding:"omitempty,min=0"`
	FromDate *time.Time `form:"fromDate" time_format:"2006-01-02T15:04:05Z07:00"`
	ToDate   *time.Time `form:"toDate" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ToFilter converts the query to a domain filter with sane bounds.
func (q ListQuery) ToFilter() domain.ListFilter {
	return domain.ListFilter{
		FromDate: q.FromDate,
		ToDate:   q.ToDate,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}.Normalize()
}

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// FromListResult creates a ListResponse from a domain result.
func FromListResult[T any](r domain.ListResult[T]) ListResponse[T] {
	items := r.Items
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, TotalCount: r.TotalCount, Limit: r.Limit, Offset: r.Offset}
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// parseOptionalID parses an optional UUID field.
func parseOptionalID(field string, s *string) (*id.ID, error) {
	if s == nil {
		return nil, nil
	}
	parsed, err := id.ParseOptional(*s)
	if err != nil {
		return nil, apperror.NewValidation("invalid " + field + " format")
	}
	return parsed, nil
}
