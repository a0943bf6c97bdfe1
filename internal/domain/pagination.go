package domain

import "fmt"

// Page size bounds for every paginated list.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginationParams selects a 1-based page of a list.
type PaginationParams struct {
	Page     int
	PageSize int
}

// NewPaginationParams returns ErrInvalidInput unless page >= 1 and 1 <= pageSize <= MaxPageSize.
func NewPaginationParams(page, pageSize int) (PaginationParams, error) {
	if page < 1 {
		return PaginationParams{}, fmt.Errorf("%w: page must be at least 1", ErrInvalidInput)
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return PaginationParams{}, fmt.Errorf("%w: page_size must be between 1 and %d", ErrInvalidInput, MaxPageSize)
	}
	return PaginationParams{Page: page, PageSize: pageSize}, nil
}

// Limit is the page size to query with. Zero means DefaultPageSize and larger sizes are capped.
func (p PaginationParams) Limit() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	}
	return p.PageSize
}

// Offset is the number of rows that precede the page.
func (p PaginationParams) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// TotalPages is the number of pages needed for total rows.
func (p PaginationParams) TotalPages(total int) int {
	limit := p.Limit()
	return (total + limit - 1) / limit
}
