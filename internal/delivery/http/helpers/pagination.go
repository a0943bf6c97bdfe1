package helpers

import (
	"fmt"
	"net/http"
	"strconv"

	"bookclub/internal/domain"
)

// ParsePagination reads page and page_size from the query string. Absent values mean the first
// page of domain.DefaultPageSize rows. Present but malformed or out of range values are rejected
// with an error wrapping domain.ErrInvalidInput.
func ParsePagination(r *http.Request) (domain.PaginationParams, error) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return domain.PaginationParams{}, err
	}
	pageSize, err := queryInt(r, "page_size", domain.DefaultPageSize)
	if err != nil {
		return domain.PaginationParams{}, err
	}
	return domain.NewPaginationParams(page, pageSize)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, name)
	}
	return v, nil
}

// PaginationMeta describes the page returned by a list endpoint.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPaginationMeta(params domain.PaginationParams, total int) PaginationMeta {
	return PaginationMeta{
		Page:       params.Page,
		PageSize:   params.Limit(),
		Total:      total,
		TotalPages: params.TotalPages(total),
	}
}
