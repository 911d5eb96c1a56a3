// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
)

// --- Pagination ---

// PaginationRequest contains pagination parameters.
type PaginationRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"pageSize" binding:"omitempty,min=1,max=500"`
}

// Defaults sets default pagination values.
func (p *PaginationRequest) Defaults() {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = 50
	}
}

// Offset calculates SQL offset.
func (p *PaginationRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ToPage converts to a domain page window.
func (p *PaginationRequest) ToPage() domain.Page {
	p.Defaults()
	return domain.Page{Limit: p.PageSize, Offset: p.Offset()}
}

// PaginationResponse contains pagination metadata.
type PaginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// NewPaginationResponse creates pagination response.
func NewPaginationResponse(page, pageSize int, totalItems int64) PaginationResponse {
	totalPages := int(totalItems) / pageSize
	if int(totalItems)%pageSize > 0 {
		totalPages++
	}
	return PaginationResponse{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// GenericListResponse wraps list results with pagination (generic version).
type GenericListResponse[T any] struct {
	Data       []T                `json:"data"`
	Pagination PaginationResponse `json:"pagination"`
}

// DataResponse wraps an unpaginated list.
type DataResponse[T any] struct {
	Data []T `json:"data"`
}

// NewDataResponse never renders a null list.
func NewDataResponse[T any](items []T) DataResponse[T] {
	if items == nil {
		items = []T{}
	}
	return DataResponse[T]{Data: items}
}

// HistoryQuery limits an audit history listing.
type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// parseID parses a required UUID field of a request body.
func parseID(field, value string) (id.ID, error) {
	parsed, err := id.Parse(value)
	if err != nil || id.IsNil(parsed) {
		return id.ID{}, apperror.NewValidation("invalid "+field).
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return parsed, nil
}
