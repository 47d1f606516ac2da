package model

import (
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
	// MaxPage keeps Page*Size far from overflowing an int.
	MaxPage = 1_000_000
)

type PageRequest struct {
	Page int    `json:"page"`
	Size int    `json:"size"`
	Sort string `json:"sort"`
}

// Normalize clamps page and size into their valid ranges.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// SortClause resolves "field,dir" against an allow-list of field→column names.
// Unknown fields fall back to def.
func (p PageRequest) SortClause(allowed map[string]string, def string) string {
	if p.Sort == "" {
		return def
	}
	field, dir, _ := strings.Cut(p.Sort, ",")
	column, ok := allowed[strings.TrimSpace(field)]
	if !ok {
		return def
	}
	if strings.EqualFold(strings.TrimSpace(dir), "desc") {
		return column + " DESC"
	}
	return column + " ASC"
}

type Page[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}

func NewPage[T any](items []T, req PageRequest, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Page: req.Page, Size: req.Size, Total: total}
}
