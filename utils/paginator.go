package utils

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Page describes one slice of an ordered collection.
type Page struct {
	Number      int   `json:"page"`
	NumPages    int   `json:"total_pages"`
	PerPage     int   `json:"page_size"`
	Total       int64 `json:"total"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// Offset is the index of the first item on the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// NewPage clamps the requested page into [1, last page]. A missing or non-numeric request
// means page 1. An empty collection still has one (empty) page.
func NewPage(pageParam string, perPage int, total int64) Page {
	if perPage <= 0 {
		perPage = 10
	}
	numPages := int((total + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		numPages = 1
	}

	number := 1
	if n, err := strconv.Atoi(strings.TrimSpace(pageParam)); err == nil && n > 0 {
		number = n
	}
	if number > numPages {
		number = numPages
	}

	return Page{
		Number:      number,
		NumPages:    numPages,
		PerPage:     perPage,
		Total:       total,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
}

// Paginate counts the rows matched by query, then loads the requested page into dest.
// scopes are applied to the page query only, so selects that would break COUNT belong there.
func Paginate(query *gorm.DB, pageParam string, perPage int, dest interface{}, scopes ...func(*gorm.DB) *gorm.DB) (Page, error) {
	q := query.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return Page{}, err
	}

	page := NewPage(pageParam, perPage, total)
	if err := q.Scopes(scopes...).Offset(page.Offset()).Limit(page.PerPage).Find(dest).Error; err != nil {
		return Page{}, err
	}
	return page, nil
}
