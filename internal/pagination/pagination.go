// Package pagination splits ordered result sets into numbered pages.
package pagination

import (
	"errors"
	"strconv"
	"strings"
)

// Page is one slice of a larger ordered result set plus navigation metadata.
type Page[T any] struct {
	Items              []T   `json:"object_list"`
	Number             int   `json:"number"`
	NumPages           int   `json:"num_pages"`
	Count              int64 `json:"count"`
	PerPage            int   `json:"per_page"`
	HasNext            bool  `json:"has_next"`
	HasPrevious        bool  `json:"has_previous"`
	NextPageNumber     *int  `json:"next_page_number,omitempty"`
	PreviousPageNumber *int  `json:"previous_page_number,omitempty"`
}

// Window locates a page inside a result set of known size.
type Window struct {
	Number   int
	NumPages int
	PerPage  int
	Count    int64
}

// Resolve parses a raw ?page= value against count rows. Missing, malformed
// or non-positive values select the first page; values past the end select
// the last page. An empty result set still has one (empty) page.
func Resolve(raw string, count int64, perPage int) Window {
	if perPage < 1 {
		perPage = 1
	}

	numPages := 1
	if count > 0 {
		numPages = int((count + int64(perPage) - 1) / int64(perPage))
	}

	raw = strings.TrimSpace(raw)
	number, err := strconv.Atoi(raw)
	switch {
	case errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-"):
		number = numPages
	case err != nil || number < 1:
		number = 1
	case number > numPages:
		number = numPages
	}

	return Window{Number: number, NumPages: numPages, PerPage: perPage, Count: count}
}

// Offset is the index of the first row on the page.
func (w Window) Offset() int {
	return (w.Number - 1) * w.PerPage
}

// Limit is the number of rows to fetch for the page.
func (w Window) Limit() int {
	return w.PerPage
}

// NewPage attaches items to the window.
func NewPage[T any](w Window, items []T) Page[T] {
	if items == nil {
		items = []T{}
	}
	p := Page[T]{
		Items:       items,
		Number:      w.Number,
		NumPages:    w.NumPages,
		Count:       w.Count,
		PerPage:     w.PerPage,
		HasNext:     w.Number < w.NumPages,
		HasPrevious: w.Number > 1,
	}
	if p.HasNext {
		next := w.Number + 1
		p.NextPageNumber = &next
	}
	if p.HasPrevious {
		prev := w.Number - 1
		p.PreviousPageNumber = &prev
	}
	return p
}
