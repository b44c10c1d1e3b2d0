// Package pagination computes page counts, offsets and the page-number window
// shown around the current page in a pager widget.
package pagination

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidPage is matched by every *InvalidPageError.
	ErrInvalidPage     = errors.New("invalid page")
	ErrInvalidPageSize = errors.New("page size must be positive")
	ErrNegativeTotal   = errors.New("total items must not be negative")
	ErrPageNotInteger  = errors.New("page is not an integer")
)

// InvalidPageError reports a page number outside [1, TotalPages].
type InvalidPageError struct {
	Page       int
	TotalPages int
}

func (e *InvalidPageError) Error() string {
	return fmt.Sprintf("page %d out of range [1, %d]", e.Page, e.TotalPages)
}

func (e *InvalidPageError) Is(target error) bool {
	return target == ErrInvalidPage
}

// Window is the set of page links to render around the current page.
// Left and Right never contain the current page and hold at most two pages each.
type Window struct {
	Left          []int
	Right         []int
	ShowFirst     bool
	ShowLast      bool
	LeftEllipsis  bool
	RightEllipsis bool
}

// Compute returns the pager window for current within totalPages.
//
// On a single page everything is empty; the caller should not render a pager.
// A right ellipsis appears only when the last right-hand page is more than one
// page short of the end, while the last-page link appears as soon as it is
// short at all.
func Compute(totalPages, current int) (Window, error) {
	if totalPages < 1 || current < 1 || current > totalPages {
		return Window{}, &InvalidPageError{Page: current, TotalPages: totalPages}
	}
	var w Window
	if totalPages == 1 {
		return w, nil
	}
	if current > 1 {
		w.Left = pageRange(max(current-2, 1), current-1)
		w.ShowFirst = w.Left[0] > 1
		w.LeftEllipsis = w.Left[0] > 2
	}
	if current < totalPages {
		w.Right = pageRange(current+1, min(current+2, totalPages))
		last := w.Right[len(w.Right)-1]
		w.ShowLast = last < totalPages
		w.RightEllipsis = last < totalPages-1
	}
	return w, nil
}

// pageRange returns the pages from..to inclusive.
func pageRange(from, to int) []int {
	pages := make([]int, 0, to-from+1)
	for p := from; p <= to; p++ {
		pages = append(pages, p)
	}
	return pages
}

// Paginator splits TotalItems into pages of PageSize items.
type Paginator struct {
	TotalItems int
	PageSize   int
}

// New validates its inputs and returns a Paginator.
func New(totalItems, pageSize int) (Paginator, error) {
	if pageSize < 1 {
		return Paginator{}, ErrInvalidPageSize
	}
	if totalItems < 0 {
		return Paginator{}, ErrNegativeTotal
	}
	return Paginator{TotalItems: totalItems, PageSize: pageSize}, nil
}

// TotalPages is ceil(TotalItems/PageSize), never less than 1.
func (p Paginator) TotalPages() int {
	if p.TotalItems == 0 {
		return 1
	}
	return (p.TotalItems + p.PageSize - 1) / p.PageSize
}

// Validate returns an *InvalidPageError when page is out of range.
func (p Paginator) Validate(page int) error {
	if page < 1 || page > p.TotalPages() {
		return &InvalidPageError{Page: page, TotalPages: p.TotalPages()}
	}
	return nil
}

// Clamp moves page to the nearest valid boundary.
func (p Paginator) Clamp(page int) int {
	return min(max(page, 1), p.TotalPages())
}

// Offset is the index of the first item on page.
func (p Paginator) Offset(page int) int {
	return (page - 1) * p.PageSize
}

// Limit is the number of items requested per page.
func (p Paginator) Limit() int {
	return p.PageSize
}

func (p Paginator) HasPrev(page int) bool { return page > 1 }

func (p Paginator) HasNext(page int) bool { return page < p.TotalPages() }

// Window computes the pager window for page.
func (p Paginator) Window(page int) (Window, error) {
	return Compute(p.TotalPages(), page)
}

// ParsePage reads a page request parameter. An empty value means the first
// page and "last" means totalPages. The result is not range checked.
func ParsePage(raw string, totalPages int) (int, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return 1, nil
	case "last":
		return totalPages, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrPageNotInteger, raw)
	}
	return n, nil
}
