package quill

import "github.com/eringen/quill/pagination"

// requestedPage resolves the ?page= value for a listing with p's totals.
// Non-numeric values fall back to the first page and out-of-range numbers
// are clamped, so a listing URL never errors.
func requestedPage(raw string, p pagination.Paginator) int {
	page, err := pagination.ParsePage(raw, p.TotalPages())
	if err != nil {
		return 1
	}
	return p.Clamp(page)
}

// newPager builds the pager widget for page of p. Links point at base.
func newPager(p pagination.Paginator, page int, base string) (Pager, error) {
	w, err := p.Window(page)
	if err != nil {
		return Pager{}, err
	}
	pg := Pager{
		Show:       p.TotalPages() > 1,
		Page:       page,
		TotalPages: p.TotalPages(),
		HasPrev:    p.HasPrev(page),
		HasNext:    p.HasNext(page),
		Window:     w,
		base:       base,
	}
	if pg.HasPrev {
		pg.Prev = page - 1
	}
	if pg.HasNext {
		pg.Next = page + 1
	}
	return pg, nil
}
