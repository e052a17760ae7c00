package links

// Pager tracks the list view's position in the link collection. The
// zero page size is not valid; construct with NewPager.
type Pager struct {
	Page     int
	PageSize int
	Search   string
}

func NewPager(pageSize int) Pager {
	return Pager{Page: 1, PageSize: pageSize}
}

// Skip is the record offset the API expects for the current page.
func (p Pager) Skip() int {
	return (p.Page - 1) * p.PageSize
}

// PageCount is ceil(total / pageSize). An empty collection has zero
// pages.
func (p Pager) PageCount(total int64) int {
	if total <= 0 || p.PageSize <= 0 {
		return 0
	}

	return int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// HasNext reports whether a next page exists. False exactly when
// page >= pageCount.
func (p Pager) HasNext(total int64) bool {
	return p.Page < p.PageCount(total)
}

// HasPrev reports whether a previous page exists. False exactly on
// page 1.
func (p Pager) HasPrev() bool {
	return p.Page > 1
}

// Next advances one page when possible.
func (p *Pager) Next(total int64) bool {
	if !p.HasNext(total) {
		return false
	}
	p.Page++

	return true
}

// Prev steps back one page when possible.
func (p *Pager) Prev() bool {
	if !p.HasPrev() {
		return false
	}
	p.Page--

	return true
}

// SetSearch switches the result set. The page is explicitly reset to 1:
// a page number from the old result set is never silently clamped
// against the new one.
func (p *Pager) SetSearch(term string) {
	if p.Search == term {
		return
	}
	p.Search = term
	p.Page = 1
}
