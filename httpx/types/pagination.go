// Package types holds shared request/response types for HTTP handlers.
package types

// PageQuery is the paging part of a list request, embeddable into request
// types.
type PageQuery struct {
	Current int `form:"current" json:"current"`
	Size    int `form:"size" json:"size"`
}

// ApplyDefaults clamps paging to sane bounds.
func (p *PageQuery) ApplyDefaults() {
	if p.Current <= 0 {
		p.Current = 1
	}
	if p.Size <= 0 {
		p.Size = 10
	}
	if p.Size > 100 {
		p.Size = 100
	}
}

// Offset returns the row offset for the current page.
func (p *PageQuery) Offset() int {
	return (p.Current - 1) * p.Size
}

// PageMeta describes one page of a list response.
type PageMeta struct {
	Total   int64 `json:"total"`
	Size    int   `json:"size"`
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
}

// NewPageMeta computes the page count for a total.
func NewPageMeta(total int64, current, size int) PageMeta {
	var pages int
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return PageMeta{
		Total:   total,
		Size:    size,
		Current: current,
		Pages:   pages,
	}
}
