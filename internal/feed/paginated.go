package feed

import (
	"context"
	"sync"
)

// PageQuery is a base query plus a page window.
type PageQuery[Q Query] struct {
	Base     Q
	Page     int
	PageSize int
}

func (p PageQuery[Q]) IsZero() bool {
	return p.Base.IsZero()
}

// PageFetchFunc loads one page for a base query.
type PageFetchFunc[Q Query, T any] func(ctx context.Context, q Q, page, pageSize int) ([]T, error)

// Paginated is a feed whose query carries a page number. Changing the base
// query keeps the current page.
type Paginated[Q Query, T any] struct {
	*Feed[PageQuery[Q], T]

	mu       sync.Mutex
	base     Q
	page     int
	pageSize int
}

// NewPaginated creates a paginated feed starting at page 1.
func NewPaginated[Q Query, T any](name string, pageSize int, fetch PageFetchFunc[Q, T]) *Paginated[Q, T] {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Paginated[Q, T]{
		Feed: New(name, func(ctx context.Context, q PageQuery[Q]) ([]T, error) {
			return fetch(ctx, q.Base, q.Page, q.PageSize)
		}),
		page:     1,
		pageSize: pageSize,
	}
}

// SetQuery changes the base query when it differs from the current one.
// The request is issued under mu so the feed's query always matches the
// last base and page set. Subscribers must not call back into p.
func (p *Paginated[Q, T]) SetQuery(ctx context.Context, base Q) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.base = base
	p.Feed.SetIfChanged(ctx, PageQuery[Q]{Base: base, Page: p.page, PageSize: p.pageSize})
}

// SetPage moves to page n (1-based) and refetches.
func (p *Paginated[Q, T]) SetPage(ctx context.Context, n int) error {
	if n < 1 {
		return ErrInvalidPage
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.page = n
	p.Feed.Set(ctx, PageQuery[Q]{Base: p.base, Page: n, PageSize: p.pageSize})
	return nil
}

// Page returns the current page number.
func (p *Paginated[Q, T]) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

func (p *Paginated[Q, T]) PageSize() int {
	return p.pageSize
}
