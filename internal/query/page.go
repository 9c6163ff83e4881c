package query

import "healthops/internal/models"

// Page selects a 1-based page of Size records.
type Page struct {
	Index int
	Size  int
}

func (p Page) size() int {
	if p.Size <= 0 {
		return models.DefaultPageSize
	}
	return p.Size
}

// PageCount is floor((total-1)/size)+1, and 0 for an empty result.
func PageCount(total, size int) int {
	if size <= 0 {
		size = models.DefaultPageSize
	}
	if total <= 0 {
		return 0
	}
	return (total-1)/size + 1
}

// ClampPage keeps index within [1, pages]. Callers use it before asking for
// a page; Paginate itself does not clamp.
func ClampPage(index, pages int) int {
	if index > pages {
		index = pages
	}
	if index < 1 {
		index = 1
	}
	return index
}

// Paginate returns page p of items. An out-of-range index yields no items.
func Paginate[T any](items []T, p Page) []T {
	size := p.size()
	if p.Index < 1 {
		return nil
	}
	start := (p.Index - 1) * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// HasNext reports whether a page follows p.
func HasNext(total int, p Page) bool {
	return p.Index < PageCount(total, p.size())
}

// Window caps a large ordered result. When len(items) exceeds threshold only
// the first size items are returned and capped is true.
func Window[T any](items []T, threshold, size int) (window []T, capped bool) {
	if threshold <= 0 {
		threshold = models.LargeCollectionThreshold
	}
	if size <= 0 {
		size = models.DefaultWindowSize
	}
	if len(items) <= threshold || len(items) <= size {
		return items, false
	}
	return items[:size], true
}
