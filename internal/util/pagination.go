package util

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxWindow bounds offset+limit. It matches Elasticsearch's default
	// index.max_result_window.
	MaxWindow = 10000
)

// Calculate turns a 1-based page and a page size into an offset and limit.
// Out of range sizes fall back to DefaultPageSize; pages past MaxWindow are
// clamped to the last reachable page.
func Calculate(page, size int) (from, limit int) {
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	if last := MaxWindow / size; page > last {
		page = last
	}
	return (page - 1) * size, size
}
