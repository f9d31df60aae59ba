// Package paging provides page-window arithmetic for client-side pagination.
package paging

// Window describes the slice of a collection that one page covers.
type Window struct {
	Start      int  // first index on the page
	End        int  // one past the last index on the page
	TotalPages int  // ceil(total / pageSize); 0 when the collection is empty
	Valid      bool // whether the requested page exists
}

// Compute derives the window for the requested 1-based page. A page outside
// [1, TotalPages] yields Valid=false with zeroed bounds; requesting page 1
// of an empty collection is invalid. pageSize must be at least 1.
func Compute(totalItems, pageSize, requestedPage int) Window {
	if totalItems < 0 || pageSize < 1 {
		return Window{}
	}

	totalPages := (totalItems + pageSize - 1) / pageSize
	if requestedPage < 1 || requestedPage > totalPages {
		return Window{TotalPages: totalPages}
	}

	start := (requestedPage - 1) * pageSize
	end := start + pageSize
	if end > totalItems {
		end = totalItems
	}

	return Window{Start: start, End: end, TotalPages: totalPages, Valid: true}
}
