package shared

// defaultPerPage caps unbounded listings such as the journal entry index.
const defaultPerPage = 20

// Pagination describes one page of a listing response.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination normalises page inputs and derives the page count. Zero or
// negative inputs fall back to the first page at the default size.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if page <= 0 {
		page = 1
	}
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}
}
