package ports

const (
	// MaxPerPage bounds every list endpoint.
	MaxPerPage = 100
	// MaxPage keeps (page-1)*perPage well inside a Postgres OFFSET.
	MaxPage = 1_000_000

	DefaultProjectsPerPage      = 10
	DefaultTasksPerPage         = 10
	DefaultCommentsPerPage      = 20
	DefaultNotificationsPerPage = 20
)

// Page is a normalized page request.
type Page struct {
	Number  int
	PerPage int
}

// NewPage applies defaults to zero values and clamps out-of-range input.
// Callers facing user input validate with ValidPage first.
func NewPage(number, perPage, defaultPerPage int) Page {
	if number < 1 {
		number = 1
	}
	if number > MaxPage {
		number = MaxPage
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Page{Number: number, PerPage: perPage}
}

// ValidPage reports whether number and perPage are inside the accepted bounds.
func ValidPage(number, perPage int) bool {
	return number >= 1 && number <= MaxPage && perPage >= 1 && perPage <= MaxPerPage
}

// Skip is the number of rows before the page.
func (p Page) Skip() int {
	return (p.Number - 1) * p.PerPage
}

// Take is the page size.
func (p Page) Take() int {
	return p.PerPage
}

// PageMeta describes a returned page.
type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalPages int `json:"totalPages"`
}

// NewPageMeta computes totalPages = ceil(total/perPage).
func NewPageMeta(p Page, total int) PageMeta {
	totalPages := 0
	if p.PerPage > 0 {
		totalPages = (total + p.PerPage - 1) / p.PerPage
	}
	return PageMeta{
		Total:      total,
		Page:       p.Number,
		PerPage:    p.PerPage,
		TotalPages: totalPages,
	}
}

// Paginate returns the slice of items covered by p. Used by in-memory stores.
func Paginate[T any](items []T, p Page) []T {
	start := p.Skip()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Take()
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
