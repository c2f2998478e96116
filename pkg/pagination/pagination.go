package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds page-based pagination parameters extracted from a request.
// Page is 1-based.
type Params struct {
	Page  int
	Limit int
}

// FromContext reads ?page= and ?limit=, falling back to the defaults for
// missing or non-positive values and capping limit at MaxLimit.
func FromContext(c echo.Context) Params {
	return Normalize(atoi(c.QueryParam("page")), atoi(c.QueryParam("limit")))
}

// Normalize applies the same defaults and caps as FromContext.
func Normalize(page, limit int) Params {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Offset is the number of rows skipped before this page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages returns how many pages total rows fill; zero rows is zero pages.
func (p Params) TotalPages(total int) int {
	if total <= 0 || p.Limit <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

func (p Params) HasNext(total int) bool {
	return p.Page < p.TotalPages(total)
}
