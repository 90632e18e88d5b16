package pagination

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds validated paging and sorting parameters.
type Params struct {
	Page      int
	Limit     int
	SortField string
	SortDesc  bool
}

// Parse reads page, limit, sort and order from the query. Values out of range
// fall back to the defaults; limit is capped at MaxLimit.
func Parse(c *gin.Context) Params {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = DefaultPage
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:      page,
		Limit:     limit,
		SortField: strings.TrimSpace(c.Query("sort")),
		SortDesc:  strings.EqualFold(c.Query("order"), "desc"),
	}
}
