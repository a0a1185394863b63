package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds validated pagination parameters.
type Params struct {
	Page  int
	Limit int
}

// Parse extracts page and limit from the query string, clamping both to
// sane bounds so a bad client can never request an unbounded page.
func Parse(c *gin.Context) Params {
	return Params{
		Page:  clamp(queryInt(c, "page", DefaultPage), 1, 0),
		Limit: clamp(queryInt(c, "limit", DefaultLimit), 1, MaxLimit),
	}
}

// Offset is the row offset matching Page and Limit.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta describes one page of a larger result set.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// MetaFor builds response metadata for a total row count.
func (p Params) MetaFor(total int64) Meta {
	pages := int(total) / p.Limit
	if int(total)%p.Limit != 0 {
		pages++
	}
	return Meta{
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: pages,
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return v
}

// clamp bounds v to [min, max]; max <= 0 means unbounded above.
func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
