// Package pagination reads page/limit query parameters for listing endpoints.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 200
)

type Params struct {
	Page   int
	Limit  int
	Offset int
}

// New clamps page and limit into range and derives the offset
func New(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// Parse reads ?page= and ?limit=, ignoring values that are not integers
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return New(page, limit)
}
