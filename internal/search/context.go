// Package search is the state engine behind the catalog UI: it composes the
// search context, renders result cards through navigation contexts, encodes
// round-trip return URLs and drives pagination.
package search

import (
	"github.com/flixfinder/flixfinder/internal/filter"
)

type Mode string

const (
	TitleSearch   Mode = "title"
	KeywordSearch Mode = "keyword"
)

func ParseMode(raw string) Mode {
	if Mode(raw) == KeywordSearch {
		return KeywordSearch
	}
	return TitleSearch
}

// Context is the mutable state of one search: where it runs, what was asked,
// and which slice of the result set is showing. Reset when a brand-new
// search is submitted; restored from the URL when returning from a details
// page.
type Context struct {
	Space        filter.Space
	Mode         Mode
	Term         string
	Page         int
	TotalPages   int
	TotalResults int
}

// Clamp forces the invariants page >= 1, totalPages >= 1 and
// page <= totalPages.
func (c *Context) Clamp() {
	if c.TotalPages < 1 {
		c.TotalPages = 1
	}
	if c.TotalResults < 0 {
		c.TotalResults = 0
	}
	if c.Page < 1 {
		c.Page = 1
	}
	if c.Page > c.TotalPages {
		c.Page = c.TotalPages
	}
}

func (c *Context) First() { c.Page = 1 }

func (c *Context) Prev() {
	if c.Page > 1 {
		c.Page--
	}
}

func (c *Context) Next() {
	if c.Page < c.TotalPages {
		c.Page++
	}
}

func (c *Context) Last() { c.Page = c.TotalPages }

func (c *Context) AtFirst() bool { return c.Page <= 1 }

func (c *Context) AtLast() bool { return c.Page >= c.TotalPages }
