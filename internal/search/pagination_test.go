package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flixfinder/flixfinder/internal/filter"
)

func titleNavAt(page, totalPages int) *NavContext {
	return NewTitleSearch(&Context{
		Space:      filter.Movie,
		Mode:       TitleSearch,
		Term:       "dune",
		Page:       page,
		TotalPages: totalPages,
	})
}

func TestControlsMiddlePage(t *testing.T) {
	c := BuildControls(titleNavAt(3, 7))

	assert.Equal(t, "Page 3 of 7", c.Indicator)
	assert.False(t, c.First.Disabled)
	assert.False(t, c.Prev.Disabled)
	assert.False(t, c.Next.Disabled)
	assert.False(t, c.Last.Disabled)
	assert.Contains(t, c.First.HRef, "page=1")
	assert.Contains(t, c.Prev.HRef, "page=2")
	assert.Contains(t, c.Next.HRef, "page=4")
	assert.Contains(t, c.Last.HRef, "page=7")
}

func TestControlsFirstPage(t *testing.T) {
	c := BuildControls(titleNavAt(1, 7))

	assert.True(t, c.First.Disabled)
	assert.True(t, c.Prev.Disabled)
	assert.False(t, c.Next.Disabled)
	assert.Contains(t, c.Prev.HRef, "page=1")
}

func TestControlsLastPage(t *testing.T) {
	c := BuildControls(titleNavAt(7, 7))

	assert.False(t, c.First.Disabled)
	assert.True(t, c.Next.Disabled)
	assert.True(t, c.Last.Disabled)
	assert.Contains(t, c.Next.HRef, "page=7")
}

func TestControlsSinglePage(t *testing.T) {
	c := BuildControls(titleNavAt(1, 1))

	assert.Equal(t, "Page 1 of 1", c.Indicator)
	assert.True(t, c.First.Disabled)
	assert.True(t, c.Prev.Disabled)
	assert.True(t, c.Next.Disabled)
	assert.True(t, c.Last.Disabled)
}
