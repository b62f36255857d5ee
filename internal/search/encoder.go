package search

import (
	"context"
	"net/url"
	"strconv"

	"github.com/flixfinder/flixfinder/internal/filter"
)

// SetFactory builds a filter set for a space, wired to the caller's
// vocabulary and keyword source. Takes a context because vocabularies may
// need a provider fetch.
type SetFactory func(ctx context.Context, space filter.Space) *filter.Set

// DecodeReturn rebuilds a navigation context from the query parameters a
// details link carried. It is the inverse of DetailsHRef for the state both
// sides encode; missing or malformed parameters degrade to defaults rather
// than fail, so hand-edited URLs still land somewhere sensible.
//
// Keyword filter selections need their dynamic options refetched before they
// can be restored; callers do that afterwards with Set.RestoreKeywords.
func DecodeReturn(ctx context.Context, space filter.Space, vals url.Values, newSet SetFactory) *NavContext {
	if vals.Get(paramSearch) != "true" {
		return NewPopularList(space)
	}

	sc := &Context{
		Space: space,
		Mode:  ParseMode(vals.Get(paramSearchType)),
		Term:  vals.Get(paramSearchTerm),
		Page:  decodePage(vals.Get(paramPage)),
	}
	if sc.Mode == TitleSearch {
		return NewTitleSearch(sc)
	}

	set := newSet(ctx, space)
	set.SetTerm(sc.Term)
	set.ApplyReturnValues(vals)
	return NewKeywordSearch(sc, set)
}

func decodePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
