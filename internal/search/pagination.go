package search

import "fmt"

// Controls is the view model for the pagination bar. Each transition carries
// the href that re-issues the search at the target page; buttons at a bound
// are disabled and their hrefs point at the current page.
type Controls struct {
	Indicator string `json:"indicator"`

	First Transition `json:"first"`
	Prev  Transition `json:"prev"`
	Next  Transition `json:"next"`
	Last  Transition `json:"last"`
}

type Transition struct {
	HRef     string `json:"href"`
	Disabled bool   `json:"disabled"`
}

// BuildControls answers the pagination bar for a search context. Targets are
// clamped so no href can escape [1, TotalPages].
func BuildControls(n *NavContext) Controls {
	sc := n.Search
	atFirst := sc.AtFirst()
	atLast := sc.AtLast()

	prev := sc.Page - 1
	if prev < 1 {
		prev = 1
	}
	next := sc.Page + 1
	if next > sc.TotalPages {
		next = sc.TotalPages
	}

	return Controls{
		Indicator: fmt.Sprintf("Page %d of %d", sc.Page, sc.TotalPages),
		First:     Transition{HRef: n.SearchHRef(1), Disabled: atFirst},
		Prev:      Transition{HRef: n.SearchHRef(prev), Disabled: atFirst},
		Next:      Transition{HRef: n.SearchHRef(next), Disabled: atLast},
		Last:      Transition{HRef: n.SearchHRef(sc.TotalPages), Disabled: atLast},
	}
}
