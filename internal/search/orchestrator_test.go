package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flixfinder/flixfinder/internal/filter"
	"github.com/flixfinder/flixfinder/internal/tmdb"
)

type fakeCatalog struct {
	totalResults int
	err          error

	titleQueries []string
	fragments    []string
	pagesAsked   []int
	onFetch      func()
}

func (f *fakeCatalog) SearchTitlePage(_ context.Context, _, query string, page int) (tmdb.SearchPage, error) {
	f.titleQueries = append(f.titleQueries, query)
	return f.fetch(page)
}

func (f *fakeCatalog) DiscoverPage(_ context.Context, _, fragment string, page int) (tmdb.SearchPage, error) {
	f.fragments = append(f.fragments, fragment)
	return f.fetch(page)
}

func (f *fakeCatalog) fetch(page int) (tmdb.SearchPage, error) {
	f.pagesAsked = append(f.pagesAsked, page)
	if hook := f.onFetch; hook != nil {
		f.onFetch = nil
		hook()
	}
	if f.err != nil {
		return tmdb.SearchPage{}, f.err
	}

	totalPages := (f.totalResults + tmdb.PageSize - 1) / tmdb.PageSize
	count := 0
	if page >= 1 && page <= totalPages {
		count = tmdb.PageSize
		if page == totalPages {
			count = f.totalResults - tmdb.PageSize*(totalPages-1)
		}
	}
	results := make([]tmdb.SearchResult, count)
	for i := range results {
		n := tmdb.PageSize*(page-1) + i + 1
		results[i] = tmdb.SearchResult{
			ID:        int64(n),
			MediaType: "movie",
			Title:     fmt.Sprintf("Item %d", n),
		}
	}
	return tmdb.SearchPage{
		Results:      results,
		Page:         page,
		TotalPages:   totalPages,
		TotalResults: f.totalResults,
	}, nil
}

func newTestOrchestrator(cat *fakeCatalog, factory SetFactory) *Orchestrator {
	return NewOrchestrator(cat, factory, NewBusy(nil, nil), "https://img.example/w342", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSubmitTitleRejectsEmptyTerm(t *testing.T) {
	o := newTestOrchestrator(&fakeCatalog{}, testFactory())

	for _, term := range []string{"", "   "} {
		_, err := o.SubmitTitle(context.Background(), filter.Movie, term)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Please enter a word in the title", verr.Message)
	}
}

func TestSubmitTitle(t *testing.T) {
	cat := &fakeCatalog{totalResults: 137}
	o := newTestOrchestrator(cat, testFactory())

	res, err := o.SubmitTitle(context.Background(), filter.Movie, "dune")
	require.NoError(t, err)

	assert.Equal(t, []string{"dune"}, cat.titleQueries)
	assert.Equal(t, []int{1}, cat.pagesAsked)
	assert.Len(t, res.Cards, 20)
	assert.Equal(t,
		"Showing 1 to 20 of 137 results for Movies with 'dune' in the title",
		res.Heading)
	require.NotNil(t, res.Controls)
	assert.Equal(t, "Page 1 of 7", res.Controls.Indicator)
	assert.Empty(t, res.Notice)
}

func TestSubmitKeywordRejectsUnconstrained(t *testing.T) {
	o := newTestOrchestrator(&fakeCatalog{}, testFactory())
	set := testFactory()(context.Background(), filter.Movie)
	set.Adult.SetOn(true)

	_, err := o.SubmitKeyword(context.Background(), set, "")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please enter a keyword, one or more genres, or a language", verr.Message)
}

func TestSubmitKeywordUsesDiscoveryFragment(t *testing.T) {
	cat := &fakeCatalog{totalResults: 31}
	kw := filter.Option{Code: "9648", Label: "mystery"}
	factory := testFactory(kw)
	o := newTestOrchestrator(cat, factory)

	set := factory(context.Background(), filter.Movie)
	set.MovieGenres.SelectCodes([]string{"35", "18"})

	res, err := o.SubmitKeyword(context.Background(), set, "")
	require.NoError(t, err)

	require.Len(t, cat.fragments, 1)
	assert.Equal(t, "&with_genres=35,18&include_adult=true", cat.fragments[0])
	assert.Len(t, res.Cards, 20)
	assert.Contains(t, res.Heading, "Comedy and Drama Movies")
}

func TestSubmitKeywordRepopulatesRefinements(t *testing.T) {
	cat := &fakeCatalog{totalResults: 5}
	kw := filter.Option{Code: "9648", Label: "mystery"}
	factory := testFactory(kw)
	o := newTestOrchestrator(cat, factory)

	set := factory(context.Background(), filter.Movie)

	res, err := o.SubmitKeyword(context.Background(), set, "mystery")
	require.NoError(t, err)

	assert.Equal(t, []filter.Option{kw}, set.Keywords.Options())
	assert.Equal(t, KeywordSearchResults, res.Nav.Kind)
}

func TestSubmitKeywordTermConstrainsDiscovery(t *testing.T) {
	cat := &fakeCatalog{totalResults: 5}
	factory := testFactory(
		filter.Option{Code: "9648", Label: "mystery"},
		filter.Option{Code: "9663", Label: "sequel"},
	)
	o := newTestOrchestrator(cat, factory)

	set := factory(context.Background(), filter.Movie)

	res, err := o.SubmitKeyword(context.Background(), set, "mystery")
	require.NoError(t, err)

	require.Len(t, cat.fragments, 1)
	assert.Equal(t, "&with_keywords=9648|9663&include_adult=true", cat.fragments[0])
	assert.Contains(t, res.Heading, "containing 'mystery'")
}

func TestZeroResultsYieldNotice(t *testing.T) {
	o := newTestOrchestrator(&fakeCatalog{totalResults: 0}, testFactory())

	res, err := o.SubmitTitle(context.Background(), filter.Movie, "zzzzz")
	require.NoError(t, err)

	assert.Equal(t, "No matches", res.Notice)
	assert.Empty(t, res.Cards)
	assert.Nil(t, res.Controls)
	assert.Empty(t, res.Heading)
}

func TestFetchErrorPropagates(t *testing.T) {
	boom := errors.New("upstream down")
	o := newTestOrchestrator(&fakeCatalog{err: boom}, testFactory())

	_, err := o.SubmitTitle(context.Background(), filter.Movie, "dune")

	assert.ErrorIs(t, err, boom)
}

func TestRestoreTitleSearchAtPage(t *testing.T) {
	cat := &fakeCatalog{totalResults: 137}
	o := newTestOrchestrator(cat, testFactory())

	orig := NewTitleSearch(&Context{Space: filter.Movie, Mode: TitleSearch, Term: "dune", Page: 3})
	nav, vals := decodeHRef(t, orig.DetailsHRef(tmdb.SearchResult{ID: 1}), testFactory())
	require.Equal(t, TitleSearchResults, nav.Kind)

	res, err := o.Restore(context.Background(), filter.Movie, vals)
	require.NoError(t, err)

	assert.Equal(t, []int{3}, cat.pagesAsked)
	assert.Equal(t, 3, res.Nav.Search.Page)
	assert.Contains(t, res.Heading, "Showing 41 to 60 of 137 results for")
}

func TestRestoreClampsPagePastEnd(t *testing.T) {
	cat := &fakeCatalog{totalResults: 50}
	o := newTestOrchestrator(cat, testFactory())

	orig := NewTitleSearch(&Context{Space: filter.Movie, Mode: TitleSearch, Term: "dune", Page: 10})
	_, vals := decodeHRef(t, orig.DetailsHRef(tmdb.SearchResult{ID: 1}), testFactory())

	res, err := o.Restore(context.Background(), filter.Movie, vals)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 3}, cat.pagesAsked)
	assert.Equal(t, 3, res.Nav.Search.Page)
	assert.Len(t, res.Cards, 10)
}

func TestRestoreKeywordSearchRestoresSelections(t *testing.T) {
	cat := &fakeCatalog{totalResults: 31}
	kw := filter.Option{Code: "9648", Label: "mystery"}
	factory := testFactory(kw)
	o := newTestOrchestrator(cat, factory)

	set := factory(context.Background(), filter.Movie)
	set.SetTerm("myst")
	require.NoError(t, set.Keywords.Repopulate(context.Background()))
	set.Keywords.SelectCodes([]string{"9648"})
	orig := NewKeywordSearch(&Context{Space: filter.Movie, Mode: KeywordSearch, Term: "myst", Page: 2}, set)

	_, vals := decodeHRef(t, orig.DetailsHRef(tmdb.SearchResult{ID: 1}), factory)
	res, err := o.Restore(context.Background(), filter.Movie, vals)
	require.NoError(t, err)

	require.Len(t, cat.fragments, 1)
	assert.Contains(t, cat.fragments[0], "with_keywords=9648")
	assert.Equal(t, 2, res.Nav.Search.Page)
}

func TestRestoreNonSearchState(t *testing.T) {
	cat := &fakeCatalog{}
	o := newTestOrchestrator(cat, testFactory())

	orig := NewPopularList(filter.TV)
	nav, vals := decodeHRef(t, orig.DetailsHRef(tmdb.SearchResult{ID: 1}), testFactory())
	require.Equal(t, PopularList, nav.Kind)

	res, err := o.Restore(context.Background(), filter.TV, vals)
	require.NoError(t, err)

	assert.Empty(t, cat.pagesAsked)
	assert.Equal(t, PopularList, res.Nav.Kind)
	assert.Empty(t, res.Cards)
}

func TestNewerSubmitSupersedesInFlight(t *testing.T) {
	cat := &fakeCatalog{totalResults: 40}
	o := newTestOrchestrator(cat, testFactory())
	cat.onFetch = func() {
		_, err := o.SubmitTitle(context.Background(), filter.Movie, "newer")
		require.NoError(t, err)
	}

	_, err := o.SubmitTitle(context.Background(), filter.Movie, "older")

	assert.ErrorIs(t, err, ErrSuperseded)
}

func TestSeparateSessionsDoNotSupersedeEachOther(t *testing.T) {
	cat := &fakeCatalog{totalResults: 40}
	mine := newTestOrchestrator(cat, testFactory())
	theirs := newTestOrchestrator(cat, testFactory())
	cat.onFetch = func() {
		_, err := theirs.SubmitTitle(context.Background(), filter.Movie, "someone else")
		require.NoError(t, err)
	}

	res, err := mine.SubmitTitle(context.Background(), filter.Movie, "mine")

	require.NoError(t, err)
	assert.Len(t, res.Cards, 20)
}
