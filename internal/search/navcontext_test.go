package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flixfinder/flixfinder/internal/filter"
	"github.com/flixfinder/flixfinder/internal/tmdb"
)

func testVocab() filter.Vocabulary {
	return filter.Vocabulary{
		MovieGenres: []filter.Option{
			{Code: "35", Label: "Comedy"},
			{Code: "18", Label: "Drama"},
		},
		TVGenres: []filter.Option{
			{Code: "16", Label: "Animation"},
		},
		Languages: []filter.Option{
			{Code: "en", Label: "English"},
			{Code: "fr", Label: "French"},
		},
	}
}

func testFactory(keywords ...filter.Option) SetFactory {
	return func(_ context.Context, space filter.Space) *filter.Set {
		return filter.NewSet(space, testVocab(), func(context.Context, string) ([]filter.Option, error) {
			return keywords, nil
		})
	}
}

type recordingSink struct {
	cards     []Card
	refreshed int
}

func (s *recordingSink) Append(c Card) { s.cards = append(s.cards, c) }
func (s *recordingSink) Clear()        { s.cards = nil }
func (s *recordingSink) Refresh()      { s.refreshed++ }

func TestDetailsHRefTitleSearch(t *testing.T) {
	nav := NewTitleSearch(&Context{
		Space: filter.Movie,
		Mode:  TitleSearch,
		Term:  "dune part two",
		Page:  2,
	})

	got := nav.DetailsHRef(tmdb.SearchResult{ID: 42})

	assert.Equal(t,
		"/movie-details?id=42&search=true&search-type=title&search-term=dune+part+two&page=2",
		got)
}

func TestDetailsHRefStaticList(t *testing.T) {
	nav := NewPopularList(filter.TV)

	got := nav.DetailsHRef(tmdb.SearchResult{ID: 7})

	assert.Equal(t, "/tv-details?id=7&search=false", got)
}

func TestDetailsHRefKeywordSearchCarriesEveryAxis(t *testing.T) {
	set := testFactory()(context.Background(), filter.Movie)
	set.MovieGenres.SelectCodes([]string{"35", "18"})
	set.MovieGenres.SetOperator(filter.OpOr)
	set.Languages.SelectCodes([]string{"fr"})
	set.Adult.SetOn(true)
	nav := NewKeywordSearch(&Context{Space: filter.Movie, Mode: KeywordSearch, Page: 4}, set)

	got := nav.DetailsHRef(tmdb.SearchResult{ID: 9})

	assert.Contains(t, got, "search-type=keyword")
	assert.Contains(t, got, "page=4")
	assert.Contains(t, got, "genres=35-18")
	assert.Contains(t, got, "genre-combine-using=or")
	assert.Contains(t, got, "languages=fr")
	assert.Contains(t, got, "exclude-adult=true")
	assert.Contains(t, got, "sort-by=")
}

func TestBackHRefAndLabel(t *testing.T) {
	tests := []struct {
		name      string
		nav       *NavContext
		wantHRef  string
		wantLabel string
	}{
		{"movie popular", NewPopularList(filter.Movie), "/", "Back to Movies"},
		{"tv popular", NewPopularList(filter.TV), "/shows", "Back to TV Shows"},
		{"movie carousel", NewCarousel(filter.Movie), "/", "Back to Movies"},
		{
			"movie title search",
			NewTitleSearch(&Context{Space: filter.Movie, Mode: TitleSearch, Term: "dune", Page: 2}),
			"/search?space=movie&search=true&search-type=title&search-term=dune&page=2",
			"Back to Movie Search",
		},
		{
			"tv title search",
			NewTitleSearch(&Context{Space: filter.TV, Mode: TitleSearch, Term: "dark", Page: 1}),
			"/search?space=tv&search=true&search-type=title&search-term=dark&page=1",
			"Back to TV Show Search",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantHRef, tt.nav.BackHRef())
			assert.Equal(t, tt.wantLabel, tt.nav.BackLabel())
		})
	}
}

func TestSearchHRefOverridesOnlyPage(t *testing.T) {
	nav := NewTitleSearch(&Context{Space: filter.Movie, Mode: TitleSearch, Term: "dune", Page: 3})

	assert.Equal(t,
		"/search?space=movie&search=true&search-type=title&search-term=dune&page=7",
		nav.SearchHRef(7))
}

func TestRenderSkipsDuplicates(t *testing.T) {
	nav := NewPopularList(filter.Movie)
	sink := &recordingSink{}
	results := []tmdb.SearchResult{{ID: 1, Title: "First"}, {ID: 2, Title: "Second"}}

	nav.Render(sink, results, "https://img.example/w342")
	nav.Render(sink, results, "https://img.example/w342")

	require.Len(t, sink.cards, 2)
	assert.Equal(t, "First", sink.cards[0].Title)
}

func TestRenderCarouselRefreshes(t *testing.T) {
	nav := NewCarousel(filter.Movie)
	sink := &recordingSink{}

	nav.Render(sink, []tmdb.SearchResult{{ID: 1}}, "")
	assert.Equal(t, 1, sink.refreshed)

	// Nothing new, nothing to refresh.
	nav.Render(sink, []tmdb.SearchResult{{ID: 1}}, "")
	assert.Equal(t, 1, sink.refreshed)
}

func TestRenderPosterPlaceholders(t *testing.T) {
	movieNav := NewPopularList(filter.Movie)
	tvNav := NewPopularList(filter.TV)
	sink := &recordingSink{}

	movieNav.Render(sink, []tmdb.SearchResult{{ID: 1, MediaType: "movie"}}, "https://img.example")
	tvNav.Render(sink, []tmdb.SearchResult{{ID: 2, MediaType: "tv"}}, "https://img.example")

	require.Len(t, sink.cards, 2)
	assert.Equal(t, "/images/no-movie.jpg", sink.cards[0].PosterURL)
	assert.Equal(t, "/images/no-show.jpg", sink.cards[1].PosterURL)
}

func TestHeadingTitleSearch(t *testing.T) {
	nav := NewTitleSearch(&Context{
		Space:        filter.Movie,
		Mode:         TitleSearch,
		Term:         "dune",
		Page:         3,
		TotalPages:   7,
		TotalResults: 137,
	})

	assert.Equal(t,
		"Showing 41 to 60 of 137 results for Movies with 'dune' in the title",
		nav.Heading(20))
}

func TestHeadingShortLastPage(t *testing.T) {
	nav := NewTitleSearch(&Context{
		Space:        filter.Movie,
		Mode:         TitleSearch,
		Term:         "dune",
		Page:         7,
		TotalPages:   7,
		TotalResults: 137,
	})

	assert.Equal(t,
		"Showing 121 to 137 of 137 results for Movies with 'dune' in the title",
		nav.Heading(17))
}

func TestHeadingGroupsThousands(t *testing.T) {
	nav := NewTitleSearch(&Context{
		Space:        filter.TV,
		Mode:         TitleSearch,
		Term:         "war",
		Page:         1,
		TotalPages:   80,
		TotalResults: 1583,
	})

	assert.Equal(t,
		"Showing 1 to 20 of 1,583 results for TV Shows with 'war' in the title",
		nav.Heading(20))
}

func TestHeadingKeywordSearchFullState(t *testing.T) {
	kw := []filter.Option{
		{Code: "9648", Label: "mystery"},
		{Code: "9663", Label: "sequel"},
	}
	set := testFactory(kw...)(context.Background(), filter.Movie)
	set.SetTerm("myst")
	require.NoError(t, set.Keywords.Repopulate(context.Background()))
	set.Keywords.SelectCodes([]string{"9648", "9663"})
	set.Keywords.SetOperator(filter.OpOr)
	set.MovieGenres.SelectCodes([]string{"35", "18"})
	set.Languages.SelectCodes([]string{"en", "fr"})
	set.Adult.SetOn(true)
	set.Sort.SelectCodes([]string{"popularity.desc"})

	nav := NewKeywordSearch(&Context{
		Space:        filter.Movie,
		Mode:         KeywordSearch,
		Term:         "myst",
		Page:         1,
		TotalPages:   2,
		TotalResults: 31,
	}, set)

	assert.Equal(t,
		`Showing 1 to 20 of 31 results for Comedy and Drama Movies containing "mystery" or "sequel" in English or French, excluding adult content; sorted by Popularity, Descending`,
		nav.Heading(20))
}

func TestHeadingKeywordSearchTermOnly(t *testing.T) {
	set := testFactory()(context.Background(), filter.Movie)
	set.SetTerm("heist")

	nav := NewKeywordSearch(&Context{
		Space:        filter.Movie,
		Mode:         KeywordSearch,
		Term:         "heist",
		Page:         1,
		TotalPages:   1,
		TotalResults: 5,
	}, set)

	assert.Equal(t,
		"Showing 1 to 5 of 5 results for Movies containing 'heist'",
		nav.Heading(5))
}

func TestHeadingStaticListsHaveNone(t *testing.T) {
	assert.Equal(t, "", NewPopularList(filter.Movie).Heading(20))
	assert.Equal(t, "", NewCarousel(filter.TV).Heading(20))
}
