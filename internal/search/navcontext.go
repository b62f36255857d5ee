package search

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/flixfinder/flixfinder/internal/filter"
	"github.com/flixfinder/flixfinder/internal/tmdb"
)

// ContextKind discriminates how a result list was reached. The set is
// closed; a fresh context is constructed per page load or search action and
// URL parameters carry the state across the details round trip.
type ContextKind int

const (
	Carousel ContextKind = iota
	PopularList
	TitleSearchResults
	KeywordSearchResults
)

// Parameter names shared by details links and back links.
const (
	paramID         = "id"
	paramSearch     = "search"
	paramSpace      = "space"
	paramSearchType = "search-type"
	paramSearchTerm = "search-term"
	paramPage       = "page"
)

// NavContext knows how to render a result list, how to build a details link
// that carries enough state to come back, and where its back button points.
type NavContext struct {
	Kind    ContextKind
	Space   filter.Space
	Search  *Context    // nil for the static variants
	Filters *filter.Set // keyword search only

	rendered map[int64]bool
}

func NewCarousel(space filter.Space) *NavContext {
	return &NavContext{Kind: Carousel, Space: space}
}

func NewPopularList(space filter.Space) *NavContext {
	return &NavContext{Kind: PopularList, Space: space}
}

func NewTitleSearch(sc *Context) *NavContext {
	return &NavContext{Kind: TitleSearchResults, Space: sc.Space, Search: sc}
}

func NewKeywordSearch(sc *Context, set *filter.Set) *NavContext {
	return &NavContext{Kind: KeywordSearchResults, Space: sc.Space, Search: sc, Filters: set}
}

func (n *NavContext) isSearch() bool {
	return n.Kind == TitleSearchResults || n.Kind == KeywordSearchResults
}

func (n *NavContext) isTV() bool { return n.Space == filter.TV }

func (n *NavContext) detailsPage() string {
	if n.isTV() {
		return "/tv-details"
	}
	return "/movie-details"
}

func (n *NavContext) listingPage() string {
	if n.isTV() {
		return "/shows"
	}
	return "/"
}

func (n *NavContext) spaceNoun() string {
	if n.isTV() {
		return "TV Shows"
	}
	return "Movies"
}

func (n *NavContext) mode() Mode {
	if n.Kind == KeywordSearchResults {
		return KeywordSearch
	}
	return TitleSearch
}

// DetailsHRef builds the link to an item's details page. For search variants
// it embeds the whole search state, in a fixed parameter order, so the
// details page can offer a back link that reproduces this exact result page.
func (n *NavContext) DetailsHRef(item tmdb.SearchResult) string {
	var b strings.Builder
	b.WriteString(n.detailsPage())
	b.WriteString("?" + paramID + "=" + strconv.FormatInt(item.ID, 10))
	b.WriteString("&" + paramSearch + "=" + strconv.FormatBool(n.isSearch()))
	if n.isSearch() {
		n.writeSearchParams(&b)
	}
	return b.String()
}

// BackHRef answers where the details page's back button points: the static
// listing for carousel/popular contexts, or the search page with the full
// restorable state for search contexts.
func (n *NavContext) BackHRef() string {
	if !n.isSearch() {
		return n.listingPage()
	}
	return n.SearchHRef(n.Search.Page)
}

// SearchHRef answers the search-page URL that restores this search at the
// given page. Pagination controls reuse it for their transitions.
func (n *NavContext) SearchHRef(page int) string {
	var b strings.Builder
	b.WriteString("/search")
	b.WriteString("?" + paramSpace + "=" + string(n.Space))
	b.WriteString("&" + paramSearch + "=true")
	n.writeSearchParams(&b)
	// writeSearchParams emits the context's own page; override it here so
	// transition targets differ only in the page parameter.
	return setQueryParam(b.String(), paramPage, strconv.Itoa(page))
}

func (n *NavContext) writeSearchParams(b *strings.Builder) {
	b.WriteString("&" + paramSearchType + "=" + string(n.mode()))
	b.WriteString("&" + paramSearchTerm + "=" + url.QueryEscape(n.Search.Term))
	b.WriteString("&" + paramPage + "=" + strconv.Itoa(n.Search.Page))
	if n.Kind != KeywordSearchResults {
		return
	}
	vals := n.Filters.ReturnValues()
	for _, key := range []string{
		filter.ParamKeywords,
		filter.ParamKeywordCombine,
		filter.ParamGenres,
		filter.ParamGenreCombine,
		filter.ParamLanguages,
		filter.ParamExcludeAdult,
		filter.ParamSort,
	} {
		b.WriteString("&" + key + "=" + url.QueryEscape(vals.Get(key)))
	}
}

// BackLabel answers the back button's text for this context.
func (n *NavContext) BackLabel() string {
	switch n.Kind {
	case TitleSearchResults, KeywordSearchResults:
		if n.isTV() {
			return "Back to TV Show Search"
		}
		return "Back to Movie Search"
	default:
		if n.isTV() {
			return "Back to TV Shows"
		}
		return "Back to Movies"
	}
}

// Render appends a card for each result to the sink. Re-entrant: items
// already rendered by this context are skipped, so appending more results
// never duplicates a card. Carousel sinks get their rotation refreshed
// after new slides land.
func (n *NavContext) Render(sink Sink, results []tmdb.SearchResult, imageBase string) {
	if n.rendered == nil {
		n.rendered = make(map[int64]bool, len(results))
	}
	appended := false
	for _, item := range results {
		if n.rendered[item.ID] {
			continue
		}
		n.rendered[item.ID] = true
		sink.Append(Card{
			ID:          item.ID,
			MediaType:   item.MediaType,
			Title:       item.Title,
			Date:        item.Date,
			Rating:      ratingText(item.VoteAverage),
			PosterURL:   posterURL(item, imageBase),
			Overview:    item.Overview,
			DetailsHRef: n.DetailsHRef(item),
		})
		appended = true
	}
	if n.Kind == Carousel && appended {
		if r, ok := sink.(Refresher); ok {
			r.Refresh()
		}
	}
}

var headingPrinter = message.NewPrinter(language.English)

// Heading answers the results heading: the range preamble
// ("Showing 41 to 60 of 137 results for ") followed by a description of the
// search. Static variants have no heading.
func (n *NavContext) Heading(resultsThisPage int) string {
	if !n.isSearch() {
		return ""
	}
	h := n.preamble(resultsThisPage)
	if n.Kind == TitleSearchResults {
		return h + n.spaceNoun() + " with '" + n.Search.Term + "' in the title"
	}

	genres := n.Filters.ActiveGenreFilter()
	if genres.IsSelected() {
		h += strings.Join(genres.SelectedLabels(), " "+genres.Operator().Word()+" ") + " "
	}
	h += n.spaceNoun()
	if subject := n.keywordSubject(); subject != "" {
		h += " containing " + subject
	}
	if n.Filters.Languages.IsSelected() {
		h += " in " + strings.Join(n.Filters.Languages.SelectedLabels(), " or ")
	}
	if n.Filters.Adult.On() {
		h += ", excluding adult content"
	}
	if n.Filters.Sort.IsSelected() {
		h += "; sorted by " + filter.SortLabel(n.Filters.Sort.SelectedCodes()[0])
	}
	return h
}

// keywordSubject quotes what the keyword search matched on: the selected
// keyword refinements when there are any, otherwise the raw term.
func (n *NavContext) keywordSubject() string {
	if n.Filters.Keywords.IsSelected() {
		labels := n.Filters.Keywords.SelectedLabels()
		op := n.Filters.Keywords.Operator().Word()
		return `"` + strings.Join(labels, `" `+op+` "`) + `"`
	}
	if n.Search.Term == "" {
		return ""
	}
	return "'" + n.Search.Term + "'"
}

// preamble answers the results-range caption. With the provider's fixed
// 20-item pages, page 3 holding 20 of 137 results reads
// "Showing 41 to 60 of 137 results for ".
func (n *NavContext) preamble(resultsThisPage int) string {
	beforeStart := tmdb.PageSize * (n.Search.Page - 1)
	end := beforeStart + min(resultsThisPage, tmdb.PageSize)
	return headingPrinter.Sprintf("Showing %d to %d of %d results for ",
		beforeStart+1, end, n.Search.TotalResults)
}

// setQueryParam rewrites one query parameter of an otherwise hand-ordered
// URL without disturbing the rest.
func setQueryParam(href, key, value string) string {
	base, query, ok := strings.Cut(href, "?")
	if !ok {
		return href
	}
	parts := strings.Split(query, "&")
	for i, part := range parts {
		if strings.HasPrefix(part, key+"=") {
			parts[i] = key + "=" + value
		}
	}
	return base + "?" + strings.Join(parts, "&")
}
