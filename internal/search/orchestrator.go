package search

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/flixfinder/flixfinder/internal/filter"
	"github.com/flixfinder/flixfinder/internal/logger"
	"github.com/flixfinder/flixfinder/internal/metrics"
	"github.com/flixfinder/flixfinder/internal/tmdb"
)

// Catalog is the slice of the provider client the orchestrator needs.
type Catalog interface {
	SearchTitlePage(ctx context.Context, mediaType, query string, page int) (tmdb.SearchPage, error)
	DiscoverPage(ctx context.Context, mediaType, fragment string, page int) (tmdb.SearchPage, error)
}

// ErrSuperseded reports that a newer search started while this one was in
// flight; its results must not be shown.
var ErrSuperseded = errors.New("search superseded by a newer request")

// ValidationError carries the user-facing message for a rejected search.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

const (
	msgEmptyTitle   = "Please enter a word in the title"
	msgNoConstraint = "Please enter a keyword, one or more genres, or a language"
	msgNoMatches    = "No matches"
)

// Result is everything one search or restore produced: the navigation
// context it ran under, the rendered cards, the heading, the pagination bar
// and an optional notice shown instead of results.
type Result struct {
	Nav      *NavContext `json:"-"`
	Cards    []Card      `json:"cards"`
	Heading  string      `json:"heading,omitempty"`
	Controls *Controls   `json:"controls,omitempty"`
	Notice   string      `json:"notice,omitempty"`
}

// Orchestrator runs searches end to end: validate, fetch, clamp, render.
// Each run stamps a generation; a run whose generation is stale by the time
// its fetch returns yields ErrSuperseded instead of a result.
//
// An Orchestrator tracks a single client's search session. The generation
// stamp only supersedes that session's own in-flight runs, so callers
// serving many clients create one Orchestrator per client.
type Orchestrator struct {
	catalog   Catalog
	sets      SetFactory
	busy      *Busy
	log       *slog.Logger
	imageBase string

	gen atomic.Uint64
}

func NewOrchestrator(catalog Catalog, sets SetFactory, busy *Busy, imageBase string, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		catalog:   catalog,
		sets:      sets,
		busy:      busy,
		log:       log,
		imageBase: imageBase,
	}
}

// SubmitTitle runs a fresh title search at page 1.
func (o *Orchestrator) SubmitTitle(ctx context.Context, space filter.Space, term string) (*Result, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, &ValidationError{Message: msgEmptyTitle}
	}
	gen := o.gen.Add(1)

	sc := &Context{Space: space, Mode: TitleSearch, Term: term, Page: 1}
	return o.run(ctx, gen, NewTitleSearch(sc))
}

// SubmitKeyword runs a fresh keyword/filter search at page 1 using the
// given filter set. The set's dynamic keyword options are repopulated
// against the term first so the caller can offer them for refinement.
func (o *Orchestrator) SubmitKeyword(ctx context.Context, set *filter.Set, term string) (*Result, error) {
	set.SetTerm(term)
	if !set.HasAnyConstraint() {
		return nil, &ValidationError{Message: msgNoConstraint}
	}
	gen := o.gen.Add(1)

	o.busyShow()
	err := set.Keywords.Repopulate(ctx)
	o.busyHide()
	if err != nil {
		return nil, err
	}

	sc := &Context{Space: set.Space(), Mode: KeywordSearch, Term: set.Term(), Page: 1}
	return o.run(ctx, gen, NewKeywordSearch(sc, set))
}

// Restore rebuilds a search from return-URL parameters and re-runs it at
// the page the URL names. Non-search return states come back as a bare
// result holding only the navigation context.
func (o *Orchestrator) Restore(ctx context.Context, space filter.Space, vals url.Values) (*Result, error) {
	nav := DecodeReturn(ctx, space, vals, o.sets)
	if !nav.isSearch() {
		return &Result{Nav: nav}, nil
	}
	gen := o.gen.Add(1)

	if nav.Kind == KeywordSearchResults {
		o.busyShow()
		err := nav.Filters.RestoreKeywords(ctx, vals)
		o.busyHide()
		if err != nil {
			return nil, err
		}
	}
	return o.run(ctx, gen, nav)
}

func (o *Orchestrator) run(ctx context.Context, gen uint64, nav *NavContext) (*Result, error) {
	page, err := o.fetch(ctx, nav)
	if err != nil {
		return nil, err
	}

	sc := nav.Search
	sc.TotalPages = page.TotalPages
	sc.TotalResults = page.TotalResults
	before := sc.Page
	sc.Clamp()
	if sc.Page != before {
		// The URL asked for a page past the end; fetch the real last page.
		if page, err = o.fetch(ctx, nav); err != nil {
			return nil, err
		}
	}

	if o.gen.Load() != gen {
		return nil, ErrSuperseded
	}

	res := &Result{Nav: nav}
	if sc.TotalResults == 0 {
		res.Notice = msgNoMatches
		return res, nil
	}

	var buf cardBuffer
	nav.Render(&buf, page.Results, o.imageBase)
	res.Cards = buf.cards
	res.Heading = nav.Heading(len(page.Results))
	controls := BuildControls(nav)
	res.Controls = &controls
	return res, nil
}

func (o *Orchestrator) fetch(ctx context.Context, nav *NavContext) (tmdb.SearchPage, error) {
	o.busyShow()
	defer o.busyHide()
	start := time.Now()

	var (
		page tmdb.SearchPage
		err  error
	)
	switch nav.Kind {
	case TitleSearchResults:
		page, err = o.catalog.SearchTitlePage(ctx, string(nav.Space), nav.Search.Term, nav.Search.Page)
	case KeywordSearchResults:
		page, err = o.catalog.DiscoverPage(ctx, string(nav.Space), nav.Filters.DiscoveryFragment(), nav.Search.Page)
	default:
		return tmdb.SearchPage{}, errors.New("not a search context")
	}
	if err != nil {
		o.log.Error("catalog fetch failed",
			slog.String("space", string(nav.Space)),
			slog.String("mode", string(nav.mode())),
			logger.Error(err))
		return tmdb.SearchPage{}, err
	}
	o.log.Debug("catalog fetch",
		slog.String("space", string(nav.Space)),
		slog.String("mode", string(nav.mode())),
		slog.Int("page", nav.Search.Page),
		slog.Int("total_results", page.TotalResults),
		slog.Duration("took", time.Since(start)))
	return page, nil
}

func (o *Orchestrator) busyShow() {
	if o.busy != nil {
		o.busy.Show()
	}
	metrics.BusyFetches.Inc()
}

func (o *Orchestrator) busyHide() {
	if o.busy != nil {
		o.busy.Hide()
	}
	metrics.BusyFetches.Dec()
}

// CardsFor renders results straight to a slice for callers without a
// streaming sink.
func (n *NavContext) CardsFor(results []tmdb.SearchResult, imageBase string) []Card {
	var buf cardBuffer
	n.Render(&buf, results, imageBase)
	return buf.cards
}

type cardBuffer struct {
	cards []Card
}

func (b *cardBuffer) Append(c Card) { b.cards = append(b.cards, c) }

func (b *cardBuffer) Clear() { b.cards = b.cards[:0] }
