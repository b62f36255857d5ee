// Package handlers wires HTTP routing and API handlers.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/flixfinder/flixfinder/internal/filter"
	"github.com/flixfinder/flixfinder/internal/logger"
	"github.com/flixfinder/flixfinder/internal/search"
	"github.com/flixfinder/flixfinder/internal/tmdb"
)

type Handler struct {
	tmdb      *tmdb.Client
	busy      *search.Busy
	log       *slog.Logger
	imageBase string
	region    string

	genres    genreCache
	languages languageCache
}

type Config struct {
	TMDB      *tmdb.Client
	Logger    *slog.Logger
	ImageBase string
	Region    string
}

type genreCache struct {
	mu        sync.RWMutex
	movie     []filter.Option
	tv        []filter.Option
	fetchedAt time.Time
}

type languageCache struct {
	mu        sync.RWMutex
	items     []filter.Option
	fetchedAt time.Time
}

const vocabularyTTL = 24 * time.Hour

func New(cfg *Config) (*Handler, error) {
	if cfg.TMDB == nil {
		return nil, errors.New("tmdb client is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "US"
	}

	h := &Handler{
		tmdb:      cfg.TMDB,
		log:       log,
		imageBase: cfg.ImageBase,
		region:    region,
	}
	h.busy = search.NewBusy(
		func() { log.Debug("busy on") },
		func() { log.Debug("busy off") },
	)
	return h, nil
}

// newSearch builds the per-request search session. Orchestrators are
// session-scoped so one client's search never supersedes another's.
func (h *Handler) newSearch() *search.Orchestrator {
	return search.NewOrchestrator(h.tmdb, h.newSet, h.busy, h.imageBase, h.log)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Method(http.MethodGet, "/search", Adapt(h.getSearch))
	r.Method(http.MethodGet, "/search/genres", Adapt(h.getSearchGenres))
	r.Method(http.MethodGet, "/search/languages", Adapt(h.getSearchLanguages))
	r.Method(http.MethodGet, "/search/sort-options", Adapt(h.getSearchSortOptions))
	r.Method(http.MethodGet, "/search/keywords", Adapt(h.getSearchKeywords))

	r.Method(http.MethodGet, "/movies/popular", Adapt(h.getMoviesPopular))
	r.Method(http.MethodGet, "/movies/now-playing", Adapt(h.getMoviesNowPlaying))
	r.Method(http.MethodGet, "/tv/popular", Adapt(h.getTVPopular))
	r.Method(http.MethodGet, "/tv/top-rated", Adapt(h.getTVTopRated))

	r.Method(http.MethodGet, "/details/{mediaType}/{id:[0-9]+}", Adapt(h.getDetails))
}

// Prefetch warms the vocabulary caches so the first search does not pay for
// three provider round trips.
func (h *Handler) Prefetch(ctx context.Context) error {
	_, err := h.vocabulary(ctx)
	return err
}

type searchResponse struct {
	Cards    []search.Card    `json:"cards"`
	Heading  string           `json:"heading,omitempty"`
	Controls *search.Controls `json:"controls,omitempty"`
	Notice   string           `json:"notice,omitempty"`
	Refine   *filterView      `json:"refine,omitempty"`
	Redirect string           `json:"redirect,omitempty"`
}

func (h *Handler) getSearch(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	ctx := r.Context()
	space := filter.ParseSpace(q.Get("space"))

	sess := h.newSearch()
	var (
		res *search.Result
		err error
	)
	switch {
	case q.Has("page"):
		res, err = sess.Restore(ctx, space, q)
	case search.ParseMode(q.Get("search-type")) == search.TitleSearch:
		res, err = sess.SubmitTitle(ctx, space, q.Get("search-term"))
	default:
		set := h.newSet(ctx, space)
		set.ApplyReturnValues(q)
		res, err = sess.SubmitKeyword(ctx, set, q.Get("search-term"))
	}
	if err != nil {
		return searchErr(err)
	}

	resp := &searchResponse{
		Cards:    res.Cards,
		Heading:  res.Heading,
		Controls: res.Controls,
		Notice:   res.Notice,
	}
	if res.Nav.Kind == search.KeywordSearchResults {
		resp.Refine = buildFilterView(res.Nav.Filters.Keywords)
	}
	if res.Nav.Kind == search.PopularList {
		resp.Redirect = res.Nav.BackHRef()
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

// searchErr keeps validation and supersede errors intact for the adapter
// and turns everything else into an upstream failure.
func searchErr(err error) error {
	var verr *search.ValidationError
	if errors.As(err, &verr) || errors.Is(err, search.ErrSuperseded) {
		return err
	}
	return badGateway("catalog unavailable: " + err.Error())
}

type listResponse struct {
	Cards []search.Card `json:"cards"`
}

func (h *Handler) getMoviesPopular(w http.ResponseWriter, r *http.Request) error {
	page, err := h.tmdb.Popular(r.Context(), "movie")
	if err != nil {
		return badGateway(err.Error())
	}
	nav := search.NewPopularList(filter.Movie)
	writeJSON(w, http.StatusOK, &listResponse{Cards: nav.CardsFor(page.Results, h.imageBase)})
	return nil
}

func (h *Handler) getTVPopular(w http.ResponseWriter, r *http.Request) error {
	page, err := h.tmdb.Popular(r.Context(), "tv")
	if err != nil {
		return badGateway(err.Error())
	}
	nav := search.NewPopularList(filter.TV)
	writeJSON(w, http.StatusOK, &listResponse{Cards: nav.CardsFor(page.Results, h.imageBase)})
	return nil
}

func (h *Handler) getMoviesNowPlaying(w http.ResponseWriter, r *http.Request) error {
	page, err := h.tmdb.NowPlaying(r.Context())
	if err != nil {
		return badGateway(err.Error())
	}
	nav := search.NewCarousel(filter.Movie)
	writeJSON(w, http.StatusOK, &listResponse{Cards: nav.CardsFor(page.Results, h.imageBase)})
	return nil
}

func (h *Handler) getTVTopRated(w http.ResponseWriter, r *http.Request) error {
	page, err := h.tmdb.TopRatedTV(r.Context())
	if err != nil {
		return badGateway(err.Error())
	}
	nav := search.NewCarousel(filter.TV)
	writeJSON(w, http.StatusOK, &listResponse{Cards: nav.CardsFor(page.Results, h.imageBase)})
	return nil
}

type detailResponse struct {
	ID          int64           `json:"id"`
	MediaType   string          `json:"media_type"`
	Title       string          `json:"title"`
	Date        string          `json:"date"`
	Genres      []string        `json:"genres"`
	Overview    string          `json:"overview"`
	PosterURL   string          `json:"poster_url,omitempty"`
	BackdropURL string          `json:"backdrop_url,omitempty"`
	IMDbURL     string          `json:"imdb_url,omitempty"`
	Rating      string          `json:"rating"`
	VoteCount   int             `json:"vote_count"`
	Runtime     int             `json:"runtime,omitempty"`
	Status      string          `json:"status,omitempty"`
	Providers   []tmdb.Provider `json:"providers,omitempty"`
	ProviderURL string          `json:"provider_url,omitempty"`
	Back        backLink        `json:"back"`
}

type backLink struct {
	HRef  string `json:"href"`
	Label string `json:"label"`
}

func (h *Handler) getDetails(w http.ResponseWriter, r *http.Request) error {
	mediaType, err := mediaTypeParam(r)
	if err != nil {
		return err
	}
	id, err := idParam(r, "id")
	if err != nil {
		return badRequest(err.Error())
	}

	d, err := h.tmdb.FetchDetails(r.Context(), id, mediaType, h.region)
	if err != nil {
		if errors.Is(err, tmdb.ErrNotFound) {
			return notFound("no such title")
		}
		return badGateway(err.Error())
	}

	nav := search.DecodeReturn(r.Context(), filter.ParseSpace(mediaType), r.URL.Query(), h.newSet)
	writeJSON(w, http.StatusOK, &detailResponse{
		ID:          d.ID,
		MediaType:   d.MediaType,
		Title:       d.Title,
		Date:        d.Date,
		Genres:      d.Genres,
		Overview:    d.Overview,
		PosterURL:   imageURL(h.imageBase, d.PosterPath),
		BackdropURL: imageURL(h.imageBase, d.Backdrop),
		IMDbURL:     imdbURL(d.IMDbID),
		Rating:      fmt.Sprintf("%.1f / 10", d.VoteAverage),
		VoteCount:   d.VoteCount,
		Runtime:     d.Runtime,
		Status:      d.Status,
		Providers:   d.Providers,
		ProviderURL: d.ProviderURL,
		Back:        backLink{HRef: nav.BackHRef(), Label: nav.BackLabel()},
	})
	return nil
}

type optionView struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

func (h *Handler) getSearchGenres(w http.ResponseWriter, r *http.Request) error {
	vocab, err := h.vocabulary(r.Context())
	if err != nil {
		return badGateway(err.Error())
	}
	options := vocab.MovieGenres
	if filter.ParseSpace(r.URL.Query().Get("space")) == filter.TV {
		options = vocab.TVGenres
	}
	writeJSON(w, http.StatusOK, optionViews(options))
	return nil
}

func (h *Handler) getSearchLanguages(w http.ResponseWriter, r *http.Request) error {
	vocab, err := h.vocabulary(r.Context())
	if err != nil {
		return badGateway(err.Error())
	}
	writeJSON(w, http.StatusOK, optionViews(vocab.Languages))
	return nil
}

func (h *Handler) getSearchSortOptions(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, optionViews(filter.SortOptions()))
	return nil
}

func (h *Handler) getSearchKeywords(w http.ResponseWriter, r *http.Request) error {
	term := strings.TrimSpace(r.URL.Query().Get("term"))
	if term == "" {
		return badRequest("term is required")
	}
	options, err := h.keywordSource(r.Context(), term)
	if err != nil {
		return badGateway(err.Error())
	}
	writeJSON(w, http.StatusOK, optionViews(options))
	return nil
}

func optionViews(options []filter.Option) []optionView {
	out := make([]optionView, 0, len(options))
	for _, o := range options {
		out = append(out, optionView{Code: o.Code, Label: o.Label})
	}
	return out
}

type filterView struct {
	Clarifier string           `json:"clarifier,omitempty"`
	Operator  string           `json:"operator"`
	Items     []filterViewItem `json:"items"`
}

type filterViewItem struct {
	Code      string `json:"code,omitempty"`
	Label     string `json:"label,omitempty"`
	Selected  bool   `json:"selected,omitempty"`
	Separator bool   `json:"separator,omitempty"`
}

func buildFilterView(f *filter.Filter) *filterView {
	view := &filterView{
		Clarifier: f.Clarifier(),
		Operator:  f.Operator().Word(),
	}
	for _, item := range filter.OrderForDisplay(f.Options(), f.Selected()) {
		view.Items = append(view.Items, filterViewItem{
			Code:      item.Option.Code,
			Label:     item.Option.Label,
			Selected:  item.Selected,
			Separator: item.Separator,
		})
	}
	return view
}

// newSet builds a filter set against the cached vocabularies. A vocabulary
// fetch failure degrades to empty option lists rather than blocking the
// search; genre and language picks just will not resolve until the provider
// recovers.
func (h *Handler) newSet(ctx context.Context, space filter.Space) *filter.Set {
	vocab, err := h.vocabulary(ctx)
	if err != nil {
		h.log.Warn("vocabulary fetch failed", logger.Error(err))
	}
	return filter.NewSet(space, vocab, h.keywordSource)
}

func (h *Handler) keywordSource(ctx context.Context, term string) ([]filter.Option, error) {
	keywords, err := h.tmdb.AllKeywords(ctx, term)
	if err != nil {
		return nil, err
	}
	options := make([]filter.Option, 0, len(keywords))
	for _, k := range keywords {
		if strings.TrimSpace(k.Name) == "" {
			continue
		}
		options = append(options, filter.Option{
			Code:  strconv.FormatInt(k.ID, 10),
			Label: k.Name,
		})
	}
	return options, nil
}

func (h *Handler) vocabulary(ctx context.Context) (filter.Vocabulary, error) {
	var (
		movie, tv []filter.Option
		langs     []filter.Option
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		movie, tv, err = h.genreOptions(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		langs, err = h.languageOptions(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return filter.Vocabulary{}, err
	}
	return filter.Vocabulary{MovieGenres: movie, TVGenres: tv, Languages: langs}, nil
}

func (h *Handler) genreOptions(ctx context.Context) ([]filter.Option, []filter.Option, error) {
	h.genres.mu.RLock()
	if h.genres.movie != nil && h.genres.tv != nil && time.Since(h.genres.fetchedAt) < vocabularyTTL {
		movie := slices.Clone(h.genres.movie)
		tv := slices.Clone(h.genres.tv)
		h.genres.mu.RUnlock()
		return movie, tv, nil
	}
	h.genres.mu.RUnlock()

	movieGenres, err := h.tmdb.FetchGenres(ctx, "movie")
	if err != nil {
		return nil, nil, err
	}
	tvGenres, err := h.tmdb.FetchGenres(ctx, "tv")
	if err != nil {
		return nil, nil, err
	}

	movie := genreOptionList(movieGenres)
	tv := genreOptionList(tvGenres)

	h.genres.mu.Lock()
	h.genres.movie = slices.Clone(movie)
	h.genres.tv = slices.Clone(tv)
	h.genres.fetchedAt = time.Now()
	h.genres.mu.Unlock()

	return movie, tv, nil
}

func genreOptionList(genres []tmdb.Genre) []filter.Option {
	options := make([]filter.Option, 0, len(genres))
	for _, g := range genres {
		if strings.TrimSpace(g.Name) == "" {
			continue
		}
		options = append(options, filter.Option{Code: strconv.Itoa(g.ID), Label: g.Name})
	}
	return options
}

func (h *Handler) languageOptions(ctx context.Context) ([]filter.Option, error) {
	h.languages.mu.RLock()
	if h.languages.items != nil && time.Since(h.languages.fetchedAt) < vocabularyTTL {
		cached := slices.Clone(h.languages.items)
		h.languages.mu.RUnlock()
		return cached, nil
	}
	h.languages.mu.RUnlock()

	languages, err := h.tmdb.FetchLanguages(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]filter.Option, 0, len(languages))
	for _, l := range languages {
		label := strings.TrimSpace(l.EnglishName)
		if label == "" || l.ISO639 == "" {
			continue
		}
		options = append(options, filter.Option{Code: l.ISO639, Label: label})
	}
	slices.SortFunc(options, func(a, b filter.Option) int {
		return strings.Compare(a.Label, b.Label)
	})

	h.languages.mu.Lock()
	h.languages.items = slices.Clone(options)
	h.languages.fetchedAt = time.Now()
	h.languages.mu.Unlock()

	return options, nil
}
