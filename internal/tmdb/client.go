// Package tmdb wraps the TMDB API: listings, details, vocabularies and the
// title/keyword/discovery search endpoints.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/flixfinder/flixfinder/internal/metrics"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3/"

	// The provider serves fixed 20-item pages on every paginated endpoint.
	PageSize = 20
)

// ErrNotFound reports that the provider has no record for the requested id.
var ErrNotFound = errors.New("not found")

type Client struct {
	apiKey    string
	readToken string
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
}

type ClientOption func(*Client)

// WithBaseURL points the client at a different API root, mainly for tests.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		c.baseURL = base
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func New(apiKey, readToken string, opts ...ClientOption) *Client {
	if strings.TrimSpace(readToken) == "" && looksLikeJWT(apiKey) {
		readToken = apiKey
		apiKey = ""
	}
	c := &Client{
		apiKey:    apiKey,
		readToken: readToken,
		baseURL:   defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(40), 40),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Language struct {
	ISO639      string `json:"iso_639_1"`
	EnglishName string `json:"english_name"`
	Name        string `json:"name"`
}

type Keyword struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type SearchResult struct {
	ID          int64   `json:"id"`
	MediaType   string  `json:"media_type"`
	Title       string  `json:"title"`
	Date        string  `json:"date"`
	PosterPath  string  `json:"poster_path"`
	Overview    string  `json:"overview"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
}

type SearchPage struct {
	Results      []SearchResult
	Page         int
	TotalPages   int
	TotalResults int
}

type Detail struct {
	ID          int64
	MediaType   string
	Title       string
	Date        string
	Genres      []string
	Overview    string
	PosterPath  string
	Backdrop    string
	IMDbID      string
	VoteAverage float64
	VoteCount   int
	Runtime     int
	Status      string
	Providers   []Provider
	ProviderURL string
}

type Provider struct {
	Name     string `json:"provider_name"`
	LogoPath string `json:"logo_path"`
}

type searchResponse struct {
	Page         int `json:"page"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
	Results      []struct {
		ID           int64   `json:"id"`
		MediaType    string  `json:"media_type"`
		Title        string  `json:"title"`
		Name         string  `json:"name"`
		ReleaseDate  string  `json:"release_date"`
		FirstAirDate string  `json:"first_air_date"`
		PosterPath   string  `json:"poster_path"`
		Overview     string  `json:"overview"`
		VoteAverage  float64 `json:"vote_average"`
		VoteCount    int     `json:"vote_count"`
	} `json:"results"`
}

type keywordResponse struct {
	Page         int       `json:"page"`
	TotalPages   int       `json:"total_pages"`
	TotalResults int       `json:"total_results"`
	Results      []Keyword `json:"results"`
}

type detailResponse struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Runtime      int     `json:"runtime"`
	Status       string  `json:"status"`
	Genres       []struct {
		Name string `json:"name"`
	} `json:"genres"`
	ExternalIDs struct {
		IMDbID string `json:"imdb_id"`
	} `json:"external_ids"`
}

type providersResponse struct {
	Results map[string]struct {
		Link     string     `json:"link"`
		Flatrate []Provider `json:"flatrate"`
	} `json:"results"`
}

// FetchGenres answers the genre vocabulary for "movie" or "tv".
func (c *Client) FetchGenres(ctx context.Context, mediaType string) ([]Genre, error) {
	if err := validMediaType(mediaType); err != nil {
		return nil, err
	}
	var payload struct {
		Genres []Genre `json:"genres"`
	}
	endpoint := "genre/" + mediaType + "/list"
	if err := c.get(ctx, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Genres, nil
}

// FetchLanguages answers the full language vocabulary.
func (c *Client) FetchLanguages(ctx context.Context) ([]Language, error) {
	var payload []Language
	if err := c.get(ctx, "configuration/languages", nil, &payload); err != nil {
		return nil, err
	}
	out := make([]Language, 0, len(payload))
	for _, l := range payload {
		if strings.TrimSpace(l.EnglishName) == "" {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// Popular answers the first page of popular movies or tv shows.
func (c *Client) Popular(ctx context.Context, mediaType string) (SearchPage, error) {
	if err := validMediaType(mediaType); err != nil {
		return SearchPage{}, err
	}
	return c.fetchPage(ctx, mediaType+"/popular", nil, mediaType)
}

// NowPlaying answers the movies currently in theaters, used by the carousel.
func (c *Client) NowPlaying(ctx context.Context) (SearchPage, error) {
	return c.fetchPage(ctx, "movie/now_playing", nil, "movie")
}

// TopRatedTV answers the top-rated tv shows, used by the carousel.
func (c *Client) TopRatedTV(ctx context.Context) (SearchPage, error) {
	return c.fetchPage(ctx, "tv/top_rated", nil, "tv")
}

// SearchTitlePage runs one page of a free-text title search.
func (c *Client) SearchTitlePage(ctx context.Context, mediaType, query string, page int) (SearchPage, error) {
	if err := validMediaType(mediaType); err != nil {
		return SearchPage{}, err
	}
	if strings.TrimSpace(query) == "" {
		return SearchPage{}, nil
	}
	values := url.Values{}
	values.Set("query", query)
	values.Set("page", strconv.Itoa(clampPage(page)))
	return c.fetchPage(ctx, "search/"+mediaType, values, mediaType)
}

// SearchKeywordPage runs one page of the keyword vocabulary lookup.
func (c *Client) SearchKeywordPage(ctx context.Context, query string, page int) ([]Keyword, int, error) {
	values := url.Values{}
	values.Set("query", query)
	values.Set("page", strconv.Itoa(clampPage(page)))
	var payload keywordResponse
	if err := c.get(ctx, "search/keyword", values, &payload); err != nil {
		return nil, 0, err
	}
	return payload.Results, payload.TotalPages, nil
}

// AllKeywords pages through the whole keyword lookup for the query and
// concatenates the results. The pages are fetched sequentially; callers
// depend on the full set being present before issuing a discovery query.
func (c *Client) AllKeywords(ctx context.Context, query string) ([]Keyword, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	var all []Keyword
	page := 1
	for {
		results, totalPages, err := c.SearchKeywordPage(ctx, query, page)
		if err != nil {
			return nil, err
		}
		all = append(all, results...)
		if page >= totalPages || totalPages == 0 {
			break
		}
		page++
	}
	return all, nil
}

// DiscoverPage runs one page of the filtered discovery search. The fragment
// is the raw filter query suffix produced by the filter set, with unencoded
// join characters; it is merged into the query values so percent-encoding
// happens exactly once, here.
func (c *Client) DiscoverPage(ctx context.Context, mediaType, fragment string, page int) (SearchPage, error) {
	if err := validMediaType(mediaType); err != nil {
		return SearchPage{}, err
	}
	values, err := url.ParseQuery(strings.TrimPrefix(fragment, "&"))
	if err != nil {
		return SearchPage{}, fmt.Errorf("bad discovery fragment: %w", err)
	}
	values.Set("page", strconv.Itoa(clampPage(page)))
	return c.fetchPage(ctx, "discover/"+mediaType, values, mediaType)
}

// FetchDetails answers the full detail view for one movie or tv show,
// including external ids and the watch providers for the given region.
func (c *Client) FetchDetails(ctx context.Context, id int64, mediaType, region string) (*Detail, error) {
	if err := validMediaType(mediaType); err != nil {
		return nil, err
	}
	values := url.Values{}
	values.Set("append_to_response", "external_ids")
	var payload detailResponse
	endpoint := fmt.Sprintf("%s/%d", mediaType, id)
	if err := c.get(ctx, endpoint, values, &payload); err != nil {
		return nil, err
	}

	detail := &Detail{
		ID:          payload.ID,
		MediaType:   mediaType,
		PosterPath:  payload.PosterPath,
		Backdrop:    payload.BackdropPath,
		Overview:    payload.Overview,
		VoteAverage: payload.VoteAverage,
		VoteCount:   payload.VoteCount,
		Runtime:     payload.Runtime,
		Status:      payload.Status,
		IMDbID:      payload.ExternalIDs.IMDbID,
		Title:       payload.Title,
		Date:        payload.ReleaseDate,
	}
	if mediaType == "tv" {
		detail.Title = payload.Name
		detail.Date = payload.FirstAirDate
	}
	for _, g := range payload.Genres {
		if strings.TrimSpace(g.Name) == "" {
			continue
		}
		detail.Genres = append(detail.Genres, g.Name)
	}

	providers, link, err := c.watchProviders(ctx, id, mediaType, region)
	if err == nil {
		detail.Providers = providers
		detail.ProviderURL = link
	}
	return detail, nil
}

func (c *Client) watchProviders(ctx context.Context, id int64, mediaType, region string) ([]Provider, string, error) {
	var payload providersResponse
	endpoint := fmt.Sprintf("%s/%d/watch/providers", mediaType, id)
	if err := c.get(ctx, endpoint, nil, &payload); err != nil {
		return nil, "", err
	}
	if region == "" {
		region = "US"
	}
	entry, ok := payload.Results[region]
	if !ok {
		return nil, "", nil
	}
	return entry.Flatrate, entry.Link, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, values url.Values, mediaType string) (SearchPage, error) {
	var payload searchResponse
	if err := c.get(ctx, endpoint, values, &payload); err != nil {
		return SearchPage{}, err
	}

	out := make([]SearchResult, 0, len(payload.Results))
	for i := range payload.Results {
		r := payload.Results[i]
		res := SearchResult{
			ID:          r.ID,
			MediaType:   mediaType,
			PosterPath:  r.PosterPath,
			Overview:    r.Overview,
			VoteAverage: r.VoteAverage,
			VoteCount:   r.VoteCount,
			Title:       r.Title,
			Date:        r.ReleaseDate,
		}
		if mediaType == "tv" {
			res.Title = r.Name
			res.Date = r.FirstAirDate
		}
		out = append(out, res)
	}
	return SearchPage{
		Results:      out,
		Page:         payload.Page,
		TotalPages:   payload.TotalPages,
		TotalResults: payload.TotalResults,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, values url.Values, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if values == nil {
		values = url.Values{}
	}
	if c.apiKey != "" {
		values.Set("api_key", c.apiKey)
	}
	values.Set("language", "en-US")

	start := time.Now()
	err := c.doGet(ctx, c.baseURL+endpoint+"?"+values.Encode(), dst)
	metrics.CatalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.CatalogRequestsTotal.WithLabelValues(endpoint, status).Inc()
	return err
}

func (c *Client) doGet(ctx context.Context, fullURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, http.NoBody)
	if err != nil {
		return err
	}
	c.applyAuth(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		statusErr := fmt.Errorf("tmdb request failed: %s", resp.Status)
		if resp.StatusCode == http.StatusNotFound {
			statusErr = fmt.Errorf("tmdb: %w", ErrNotFound)
		}
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(statusErr, cerr)
		}
		return statusErr
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(err, cerr)
		}
		return err
	}
	return resp.Body.Close()
}

func (c *Client) applyAuth(req *http.Request) {
	if strings.TrimSpace(c.readToken) == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.readToken))
}

func looksLikeJWT(token string) bool {
	parts := strings.Split(strings.TrimSpace(token), ".")
	return len(parts) == 3 && len(token) > 80
}

func validMediaType(mediaType string) error {
	if mediaType != "movie" && mediaType != "tv" {
		return errors.New("invalid media type")
	}
	return nil
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// YearOf answers the year part of a provider date string, or "".
func YearOf(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}
