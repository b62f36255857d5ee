package filter

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// Space names which half of the catalog a search runs against.
type Space string

const (
	Movie Space = "movie"
	TV    Space = "tv"
)

func ParseSpace(raw string) Space {
	if Space(raw) == TV {
		return TV
	}
	return Movie
}

// Stable filter ids, used for URL and DOM correlation.
const (
	IDRefineKeyword = "refine-keyword"
	IDMovieGenre    = "movie-genre"
	IDTVGenre       = "tv-genre"
	IDAdult         = "adult"
	IDLanguage      = "language"
	IDSort          = "sort-by"
)

// Return-URL parameter names. The dash-joined code lists and these names are
// a format contract: a details link must decode back to the same search.
const (
	ParamKeywords        = "keywords"
	ParamKeywordCombine  = "keyword-combine-using"
	ParamGenres          = "genres"
	ParamGenreCombine    = "genre-combine-using"
	ParamLanguages       = "languages"
	ParamExcludeAdult    = "exclude-adult"
	ParamSort            = "sort-by"
	listSeparator        = "-"
	discoveryParamPrefix = "&"
)

// Discovery query parameter names, fixed by the provider.
const (
	apiParamKeywords = "with_keywords"
	apiParamGenres   = "with_genres"
	apiParamLanguage = "with_original_language"
	apiParamAdult    = "include_adult"
	apiParamSort     = "sort_by"
)

// Vocabulary carries the option sets the static filters are built from.
type Vocabulary struct {
	MovieGenres []Option
	TVGenres    []Option
	Languages   []Option
}

// KeywordSource resolves free text to the provider's keyword options, used
// to repopulate the dynamic refine-keyword filter.
type KeywordSource func(ctx context.Context, term string) ([]Option, error)

// Set owns every filter relevant to one search space plus the free-text
// term. Exactly one of the two genre filters is active at a time, chosen by
// the space; switching space wipes all selection state so incompatible genre
// codes cannot leak across.
type Set struct {
	space Space
	term  string

	Keywords    *Filter
	MovieGenres *Filter
	TVGenres    *Filter
	Languages   *Filter
	Adult       *Filter // on means "exclude adult content"
	Sort        *Filter
}

func NewSet(space Space, vocab Vocabulary, keywords KeywordSource) *Set {
	s := &Set{
		space:       space,
		MovieGenres: NewAndOrMultiChoice(IDMovieGenre, vocab.MovieGenres),
		TVGenres:    NewAndOrMultiChoice(IDTVGenre, vocab.TVGenres),
		Languages:   NewMultiChoice(IDLanguage, vocab.Languages),
		Adult:       NewBoolean(IDAdult),
		Sort:        NewSingleChoice(IDSort, SortOptions()),
	}
	s.Keywords = NewDynamic(IDRefineKeyword, func(ctx context.Context) ([]Option, error) {
		term := strings.TrimSpace(s.term)
		if term == "" || keywords == nil {
			return nil, nil
		}
		return keywords(ctx, term)
	})
	return s
}

func (s *Set) Space() Space { return s.space }

// SetSpace switches between movie and tv search. A real switch clears every
// filter and the term.
func (s *Set) SetSpace(space Space) {
	if space != Movie && space != TV {
		return
	}
	if space == s.space {
		return
	}
	s.space = space
	s.Clear()
}

func (s *Set) Term() string { return s.term }

func (s *Set) SetTerm(term string) {
	s.term = strings.TrimSpace(term)
}

// ActiveGenreFilter answers the genre filter for the current space.
func (s *Set) ActiveGenreFilter() *Filter {
	if s.space == TV {
		return s.TVGenres
	}
	return s.MovieGenres
}

func (s *Set) all() []*Filter {
	return []*Filter{s.Keywords, s.MovieGenres, s.TVGenres, s.Languages, s.Adult, s.Sort}
}

// Clear deselects every filter and empties the term.
func (s *Set) Clear() {
	for _, f := range s.all() {
		f.Clear()
	}
	s.term = ""
}

// HasAnyConstraint reports whether the search is restricted at all: a
// non-empty term, a genre pick or a language pick. Adult and sort alone do
// not narrow a search, so they do not count.
func (s *Set) HasAnyConstraint() bool {
	return s.term != "" || s.ActiveGenreFilter().IsSelected() || s.Languages.IsSelected()
}

// DiscoveryFragment builds the provider query suffix from the current
// selections. Fragment order is fixed (keyword, genre, language, adult,
// sort) so equivalent searches produce identical strings. Codes are joined
// raw with the filter's join character; percent-encoding is left to the
// HTTP layer.
func (s *Set) DiscoveryFragment() string {
	var b strings.Builder

	if s.Keywords.IsSelected() {
		writeFragment(&b, apiParamKeywords, strings.Join(s.Keywords.SelectedCodes(), s.Keywords.JoinString()))
	} else if s.term != "" {
		// A bare term still constrains the search through every keyword
		// it resolved to.
		if codes := optionCodes(s.Keywords.Options()); len(codes) > 0 {
			writeFragment(&b, apiParamKeywords, strings.Join(codes, s.Keywords.JoinString()))
		}
	}
	if genre := s.ActiveGenreFilter(); genre.IsSelected() {
		writeFragment(&b, apiParamGenres, strings.Join(genre.SelectedCodes(), genre.JoinString()))
	}
	if s.Languages.IsSelected() {
		writeFragment(&b, apiParamLanguage, strings.Join(s.Languages.SelectedCodes(), s.Languages.JoinString()))
	}
	writeFragment(&b, apiParamAdult, strconv.FormatBool(!s.Adult.On()))
	if s.Sort.IsSelected() {
		writeFragment(&b, apiParamSort, s.Sort.SelectedCodes()[0])
	}
	return b.String()
}

func optionCodes(options []Option) []string {
	codes := make([]string, 0, len(options))
	for _, o := range options {
		codes = append(codes, o.Code)
	}
	return codes
}

func writeFragment(b *strings.Builder, key, value string) {
	b.WriteString(discoveryParamPrefix)
	b.WriteString(key)
	b.WriteString("=")
	b.WriteString(value)
}

// ReturnValues encodes every filter axis into return-URL parameters. All
// axes are always present, even when empty, so decoding never has to guess
// which axes existed.
func (s *Set) ReturnValues() url.Values {
	vals := url.Values{}
	vals.Set(ParamKeywords, EncodeList(s.Keywords.SelectedCodes()))
	vals.Set(ParamKeywordCombine, s.Keywords.Operator().Word())
	vals.Set(ParamGenres, EncodeList(s.ActiveGenreFilter().SelectedCodes()))
	vals.Set(ParamGenreCombine, s.ActiveGenreFilter().Operator().Word())
	vals.Set(ParamLanguages, EncodeList(s.Languages.SelectedCodes()))
	vals.Set(ParamExcludeAdult, strconv.FormatBool(s.Adult.On()))
	sortCode := ""
	if s.Sort.IsSelected() {
		sortCode = s.Sort.SelectedCodes()[0]
	}
	vals.Set(ParamSort, sortCode)
	return vals
}

// ApplyReturnValues restores the static filter axes (genres, languages,
// adult, sort) from return-URL parameters. Missing or malformed parameters
// degrade to the unconstrained default for that axis. Keyword restore needs
// a network round trip and lives in RestoreKeywords.
func (s *Set) ApplyReturnValues(vals url.Values) {
	genre := s.ActiveGenreFilter()
	genre.SelectCodes(DecodeList(vals.Get(ParamGenres)))
	genre.SetOperator(ParseOperator(vals.Get(ParamGenreCombine), OpAnd))

	s.Languages.SelectCodes(DecodeList(vals.Get(ParamLanguages)))

	s.Adult.SetOn(vals.Get(ParamExcludeAdult) == "true")

	if code := strings.TrimSpace(vals.Get(ParamSort)); code != "" {
		s.Sort.SelectCodes([]string{code})
	} else {
		s.Sort.Clear()
	}
}

// RestoreKeywords repopulates the dynamic keyword filter against the current
// term and re-selects the codes carried by the return URL. Must run before
// the dependent discovery fetch.
func (s *Set) RestoreKeywords(ctx context.Context, vals url.Values) error {
	codes := DecodeList(vals.Get(ParamKeywords))
	op := ParseOperator(vals.Get(ParamKeywordCombine), s.Keywords.DefaultOperator())
	if err := s.Keywords.Repopulate(ctx); err != nil {
		return err
	}
	s.Keywords.SelectCodes(codes)
	s.Keywords.SetOperator(op)
	return nil
}

// EncodeList joins codes for a multi-valued return-URL parameter. The dash
// separator is part of the format contract.
func EncodeList(codes []string) string {
	return strings.Join(codes, listSeparator)
}

func DecodeList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, listSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
