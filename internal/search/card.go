package search

import (
	"fmt"

	"github.com/flixfinder/flixfinder/internal/tmdb"
)

// Card is the view model for one result in a grid or carousel.
type Card struct {
	ID          int64  `json:"id"`
	MediaType   string `json:"media_type"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Rating      string `json:"rating"`
	PosterURL   string `json:"poster_url"`
	Overview    string `json:"overview"`
	DetailsHRef string `json:"details_href"`
}

// Sink receives rendered cards. The engine assumes nothing about the target
// beyond append and clear.
type Sink interface {
	Append(Card)
	Clear()
}

// Refresher is implemented by carousel sinks that need their rotation
// re-initialized after items are appended.
type Refresher interface {
	Refresh()
}

const (
	noMovieImage = "/images/no-movie.jpg"
	noShowImage  = "/images/no-show.jpg"
)

// posterURL answers the image for a result, or the placeholder for its
// media kind when the provider has none.
func posterURL(item tmdb.SearchResult, imageBase string) string {
	if item.PosterPath == "" {
		if item.MediaType == "tv" {
			return noShowImage
		}
		return noMovieImage
	}
	return imageBase + item.PosterPath
}

// ratingText formats the vote average to one decimal, defaulting to 0.
func ratingText(vote float64) string {
	return fmt.Sprintf("%.1f / 10", vote)
}
