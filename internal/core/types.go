package core

import (
	"fmt"
	"strings"
)

// Filter is the active listing category or the search mode.
type Filter string

// Listing filters.
const (
	FilterPopular    Filter = "popular"
	FilterTopRated   Filter = "top-rated"
	FilterNowPlaying Filter = "now-playing"
	FilterSearch     Filter = "search"
)

// Filters lists the category filters in display order. Search is not a category.
var Filters = []Filter{FilterPopular, FilterTopRated, FilterNowPlaying}

// Label returns the human-readable filter name.
func (f Filter) Label() string {
	switch f {
	case FilterPopular:
		return "Popular"
	case FilterTopRated:
		return "Top Rated"
	case FilterNowPlaying:
		return "Now Playing"
	case FilterSearch:
		return "Search"
	}
	return string(f)
}

// ParseFilter parses a filter tag. Underscores are accepted in place of dashes.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	switch f {
	case FilterPopular, FilterTopRated, FilterNowPlaying, FilterSearch:
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q (want popular, top-rated, now-playing or search)", s)
}

// Movie represents a single movie in a listing
type Movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"` // empty when the movie has no poster
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"` // 0-10
}

// MovieDetails represents detailed movie information
type MovieDetails struct {
	Movie
	Runtime int      `json:"runtime"`
	Status  string   `json:"status"`
	Tagline string   `json:"tagline"`
	IMDbID  string   `json:"imdb_id"`
	Genres  []string `json:"genres"`
}

// MoviePage is one page of a listing as reported by the provider
type MoviePage struct {
	Page         int     `json:"page"`
	Movies       []Movie `json:"movies"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// PageRequest selects one page of a listing
type PageRequest struct {
	Filter Filter // which listing
	Query  string // search text, only used with FilterSearch
	Page   int    // 1-based
}
