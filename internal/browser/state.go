package browser

import (
	"slices"

	"github.com/vadimtrunov/movieexplorer/internal/core"
)

// failureMessages holds the user-facing text shown when a fetch fails.
var failureMessages = map[core.Filter]string{
	core.FilterPopular:    "Failed to load popular movies. Please try again.",
	core.FilterTopRated:   "Failed to load top rated movies. Please try again.",
	core.FilterNowPlaying: "Failed to load now playing movies. Please try again.",
	core.FilterSearch:     "Failed to search movies. Please try again.",
}

// NoResultsMessage is shown when a listing or search yields no movies.
const NoResultsMessage = "No movies found. Try a different search term."

// FailureMessage returns the error banner text for a failed fetch of f.
func FailureMessage(f core.Filter) string {
	if msg, ok := failureMessages[f]; ok {
		return msg
	}
	return "Failed to load movies. Please try again."
}

// State is a snapshot of the browsing view.
type State struct {
	Filter       core.Filter
	Query        string // search box contents
	Page         int    // 1-based
	TotalPages   int    // as reported by the server
	TotalResults int
	Movies       []core.Movie
	Loading      bool
	Error        string           // banner text, empty when the last fetch succeeded
	Failure      *core.FetchError // typed cause behind Error
}

func initialState() State {
	return State{
		Filter:     core.FilterPopular,
		Page:       1,
		TotalPages: 1,
	}
}

// CanNext reports whether a next page exists.
func (s State) CanNext() bool { return s.Page < s.TotalPages }

// CanPrevious reports whether a previous page exists.
func (s State) CanPrevious() bool { return s.Page > 1 }

// HasError reports whether the error banner is shown.
func (s State) HasError() bool { return s.Error != "" }

// Empty reports whether the "no results" message is shown.
func (s State) Empty() bool {
	return !s.Loading && !s.HasError() && len(s.Movies) == 0
}

// ShowResults reports whether the result grid and pagination are shown.
func (s State) ShowResults() bool {
	return !s.Loading && !s.HasError() && len(s.Movies) > 0
}

// clone returns a copy that shares no mutable memory with s.
func (s State) clone() State {
	s.Movies = slices.Clone(s.Movies)
	return s
}
