// Package view turns browser state into the presentation model rendered by
// the terminal, web and Telegram frontends.
package view

import (
	"github.com/vadimtrunov/movieexplorer/internal/browser"
	"github.com/vadimtrunov/movieexplorer/internal/core"
	"github.com/vadimtrunov/movieexplorer/internal/format"
	"github.com/vadimtrunov/movieexplorer/internal/metadata/tmdb"
)

// Card is one result in the grid.
type Card struct {
	ID        int
	Title     string
	PosterURL string
	Fallback  string // substituted when PosterURL fails to load
	Date      string
	Rating    string
	Overview  string
}

// Tab is a filter button.
type Tab struct {
	Filter core.Filter
	Label  string
	Active bool
}

// Page is everything a frontend needs to draw the widget.
type Page struct {
	Tabs        []Tab
	Filter      core.Filter
	Heading     string
	Query       string
	Cards       []Card
	PageInfo    string
	CanNext     bool
	CanPrevious bool
	Loading     bool
	Error       string
	Empty       bool // show NoResults
	NoResults   string
	ShowResults bool
}

// Renderer builds presentation models.
type Renderer struct {
	Images         tmdb.Images
	OverviewLength int
}

// NewRenderer returns a Renderer, using defaults for zero values.
func NewRenderer(images tmdb.Images, overviewLength int) Renderer {
	if images.BaseURL == "" {
		images.BaseURL = tmdb.DefaultImageBaseURL
	}
	if images.Placeholder == "" {
		images.Placeholder = tmdb.DefaultPlaceholderURL
	}
	if overviewLength <= 0 {
		overviewLength = format.OverviewLength
	}
	return Renderer{Images: images, OverviewLength: overviewLength}
}

// Render maps a browser snapshot to a Page.
func (r Renderer) Render(s browser.State) Page {
	p := Page{
		Filter:      s.Filter,
		Heading:     s.Filter.Label(),
		Query:       s.Query,
		PageInfo:    format.PageInfo(s.Page, s.TotalPages),
		CanNext:     s.CanNext(),
		CanPrevious: s.CanPrevious(),
		Loading:     s.Loading,
		Error:       s.Error,
		Empty:       s.Empty(),
		NoResults:   browser.NoResultsMessage,
		ShowResults: s.ShowResults(),
	}
	for _, f := range core.Filters {
		p.Tabs = append(p.Tabs, Tab{Filter: f, Label: f.Label(), Active: f == s.Filter})
	}
	if s.Filter == core.FilterSearch {
		p.Heading = "Results for \"" + s.Query + "\""
	}
	p.Cards = make([]Card, 0, len(s.Movies))
	for _, m := range s.Movies {
		p.Cards = append(p.Cards, r.Card(m))
	}
	return p
}

// Card maps one movie to a card.
func (r Renderer) Card(m core.Movie) Card {
	return Card{
		ID:        m.ID,
		Title:     m.Title,
		PosterURL: r.Images.PosterURL(m.PosterPath),
		Fallback:  r.Images.Fallback(),
		Date:      format.Date(m.ReleaseDate),
		Rating:    format.Rating(m.VoteAverage),
		Overview:  format.Truncate(m.Overview, r.OverviewLength),
	}
}

// Details is the expanded view of a single movie.
type Details struct {
	Card
	Overview string // full synopsis
	Tagline  string
	Runtime  string
	Status   string
	Genres   []string
	IMDbURL  string
}

// Details maps movie details to the expanded view.
func (r Renderer) Details(d *core.MovieDetails) Details {
	out := Details{
		Card:     r.Card(d.Movie),
		Overview: d.Overview,
		Tagline:  d.Tagline,
		Status:   d.Status,
		Genres:   d.Genres,
	}
	if d.Runtime > 0 {
		out.Runtime = format.Runtime(d.Runtime)
	}
	if d.IMDbID != "" {
		out.IMDbURL = "https://www.imdb.com/title/" + d.IMDbID + "/"
	}
	return out
}
