package tmdb

import "github.com/vadimtrunov/movieexplorer/internal/core"

// Movie represents a movie from TMDb listing and search results.
type Movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"` // null decodes to ""
	VoteAverage float64 `json:"vote_average"`
	GenreIDs    []int   `json:"genre_ids"`
}

// MovieDetails represents detailed movie information.
type MovieDetails struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	Runtime     int     `json:"runtime"`
	Status      string  `json:"status"`
	Tagline     string  `json:"tagline"`
	IMDbID      string  `json:"imdb_id"`
	Genres      []Genre `json:"genres"`
}

// Genre represents a movie genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Page is the TMDb paginated listing response shared by all list endpoints.
type Page struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// toCore converts a TMDb movie to the domain representation.
func (m Movie) toCore() core.Movie {
	return core.Movie{
		ID:          m.ID,
		Title:       m.Title,
		Overview:    m.Overview,
		PosterPath:  m.PosterPath,
		ReleaseDate: m.ReleaseDate,
		VoteAverage: m.VoteAverage,
	}
}

// toCore converts a TMDb page to the domain representation.
func (p *Page) toCore() *core.MoviePage {
	movies := make([]core.Movie, 0, len(p.Results))
	for _, m := range p.Results {
		movies = append(movies, m.toCore())
	}
	return &core.MoviePage{
		Page:         p.Page,
		Movies:       movies,
		TotalPages:   p.TotalPages,
		TotalResults: p.TotalResults,
	}
}

// toCore converts TMDb movie details to the domain representation.
func (d *MovieDetails) toCore() *core.MovieDetails {
	genres := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		genres = append(genres, g.Name)
	}
	return &core.MovieDetails{
		Movie: core.Movie{
			ID:          d.ID,
			Title:       d.Title,
			Overview:    d.Overview,
			PosterPath:  d.PosterPath,
			ReleaseDate: d.ReleaseDate,
			VoteAverage: d.VoteAverage,
		},
		Runtime: d.Runtime,
		Status:  d.Status,
		Tagline: d.Tagline,
		IMDbID:  d.IMDbID,
		Genres:  genres,
	}
}
