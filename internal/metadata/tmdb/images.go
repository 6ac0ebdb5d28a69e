package tmdb

const (
	// DefaultImageBaseURL serves display-sized (w500) posters.
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"
	// DefaultPlaceholderURL is shown when a movie has no poster or it fails to load.
	DefaultPlaceholderURL = "https://via.placeholder.com/300x450?text=No+Image"
)

// Images resolves poster paths against the image CDN.
type Images struct {
	BaseURL     string
	Placeholder string
}

// DefaultImages returns the TMDb CDN at w500 with the public placeholder.
func DefaultImages() Images {
	return Images{BaseURL: DefaultImageBaseURL, Placeholder: DefaultPlaceholderURL}
}

// PosterURL returns the full URL for a poster path, or the placeholder when
// the path is empty.
func (i Images) PosterURL(posterPath string) string {
	if posterPath == "" {
		return i.Placeholder
	}
	return i.BaseURL + posterPath
}

// Fallback returns the URL to substitute for a poster that failed to load.
func (i Images) Fallback() string {
	return i.Placeholder
}
