package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vadimtrunov/movieexplorer/internal/core"
	"github.com/vadimtrunov/movieexplorer/internal/httpclient"
)

// DefaultBaseURL is the TMDb API v3 endpoint.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// maxErrorBody bounds how much of an error response is read for the message.
const maxErrorBody = 4096

// ErrMalformedResponse is returned when a response body cannot be decoded.
var ErrMalformedResponse = errors.New("malformed tmdb response")

// APIError is a non-success response from the TMDb API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("tmdb API error %d: %s", e.StatusCode, e.Message)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	HTTP    httpclient.Config
}

// Client is a TMDb API v3 client.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
	logger  *slog.Logger
}

// compile-time checks.
var (
	_ core.MovieSource   = (*Client)(nil)
	_ core.MovieDetailer = (*Client)(nil)
)

// New creates a new TMDb client with default transport settings.
func New(apiKey string, logger *slog.Logger) *Client {
	return NewWithOptions(Options{APIKey: apiKey, HTTP: httpclient.DefaultConfig()}, logger)
}

// NewWithOptions creates a TMDb client from explicit options.
func NewWithOptions(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		http:    httpclient.New(opts.HTTP, logger),
		logger:  logger,
	}
}

// NewForTest creates a TMDb client with a custom base URL for testing.
// Exported because it is used by cross-package tests (e.g. internal/mcp).
func NewForTest(baseURL string, logger *slog.Logger) *Client {
	return NewWithOptions(Options{BaseURL: baseURL, APIKey: "test-key", HTTP: httpclient.DefaultConfig()}, logger)
}

// Popular returns a page of the popular movies listing.
func (c *Client) Popular(ctx context.Context, page int) (*Page, error) {
	return c.list(ctx, "/movie/popular", nil, page)
}

// TopRated returns a page of the top rated movies listing.
func (c *Client) TopRated(ctx context.Context, page int) (*Page, error) {
	return c.list(ctx, "/movie/top_rated", nil, page)
}

// NowPlaying returns a page of the movies currently in theaters.
func (c *Client) NowPlaying(ctx context.Context, page int) (*Page, error) {
	return c.list(ctx, "/movie/now_playing", nil, page)
}

// SearchMovies searches for movies by title.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*Page, error) {
	return c.list(ctx, "/search/movie", url.Values{"query": {query}}, page)
}

// GetMovie retrieves full details for a movie by TMDb ID.
func (c *Client) GetMovie(ctx context.Context, id int) (*MovieDetails, error) {
	var details MovieDetails
	path := fmt.Sprintf("/movie/%d", id)
	if err := c.get(ctx, path, nil, &details); err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	return &details, nil
}

// FetchPage implements core.MovieSource by routing the request to the
// endpoint matching its filter.
func (c *Client) FetchPage(ctx context.Context, req core.PageRequest) (*core.MoviePage, error) {
	var (
		page *Page
		err  error
	)
	switch req.Filter {
	case core.FilterPopular:
		page, err = c.Popular(ctx, req.Page)
	case core.FilterTopRated:
		page, err = c.TopRated(ctx, req.Page)
	case core.FilterNowPlaying:
		page, err = c.NowPlaying(ctx, req.Page)
	case core.FilterSearch:
		page, err = c.SearchMovies(ctx, req.Query, req.Page)
	default:
		return nil, fmt.Errorf("unsupported filter %q", req.Filter)
	}
	if err != nil {
		return nil, err
	}
	return page.toCore(), nil
}

// Details implements core.MovieDetailer.
func (c *Client) Details(ctx context.Context, id int) (*core.MovieDetails, error) {
	details, err := c.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}
	return details.toCore(), nil
}

func (c *Client) list(ctx context.Context, path string, params url.Values, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("page", strconv.Itoa(page))

	var resp Page
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, fmt.Errorf("list %s page %d: %w", path, page, err)
	}
	return &resp, nil
}

// get performs an authenticated GET request to the TMDb API and decodes the
// JSON response. Transport, status and decode failures are reported as
// *core.FetchError.
func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	q := u.Query()
	q.Set("api_key", c.apiKey)
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &core.FetchError{Reason: core.ReasonCanceled, Err: err}
		}
		return &core.FetchError{Reason: core.ReasonNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
		c.logger.Debug("tmdb request rejected",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return &core.FetchError{Reason: core.ReasonStatus, StatusCode: resp.StatusCode, Err: apiErr}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &core.FetchError{Reason: core.ReasonDecode, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	return nil
}

// readErrorMessage extracts status_message from a TMDb error body, falling
// back to the raw body text.
func readErrorMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var payload struct {
		StatusMessage string `json:"status_message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.StatusMessage != "" {
		return payload.StatusMessage
	}
	return string(body)
}
