// Package mcp exposes the movie listings as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vadimtrunov/movieexplorer/internal/browser"
	"github.com/vadimtrunov/movieexplorer/internal/core"
	"github.com/vadimtrunov/movieexplorer/internal/format"
	"github.com/vadimtrunov/movieexplorer/internal/view"
)

// Deps holds the providers behind the tool handlers.
type Deps struct {
	Source   core.MovieSource
	Details  core.MovieDetailer // optional
	Renderer view.Renderer
}

// Server wraps an MCP SDK server with the movie tools.
type Server struct {
	server *mcpsdk.Server
	deps   Deps
	logger *slog.Logger
}

// NewServer creates an MCP server with all tools registered.
func NewServer(deps Deps, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	deps.Renderer = view.NewRenderer(deps.Renderer.Images, deps.Renderer.OverviewLength)

	s := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "movieexplorer",
			Version: version,
		},
		&mcpsdk.ServerOptions{Logger: logger},
	)

	srv := &Server{server: s, deps: deps, logger: logger}
	srv.registerTools()
	return srv
}

// ServeStdio runs the MCP server over stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.server.Run(ctx, &mcpsdk.StdioTransport{})
}

// MCPServer returns the underlying MCP SDK server (for testing).
func (s *Server) MCPServer() *mcpsdk.Server {
	return s.server
}

func (s *Server) registerTools() {
	s.server.AddTool(listMoviesTool(), s.handleListMovies)
	s.server.AddTool(searchMoviesTool(), s.handleSearchMovies)
	s.server.AddTool(getMovieDetailsTool(), s.handleGetMovieDetails)
}

func listMoviesTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "list_movies",
		Description: "List one page of a TMDb movie listing. Returns titles, release dates, ratings and short synopses.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"filter": map[string]any{
					"type":        "string",
					"description": "Which listing to show: popular, top-rated or now-playing",
				},
				"page": pageSchema(),
			},
			"required": []any{"filter"},
		},
	}
}

func searchMoviesTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "search_movies",
		Description: "Search TMDb movies by title. Returns one page of matches.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The movie title to search for",
				},
				"page": pageSchema(),
			},
			"required": []any{"query"},
		},
	}
}

func getMovieDetailsTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "get_movie_details",
		Description: "Get detailed information about a movie by its TMDb ID: runtime, genres, tagline and the full synopsis.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tmdb_id": map[string]any{
					"type":        "integer",
					"description": "The TMDb ID of the movie",
				},
			},
			"required": []any{"tmdb_id"},
		},
	}
}

func pageSchema() map[string]any {
	return map[string]any{
		"type":        "integer",
		"description": "1-based page number, defaults to 1",
	}
}

// movieResult is one movie as returned by the listing tools.
type movieResult struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	Rating      string `json:"rating"`
	PosterURL   string `json:"poster_url"`
	Overview    string `json:"overview"`
}

type pageResult struct {
	Filter       core.Filter   `json:"filter"`
	Query        string        `json:"query,omitempty"`
	Page         int           `json:"page"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
	PageInfo     string        `json:"page_info"`
	Movies       []movieResult `json:"movies"`
	Message      string        `json:"message,omitempty"`
}

type detailsResult struct {
	movieResult
	Overview string   `json:"overview"`
	Tagline  string   `json:"tagline,omitempty"`
	Runtime  string   `json:"runtime,omitempty"`
	Status   string   `json:"status,omitempty"`
	Genres   []string `json:"genres,omitempty"`
	IMDbURL  string   `json:"imdb_url,omitempty"`
}

func (s *Server) handleListMovies(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args struct {
		Filter string `json:"filter"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	f, err := core.ParseFilter(args.Filter)
	if err != nil || f == core.FilterSearch {
		return toolError("list_movies requires a 'filter' of popular, top-rated or now-playing"), nil
	}
	page, err := extractPage(req.Params.Arguments)
	if err != nil {
		return toolError(err.Error()), nil
	}
	return s.fetch(ctx, core.PageRequest{Filter: f, Page: page})
}

func (s *Server) handleSearchMovies(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	query, err := extractStringFromArgs(req.Params.Arguments, "query")
	if err != nil || strings.TrimSpace(query) == "" {
		return toolError("search_movies requires a non-empty 'query' string argument"), nil
	}
	page, err := extractPage(req.Params.Arguments)
	if err != nil {
		return toolError(err.Error()), nil
	}
	return s.fetch(ctx, core.PageRequest{Filter: core.FilterSearch, Query: strings.TrimSpace(query), Page: page})
}

func (s *Server) fetch(ctx context.Context, req core.PageRequest) (*mcpsdk.CallToolResult, error) {
	if s.deps.Source == nil {
		return toolError("TMDb client not configured"), nil
	}

	mp, err := s.deps.Source.FetchPage(ctx, req)
	if err == nil && mp == nil {
		err = &core.FetchError{Reason: core.ReasonDecode, Err: errors.New("source returned no page")}
	}
	if err != nil {
		fe := core.AsFetchError(err)
		s.logger.Warn("tool fetch failed",
			slog.String("filter", string(req.Filter)),
			slog.Int("page", req.Page),
			slog.String("reason", string(fe.Reason)),
			slog.String("error", err.Error()),
		)
		return toolError(fmt.Sprintf("%s (%s)", browser.FailureMessage(req.Filter), fe.Reason)), nil
	}

	out := pageResult{
		Filter:       req.Filter,
		Query:        req.Query,
		Page:         req.Page,
		TotalPages:   mp.TotalPages,
		TotalResults: mp.TotalResults,
		PageInfo:     format.PageInfo(req.Page, mp.TotalPages),
		Movies:       make([]movieResult, 0, len(mp.Movies)),
	}
	for _, m := range mp.Movies {
		out.Movies = append(out.Movies, s.movie(s.deps.Renderer.Card(m)))
	}
	if len(out.Movies) == 0 {
		out.Message = browser.NoResultsMessage
	}
	return toolJSON(out)
}

func (s *Server) movie(c view.Card) movieResult {
	return movieResult{
		ID:          c.ID,
		Title:       c.Title,
		ReleaseDate: c.Date,
		Rating:      c.Rating,
		PosterURL:   c.PosterURL,
		Overview:    c.Overview,
	}
}

func (s *Server) handleGetMovieDetails(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	if s.deps.Details == nil {
		return toolError("movie details not configured"), nil
	}

	tmdbID, err := extractIntFromArgs(req.Params.Arguments, "tmdb_id")
	if err != nil {
		return toolError(err.Error()), nil
	}

	d, err := s.deps.Details.Details(ctx, tmdbID)
	if err != nil {
		return toolError(fmt.Sprintf("tmdb get movie failed: %v", err)), nil
	}

	v := s.deps.Renderer.Details(d)
	return toolJSON(detailsResult{
		movieResult: s.movie(v.Card),
		Overview:    v.Overview,
		Tagline:     v.Tagline,
		Runtime:     v.Runtime,
		Status:      v.Status,
		Genres:      v.Genres,
		IMDbURL:     v.IMDbURL,
	})
}

// toolJSON marshals v to JSON and returns it as text content.
func toolJSON(v any) (*mcpsdk.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, nil
}

// toolError returns a tool result indicating an error.
func toolError(msg string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: msg}},
		IsError: true,
	}
}

// extractPage reads the optional page argument, defaulting to 1.
func extractPage(raw json.RawMessage) (int, error) {
	page, err := extractIntFromArgs(raw, "page")
	if errors.Is(err, errMissingArg) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if page < 1 {
		return 0, fmt.Errorf("page must be at least 1, got %d", page)
	}
	return page, nil
}

var errMissingArg = errors.New("argument is required")

// extractIntFromArgs extracts an integer argument from raw JSON arguments.
func extractIntFromArgs(raw json.RawMessage, key string) (int, error) {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return 0, fmt.Errorf("invalid arguments: %w", err)
	}

	val, ok := args[key]
	if !ok || val == nil {
		return 0, fmt.Errorf("%s: %w", key, errMissingArg)
	}

	switch v := val.(type) {
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a number: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, val)
	}
}

// extractStringFromArgs extracts a string argument from raw JSON arguments.
func extractStringFromArgs(raw json.RawMessage, key string) (string, error) {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	val, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", key, errMissingArg)
	}

	s, ok := val.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s must be a non-empty string", key)
	}
	return s, nil
}
