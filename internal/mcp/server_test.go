package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vadimtrunov/movieexplorer/internal/browser"
	"github.com/vadimtrunov/movieexplorer/internal/core"
	"github.com/vadimtrunov/movieexplorer/internal/metadata/tmdb"
	"github.com/vadimtrunov/movieexplorer/internal/view"
)

// mockSource implements core.MovieSource for testing.
type mockSource struct {
	mu   sync.Mutex
	page *core.MoviePage
	err  error
	got  []core.PageRequest
}

func (m *mockSource) FetchPage(_ context.Context, req core.PageRequest) (*core.MoviePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, req)
	return m.page, m.err
}

func (m *mockSource) requests() []core.PageRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.PageRequest(nil), m.got...)
}

// mockDetails implements core.MovieDetailer for testing.
type mockDetails struct {
	details *core.MovieDetails
	err     error
	gotID   int
}

func (m *mockDetails) Details(_ context.Context, id int) (*core.MovieDetails, error) {
	m.gotID = id
	return m.details, m.err
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestServer(deps Deps) *Server {
	deps.Renderer = view.NewRenderer(tmdb.DefaultImages(), 20)
	return NewServer(deps, "test", discardLogger)
}

func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	_, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}
	return result
}

func resultText(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected 1 content block, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(*mcpsdk.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return text.Text
}

var inception = core.Movie{
	ID:          27205,
	Title:       "Inception",
	Overview:    "A thief who steals corporate secrets through dream-sharing technology.",
	PosterPath:  "/inception.jpg",
	ReleaseDate: "2010-07-16",
	VoteAverage: 8.36,
}

func TestListMovies(t *testing.T) {
	t.Parallel()
	src := &mockSource{page: &core.MoviePage{Page: 2, TotalPages: 5, TotalResults: 100, Movies: []core.Movie{inception}}}
	srv := newTestServer(Deps{Source: src})

	result := callTool(t, srv, "list_movies", map[string]any{"filter": "top-rated", "page": 2})

	if result.IsError {
		t.Fatalf("expected success, got error: %s", resultText(t, result))
	}
	var got pageResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if reqs := src.requests(); len(reqs) != 1 || reqs[0] != (core.PageRequest{Filter: core.FilterTopRated, Page: 2}) {
		t.Errorf("requests = %+v", reqs)
	}
	if got.PageInfo != "Page 2 of 5" || got.TotalResults != 100 {
		t.Errorf("unexpected paging: %+v", got)
	}
	if len(got.Movies) != 1 {
		t.Fatalf("expected 1 movie, got %d", len(got.Movies))
	}
	m := got.Movies[0]
	if m.ReleaseDate != "July 16, 2010" || m.Rating != "8.4" {
		t.Errorf("unexpected formatting: %+v", m)
	}
	if m.PosterURL != tmdb.DefaultImageBaseURL+"/inception.jpg" {
		t.Errorf("poster = %q", m.PosterURL)
	}
	if m.Overview != "A thief who steals c..." {
		t.Errorf("overview = %q", m.Overview)
	}
}

func TestListMovies_DefaultsToFirstPage(t *testing.T) {
	t.Parallel()
	src := &mockSource{page: &core.MoviePage{Page: 1, TotalPages: 1}}
	srv := newTestServer(Deps{Source: src})

	result := callTool(t, srv, "list_movies", map[string]any{"filter": "now_playing"})

	if result.IsError {
		t.Fatalf("expected success, got error: %s", resultText(t, result))
	}
	if reqs := src.requests(); reqs[0] != (core.PageRequest{Filter: core.FilterNowPlaying, Page: 1}) {
		t.Errorf("requests = %+v", reqs)
	}
	var got pageResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if got.Message != browser.NoResultsMessage {
		t.Errorf("message = %q", got.Message)
	}
}

func TestListMovies_InvalidArguments(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing filter", map[string]any{}, "requires a 'filter'"},
		{"unknown filter", map[string]any{"filter": "upcoming"}, "requires a 'filter'"},
		{"search is not a listing", map[string]any{"filter": "search"}, "requires a 'filter'"},
		{"zero page", map[string]any{"filter": "popular", "page": 0}, "page must be at least 1"},
		{"bad page", map[string]any{"filter": "popular", "page": "two"}, "page must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := &mockSource{page: &core.MoviePage{}}
			srv := newTestServer(Deps{Source: src})

			result := callTool(t, srv, "list_movies", tt.args)

			if !result.IsError {
				t.Fatal("expected error result")
			}
			if text := resultText(t, result); !strings.Contains(text, tt.want) {
				t.Errorf("error = %q, want it to contain %q", text, tt.want)
			}
			if len(src.requests()) != 0 {
				t.Error("invalid arguments must not reach the source")
			}
		})
	}
}

func TestListMovies_FetchFailure(t *testing.T) {
	t.Parallel()
	src := &mockSource{err: &core.FetchError{Reason: core.ReasonStatus, StatusCode: 503, Err: errors.New("unavailable")}}
	srv := newTestServer(Deps{Source: src})

	result := callTool(t, srv, "list_movies", map[string]any{"filter": "popular"})

	if !result.IsError {
		t.Fatal("expected error result")
	}
	want := "Failed to load popular movies. Please try again. (status)"
	if got := resultText(t, result); got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
}

func TestListMovies_NilPage(t *testing.T) {
	t.Parallel()
	srv := newTestServer(Deps{Source: &mockSource{}})

	result := callTool(t, srv, "list_movies", map[string]any{"filter": "popular"})

	if !result.IsError || !strings.HasSuffix(resultText(t, result), "(decode)") {
		t.Errorf("expected decode failure, got %+v", result)
	}
}

func TestSearchMovies(t *testing.T) {
	t.Parallel()
	src := &mockSource{page: &core.MoviePage{Page: 1, TotalPages: 1, TotalResults: 1, Movies: []core.Movie{inception}}}
	srv := newTestServer(Deps{Source: src})

	result := callTool(t, srv, "search_movies", map[string]any{"query": "  inception "})

	if result.IsError {
		t.Fatalf("expected success, got error: %s", resultText(t, result))
	}
	if reqs := src.requests(); reqs[0] != (core.PageRequest{Filter: core.FilterSearch, Query: "inception", Page: 1}) {
		t.Errorf("requests = %+v", reqs)
	}
	var got pageResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if got.Filter != core.FilterSearch || got.Query != "inception" || len(got.Movies) != 1 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestSearchMovies_BlankQuery(t *testing.T) {
	t.Parallel()
	src := &mockSource{page: &core.MoviePage{}}
	srv := newTestServer(Deps{Source: src})

	for _, args := range []map[string]any{{}, {"query": "   "}, {"query": 42}} {
		result := callTool(t, srv, "search_movies", args)
		if !result.IsError {
			t.Errorf("args %v: expected error result", args)
		}
	}
	if len(src.requests()) != 0 {
		t.Error("blank queries must not reach the source")
	}
}

func TestSearchMovies_FailureMessage(t *testing.T) {
	t.Parallel()
	srv := newTestServer(Deps{Source: &mockSource{err: errors.New("dial tcp: refused")}})

	result := callTool(t, srv, "search_movies", map[string]any{"query": "x"})

	if got := resultText(t, result); got != "Failed to search movies. Please try again. (unknown)" {
		t.Errorf("error = %q", got)
	}
}

func TestGetMovieDetails(t *testing.T) {
	t.Parallel()
	det := &mockDetails{details: &core.MovieDetails{
		Movie:   inception,
		Runtime: 148,
		Tagline: "Your mind is the scene of the crime.",
		Genres:  []string{"Action", "Science Fiction"},
		IMDbID:  "tt1375666",
	}}
	srv := newTestServer(Deps{Source: &mockSource{}, Details: det})

	result := callTool(t, srv, "get_movie_details", map[string]any{"tmdb_id": 27205})

	if result.IsError {
		t.Fatalf("expected success, got error: %s", resultText(t, result))
	}
	if det.gotID != 27205 {
		t.Errorf("requested id = %d", det.gotID)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["runtime"] != "2h 28m" {
		t.Errorf("runtime = %v", got["runtime"])
	}
	if got["overview"] != inception.Overview {
		t.Errorf("details should carry the full overview, got %v", got["overview"])
	}
	if got["imdb_url"] != "https://www.imdb.com/title/tt1375666/" {
		t.Errorf("imdb_url = %v", got["imdb_url"])
	}
}

func TestGetMovieDetails_Errors(t *testing.T) {
	t.Parallel()

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(Deps{Source: &mockSource{}})
		result := callTool(t, srv, "get_movie_details", map[string]any{"tmdb_id": 1})
		if !result.IsError {
			t.Fatal("expected error result")
		}
	})

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(Deps{Details: &mockDetails{}})
		result := callTool(t, srv, "get_movie_details", map[string]any{})
		if !result.IsError || !strings.Contains(resultText(t, result), "tmdb_id") {
			t.Fatalf("expected tmdb_id error, got %+v", result)
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(Deps{Details: &mockDetails{err: &tmdb.APIError{StatusCode: 404, Message: "not found"}}})
		result := callTool(t, srv, "get_movie_details", map[string]any{"tmdb_id": "99"})
		if !result.IsError || !strings.HasPrefix(resultText(t, result), "tmdb get movie failed") {
			t.Fatalf("expected provider error, got %+v", result)
		}
	})
}

func TestToolsListed(t *testing.T) {
	t.Parallel()
	srv := newTestServer(Deps{})
	ctx := context.Background()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	if _, err := srv.MCPServer().Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"list_movies", "search_movies", "get_movie_details"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}
	if len(res.Tools) != 3 {
		t.Errorf("expected 3 tools, got %d", len(res.Tools))
	}
}

func TestExtractIntFromArgs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"number", `{"tmdb_id": 42}`, 42, false},
		{"string number", `{"tmdb_id": "42"}`, 42, false},
		{"missing", `{}`, 0, true},
		{"null", `{"tmdb_id": null}`, 0, true},
		{"not a number", `{"tmdb_id": "abc"}`, 0, true},
		{"wrong type", `{"tmdb_id": true}`, 0, true},
		{"invalid json", `{`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := extractIntFromArgs(json.RawMessage(tt.raw), "tmdb_id")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExtractPage(t *testing.T) {
	t.Parallel()
	if p, err := extractPage(json.RawMessage(`{}`)); err != nil || p != 1 {
		t.Errorf("default page = %d, %v", p, err)
	}
	if p, err := extractPage(json.RawMessage(`{"page": 3}`)); err != nil || p != 3 {
		t.Errorf("page = %d, %v", p, err)
	}
	if _, err := extractPage(json.RawMessage(`{"page": -1}`)); err == nil {
		t.Error("expected error for negative page")
	}
}
