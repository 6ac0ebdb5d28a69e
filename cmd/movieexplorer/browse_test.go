package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vadimtrunov/movieexplorer/internal/browser"
	"github.com/vadimtrunov/movieexplorer/internal/core"
	"github.com/vadimtrunov/movieexplorer/internal/metadata/tmdb"
	"github.com/vadimtrunov/movieexplorer/internal/view"
)

func threeMovies() *core.MoviePage {
	return &core.MoviePage{
		Page:         1,
		TotalPages:   3,
		TotalResults: 60,
		Movies: []core.Movie{
			{ID: 1, Title: "Inception", ReleaseDate: "2010-07-16", VoteAverage: 8.4},
			{ID: 2, Title: "Interstellar", ReleaseDate: "2014-11-05", VoteAverage: 8.6},
			{ID: 3, Title: "Tenet", ReleaseDate: "2020-08-22", VoteAverage: 7.2},
		},
	}
}

func newTestBrowseModel(t *testing.T, src core.MovieSource, det core.MovieDetailer) (browseModel, *browser.Browser) {
	t.Helper()
	b := browser.New(src, browser.Options{Debounce: 10 * time.Millisecond, Logger: testLogger()})
	t.Cleanup(b.Close)
	m := newBrowseModel(context.Background(), b, det, view.NewRenderer(tmdb.DefaultImages(), 100))
	t.Cleanup(m.stop)
	return m, b
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// settle waits for the browser and feeds the change signal to the model.
func settle(t *testing.T, m browseModel, b *browser.Browser) browseModel {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.Wait(ctx); err != nil {
		t.Fatalf("browser did not settle: %v", err)
	}
	updated, _ := m.Update(stateChangedMsg{})
	return updated.(browseModel)
}

func press(m browseModel, keys ...string) browseModel {
	for _, k := range keys {
		updated, _ := m.Update(keyPress(k))
		m = updated.(browseModel)
	}
	return m
}

func TestBrowseModel_Init(t *testing.T) {
	m, _ := newTestBrowseModel(t, &stubSource{page: threeMovies()}, nil)
	if m.Init() == nil {
		t.Error("Init should return a command (spinner tick + update listener)")
	}
	if m.state.Filter != core.FilterPopular {
		t.Errorf("initial filter = %q", m.state.Filter)
	}
}

func TestBrowseModel_ShowsResults(t *testing.T) {
	src := &stubSource{page: threeMovies()}
	m, b := newTestBrowseModel(t, src, nil)

	b.Popular(context.Background())
	m = settle(t, m, b)

	view := m.View()
	for _, want := range []string{"Inception", "July 16, 2010", "8.4", "Page 1 of 3"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestBrowseModel_FilterKeys(t *testing.T) {
	src := &stubSource{page: threeMovies()}
	m, b := newTestBrowseModel(t, src, nil)

	m = press(m, "2")
	m = settle(t, m, b)
	m = press(m, "tab")
	m = settle(t, m, b)

	calls := src.calls()
	if len(calls) != 2 {
		t.Fatalf("requests = %+v", calls)
	}
	if calls[0].Filter != core.FilterTopRated || calls[1].Filter != core.FilterNowPlaying {
		t.Errorf("requests = %+v", calls)
	}
	if m.state.Filter != core.FilterNowPlaying {
		t.Errorf("filter = %q", m.state.Filter)
	}
}

func TestBrowseModel_Pagination(t *testing.T) {
	src := &stubSource{page: threeMovies()}
	m, b := newTestBrowseModel(t, src, nil)

	b.Popular(context.Background())
	m = settle(t, m, b)

	m = press(m, "[")
	if got := len(src.calls()); got != 1 {
		t.Fatalf("previous on page 1 should be a no-op, got %d requests", got)
	}

	m = press(m, "]")
	m = settle(t, m, b)
	m = press(m, "right")
	m = settle(t, m, b)

	calls := src.calls()
	if last := calls[len(calls)-1]; last.Page != 3 {
		t.Errorf("last request = %+v, want page 3", last)
	}
	if m.state.Page != 3 {
		t.Errorf("page = %d", m.state.Page)
	}
}

func TestBrowseModel_ErrorAndRetry(t *testing.T) {
	src := &stubSource{err: errors.New("connection refused")}
	m, b := newTestBrowseModel(t, src, nil)

	b.Popular(context.Background())
	m = settle(t, m, b)

	if !strings.Contains(m.View(), "Failed to load popular movies. Please try again.") {
		t.Errorf("view should show the failure banner:\n%s", m.View())
	}

	src.mu.Lock()
	src.err = nil
	src.page = threeMovies()
	src.mu.Unlock()

	m = press(m, "r")
	m = settle(t, m, b)
	if !strings.Contains(m.View(), "Interstellar") {
		t.Errorf("retry should show results:\n%s", m.View())
	}
}

func TestBrowseModel_EmptyResults(t *testing.T) {
	m, b := newTestBrowseModel(t, &stubSource{page: &core.MoviePage{Page: 1, TotalPages: 0}}, nil)

	b.SubmitSearch(context.Background(), "zzzz")
	m = settle(t, m, b)

	if !strings.Contains(m.View(), browser.NoResultsMessage) {
		t.Errorf("view should show the empty message:\n%s", m.View())
	}
}

func TestBrowseModel_SearchTyping(t *testing.T) {
	src := &stubSource{page: threeMovies()}
	m, b := newTestBrowseModel(t, src, nil)

	m = press(m, "/")
	if !m.search.Focused() {
		t.Fatal("/ should focus the search box")
	}
	m = press(m, "d", "u", "n", "e")
	if got := b.Snapshot().Query; got != "dune" {
		t.Errorf("query = %q", got)
	}

	// The debounced search fires once typing stops.
	deadline := time.Now().Add(2 * time.Second)
	for len(src.calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m = settle(t, m, b)

	calls := src.calls()
	if len(calls) != 1 || calls[0] != (core.PageRequest{Filter: core.FilterSearch, Query: "dune", Page: 1}) {
		t.Errorf("requests = %+v", calls)
	}
	if !strings.Contains(m.View(), `Results for "dune"`) {
		t.Errorf("view should show the search heading:\n%s", m.View())
	}
}

func TestBrowseModel_SearchSubmit(t *testing.T) {
	src := &stubSource{page: threeMovies()}
	m, b := newTestBrowseModel(t, src, nil)

	m = press(m, "/")
	m.search.SetValue("alien")
	m = press(m, "enter")
	if m.search.Focused() {
		t.Error("enter should leave the search box")
	}
	m = settle(t, m, b)

	calls := src.calls()
	if len(calls) != 1 || calls[0].Query != "alien" {
		t.Errorf("requests = %+v", calls)
	}

	// Keys typed in the search box are not navigation.
	m = press(m, "/", "1")
	if got := m.search.Value(); !strings.Contains(got, "1") {
		t.Errorf("search box = %q", got)
	}
	if got := b.Snapshot().Filter; got != core.FilterSearch {
		t.Errorf("typing should not switch filters, got %q", got)
	}
}

func TestBrowseModel_BlankSubmitShowsPopular(t *testing.T) {
	src := &stubSource{page: threeMovies()}
	m, b := newTestBrowseModel(t, src, nil)

	m = press(m, "/", "enter")
	settle(t, m, b)

	calls := src.calls()
	if len(calls) != 1 || calls[0] != (core.PageRequest{Filter: core.FilterPopular, Page: 1}) {
		t.Errorf("requests = %+v", calls)
	}
}

func TestBrowseModel_Details(t *testing.T) {
	det := &stubDetails{details: &core.MovieDetails{
		Movie:   core.Movie{ID: 2, Title: "Interstellar", ReleaseDate: "2014-11-05", VoteAverage: 8.6, Overview: "A team of explorers travel through a wormhole."},
		Runtime: 169,
		Tagline: "Mankind was born on Earth. It was never meant to die here.",
		Genres:  []string{"Adventure", "Drama"},
	}}
	src := &stubSource{page: threeMovies()}
	m, b := newTestBrowseModel(t, src, det)

	b.Popular(context.Background())
	m = settle(t, m, b)

	m = press(m, "down")
	updated, cmd := m.Update(keyPress("enter"))
	m = updated.(browseModel)
	if cmd == nil || !m.fetching {
		t.Fatal("enter should start loading details")
	}

	msg := cmd()
	updated, _ = m.Update(msg)
	m = updated.(browseModel)

	view := m.View()
	for _, want := range []string{"Interstellar", "2h 49m", "Adventure, Drama", "wormhole"} {
		if !strings.Contains(view, want) {
			t.Errorf("detail view missing %q:\n%s", want, view)
		}
	}

	m = press(m, "esc")
	if m.detail != nil {
		t.Error("esc should close the detail view")
	}
}

func TestBrowseModel_DetailsFailure(t *testing.T) {
	det := &stubDetails{err: errors.New("boom")}
	m, b := newTestBrowseModel(t, &stubSource{page: threeMovies()}, det)

	b.Popular(context.Background())
	m = settle(t, m, b)

	_, cmd := m.Update(keyPress("enter"))
	updated, _ := m.Update(cmd())
	m = updated.(browseModel)

	if !strings.Contains(m.View(), "Failed to load movie details") {
		t.Errorf("view should show details failure:\n%s", m.View())
	}
}

func TestBrowseModel_Quit(t *testing.T) {
	m, _ := newTestBrowseModel(t, &stubSource{page: threeMovies()}, nil)

	_, cmd := m.Update(keyPress("q"))
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestBrowseModel_VisibleCardsFollowCursor(t *testing.T) {
	page := &core.MoviePage{Page: 1, TotalPages: 1}
	for i := range 20 {
		page.Movies = append(page.Movies, core.Movie{ID: i + 1, Title: "Movie"})
	}
	m, b := newTestBrowseModel(t, &stubSource{page: page}, nil)
	b.Popular(context.Background())
	m = settle(t, m, b)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = updated.(browseModel)

	first, last := m.visibleCards()
	if first != 0 || last != 4 {
		t.Errorf("window = [%d, %d), want [0, 4)", first, last)
	}

	for range 15 {
		m = press(m, "down")
	}
	first, last = m.visibleCards()
	if m.cursor < first || m.cursor >= last {
		t.Errorf("cursor %d outside window [%d, %d)", m.cursor, first, last)
	}
}
