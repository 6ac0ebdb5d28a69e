package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vadimtrunov/movieexplorer/internal/browser"
	"github.com/vadimtrunov/movieexplorer/internal/core"
	"github.com/vadimtrunov/movieexplorer/internal/metadata/tmdb"
	"github.com/vadimtrunov/movieexplorer/internal/view"
)

func TestFetchState(t *testing.T) {
	req := core.PageRequest{Filter: core.FilterSearch, Query: "nolan", Page: 2}

	t.Run("success", func(t *testing.T) {
		src := &stubSource{page: threeMovies()}
		st := fetchState(context.Background(), src, req)

		if st.HasError() || len(st.Movies) != 3 {
			t.Fatalf("unexpected state: %+v", st)
		}
		if st.Page != 2 || st.TotalPages != 3 || st.Query != "nolan" {
			t.Errorf("unexpected paging: %+v", st)
		}
		if calls := src.calls(); len(calls) != 1 || calls[0] != req {
			t.Errorf("requests = %+v", calls)
		}
	})

	t.Run("failure", func(t *testing.T) {
		st := fetchState(context.Background(), &stubSource{err: errors.New("refused")}, req)
		if st.Error != "Failed to search movies. Please try again." {
			t.Errorf("error = %q", st.Error)
		}
		if st.Failure == nil || st.Failure.Reason != core.ReasonUnknown {
			t.Errorf("failure = %+v", st.Failure)
		}
	})

	t.Run("nil page", func(t *testing.T) {
		st := fetchState(context.Background(), &stubSource{}, req)
		if st.Failure == nil || st.Failure.Reason != core.ReasonDecode {
			t.Errorf("failure = %+v", st.Failure)
		}
	})
}

func TestRenderListingText(t *testing.T) {
	r := view.NewRenderer(tmdb.DefaultImages(), 100)

	st := browser.State{Filter: core.FilterTopRated, Page: 1}
	st.Movies = threeMovies().Movies
	st.TotalPages = 3

	out := renderListingText(r.Render(st))
	for _, want := range []string{"Top Rated", "Inception", "Interstellar", "Tenet", "Page 1 of 3", tmdb.DefaultPlaceholderURL} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	empty := renderListingText(r.Render(browser.State{Filter: core.FilterSearch, Query: "zz", Page: 1}))
	if !strings.Contains(empty, browser.NoResultsMessage) {
		t.Errorf("empty output missing message:\n%s", empty)
	}
	if !strings.Contains(empty, `Results for "zz"`) {
		t.Errorf("empty output missing heading:\n%s", empty)
	}
}

func TestListModel(t *testing.T) {
	src := &stubSource{page: threeMovies()}
	m := newListModel(context.Background(), src, listRequest(1))

	if m.Init() == nil {
		t.Error("Init should return a batch command (spinner + fetch)")
	}
	if m.done || !strings.Contains(m.View(), "Loading movies") {
		t.Error("model should start loading")
	}

	msg := m.fetch()()
	updated, cmd := m.Update(msg)
	lm := updated.(listModel)

	if !lm.done || len(lm.state.Movies) != 3 {
		t.Errorf("unexpected model after result: done=%v movies=%d", lm.done, len(lm.state.Movies))
	}
	if cmd == nil {
		t.Error("should return quit command")
	}
	if lm.View() != "" {
		t.Error("view should be cleared once done")
	}
}
