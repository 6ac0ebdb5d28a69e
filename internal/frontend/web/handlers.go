package web

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vadimtrunov/movieexplorer/internal/browser"
	"github.com/vadimtrunov/movieexplorer/internal/config"
	"github.com/vadimtrunov/movieexplorer/internal/core"
	"github.com/vadimtrunov/movieexplorer/internal/view"
)

// indexData is the model of the index template.
type indexData struct {
	Page view.Page
}

// handleIndex renders the widget for the session. A new session loads the
// popular listing first.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	b, created := s.sessions.fromRequest(w, r)
	if created {
		b.Popular(s.fetchContext())
		s.settle(r.Context(), b)
	}
	s.render(w, r, "index", indexData{Page: s.renderer.Render(b.Snapshot())})
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	f, err := core.ParseFilter(mux.Vars(r)["filter"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.act(w, r, func(ctx context.Context, b *browser.Browser) { b.Show(ctx, f) })
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.FormValue("query")
	s.act(w, r, func(ctx context.Context, b *browser.Browser) {
		if !b.SubmitSearch(ctx, query) {
			// An empty search box shows the popular listing again.
			b.Popular(ctx)
		}
	})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(ctx context.Context, b *browser.Browser) { b.NextPage(ctx) })
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(ctx context.Context, b *browser.Browser) { b.PreviousPage(ctx) })
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(ctx context.Context, b *browser.Browser) { b.Retry(ctx) })
}

// act applies an action to the session browser, waits for the fetch to
// settle and redirects back to the index (post/redirect/get). A new session
// loads the popular listing before the action applies.
func (s *Server) act(w http.ResponseWriter, r *http.Request, action func(context.Context, *browser.Browser)) {
	b, created := s.sessions.fromRequest(w, r)
	if created {
		b.Popular(s.fetchContext())
		s.settle(r.Context(), b)
	}
	action(s.fetchContext(), b)
	s.settle(r.Context(), b)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// settle waits for in-flight fetches, bounded by settleTimeout.
func (s *Server) settle(ctx context.Context, b *browser.Browser) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	if err := b.Wait(ctx); err != nil {
		config.LoggerFromContext(ctx).Warn("fetch did not settle before response", slog.String("error", err.Error()))
	}
}

func (s *Server) handleMovie(w http.ResponseWriter, r *http.Request) {
	if s.details == nil {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		http.Error(w, "invalid movie id", http.StatusBadRequest)
		return
	}

	d, err := s.details.Details(r.Context(), id)
	if err != nil {
		fe := core.AsFetchError(err)
		config.LoggerFromContext(r.Context()).Error("failed to load movie details",
			slog.Int("movie_id", id),
			slog.String("reason", string(fe.Reason)),
			slog.String("error", err.Error()),
		)
		status := http.StatusBadGateway
		if fe.Reason == core.ReasonStatus && fe.StatusCode == http.StatusNotFound {
			status = http.StatusNotFound
		}
		http.Error(w, "Failed to load movie details. Please try again.", status)
		return
	}
	s.render(w, r, "movie", s.renderer.Details(d))
}

// render executes a template into a buffer so a failure never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		config.LoggerFromContext(r.Context()).Error("failed to render template", slog.String("template", name), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// renderWidget renders the live-updated part of the page.
func (s *Server) renderWidget(st browser.State) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "widget", s.renderer.Render(st)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
