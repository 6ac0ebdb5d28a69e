// Package web serves the movie browsing widget over HTTP. Plain form posts
// work without JavaScript; when a websocket is open the page updates live,
// including debounced search as the user types.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/vadimtrunov/movieexplorer/internal/browser"
	"github.com/vadimtrunov/movieexplorer/internal/config"
	"github.com/vadimtrunov/movieexplorer/internal/core"
	"github.com/vadimtrunov/movieexplorer/internal/view"
)

const (
	// shutdownTimeout is the maximum time to wait for the HTTP server to shut down.
	shutdownTimeout = 5 * time.Second
	// settleTimeout bounds how long a form post waits for its fetch.
	settleTimeout = 15 * time.Second

	defaultSessionTTL  = 30 * time.Minute
	defaultMaxSessions = 1000
	maxSweepInterval   = time.Minute
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// BrowserFactory creates the browser backing a new session.
type BrowserFactory func() *browser.Browser

// Options configures a Server.
type Options struct {
	Port     int
	Factory  BrowserFactory
	Details  core.MovieDetailer // optional; enables /movie/{id}
	Renderer view.Renderer

	// SessionTTL drops sessions idle for longer. Zero means 30 minutes.
	SessionTTL time.Duration
	// MaxSessions caps live sessions. Zero means 1000.
	MaxSessions int
}

// Server wraps the HTTP server hosting the widget.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	sessions   *sessionManager
	details    core.MovieDetailer
	renderer   view.Renderer
	upgrader   websocket.Upgrader
	listener   net.Listener
	baseCtx    context.Context
	mu         sync.RWMutex
	ready      chan struct{}
	started    atomic.Bool
	logger     *slog.Logger
}

// compile-time check.
var _ core.Frontend = (*Server)(nil)

// NewServer creates a web server listening on opts.Port.
func NewServer(opts Options, logger *slog.Logger) *Server {
	if opts.Factory == nil {
		panic("web.NewServer: browser factory must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = defaultMaxSessions
	}

	s := &Server{
		router:   mux.NewRouter(),
		sessions: newSessionManager(opts.Factory, opts.SessionTTL, opts.MaxSessions),
		details:  opts.Details,
		renderer: view.NewRenderer(opts.Renderer.Images, opts.Renderer.OverviewLength),
		baseCtx:  context.Background(),
		ready:    make(chan struct{}),
		logger:   logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/filter/{filter}", s.handleFilter).Methods(http.MethodPost)
	s.router.HandleFunc("/search", s.handleSearch).Methods(http.MethodPost)
	s.router.HandleFunc("/page/next", s.handleNext).Methods(http.MethodPost)
	s.router.HandleFunc("/page/prev", s.handlePrev).Methods(http.MethodPost)
	s.router.HandleFunc("/retry", s.handleRetry).Methods(http.MethodPost)
	s.router.HandleFunc("/movie/{id:[0-9]+}", s.handleMovie).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	s.router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Name returns the frontend name.
func (s *Server) Name() string { return "web" }

// Ready returns a channel that is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listener address once the server has started.
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Start begins serving. It blocks until the server stops or an error occurs.
// The server shuts down gracefully when ctx is canceled, and every session
// browser is closed.
func (s *Server) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("web server already started")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		s.started.Store(false)
		return fmt.Errorf("web server listen: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.baseCtx = ctx
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("web server started", slog.String("addr", ln.Addr().String()))

	serveDone := make(chan struct{})
	go s.sweepSessions(ctx, serveDone)
	go func() {
		select {
		case <-ctx.Done():
		case <-serveDone:
			return
		}
		s.logger.Info("web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		//nolint:contextcheck // parent ctx is canceled; we need a fresh context for graceful shutdown
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("web server shutdown error", slog.String("error", err.Error()))
		}
	}()

	err = s.httpServer.Serve(ln)
	close(serveDone)
	s.sessions.closeAll()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

// fetchContext returns the context browser fetches run under. Fetches outlive
// the request that triggered them, so they are bound to the server.
func (s *Server) fetchContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseCtx
}

// sweepSessions drops idle sessions until the server stops.
func (s *Server) sweepSessions(ctx context.Context, done <-chan struct{}) {
	interval := min(s.sessions.ttl/2, maxSweepInterval)
	if interval <= 0 {
		interval = s.sessions.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if n := s.sessions.sweep(); n > 0 {
				s.logger.Debug("expired idle sessions",
					slog.Int("expired", n),
					slog.Int("active", s.sessions.count()),
				)
			}
		}
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With(slog.String("request_id", uuid.NewString()))
		next.ServeHTTP(w, r.WithContext(config.ContextWithLogger(r.Context(), logger)))
		logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}
