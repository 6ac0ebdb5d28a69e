// Package browser implements the movie browsing controller: it tracks the
// active filter, query and page, dispatches fetches to a core.MovieSource and
// reconciles their outcome into an observable State.
package browser

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vadimtrunov/movieexplorer/internal/core"
)

// DefaultDebounce is the quiet period after the last keystroke before a
// search is issued.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Browser.
type Options struct {
	Scheduler core.Scheduler // nil uses core.SystemScheduler
	Debounce  time.Duration  // zero uses DefaultDebounce
	Logger    *slog.Logger
}

type observer struct {
	id int
	fn func(State)
}

// Browser is the browsing controller. All methods are safe for concurrent
// use and return without waiting for the network; fetch outcomes are
// delivered to observers.
//
// Each dispatch is tagged with a generation number. A response that arrives
// after a newer request was issued is discarded, so the latest request wins
// regardless of completion order.
type Browser struct {
	source    core.MovieSource
	scheduler core.Scheduler
	debounce  time.Duration
	logger    *slog.Logger

	mu          sync.Mutex
	state       State
	generation  uint64
	pending     core.Timer
	debounceSeq uint64
	inflight    int
	idle        chan struct{}
	closed      bool

	notifyMu     sync.Mutex
	observers    []observer
	nextObserver int
}

// New creates a Browser in the initial state (popular, page 1). It does not
// fetch anything until an operation is invoked.
func New(source core.MovieSource, opts Options) *Browser {
	if opts.Scheduler == nil {
		opts.Scheduler = core.SystemScheduler{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Browser{
		source:    source,
		scheduler: opts.Scheduler,
		debounce:  opts.Debounce,
		logger:    opts.Logger,
		state:     initialState(),
	}
}

// Snapshot returns a copy of the current state.
func (b *Browser) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.clone()
}

// Popular shows the first page of the popular listing.
func (b *Browser) Popular(ctx context.Context) { b.show(ctx, core.FilterPopular) }

// TopRated shows the first page of the top rated listing.
func (b *Browser) TopRated(ctx context.Context) { b.show(ctx, core.FilterTopRated) }

// NowPlaying shows the first page of the now playing listing.
func (b *Browser) NowPlaying(ctx context.Context) { b.show(ctx, core.FilterNowPlaying) }

// Show switches to the given filter and fetches its first page. Showing
// FilterSearch behaves like Search.
func (b *Browser) Show(ctx context.Context, f core.Filter) bool {
	if f == core.FilterSearch {
		return b.Search(ctx)
	}
	b.show(ctx, f)
	return true
}

func (b *Browser) show(ctx context.Context, f core.Filter) {
	b.mu.Lock()
	b.showLocked(ctx, f)
	b.mu.Unlock()
	b.publish()
}

func (b *Browser) showLocked(ctx context.Context, f core.Filter) {
	b.state.Filter = f
	b.state.Page = 1
	b.dispatchLocked(ctx)
}

// Search fetches the first page of results for the current query. It is a
// no-op returning false when the trimmed query is empty.
func (b *Browser) Search(ctx context.Context) bool {
	b.mu.Lock()
	ok := b.searchLocked(ctx)
	b.mu.Unlock()
	if ok {
		b.publish()
	}
	return ok
}

// SubmitSearch stores query and searches immediately, dropping any pending
// debounced search.
func (b *Browser) SubmitSearch(ctx context.Context, query string) bool {
	b.mu.Lock()
	b.stopPendingLocked()
	b.state.Query = query
	ok := b.searchLocked(ctx)
	b.mu.Unlock()
	b.publish()
	return ok
}

func (b *Browser) searchLocked(ctx context.Context) bool {
	if strings.TrimSpace(b.state.Query) == "" {
		return false
	}
	b.state.Filter = core.FilterSearch
	b.state.Page = 1
	b.dispatchLocked(ctx)
	return true
}

// SetQuery records a change of the search box and (re)schedules the
// debounced fetch. When the delay elapses without another change, a
// non-blank query is searched and a blank one falls back to popular.
func (b *Browser) SetQuery(ctx context.Context, query string) {
	b.mu.Lock()
	b.state.Query = query
	b.stopPendingLocked()
	if !b.closed {
		b.debounceSeq++
		seq := b.debounceSeq
		b.pending = b.scheduler.AfterFunc(b.debounce, func() { b.fireDebounce(ctx, seq) })
	}
	b.mu.Unlock()
	b.publish()
}

func (b *Browser) fireDebounce(ctx context.Context, seq uint64) {
	b.mu.Lock()
	// A superseded timer whose Stop lost the race must not fire.
	if seq != b.debounceSeq || b.pending == nil || b.closed {
		b.mu.Unlock()
		return
	}
	b.pending = nil
	if !b.searchLocked(ctx) {
		b.showLocked(ctx, core.FilterPopular)
	}
	b.mu.Unlock()
	b.publish()
}

func (b *Browser) stopPendingLocked() {
	if b.pending != nil {
		b.pending.Stop()
		b.pending = nil
	}
}

// NextPage moves to the next page of the active listing. It is a no-op
// returning false on the last page.
func (b *Browser) NextPage(ctx context.Context) bool {
	return b.turnPage(ctx, 1)
}

// PreviousPage moves to the previous page of the active listing. It is a
// no-op returning false on the first page.
func (b *Browser) PreviousPage(ctx context.Context) bool {
	return b.turnPage(ctx, -1)
}

func (b *Browser) turnPage(ctx context.Context, delta int) bool {
	b.mu.Lock()
	target := b.state.Page + delta
	if target < 1 || target > b.state.TotalPages || !b.loadableLocked() {
		b.mu.Unlock()
		return false
	}
	b.state.Page = target
	b.dispatchLocked(ctx)
	b.mu.Unlock()
	b.publish()
	return true
}

// Retry re-issues the request for the active filter, query and page.
func (b *Browser) Retry(ctx context.Context) bool {
	b.mu.Lock()
	if !b.loadableLocked() {
		b.mu.Unlock()
		return false
	}
	b.dispatchLocked(ctx)
	b.mu.Unlock()
	b.publish()
	return true
}

// loadableLocked reports whether the active filter can be fetched as is.
func (b *Browser) loadableLocked() bool {
	return b.state.Filter != core.FilterSearch || strings.TrimSpace(b.state.Query) != ""
}

func (b *Browser) dispatchLocked(ctx context.Context) {
	b.state.Loading = true
	b.state.Error = ""
	b.state.Failure = nil
	b.generation++

	req := core.PageRequest{Filter: b.state.Filter, Page: b.state.Page}
	if req.Filter == core.FilterSearch {
		req.Query = b.state.Query
	}

	if b.inflight == 0 {
		b.idle = make(chan struct{})
	}
	b.inflight++

	b.logger.Debug("fetching movies",
		slog.String("filter", string(req.Filter)),
		slog.String("query", req.Query),
		slog.Int("page", req.Page),
		slog.Uint64("generation", b.generation),
	)
	go b.fetch(ctx, b.generation, req)
}

func (b *Browser) fetch(ctx context.Context, gen uint64, req core.PageRequest) {
	page, err := b.source.FetchPage(ctx, req)
	if err == nil && page == nil {
		err = &core.FetchError{Reason: core.ReasonDecode, Err: errEmptyPage}
	}

	b.mu.Lock()
	b.inflight--
	stale := gen != b.generation
	if !stale {
		b.applyLocked(req, page, err)
	}
	if b.inflight == 0 {
		close(b.idle)
	}
	b.mu.Unlock()

	if stale {
		b.logger.Debug("discarding stale response",
			slog.String("filter", string(req.Filter)),
			slog.Int("page", req.Page),
			slog.Uint64("generation", gen),
		)
		return
	}
	b.publish()
}

func (b *Browser) applyLocked(req core.PageRequest, page *core.MoviePage, err error) {
	b.state.Loading = false
	if err != nil {
		fe := core.AsFetchError(err)
		b.state.Error = FailureMessage(req.Filter)
		b.state.Failure = fe
		b.logger.Debug("fetch failed",
			slog.String("filter", string(req.Filter)),
			slog.Int("page", req.Page),
			slog.String("reason", string(fe.Reason)),
			slog.String("error", err.Error()),
		)
		return
	}
	b.state.Movies = slices.Clone(page.Movies)
	b.state.TotalPages = page.TotalPages
	b.state.TotalResults = page.TotalResults
}

// Wait blocks until no fetch is in flight or ctx is done.
func (b *Browser) Wait(ctx context.Context) error {
	b.mu.Lock()
	if b.inflight == 0 {
		b.mu.Unlock()
		return nil
	}
	idle := b.idle
	b.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels the pending debounced search. In-flight fetches still
// complete and update the state.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.stopPendingLocked()
}
