package browser

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vadimtrunov/movieexplorer/internal/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource answers every request through respond and records it.
type fakeSource struct {
	mu       sync.Mutex
	requests []core.PageRequest
	respond  func(req core.PageRequest) (*core.MoviePage, error)
}

func (f *fakeSource) FetchPage(_ context.Context, req core.PageRequest) (*core.MoviePage, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()
	return respond(req)
}

func (f *fakeSource) calls() []core.PageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.PageRequest(nil), f.requests...)
}

func (f *fakeSource) setRespond(fn func(req core.PageRequest) (*core.MoviePage, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = fn
}

// pageOf builds a response with one movie named after the request.
func pageOf(totalPages int) func(req core.PageRequest) (*core.MoviePage, error) {
	return func(req core.PageRequest) (*core.MoviePage, error) {
		title := string(req.Filter)
		if req.Query != "" {
			title += ":" + req.Query
		}
		return &core.MoviePage{
			Page:         req.Page,
			Movies:       []core.Movie{{ID: req.Page, Title: title}},
			TotalPages:   totalPages,
			TotalResults: totalPages * 20,
		}, nil
	}
}

// pendingCall is a request held by blockingSource until the test replies.
type pendingCall struct {
	req   core.PageRequest
	reply chan fetchResult
}

type fetchResult struct {
	page *core.MoviePage
	err  error
}

// blockingSource hands each request to the test and blocks until answered.
type blockingSource struct {
	calls chan pendingCall
}

func newBlockingSource() *blockingSource {
	return &blockingSource{calls: make(chan pendingCall, 8)}
}

func (s *blockingSource) FetchPage(ctx context.Context, req core.PageRequest) (*core.MoviePage, error) {
	c := pendingCall{req: req, reply: make(chan fetchResult, 1)}
	s.calls <- c
	select {
	case r := <-c.reply:
		return r.page, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *blockingSource) next(t *testing.T) pendingCall {
	t.Helper()
	select {
	case c := <-s.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no request issued")
		return pendingCall{}
	}
}

// fakeScheduler records timers and fires them on demand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	sched   *fakeScheduler
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) core.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{sched: s, delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

// pending returns timers that were neither stopped nor fired.
func (s *fakeScheduler) pending() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fireAll runs every pending timer synchronously.
func (s *fakeScheduler) fireAll() int {
	timers := s.pending()
	for _, t := range timers {
		s.mu.Lock()
		t.fired = true
		s.mu.Unlock()
		t.fn()
	}
	return len(timers)
}

func newTestBrowser(src core.MovieSource, sched *fakeScheduler) *Browser {
	return New(src, Options{Scheduler: sched, Logger: testLogger()})
}

func waitIdle(t *testing.T, b *Browser) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.Wait(ctx); err != nil {
		t.Fatalf("fetch did not settle: %v", err)
	}
}
