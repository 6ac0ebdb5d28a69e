package core

import (
	"context"
	"time"
)

// MovieSource defines the interface for movie listing providers (TMDb)
type MovieSource interface {
	// FetchPage fetches one page of movies for the given filter, query and page
	FetchPage(ctx context.Context, req PageRequest) (*MoviePage, error)
}

// MovieDetailer defines the interface for providers that can describe a single movie
type MovieDetailer interface {
	// Details retrieves full details for a movie by ID
	Details(ctx context.Context, id int) (*MovieDetails, error)
}

// Scheduler defers work. Implementations must be safe for concurrent use.
type Scheduler interface {
	// AfterFunc calls f in its own goroutine after d has elapsed
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending call scheduled by a Scheduler
type Timer interface {
	// Stop prevents the call from firing. Reports whether it was still pending.
	Stop() bool
}

// SystemScheduler schedules calls on the runtime timer.
type SystemScheduler struct{}

// AfterFunc implements Scheduler using time.AfterFunc.
func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Frontend defines the interface for user-facing frontends (web, Telegram)
type Frontend interface {
	// Start starts the frontend. It blocks until ctx is canceled.
	Start(ctx context.Context) error

	// Name returns the frontend name (e.g., "web", "telegram")
	Name() string
}
