package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vadimtrunov/movieexplorer/internal/browser"
)

const sessionCookie = "movieexplorer_session"

// session is one visitor's browser and its activity.
type session struct {
	browser  *browser.Browser
	lastSeen time.Time
	conns    int // open websockets; a connected session is never evicted
}

// sessionManager keeps one browser per visitor, keyed by a random cookie.
// Sessions idle for longer than ttl are dropped by sweep, and creating a
// session beyond max drops the least recently seen idle one.
type sessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session
	factory  BrowserFactory
	ttl      time.Duration
	max      int
	now      func() time.Time
}

func newSessionManager(factory BrowserFactory, ttl time.Duration, maxSessions int) *sessionManager {
	return &sessionManager{
		sessions: make(map[string]*session),
		factory:  factory,
		ttl:      ttl,
		max:      maxSessions,
		now:      time.Now,
	}
}

// fromRequest returns the browser for the request's session cookie. A new
// session is created, and its cookie set on w, when the cookie is missing,
// malformed or unknown. created reports whether that happened.
func (sm *sessionManager) fromRequest(w http.ResponseWriter, r *http.Request) (b *browser.Browser, created bool) {
	s, created := sm.lookup(w, r, false)
	return s.browser, created
}

// attach is fromRequest for long-lived connections: the session is pinned
// until the returned detach is called.
func (sm *sessionManager) attach(w http.ResponseWriter, r *http.Request) (b *browser.Browser, created bool, detach func()) {
	s, created := sm.lookup(w, r, true)

	var once sync.Once
	return s.browser, created, func() {
		once.Do(func() {
			sm.mu.Lock()
			s.conns--
			s.lastSeen = sm.now()
			sm.mu.Unlock()
		})
	}
}

func (sm *sessionManager) lookup(w http.ResponseWriter, r *http.Request, pin bool) (*session, bool) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			if s, ok := sm.touch(id.String(), pin); ok {
				return s, false
			}
		}
	}

	id := uuid.NewString()
	s := sm.create(id, pin)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s, true
}

// touch returns the session and marks it as seen now. pin counts a new
// connection on it.
func (sm *sessionManager) touch(id string, pin bool) (*session, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[id]
	if ok {
		s.lastSeen = sm.now()
		if pin {
			s.conns++
		}
	}
	return s, ok
}

func (sm *sessionManager) create(id string, pin bool) *session {
	s := &session{browser: sm.factory()}
	if pin {
		s.conns = 1
	}

	sm.mu.Lock()
	s.lastSeen = sm.now()
	var evicted *browser.Browser
	if sm.max > 0 && len(sm.sessions) >= sm.max {
		evicted = sm.evictOldestLocked()
	}
	sm.sessions[id] = s
	sm.mu.Unlock()

	if evicted != nil {
		evicted.Close()
	}
	return s
}

// evictOldestLocked removes the least recently seen session without open
// connections. It returns nil when every session is connected.
func (sm *sessionManager) evictOldestLocked() *browser.Browser {
	var (
		oldestID string
		oldest   *session
	)
	for id, s := range sm.sessions {
		if s.conns > 0 {
			continue
		}
		if oldest == nil || s.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, s
		}
	}
	if oldest == nil {
		return nil
	}
	delete(sm.sessions, oldestID)
	return oldest.browser
}

// sweep closes and removes sessions idle for longer than ttl. It returns
// the number of sessions removed.
func (sm *sessionManager) sweep() int {
	if sm.ttl <= 0 {
		return 0
	}

	sm.mu.Lock()
	cutoff := sm.now().Add(-sm.ttl)
	var expired []*browser.Browser
	for id, s := range sm.sessions {
		if s.conns == 0 && s.lastSeen.Before(cutoff) {
			expired = append(expired, s.browser)
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	for _, b := range expired {
		b.Close()
	}
	return len(expired)
}

func (sm *sessionManager) count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// closeAll stops every session's pending debounce.
func (sm *sessionManager) closeAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, s := range sm.sessions {
		s.browser.Close()
		delete(sm.sessions, id)
	}
}
