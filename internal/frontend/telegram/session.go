package telegram

import (
	"sync"

	"github.com/vadimtrunov/movieexplorer/internal/browser"
)

// sessionManager manages per-chat browsers and access control.
type sessionManager struct {
	mu       sync.Mutex
	sessions map[int64]*browser.Browser
	allowed  map[int64]bool // nil or empty = allow all
	factory  BrowserFactory
}

// newSessionManager creates a session manager.
// If allowedUserIDs is empty, all users are allowed.
func newSessionManager(allowedUserIDs []int64, factory BrowserFactory) *sessionManager {
	allowed := make(map[int64]bool, len(allowedUserIDs))
	for _, id := range allowedUserIDs {
		allowed[id] = true
	}
	return &sessionManager{
		sessions: make(map[int64]*browser.Browser),
		allowed:  allowed,
		factory:  factory,
	}
}

// isAllowed checks if a user is authorized to use the bot.
func (sm *sessionManager) isAllowed(userID int64) bool {
	if len(sm.allowed) == 0 {
		return true
	}
	return sm.allowed[userID]
}

// getOrCreate returns the chat's browser, creating it on first use.
// created reports whether it was just created.
func (sm *sessionManager) getOrCreate(chatID int64) (b *browser.Browser, created bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if b, ok := sm.sessions[chatID]; ok {
		return b, false
	}
	b = sm.factory()
	sm.sessions[chatID] = b
	return b, true
}

// reset drops a chat's browser so the next message starts from scratch.
func (sm *sessionManager) reset(chatID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if b, ok := sm.sessions[chatID]; ok {
		b.Close()
		delete(sm.sessions, chatID)
	}
}

// closeAll closes every browser.
func (sm *sessionManager) closeAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, b := range sm.sessions {
		b.Close()
		delete(sm.sessions, id)
	}
}
