package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vadimtrunov/movieexplorer/internal/browser"
	"github.com/vadimtrunov/movieexplorer/internal/config"
	"github.com/vadimtrunov/movieexplorer/internal/core"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Action types sent by the page.
const (
	actionQuery  = "query"  // search box changed, debounced
	actionSubmit = "submit" // search button
	actionFilter = "filter"
	actionNext   = "next"
	actionPrev   = "prev"
	actionRetry  = "retry"
)

// action is an inbound websocket message.
type action struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// client is one websocket connection bound to a session browser.
type client struct {
	conn    *websocket.Conn
	browser *browser.Browser
	server  *Server
	logger  *slog.Logger
}

// handleWebSocket upgrades the connection and streams the rendered widget
// after every state change of the session browser. A new session starts
// with the popular listing.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	b, created, detach := s.sessions.attach(w, r)
	defer detach()

	conn, err := s.upgrader.Upgrade(w, r, w.Header())
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		config.LoggerFromContext(r.Context()).Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		conn:    conn,
		browser: b,
		server:  s,
		logger:  config.LoggerFromContext(r.Context()).With(slog.String("remote", r.RemoteAddr)),
	}
	c.logger.Debug("websocket connected")

	updates, cancel := b.Watch()
	if created {
		b.Popular(s.fetchContext())
	}
	done := make(chan struct{})
	go c.writePump(updates, cancel, done)
	c.readPump()
	close(done)
}

// readPump applies actions from the page until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var a action
		if err := c.conn.ReadJSON(&a); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", slog.String("error", err.Error()))
			}
			return
		}
		c.apply(c.server.fetchContext(), a)
	}
}

// apply maps an action onto the browser.
func (c *client) apply(ctx context.Context, a action) {
	switch a.Type {
	case actionQuery:
		c.browser.SetQuery(ctx, a.Value)
	case actionSubmit:
		if !c.browser.SubmitSearch(ctx, a.Value) {
			c.browser.Popular(ctx)
		}
	case actionFilter:
		f, err := core.ParseFilter(a.Value)
		if err != nil {
			c.logger.Debug("ignoring unknown filter", slog.String("value", a.Value))
			return
		}
		c.browser.Show(ctx, f)
	case actionNext:
		c.browser.NextPage(ctx)
	case actionPrev:
		c.browser.PreviousPage(ctx)
	case actionRetry:
		c.browser.Retry(ctx)
	default:
		c.logger.Debug("ignoring unknown action", slog.String("type", a.Type))
	}
}

// writePump pushes the widget on every browser update and keeps the
// connection alive with pings. It owns all writes to the connection.
func (c *client) writePump(updates <-chan struct{}, cancel func(), done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		cancel()
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-done:
			return

		case <-updates:
			html, err := c.server.renderWidget(c.browser.Snapshot())
			if err != nil {
				c.logger.Error("failed to render widget", slog.String("error", err.Error()))
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, html); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
