package telegram

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vadimtrunov/movieexplorer/internal/browser"
	"github.com/vadimtrunov/movieexplorer/internal/core"
)

const (
	unauthorizedMsg = "Sorry, you are not authorized to use this bot."
	resetMsg        = "Session reset. Send a movie title or /popular to start over."
	welcomeMsg      = "Welcome to Movie Explorer!\n\n" +
		"Send a movie title to search, or pick a listing:\n" +
		"/popular - popular movies\n" +
		"/toprated - top rated movies\n" +
		"/nowplaying - movies now in theaters\n" +
		"/next, /prev - turn the page\n" +
		"/retry - repeat the last request\n" +
		"/reset - start over"
)

// handleMessage processes an incoming text message.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	b.logger.Debug("received message",
		slog.Int64("user_id", userID),
	)

	if !b.sessions.isAllowed(userID) {
		b.sendText(chatID, unauthorizedMsg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, chatID, commandName(text))
		return
	}

	br, _ := b.sessions.getOrCreate(chatID)
	b.sendTyping(chatID)
	br.SubmitSearch(ctx, text)
	b.settle(ctx, br)
	b.sendPage(chatID, br.Snapshot())
}

// handleCommand runs a slash command.
func (b *Bot) handleCommand(ctx context.Context, chatID int64, cmd string) {
	switch cmd {
	case "start", "help":
		b.sendText(chatID, welcomeMsg)
		return
	case "reset":
		b.sessions.reset(chatID)
		b.sendText(chatID, resetMsg)
		return
	}

	br := b.session(ctx, chatID, cmd == "next" || cmd == "prev" || cmd == "retry")
	switch cmd {
	case "popular":
		br.Popular(ctx)
	case "toprated":
		br.TopRated(ctx)
	case "nowplaying":
		br.NowPlaying(ctx)
	case "next":
		br.NextPage(ctx)
	case "prev":
		br.PreviousPage(ctx)
	case "retry":
		br.Retry(ctx)
	default:
		b.sendText(chatID, welcomeMsg)
		return
	}

	b.sendTyping(chatID)
	b.settle(ctx, br)
	b.sendPage(chatID, br.Snapshot())
}

// commandName extracts "popular" from "/popular@MovieBot extra".
func commandName(text string) string {
	name := strings.Fields(text)[0]
	name = strings.TrimPrefix(name, "/")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name)
}

// handleCallback processes inline keyboard callback queries.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	userID := cq.From.ID
	chatID := cq.Message.Chat.ID

	b.logger.Debug("received callback",
		slog.Int64("user_id", userID),
		slog.String("data", cq.Data),
	)

	// Acknowledge the callback immediately.
	b.sender.Request(tgbotapi.NewCallback(cq.ID, "")) //nolint:errcheck // best-effort ack

	if !b.sessions.isAllowed(userID) {
		return
	}

	action, f, ok := parseCallback(cq.Data)
	if !ok {
		b.logger.Debug("ignoring unknown callback", slog.String("data", cq.Data))
		return
	}

	br := b.session(ctx, chatID, action != callbackFilter)
	switch action {
	case callbackFilter:
		br.Show(ctx, f)
	case callbackNext:
		br.NextPage(ctx)
	case callbackPrev:
		br.PreviousPage(ctx)
	case callbackRetry:
		br.Retry(ctx)
	}

	b.settle(ctx, br)
	b.editPage(chatID, cq.Message.MessageID, br.Snapshot())
}

// session returns the chat's browser. A new chat loads the popular listing
// first when the action pages or retries.
func (b *Bot) session(ctx context.Context, chatID int64, needsListing bool) *browser.Browser {
	br, created := b.sessions.getOrCreate(chatID)
	if created && needsListing {
		br.Popular(ctx)
		b.settle(ctx, br)
	}
	return br
}

// settle waits for the browser's fetch, bounded by settleTimeout.
func (b *Bot) settle(ctx context.Context, br *browser.Browser) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	if err := br.Wait(ctx); err != nil {
		b.logger.Warn("listing did not load before reply", slog.String("error", err.Error()))
	}
}

// sendPage sends the listing as a new message with its keyboard.
func (b *Bot) sendPage(chatID int64, s browser.State) {
	b.logFailure(chatID, s.Failure)
	p := b.renderer.Render(s)
	kb := buildKeyboard(p)

	msg := tgbotapi.NewMessage(chatID, renderPage(p))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = kb
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Warn("failed to send markdown, retrying plain",
			slog.String("error", err.Error()),
		)
		b.sendPlainWithKeyboard(chatID, renderPlain(p), &kb)
	}
}

// editPage replaces a listing message in place.
func (b *Bot) editPage(chatID int64, messageID int, s browser.State) {
	b.logFailure(chatID, s.Failure)
	p := b.renderer.Render(s)
	kb := buildKeyboard(p)

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, renderPage(p), kb)
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	edit.DisableWebPagePreview = true
	if _, err := b.sender.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		b.logger.Warn("failed to edit listing, sending a new one",
			slog.String("error", err.Error()),
		)
		b.sendPlainWithKeyboard(chatID, renderPlain(p), &kb)
	}
}

func (b *Bot) logFailure(chatID int64, fe *core.FetchError) {
	if fe == nil {
		return
	}
	b.logger.Warn("listing fetch failed",
		slog.Int64("chat_id", chatID),
		slog.String("reason", string(fe.Reason)),
		slog.String("error", fe.Error()),
	)
}

// sendTyping shows the typing indicator.
func (b *Bot) sendTyping(chatID int64) {
	b.sender.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)) //nolint:errcheck // best-effort typing indicator
}

// sendText sends a plain text message (no parse mode).
func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("failed to send message",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}

// sendPlainWithKeyboard sends a plain-text message with inline keyboard.
func (b *Bot) sendPlainWithKeyboard(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("failed to send message with keyboard",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}
