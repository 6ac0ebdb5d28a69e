package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vadimtrunov/movieexplorer/internal/core"
	"github.com/vadimtrunov/movieexplorer/internal/view"
)

// maxMessageLen is Telegram's limit on message text.
const maxMessageLen = 4096

// Callback data understood by handleCallback.
const (
	callbackFilter = "f:" // followed by a filter tag
	callbackNext   = "p:next"
	callbackPrev   = "p:prev"
	callbackRetry  = "retry"
)

// mdV2Replacer escapes special characters for Telegram MarkdownV2.
var mdV2Replacer = strings.NewReplacer(
	`\`, `\\`,
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// linkReplacer escapes the URL part of an inline link.
var linkReplacer = strings.NewReplacer(`\`, `\\`, ")", `\)`)

// EscapeMdV2 escapes a string for safe use in Telegram MarkdownV2.
func EscapeMdV2(s string) string {
	return mdV2Replacer.Replace(s)
}

// FormatBold returns MarkdownV2 bold text.
func FormatBold(s string) string {
	return "*" + EscapeMdV2(s) + "*"
}

// FormatItalic returns MarkdownV2 italic text.
func FormatItalic(s string) string {
	return "_" + EscapeMdV2(s) + "_"
}

// FormatLink returns a MarkdownV2 inline link.
func FormatLink(text, url string) string {
	return "[" + EscapeMdV2(text) + "](" + linkReplacer.Replace(url) + ")"
}

// renderPage renders a listing as MarkdownV2. Synopses are dropped when the
// full text would exceed the message limit.
func renderPage(p view.Page) string {
	text := renderPageText(p, true)
	if utf8.RuneCountInString(text) > maxMessageLen {
		text = renderPageText(p, false)
	}
	return text
}

func renderPageText(p view.Page, withOverview bool) string {
	var sb strings.Builder
	sb.WriteString(FormatBold(p.Heading))

	switch {
	case p.Loading:
		sb.WriteString("\n\n" + EscapeMdV2("Loading movies..."))
	case p.Error != "":
		sb.WriteString("\n\n⚠️ " + EscapeMdV2(p.Error))
	case p.Empty:
		sb.WriteString("\n\n" + EscapeMdV2(p.NoResults))
	default:
		sb.WriteString(" · " + EscapeMdV2(p.PageInfo))
		for i, c := range p.Cards {
			fmt.Fprintf(&sb, "\n\n%s %s ⭐ %s\n%s",
				EscapeMdV2(fmt.Sprintf("%d.", i+1)),
				FormatLink(c.Title, c.PosterURL),
				EscapeMdV2(c.Rating),
				FormatItalic(c.Date),
			)
			if withOverview && c.Overview != "" {
				sb.WriteString("\n" + EscapeMdV2(c.Overview))
			}
		}
	}
	return sb.String()
}

// renderPlain renders a listing without markup, used when MarkdownV2 is rejected.
func renderPlain(p view.Page) string {
	var sb strings.Builder
	sb.WriteString(p.Heading)
	switch {
	case p.Error != "":
		sb.WriteString("\n\n" + p.Error)
	case p.Empty:
		sb.WriteString("\n\n" + p.NoResults)
	default:
		sb.WriteString(" · " + p.PageInfo)
		for i, c := range p.Cards {
			fmt.Fprintf(&sb, "\n%d. %s (%s, %s)", i+1, c.Title, c.Rating, c.Date)
		}
	}
	return sb.String()
}

// buildKeyboard returns filter buttons, pagination and a retry button when
// the last fetch failed.
func buildKeyboard(p view.Page) tgbotapi.InlineKeyboardMarkup {
	var tabs []tgbotapi.InlineKeyboardButton
	for _, t := range p.Tabs {
		label := t.Label
		if t.Active {
			label = "• " + label
		}
		tabs = append(tabs, tgbotapi.NewInlineKeyboardButtonData(label, callbackFilter+string(t.Filter)))
	}
	rows := [][]tgbotapi.InlineKeyboardButton{tabs}

	var nav []tgbotapi.InlineKeyboardButton
	if p.ShowResults && p.CanPrevious {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀ Prev", callbackPrev))
	}
	if p.ShowResults && p.CanNext {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ▶", callbackNext))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	if p.Error != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Try again", callbackRetry),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// parseCallback maps callback data to a browser action name and filter.
func parseCallback(data string) (action string, f core.Filter, ok bool) {
	switch data {
	case callbackNext, callbackPrev, callbackRetry:
		return data, "", true
	}
	if tag, found := strings.CutPrefix(data, callbackFilter); found {
		parsed, err := core.ParseFilter(tag)
		if err != nil || parsed == core.FilterSearch {
			return "", "", false
		}
		return callbackFilter, parsed, true
	}
	return "", "", false
}
