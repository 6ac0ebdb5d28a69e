package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/vadimtrunov/movieexplorer/internal/browser"
	"github.com/vadimtrunov/movieexplorer/internal/config"
	"github.com/vadimtrunov/movieexplorer/internal/core"
	"github.com/vadimtrunov/movieexplorer/internal/httpclient"
	"github.com/vadimtrunov/movieexplorer/internal/metadata/tmdb"
	"github.com/vadimtrunov/movieexplorer/internal/view"
)

// Lipgloss styles used across commands.
var (
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	styleRating  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow

	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	styleTab   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("7"))
	styleTabOn = lipgloss.NewStyle().Padding(0, 1).Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("12"))

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("5")).
			MarginBottom(1)
)

// loadConfig loads and validates the configuration file.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// initTMDb creates the TMDb client from the tmdb section.
func initTMDb(cfg *config.Config, logger *slog.Logger) *tmdb.Client {
	hc := httpclient.DefaultConfig()
	hc.Timeout = cfg.TMDb.Timeout
	hc.UserAgent = "movieexplorer/" + version

	client := tmdb.NewWithOptions(tmdb.Options{
		BaseURL: cfg.TMDb.BaseURL,
		APIKey:  cfg.TMDb.APIKey,
		HTTP:    hc,
	}, logger)
	logger.Info("TMDb client initialized", slog.String("url", sanitizeURL(cfg.TMDb.BaseURL)))
	return client
}

// newRenderer builds the presentation renderer from configuration.
func newRenderer(cfg *config.Config) view.Renderer {
	return view.NewRenderer(
		tmdb.Images{BaseURL: cfg.TMDb.ImageBaseURL, Placeholder: cfg.TMDb.PlaceholderURL},
		cfg.Browser.OverviewLength,
	)
}

// newBrowserFactory returns a constructor for per-session browsers.
func newBrowserFactory(src core.MovieSource, cfg *config.Config, logger *slog.Logger) func() *browser.Browser {
	return func() *browser.Browser {
		return browser.New(src, browser.Options{
			Debounce: cfg.Browser.SearchDebounce,
			Logger:   logger,
		})
	}
}

// isTerminal reports whether f is attached to an interactive terminal.
func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderCard formats one result card for terminal output.
func renderCard(index int, c view.Card, selected bool, width int) string {
	marker := "  "
	if selected {
		marker = styleInfo.Render("▸ ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%s %s  %s\n",
		marker,
		styleDim.Render(fmt.Sprintf("%2d.", index)),
		styleRating.Render("★ "+c.Rating),
		styleTitle.Render(c.Title),
	)
	fmt.Fprintf(&sb, "      %s\n", styleDim.Render(c.Date))
	if c.Overview != "" {
		overview := c.Overview
		if width > 10 {
			overview = lipgloss.NewStyle().Width(width - 6).Render(overview)
			overview = strings.ReplaceAll(overview, "\n", "\n      ")
		}
		fmt.Fprintf(&sb, "      %s\n", overview)
	}
	fmt.Fprintf(&sb, "      %s\n", styleDim.Render(c.PosterURL))
	return sb.String()
}

// renderTabs draws the filter bar, highlighting the active listing.
func renderTabs(p view.Page) string {
	tabs := make([]string, 0, len(p.Tabs))
	for i, t := range p.Tabs {
		label := fmt.Sprintf("%d %s", i+1, t.Label)
		if t.Active {
			tabs = append(tabs, styleTabOn.Render(label))
		} else {
			tabs = append(tabs, styleTab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// sanitizeURL strips credentials, query params, and fragment from a URL for safe logging.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.Scheme == "" {
		return "<redacted>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
