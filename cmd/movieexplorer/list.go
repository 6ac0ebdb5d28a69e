package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vadimtrunov/movieexplorer/internal/browser"
	"github.com/vadimtrunov/movieexplorer/internal/config"
	"github.com/vadimtrunov/movieexplorer/internal/core"
	"github.com/vadimtrunov/movieexplorer/internal/view"
)

var errNoPage = errors.New("source returned no page")

// newListCmd returns the "list" subcommand printing one page of a listing.
func newListCmd() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:       "list <filter>",
		Short:     "Show one page of a movie listing",
		Long:      "Print one page of the popular, top-rated or now-playing listing.",
		ValidArgs: []string{"popular", "top-rated", "now-playing"},
		Example: `  movieexplorer list popular
  movieexplorer list top-rated --page 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := core.ParseFilter(args[0])
			if err != nil {
				return err
			}
			if f == core.FilterSearch {
				return errors.New("use 'search <query>' to search movies")
			}
			return runListing(cmd.OutOrStdout(), core.PageRequest{Filter: f, Page: page})
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	return cmd
}

// newSearchCmd returns the "search" subcommand printing one page of matches.
func newSearchCmd() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search movies by title",
		Example: `  movieexplorer search inception
  movieexplorer search star wars --page 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return errors.New("search query must not be blank")
			}
			return runListing(cmd.OutOrStdout(), core.PageRequest{Filter: core.FilterSearch, Query: query, Page: page})
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	return cmd
}

// runListing fetches one page and prints it to w.
func runListing(w io.Writer, req core.PageRequest) error {
	if req.Page < 1 {
		return fmt.Errorf("page must be at least 1, got %d", req.Page)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logFile, err := config.OpenLogFile(cfg.App.LogFile)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()
	logger := config.SetupLogger(cfg.App.LogLevel, logFile)

	client := initTMDb(cfg, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var st browser.State
	if isTerminal(os.Stdout) {
		m, err := tea.NewProgram(newListModel(ctx, client, req)).Run()
		if err != nil {
			return fmt.Errorf("run listing: %w", err)
		}
		lm, ok := m.(listModel)
		if !ok {
			return fmt.Errorf("unexpected model type from tea program")
		}
		if !lm.done {
			return context.Canceled
		}
		st = lm.state
	} else {
		st = fetchState(ctx, client, req)
	}

	if st.Failure != nil {
		logger.Warn("listing fetch failed",
			slog.String("filter", string(req.Filter)),
			slog.String("reason", string(st.Failure.Reason)),
			slog.String("error", st.Failure.Error()),
		)
	}
	if st.HasError() {
		return errors.New(st.Error)
	}
	fmt.Fprint(w, renderListingText(newRenderer(cfg).Render(st)))
	return nil
}

// fetchState fetches one page and reconciles it into a browser state the
// renderer understands.
func fetchState(ctx context.Context, src core.MovieSource, req core.PageRequest) browser.State {
	st := browser.State{Filter: req.Filter, Query: req.Query, Page: req.Page, TotalPages: 1}
	mp, err := src.FetchPage(ctx, req)
	if err == nil && mp == nil {
		err = &core.FetchError{Reason: core.ReasonDecode, Err: errNoPage}
	}
	if err != nil {
		st.Error = browser.FailureMessage(req.Filter)
		st.Failure = core.AsFetchError(err)
		return st
	}
	st.Movies = mp.Movies
	st.TotalPages = mp.TotalPages
	st.TotalResults = mp.TotalResults
	return st
}

// renderListingText formats a listing for plain terminal output.
func renderListingText(p view.Page) string {
	var sb strings.Builder
	sb.WriteString(styleHeader.Render(p.Heading) + "\n")
	if p.Empty {
		sb.WriteString(styleDim.Render(p.NoResults) + "\n")
		return sb.String()
	}
	for i, c := range p.Cards {
		sb.WriteString(renderCard(i+1, c, false, 0))
	}
	sb.WriteString("\n" + styleDim.Render(p.PageInfo) + "\n")
	return sb.String()
}

// listResultMsg carries the fetched state back to the TUI.
type listResultMsg struct {
	state browser.State
}

// listModel shows a spinner while one page loads.
type listModel struct {
	ctx     context.Context
	source  core.MovieSource
	req     core.PageRequest
	spinner spinner.Model
	state   browser.State
	done    bool
}

func newListModel(ctx context.Context, src core.MovieSource, req core.PageRequest) listModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleInfo
	return listModel{
		ctx:     ctx,
		source:  src,
		req:     req,
		spinner: s,
	}
}

func (m listModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch())
}

func (m listModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case listResultMsg:
		m.state = msg.state
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View clears the spinner once done; the caller prints the result.
func (m listModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + styleDim.Render(" Loading movies...") + "\n"
}

func (m listModel) fetch() tea.Cmd {
	return func() tea.Msg {
		return listResultMsg{state: fetchState(m.ctx, m.source, m.req)}
	}
}
