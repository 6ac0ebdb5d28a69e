package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vadimtrunov/movieexplorer/internal/browser"
	"github.com/vadimtrunov/movieexplorer/internal/config"
	"github.com/vadimtrunov/movieexplorer/internal/core"
	"github.com/vadimtrunov/movieexplorer/internal/view"
)

// linesPerCard is the height budget of one card in the list.
const linesPerCard = 5

// newBrowseCmd returns the "browse" subcommand running the terminal widget.
func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse movies interactively",
		Long: "Open the interactive movie browser.\n" +
			"Type / to search, 1-3 or tab to switch listings, [ ] to turn pages,\n" +
			"enter for details, r to retry and q to quit.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runBrowse()
		},
	}
}

// runBrowse initializes the TMDb client and starts the Bubble Tea browser.
func runBrowse() error {
	if !isTerminal(os.Stdout) {
		return errors.New("browse needs an interactive terminal; use 'list' or 'search' instead")
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
	b := newBrowserFactory(client, cfg, logger)()
	defer b.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := newBrowseModel(ctx, b, client, newRenderer(cfg))
	defer m.stop()
	b.Popular(ctx)

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Bridge OS signal cancellation into the Bubble Tea event loop.
	go func() {
		<-ctx.Done()
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run browser: %w", err)
	}
	return nil
}

// browseKeys is the key map of the listing view.
type browseKeys struct {
	Search  key.Binding
	Listing key.Binding
	Cycle   key.Binding
	Next    key.Binding
	Prev    key.Binding
	Up      key.Binding
	Down    key.Binding
	Details key.Binding
	Retry   key.Binding
	Back    key.Binding
	Quit    key.Binding
}

var keys = browseKeys{
	Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Listing: key.NewBinding(key.WithKeys("1", "2", "3"), key.WithHelp("1-3", "listing")),
	Cycle:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next listing")),
	Next:    key.NewBinding(key.WithKeys("]", "right", "n"), key.WithHelp("]/→", "next page")),
	Prev:    key.NewBinding(key.WithKeys("[", "left", "p"), key.WithHelp("[/←", "prev page")),
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Details: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Retry:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	Back:    key.NewBinding(key.WithKeys("esc", "backspace", "enter", "q"), key.WithHelp("esc", "back")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
}

// ShortHelp implements help.KeyMap.
func (k browseKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Listing, k.Next, k.Prev, k.Details, k.Retry, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k browseKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.Listing, k.Cycle},
		{k.Next, k.Prev, k.Up, k.Down},
		{k.Details, k.Retry, k.Back, k.Quit},
	}
}

// stateChangedMsg signals that the browser state moved on.
type stateChangedMsg struct{}

// detailsMsg carries a details lookup back to the TUI.
type detailsMsg struct {
	details *core.MovieDetails
	err     error
}

// browseModel is the Bubble Tea model of the movie browser.
type browseModel struct {
	ctx      context.Context
	browser  *browser.Browser
	details  core.MovieDetailer
	renderer view.Renderer
	updates  <-chan struct{}
	stop     func()

	search    textinput.Model
	spinner   spinner.Model
	help      help.Model
	state     browser.State
	page      view.Page
	cursor    int
	detail    *view.Details
	detailErr string
	fetching  bool
	width     int
	height    int
}

// newBrowseModel creates the model and subscribes to browser updates.
func newBrowseModel(ctx context.Context, b *browser.Browser, details core.MovieDetailer, r view.Renderer) browseModel {
	ti := textinput.New()
	ti.Placeholder = "Search for movies..."
	ti.Prompt = "/ "
	ti.CharLimit = 200

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleInfo

	updates, stop := b.Watch()
	m := browseModel{
		ctx:      ctx,
		browser:  b,
		details:  details,
		renderer: r,
		updates:  updates,
		stop:     stop,
		search:   ti,
		spinner:  s,
		help:     help.New(),
	}
	m.refresh()
	return m
}

// Init starts the spinner and the update listener.
func (m browseModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.updates))
}

// waitForUpdate blocks until the browser signals a change.
func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

// Update handles browser signals, details lookups and key presses.
func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.search.Width = max(msg.Width-6, 10)
		m.help.Width = msg.Width
		return m, nil

	case stateChangedMsg:
		m.refresh()
		return m, waitForUpdate(m.updates)

	case detailsMsg:
		m.fetching = false
		if msg.err != nil {
			m.detailErr = "Failed to load movie details. Please try again."
			return m, nil
		}
		d := m.renderer.Details(msg.details)
		m.detail = &d
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.search.Focused() {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

// refresh copies the latest browser snapshot into the model.
func (m *browseModel) refresh() {
	m.state = m.browser.Snapshot()
	m.page = m.renderer.Render(m.state)
	if m.cursor >= len(m.page.Cards) {
		m.cursor = max(len(m.page.Cards)-1, 0)
	}
}

// handleSearchKey edits the search box. Typing is debounced by the browser;
// enter searches at once.
func (m browseModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.Blur()
		return m, nil
	case "enter":
		m.search.Blur()
		if !m.browser.SubmitSearch(m.ctx, m.search.Value()) {
			m.browser.Popular(m.ctx)
		}
		m.cursor = 0
		return m, nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != before {
		m.browser.SetQuery(m.ctx, m.search.Value())
		m.cursor = 0
	}
	return m, cmd
}

// handleKey maps navigation keys to browser operations.
func (m browseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.detail != nil || m.detailErr != "" || m.fetching {
		if key.Matches(msg, keys.Back) {
			m.detail = nil
			m.detailErr = ""
			m.fetching = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Search):
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(msg, keys.Listing):
		m.browser.Show(m.ctx, core.Filters[int(msg.String()[0]-'1')])
		m.cursor = 0
	case key.Matches(msg, keys.Cycle):
		m.browser.Show(m.ctx, nextFilter(m.state.Filter))
		m.cursor = 0
	case key.Matches(msg, keys.Next):
		if m.browser.NextPage(m.ctx) {
			m.cursor = 0
		}
	case key.Matches(msg, keys.Prev):
		if m.browser.PreviousPage(m.ctx) {
			m.cursor = 0
		}
	case key.Matches(msg, keys.Retry):
		m.browser.Retry(m.ctx)
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.page.Cards)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Details):
		if m.details == nil || !m.page.ShowResults || len(m.page.Cards) == 0 {
			return m, nil
		}
		m.fetching = true
		return m, m.loadDetails(m.page.Cards[m.cursor].ID)
	}
	return m, nil
}

// nextFilter cycles through the category listings.
func nextFilter(f core.Filter) core.Filter {
	for i, c := range core.Filters {
		if c == f {
			return core.Filters[(i+1)%len(core.Filters)]
		}
	}
	return core.Filters[0]
}

// loadDetails fetches the expanded view of one movie asynchronously.
func (m browseModel) loadDetails(id int) tea.Cmd {
	return func() tea.Msg {
		d, err := m.details.Details(m.ctx, id)
		return detailsMsg{details: d, err: err}
	}
}

// View renders the browser: tabs, search box, results and pagination.
func (m browseModel) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("5")).
		Render("Movie Explorer")

	var sb strings.Builder
	sb.WriteString(title + "\n")
	sb.WriteString(renderTabs(m.page) + "\n")
	sb.WriteString(m.search.View() + "\n\n")

	switch {
	case m.fetching:
		sb.WriteString(m.spinner.View() + styleDim.Render(" Loading details...") + "\n")
	case m.detailErr != "":
		sb.WriteString(styleError.Render(m.detailErr) + "\n")
		sb.WriteString(styleDim.Render("esc to go back") + "\n")
	case m.detail != nil:
		sb.WriteString(m.renderDetail())
	default:
		sb.WriteString(m.renderListing())
	}
	return sb.String()
}

func (m browseModel) renderListing() string {
	p := m.page
	var sb strings.Builder
	sb.WriteString(styleHeader.Render(p.Heading) + "\n")

	switch {
	case p.Loading:
		sb.WriteString(m.spinner.View() + styleDim.Render(" Loading movies...") + "\n")
	case p.Error != "":
		sb.WriteString(styleError.Render("⚠ "+p.Error) + "\n")
		sb.WriteString(styleDim.Render("press r to try again") + "\n")
	case p.Empty:
		sb.WriteString(styleDim.Render(p.NoResults) + "\n")
	default:
		first, last := m.visibleCards()
		for i := first; i < last; i++ {
			sb.WriteString(renderCard(i+1, p.Cards[i], i == m.cursor, m.width))
		}
		sb.WriteString("\n" + m.renderPagination() + "\n")
	}
	sb.WriteString(m.help.View(keys))
	return sb.String()
}

// visibleCards returns the window of cards that fits the terminal, keeping
// the cursor in view.
func (m browseModel) visibleCards() (int, int) {
	n := len(m.page.Cards)
	if m.height == 0 {
		return 0, n
	}
	fit := max((m.height-10)/linesPerCard, 1)
	if fit >= n {
		return 0, n
	}
	first := min(max(m.cursor-fit/2, 0), n-fit)
	return first, first + fit
}

func (m browseModel) renderPagination() string {
	prev := styleDim.Render("◀ Prev")
	if m.page.CanPrevious {
		prev = styleInfo.Render("◀ Prev")
	}
	next := styleDim.Render("Next ▶")
	if m.page.CanNext {
		next = styleInfo.Render("Next ▶")
	}
	return prev + "  " + m.page.PageInfo + "  " + next
}

func (m browseModel) renderDetail() string {
	d := m.detail
	var sb strings.Builder
	sb.WriteString(styleHeader.Render(d.Title) + "\n")
	if d.Tagline != "" {
		sb.WriteString(lipgloss.NewStyle().Italic(true).Render(d.Tagline) + "\n\n")
	}
	meta := []string{styleRating.Render("★ " + d.Rating), d.Date}
	if d.Runtime != "" {
		meta = append(meta, d.Runtime)
	}
	if d.Status != "" {
		meta = append(meta, d.Status)
	}
	sb.WriteString(strings.Join(meta, styleDim.Render(" · ")) + "\n")
	if len(d.Genres) > 0 {
		sb.WriteString(styleDim.Render(strings.Join(d.Genres, ", ")) + "\n")
	}
	overview := d.Overview
	if m.width > 4 {
		overview = lipgloss.NewStyle().Width(m.width - 2).Render(overview)
	}
	sb.WriteString("\n" + overview + "\n\n")
	sb.WriteString(styleDim.Render(d.PosterURL) + "\n")
	if d.IMDbURL != "" {
		sb.WriteString(styleInfo.Render(d.IMDbURL) + "\n")
	}
	sb.WriteString("\n" + styleDim.Render("esc to go back"))
	return sb.String()
}
