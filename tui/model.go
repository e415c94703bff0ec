// Package tui renders the active feed in the terminal and loads more stories
// when scrolling past the last row.
package tui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"

	"wovennews/feeds"
	"wovennews/hn"
	"wovennews/models"
)

// Store is the part of feeds.Store the terminal UI drives
type Store interface {
	Active() models.FeedName
	ActiveSnapshot() models.Snapshot
	SwitchActive(feed models.FeedName) (models.Snapshot, error)
	LoadMore(ctx context.Context, feed models.FeedName) (models.Snapshot, error)
}

var errOffline = errors.New("hacker news is unreachable")

type snapshotMsg models.Snapshot

type subscriptionClosedMsg struct{}

type switchDoneMsg struct {
	snap models.Snapshot
	err  error
}

type loadDoneMsg struct {
	snap       models.Snapshot
	err        error
	transition hn.Transition
}

// Model is the feed list screen
type Model struct {
	ctx          context.Context
	store        Store
	updates      <-chan models.Snapshot
	prober       hn.Prober
	connectivity *hn.ConnectivityReporter
	now          func() time.Time

	active    models.FeedName
	cache     map[models.FeedName]models.Snapshot
	stories   []models.Story
	exhausted bool
	shownSeq  uint64

	cursor   int
	viewport int // index of first visible row
	width    int
	height   int

	loading   bool
	spinner   spinner.Model
	status    string
	statusErr bool
}

type Option func(*Model)

// WithProber checks connectivity before every load
func WithProber(p hn.Prober) Option {
	return func(m *Model) {
		m.prober = p
	}
}

// WithClock sets the time used to render story ages
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		m.now = now
	}
}

// New creates the model. updates is usually the channel of a store subscription.
func New(ctx context.Context, store Store, updates <-chan models.Snapshot, opts ...Option) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorAccent)

	m := Model{
		ctx:          ctx,
		store:        store,
		updates:      updates,
		connectivity: &hn.ConnectivityReporter{},
		now:          time.Now,
		active:       store.Active(),
		cache:        make(map[models.FeedName]models.Snapshot),
		width:        80,
		height:       24,
		spinner:      s,
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.apply(store.ActiveSnapshot())
	return m
}

// Run starts the terminal program and blocks until the user quits
func Run(ctx context.Context, store *feeds.Store, opts ...Option) error {
	sub := store.Subscribe()
	defer sub.Close()

	p := tea.NewProgram(New(ctx, store, sub.C, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.updates)
}

func waitForSnapshot(updates <-chan models.Snapshot) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return subscriptionClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureCursorVisible()
		return m, nil

	case snapshotMsg:
		m.apply(models.Snapshot(msg))
		return m, waitForSnapshot(m.updates)

	case subscriptionClosedMsg:
		return m, nil

	case switchDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.apply(msg.snap)
		// Switches run concurrently, make sure the store ends on our feed
		if msg.snap.Feed != m.active {
			return m, switchCmd(m.store, m.active)
		}
		return m, nil

	case loadDoneMsg:
		m.loading = false
		switch msg.transition {
		case hn.Lost:
			log.Warn("Lost connection to the Hacker News API")
		case hn.Restored:
			log.Info("Connection to the Hacker News API restored")
		}
		if msg.snap.Feed != "" {
			m.apply(msg.snap)
		}
		if msg.err != nil {
			m.setError(msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor >= len(m.stories)-1 {
			m, cmd = m.loadMore()
		} else {
			m.cursor++
		}
	case key.Matches(msg, keys.PageUp):
		m.cursor = max(0, m.cursor-m.visibleLines())
	case key.Matches(msg, keys.PageDown):
		if m.cursor >= len(m.stories)-1 {
			m, cmd = m.loadMore()
		} else {
			m.cursor = min(len(m.stories)-1, m.cursor+m.visibleLines())
		}
	case key.Matches(msg, keys.Home):
		m.cursor = 0
	case key.Matches(msg, keys.End):
		m.cursor = max(0, len(m.stories)-1)
	case key.Matches(msg, keys.Next):
		m, cmd = m.switchTo(m.otherFeed())
	case key.Matches(msg, keys.Recent):
		m, cmd = m.switchTo(models.FeedRecent)
	case key.Matches(msg, keys.Best):
		m, cmd = m.switchTo(models.FeedBest)
	case key.Matches(msg, keys.Open):
		if story, ok := m.Selected(); ok {
			m.status = story.URL
			m.statusErr = false
		}
	}

	m.ensureCursorVisible()
	return m, cmd
}

// apply caches a snapshot and shows it when it belongs to the active feed
// and is not older than what is on screen.
func (m *Model) apply(snap models.Snapshot) {
	if cached, ok := m.cache[snap.Feed]; ok && snap.Seq < cached.Seq {
		return
	}
	m.cache[snap.Feed] = snap

	if snap.Feed != m.active || snap.Seq < m.shownSeq {
		return
	}
	m.show(snap)
}

func (m *Model) show(snap models.Snapshot) {
	m.stories = snap.Stories
	m.exhausted = snap.Exhausted
	m.shownSeq = snap.Seq
	if m.cursor >= len(m.stories) {
		m.cursor = max(0, len(m.stories)-1)
	}
	m.ensureCursorVisible()
}

func (m *Model) setError(err error) {
	var unavailable *feeds.UnavailableError
	switch {
	case errors.As(err, &unavailable):
		m.status = fmt.Sprintf("%s feed is unavailable", unavailable.Feed)
	case errors.Is(err, errOffline):
		m.status = "No connection to Hacker News"
	default:
		m.status = err.Error()
	}
	m.statusErr = true
}

func (m Model) otherFeed() models.FeedName {
	for i, feed := range models.Feeds {
		if feed == m.active {
			return models.Feeds[(i+1)%len(models.Feeds)]
		}
	}
	return models.FeedRecent
}

func (m Model) switchTo(feed models.FeedName) (Model, tea.Cmd) {
	if feed == m.active {
		return m, nil
	}

	m.active = feed
	m.cursor = 0
	m.viewport = 0
	m.status = ""
	m.statusErr = false

	if cached, ok := m.cache[feed]; ok {
		m.show(cached)
	} else {
		m.stories = nil
		m.exhausted = false
		m.shownSeq = 0
	}

	return m, switchCmd(m.store, feed)
}

func switchCmd(store Store, feed models.FeedName) tea.Cmd {
	return func() tea.Msg {
		snap, err := store.SwitchActive(feed)
		return switchDoneMsg{snap: snap, err: err}
	}
}

func (m Model) loadMore() (Model, tea.Cmd) {
	if m.loading || m.exhausted {
		return m, nil
	}
	m.loading = true
	m.status = ""
	m.statusErr = false

	// The page goes to the feed on screen, even if the switch has not reached the store yet
	ctx, store, prober, reporter, feed := m.ctx, m.store, m.prober, m.connectivity, m.active
	load := func() tea.Msg {
		transition := hn.NoChange
		if prober != nil {
			var reachable bool
			reachable, transition = reporter.Check(ctx, prober)
			if !reachable {
				return loadDoneMsg{err: errOffline, transition: transition}
			}
		}
		snap, err := store.LoadMore(ctx, feed)
		return loadDoneMsg{snap: snap, err: err, transition: transition}
	}

	return m, tea.Batch(load, m.spinner.Tick)
}

// Selected returns the story under the cursor
func (m Model) Selected() (models.Story, bool) {
	if m.cursor >= 0 && m.cursor < len(m.stories) {
		return m.stories[m.cursor], true
	}
	return models.Story{}, false
}

// Feed returns the feed shown on screen
func (m Model) Feed() models.FeedName {
	return m.active
}

func (m *Model) ensureCursorVisible() {
	visible := m.visibleLines()
	if m.cursor < m.viewport {
		m.viewport = m.cursor
	}
	if m.cursor >= m.viewport+visible {
		m.viewport = m.cursor - visible + 1
	}
}

func (m Model) visibleLines() int {
	// header, blank line and status bar
	return max(1, m.height-3)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	if len(m.stories) == 0 {
		switch {
		case m.loading:
			b.WriteString(helpText.Render("  Loading stories..."))
		case m.exhausted:
			b.WriteString(helpText.Render("  No stories in this feed"))
		default:
			b.WriteString(helpText.Render("  No stories yet, press ↓ to load"))
		}
		b.WriteString("\n")
	}

	end := min(m.viewport+m.visibleLines(), len(m.stories))
	for i := m.viewport; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatus())
	return b.String()
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(models.Feeds)+1)
	for _, feed := range models.Feeds {
		label := strings.ToUpper(string(feed[:1])) + string(feed[1:])
		if feed == m.active {
			tabs = append(tabs, tabActive.Render(label))
		} else {
			tabs = append(tabs, tabInactive.Render(label))
		}
	}
	if m.loading {
		tabs = append(tabs, m.spinner.View())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderRow(i int) string {
	story := m.stories[i]

	meta := fmt.Sprintf("%s points · %s", story.Score, formatAge(m.now(), story.Posted()))
	if host := hostOf(story.URL); host != "" {
		meta = host + " · " + meta
	}

	prefix := fmt.Sprintf("%3d. ", i+1)
	maxTitle := max(20, m.width-len(prefix)-len([]rune(meta))-3)
	title := truncate(story.Title, maxTitle)

	if i == m.cursor {
		return rowSelected.Render(prefix+title) + "  " + rowMeta.Render(meta)
	}
	return rowNormal.Render(prefix+title) + "  " + rowMeta.Render(meta)
}

func (m Model) renderStatus() string {
	switch {
	case m.status != "" && m.statusErr:
		return statusBar.Render(statusError.Render(m.status))
	case m.status != "":
		return statusBar.Render(m.status)
	case m.exhausted && len(m.stories) > 0:
		return statusBar.Render(fmt.Sprintf("%d stories · end of feed", len(m.stories)))
	default:
		return statusBar.Render(fmt.Sprintf("%d stories · tab switch · ↓ more · enter url · q quit", len(m.stories)))
	}
}

var keys = struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
	Next     key.Binding
	Recent   key.Binding
	Best     key.Binding
	Open     key.Binding
	Quit     key.Binding
}{
	Up:       key.NewBinding(key.WithKeys("up", "k")),
	Down:     key.NewBinding(key.WithKeys("down", "j")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d")),
	Home:     key.NewBinding(key.WithKeys("home", "g")),
	End:      key.NewBinding(key.WithKeys("end", "G")),
	Next:     key.NewBinding(key.WithKeys("tab")),
	Recent:   key.NewBinding(key.WithKeys("r")),
	Best:     key.NewBinding(key.WithKeys("b")),
	Open:     key.NewBinding(key.WithKeys("enter")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// formatAge returns a human-readable age string
func formatAge(now, t time.Time) string {
	d := now.Sub(t)

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
