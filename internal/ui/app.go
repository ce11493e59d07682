package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/internal/app"
	"github.com/jscyril/golang_turntable/internal/library"
	"github.com/jscyril/golang_turntable/internal/playlist"
	"github.com/jscyril/golang_turntable/internal/tonearm"
	"github.com/jscyril/golang_turntable/internal/ui/components"
	"github.com/jscyril/golang_turntable/internal/ui/views"
	"github.com/jscyril/golang_turntable/internal/visualizer"
	"github.com/jscyril/golang_turntable/pkg/events"
	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

// ViewType represents what the right-hand panel shows
type ViewType int

const (
	ViewTurntable ViewType = iota
	ViewPlaylists
	ViewFiles
)

const (
	// turntableTop is the screen row of the turntable's first cell
	turntableTop = 1
	// grabTolerance is how close to the arm, in turntable units, a press
	// must land to pick it up
	grabTolerance = 20.0
	barsHeight    = 4
)

// Services are the components the screen drives
type Services struct {
	Controller *app.Controller
	Arm        *tonearm.Controller
	Visualizer *visualizer.Visualizer
	Bus        *events.EventBus
	Display    *Display
	// Playlists is nil when no streaming session is available
	Playlists *playlist.Manager
	Library   *library.Library
	Logout    func()
	Logger    *log.Logger
}

// Settings tune the screen
type Settings struct {
	RPM            float64
	FrameRate      time.Duration
	ProgressPeriod time.Duration
	SeekStep       time.Duration
	VolumeStep     float64
	MusicDir       string
}

// DefaultSettings returns the settings used when none are configured
func DefaultSettings() Settings {
	return Settings{
		RPM:            100.0 / 3,
		FrameRate:      100 * time.Millisecond,
		ProgressPeriod: time.Second,
		SeekStep:       10 * time.Second,
		VolumeStep:     0.1,
	}
}

// Model is the main bubbletea model
type Model struct {
	width  int
	height int

	active   ViewType
	svc      Services
	settings Settings
	ctx      context.Context
	events   <-chan api.Event

	turntable    components.Turntable
	bars         components.Bars
	trackList    components.TrackList
	playerView   views.PlayerView
	playlistView views.PlaylistView
	libraryView  views.LibraryView
	help         help.Model
	keys         keyMap

	tracksRev int
	dragging  bool
	lastFrame time.Time
	loading   string

	headerStyle lipgloss.Style
	tabStyle    lipgloss.Style
	activeTab   lipgloss.Style
	alertStyle  lipgloss.Style
	dimStyle    lipgloss.Style
}

type (
	frameMsg    time.Time
	progressMsg time.Time
	busMsg      api.Event
	busClosed   struct{}
	dispatchMsg struct{ fn func() }

	playlistsMsg struct {
		list []playlist.Summary
		err  error
	}
	playlistLoadedMsg struct {
		name string
		err  error
	}
	filesLoadedMsg struct {
		added int
		err   error
	}
)

// NewModel creates the application model. It subscribes to every event
// the backends publish.
func NewModel(ctx context.Context, svc Services, settings Settings) Model {
	if svc.Display == nil {
		svc.Display = NewDisplay()
	}
	if svc.Logger == nil {
		svc.Logger = log.New(io.Discard)
	}
	def := DefaultSettings()
	if settings.RPM <= 0 {
		settings.RPM = def.RPM
	}
	if settings.FrameRate <= 0 {
		settings.FrameRate = def.FrameRate
	}
	if settings.ProgressPeriod <= 0 {
		settings.ProgressPeriod = def.ProgressPeriod
	}
	if settings.SeekStep <= 0 {
		settings.SeekStep = def.SeekStep
	}
	if settings.VolumeStep <= 0 {
		settings.VolumeStep = def.VolumeStep
	}

	m := Model{
		width:     100,
		height:    40,
		svc:       svc,
		settings:  settings,
		ctx:       ctx,
		events:    svc.Bus.SubscribeAll(),
		turntable: components.NewTurntable(svc.Arm.Geometry()),
		help:      help.New(),
		keys:      newKeyMap(),
		tracksRev: -1,
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		tabStyle: lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("240")),
		activeTab: lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236")),
		alertStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		dimStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
	m.playerView = views.NewPlayerView(40)
	m.trackList = components.NewTrackList(10, 40)
	m.playlistView = views.NewPlaylistView(40, 20)
	m.bars = components.NewBars(m.width, barsHeight)
	m.resize()
	return m
}

// Init starts the controller and the tickers
func (m Model) Init() tea.Cmd {
	m.svc.Controller.Start(m.ctx)
	return tea.Batch(
		frameCmd(m.settings.FrameRate),
		progressCmd(m.settings.ProgressPeriod),
		m.listen(),
	)
}

func frameCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func progressCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return progressMsg(t)
	})
}

// listen waits for the next event published by a backend
func (m Model) listen() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return busClosed{}
		}
		return busMsg(e)
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case dispatchMsg:
		msg.fn()

	case busMsg:
		m.svc.Controller.HandleEvent(api.Event(msg))
		cmds = append(cmds, m.listen())

	case busClosed:

	case frameMsg:
		now := time.Time(msg)
		if !m.lastFrame.IsZero() {
			m.turntable.Spinning = m.svc.Display.Spinning
			m.turntable.Advance(now.Sub(m.lastFrame), m.settings.RPM)
		}
		m.lastFrame = now
		m.svc.Visualizer.Tick()
		cmds = append(cmds, frameCmd(m.settings.FrameRate))

	case progressMsg:
		m.svc.Controller.UpdateProgress()
		cmds = append(cmds, progressCmd(m.settings.ProgressPeriod))

	case playlistsMsg:
		m.playlistView.SetPlaylists(msg.list, msg.err)
		if msg.err != nil {
			m.reportError(api.ModeRemote, "list playlists", msg.err)
		}

	case views.PlaylistChosenMsg:
		m.active = ViewTurntable
		m.loading = msg.Name
		cmds = append(cmds, m.loadPlaylist(msg.ID, msg.Name))

	case playlistLoadedMsg:
		m.loading = ""
		switch {
		case errors.Is(msg.err, playerrors.ErrEmptyPlaylist):
			m.svc.Display.Alert(fmt.Sprintf("%q has no playable tracks.", msg.name))
		case msg.err != nil:
			m.reportError(api.ModeRemote, "load playlist", msg.err)
		default:
			m.svc.Controller.PlaylistLoaded(api.ModeRemote)
		}

	case views.FilesChosenMsg:
		m.active = ViewTurntable
		m.loading = "local files"
		cmds = append(cmds, m.loadFiles(msg.Paths))

	case filesLoadedMsg:
		m.loading = ""
		m.filesLoaded(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))
	}

	m.sync()
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch m.active {
	case ViewPlaylists:
		switch {
		case msg.String() == "ctrl+c":
			return tea.Quit
		case key.Matches(msg, m.keys.back):
			m.active = ViewTurntable
			return nil
		}
		var cmd tea.Cmd
		m.playlistView, cmd = m.playlistView.Update(msg)
		return cmd

	case ViewFiles:
		switch {
		case key.Matches(msg, m.keys.quit):
			return tea.Quit
		case key.Matches(msg, m.keys.back):
			m.active = ViewTurntable
			return nil
		}
		var cmd tea.Cmd
		m.libraryView, cmd = m.libraryView.Update(msg)
		return cmd
	}

	ctrl := m.svc.Controller
	switch {
	case key.Matches(msg, m.keys.quit):
		return tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
	case key.Matches(msg, m.keys.playPause):
		ctrl.TogglePlayPause()
	case key.Matches(msg, m.keys.stop):
		ctrl.Stop()
	case key.Matches(msg, m.keys.next):
		ctrl.NextTrack()
	case key.Matches(msg, m.keys.prev):
		ctrl.PreviousTrack()
	case key.Matches(msg, m.keys.lift):
		ctrl.LiftArm()
	case key.Matches(msg, m.keys.up), key.Matches(msg, m.keys.down):
		m.trackList, _ = m.trackList.Update(msg)
	case key.Matches(msg, m.keys.drop):
		if i := m.trackList.SelectedIndex(); i >= 0 {
			ctrl.MoveToTrack(i)
		}
	case key.Matches(msg, m.keys.seekBack):
		ctrl.Seek(-m.settings.SeekStep.Milliseconds())
	case key.Matches(msg, m.keys.seekFwd):
		ctrl.Seek(m.settings.SeekStep.Milliseconds())
	case key.Matches(msg, m.keys.volUp):
		ctrl.AdjustVolume(m.settings.VolumeStep)
	case key.Matches(msg, m.keys.volDown):
		ctrl.AdjustVolume(-m.settings.VolumeStep)
	case key.Matches(msg, m.keys.mode):
		next := api.ModeLocal
		if ctrl.Mode() == api.ModeLocal {
			next = api.ModeRemote
		}
		ctrl.SwitchMode(next)
	case key.Matches(msg, m.keys.playlists):
		if m.svc.Playlists == nil {
			m.svc.Display.Alert("Spotify is not connected. Run `turntable login` to sign in.")
			return nil
		}
		m.active = ViewPlaylists
		return tea.Batch(m.playlistView.Open(), m.fetchPlaylists())
	case key.Matches(msg, m.keys.open):
		m.active = ViewFiles
		m.libraryView = views.NewLibraryView(m.settings.MusicDir, m.panelWidth(), m.turntable.Rows)
	case key.Matches(msg, m.keys.remove):
		m.removeLocal(m.trackList.SelectedIndex())
	case key.Matches(msg, m.keys.clear):
		if ctrl.Mode() == api.ModeLocal && m.svc.Library != nil {
			m.svc.Library.Clear()
			ctrl.PlaylistLoaded(api.ModeLocal)
		}
	case key.Matches(msg, m.keys.logout):
		if m.svc.Logout != nil {
			m.svc.Logout()
			m.svc.Playlists = nil
			m.svc.Display.Alert("Logged out of Spotify.")
			if ctrl.Mode() == api.ModeRemote {
				ctrl.SwitchMode(api.ModeLocal)
			}
		}
	case key.Matches(msg, m.keys.dismiss):
		m.svc.Display.DismissAlerts()
	}
	return nil
}

// handleMouse lets the pointer grab the arm and drag it across the record
func (m *Model) handleMouse(msg tea.MouseMsg) {
	x, y := components.ToTurntable(msg.X, msg.Y-turntableTop)
	arm := m.svc.Arm

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !m.turntable.NearArm(x, y, grabTolerance) {
			return
		}
		m.dragging = true
		arm.DragStart()
		arm.DragMove(x, y)
	case tea.MouseActionMotion:
		if m.dragging {
			arm.DragMove(x, y)
		}
	case tea.MouseActionRelease:
		if m.dragging {
			m.dragging = false
			arm.DragEnd()
		}
	}
}

func (m *Model) removeLocal(index int) {
	if m.svc.Controller.Mode() != api.ModeLocal || m.svc.Library == nil || index < 0 {
		return
	}
	removed, err := m.svc.Library.Remove(index)
	if err != nil {
		return
	}
	m.svc.Logger.Info("removed local track", "track", removed.Name)
	m.svc.Controller.PlaylistLoaded(api.ModeLocal)
}

func (m *Model) filesLoaded(msg filesLoadedMsg) {
	switch {
	case errors.Is(msg.err, playerrors.ErrEmptyPlaylist):
		m.svc.Display.Alert("No audio files found there.")
	case msg.err != nil:
		m.svc.Display.Alert("Some files could not be loaded. See the log for details.")
	}
	if msg.added == 0 {
		return
	}
	ctrl := m.svc.Controller
	if ctrl.Mode() != api.ModeLocal {
		ctrl.SwitchMode(api.ModeLocal)
		return
	}
	ctrl.PlaylistLoaded(api.ModeLocal)
}

// reportError hands authorization failures to the controller, which owns
// that policy, and shows everything else
func (m *Model) reportError(source api.Mode, op string, err error) {
	m.svc.Logger.Error("request failed", "op", op, "err", err)
	if playerrors.IsAuthError(err) {
		m.svc.Bus.Publish(api.Event{
			Type:    api.EventError,
			Source:  source,
			Payload: api.ErrorEvent{Op: op, Err: err},
		})
		return
	}
	m.svc.Display.Alert(op + " failed: " + err.Error())
}

func (m Model) fetchPlaylists() tea.Cmd {
	mgr, ctx := m.svc.Playlists, m.ctx
	return func() tea.Msg {
		list, err := mgr.UserPlaylists(ctx, false)
		return playlistsMsg{list: list, err: err}
	}
}

func (m Model) loadPlaylist(id, name string) tea.Cmd {
	mgr, ctx := m.svc.Playlists, m.ctx
	if mgr == nil {
		return nil
	}
	return func() tea.Msg {
		_, err := mgr.Load(ctx, id, name)
		return playlistLoadedMsg{name: name, err: err}
	}
}

func (m Model) loadFiles(paths []string) tea.Cmd {
	lib, ctx := m.svc.Library, m.ctx
	if lib == nil {
		return nil
	}
	return func() tea.Msg {
		tracks, err := lib.Load(ctx, paths...)
		return filesLoadedMsg{added: len(tracks), err: err}
	}
}

// sync copies controller-facing state into the components
func (m *Model) sync() {
	d := m.svc.Display
	if d.Revision != m.tracksRev {
		m.tracksRev = d.Revision
		m.trackList.SetItems(d.Tracks)
		m.turntable.Markers = len(d.Tracks)
	}
	if d.Highlight != m.trackList.Playing {
		m.trackList.SetPlaying(d.Highlight)
	}
	m.turntable.ActiveMarker = d.Highlight
	m.turntable.Label = ""
	if d.Artwork != nil {
		m.turntable.Label = d.Artwork.Album
		if m.turntable.Label == "" {
			m.turntable.Label = d.Artwork.Name
		}
	}

	snap := m.svc.Arm.Snapshot()
	m.turntable.ArmAngle = snap.Angle
	m.turntable.OnRecord = snap.OnRecord
	m.turntable.Spinning = d.Spinning

	m.playerView.Track = d.Track
	m.playerView.Playing = d.Playing
	m.playerView.Volume = m.svc.Controller.Volume()
	m.playerView.Mode = m.svc.Controller.Mode()
	m.playerView.ProgressBar.SetProgress(d.Percent, d.PositionMs, d.DurationMs)
}

func (m *Model) panelWidth() int {
	return max(m.width-m.turntable.Cols-2, 30)
}

// resize lays the panels out for the current window
func (m *Model) resize() {
	w := m.panelWidth()
	m.playerView.SetWidth(w)
	m.trackList.Width = w
	m.trackList.Height = max(m.turntable.Rows-9, 3)
	m.playlistView.Width = w
	m.playlistView.Height = m.turntable.Rows
	m.playlistView.Filter.Width = w
	m.libraryView.Width = w
	m.bars.Width = m.width
	m.help.Width = m.width
}

// View renders the UI
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")

	var panel string
	switch m.active {
	case ViewPlaylists:
		panel = m.playlistView.View()
	case ViewFiles:
		panel = m.libraryView.View()
	default:
		panel = m.playerView.View() + "\n\n" + m.trackList.View()
	}
	panel = lipgloss.NewStyle().Width(m.panelWidth()).MaxHeight(m.turntable.Rows).Render(panel)
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.turntable.View(), "  ", panel))
	sb.WriteString("\n")

	sb.WriteString(m.bars.View(m.svc.Visualizer.Values()))
	sb.WriteString("\n")

	for _, a := range m.svc.Display.Alerts() {
		sb.WriteString(m.alertStyle.Render("! " + a.Message))
		sb.WriteString("\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

// renderHeader renders the title and source tabs on a single line
func (m Model) renderHeader() string {
	current := m.svc.Controller.Mode()
	tab := func(mode api.Mode, label string) string {
		if mode == current {
			return m.activeTab.Render(label)
		}
		return m.tabStyle.Render(label)
	}

	parts := []string{
		m.headerStyle.Render("◉ turntable"),
		" ",
		tab(api.ModeRemote, "spotify"),
		tab(api.ModeLocal, "local"),
	}
	if m.loading != "" {
		parts = append(parts, m.dimStyle.Render("  loading "+m.loading+"…"))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
}

// Loop delivers callbacks onto the program's event loop. Callbacks sent
// before the program starts are held until it does.
type Loop struct {
	mu      sync.Mutex
	program *tea.Program
	pending []func()
}

// NewLoop creates a loop with no program attached
func NewLoop() *Loop {
	return &Loop{}
}

// Dispatch queues fn to run inside Update
func (l *Loop) Dispatch(fn func()) {
	l.mu.Lock()
	p := l.program
	if p == nil {
		l.pending = append(l.pending, fn)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	p.Send(dispatchMsg{fn: fn})
}

func (l *Loop) attach(p *tea.Program) {
	l.mu.Lock()
	l.program = p
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, fn := range pending {
		go p.Send(dispatchMsg{fn: fn})
	}
}

// Run starts the bubbletea program and blocks until it exits
func Run(ctx context.Context, loop *Loop, svc Services, settings Settings) error {
	model := NewModel(ctx, svc, settings)
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	loop.attach(p)

	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
