// Package ui provides the terminal interface for the stillpoint player.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/stillpointfm/stillpoint/internal/analytics"
	"github.com/stillpointfm/stillpoint/internal/caption"
	"github.com/stillpointfm/stillpoint/internal/catalog"
	"github.com/stillpointfm/stillpoint/internal/coordinator"
	"github.com/stillpointfm/stillpoint/internal/mediasession"
)

const (
	tickInterval         = 250 * time.Millisecond
	seekStep             = 15 * time.Second
	volumeStep           = 0.1
	statusMessageTimeout = 3 * time.Second
)

// Deps are the engine collaborators the UI drives. Bridge, Captions, Watcher
// and Sink may be nil.
type Deps struct {
	Coordinator *coordinator.Coordinator
	Bridge      *mediasession.Bridge
	Captions    *caption.Loader
	Watcher     *catalog.Watcher
	Sink        coordinator.Sink
}

// NewProgram returns a new Tea program running the player.
func NewProgram(cfg Config, deps Deps) *tea.Program {
	log.Debug("Starting stillpoint", "catalog", cfg.CatalogPath, "captions", cfg.CaptionDir)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, deps), opts...)
}

// state is the top-level application state.
type state int

const (
	stateWelcome state = iota
	statePlayer
	stateDrawer
)

func (s state) String() string {
	return map[state]string{
		stateWelcome: "showing welcome",
		statePlayer:  "showing player",
		stateDrawer:  "showing track drawer",
	}[s]
}

type model struct {
	cfg   Config
	deps  Deps
	state state

	width  int
	height int

	snap coordinator.Snapshot

	// Captions for the active track.
	captions     *caption.Index
	captionTrack string

	player playerModel
	drawer drawerModel

	statusMessage string
	showHelp      bool
	fatalErr      error
}

func newModel(cfg Config, deps Deps) tea.Model {
	m := model{
		cfg:    cfg,
		deps:   deps,
		state:  statePlayer,
		snap:   deps.Coordinator.Snapshot(),
		player: newPlayerModel(),
		drawer: newDrawerModel(deps.Coordinator.Catalog()),
	}
	if cfg.ShowWelcome {
		m.state = stateWelcome
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick()}
	if m.deps.Captions != nil {
		cmds = append(cmds, loadCaptions(m.deps.Captions, m.snap.TrackID))
	}
	if m.deps.Watcher != nil {
		cmds = append(cmds, waitForCatalog(m.deps.Watcher))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.state {
		case stateWelcome:
			return m.dismissWelcome()
		case stateDrawer:
			return m.updateDrawerKeys(msg)
		}
		return m.updatePlayerKeys(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.player.setSize(msg.Width, msg.Height)
		m.drawer.setSize(msg.Width, msg.Height)

	case tickMsg:
		m.snap = m.deps.Coordinator.Snapshot()
		if m.deps.Bridge != nil {
			m.deps.Bridge.Update(m.snap)
		}
		cmds = append(cmds, tick())
		if m.deps.Captions != nil && m.snap.TrackID != m.captionTrack {
			m.captionTrack = m.snap.TrackID
			cmds = append(cmds, loadCaptions(m.deps.Captions, m.snap.TrackID))
		}

	case captionsLoadedMsg:
		if msg.err != nil {
			log.Warn("Caption load failed", "track_id", msg.trackID, "err", msg.err)
		} else if msg.trackID == m.snap.TrackID {
			m.captions = msg.index
		}

	case catalogReloadedMsg:
		m.drawer.setCatalog(msg.cat)
		cmds = append(cmds, waitForCatalog(m.deps.Watcher))

	case shareCopiedMsg:
		if msg.err != nil {
			m.statusMessage = "Copy failed"
		} else {
			m.statusMessage = "Link copied"
			if m.deps.Sink != nil {
				m.deps.Sink.Emit(analytics.EventShare, map[string]any{"link": msg.link})
			}
		}
		cmds = append(cmds, clearStatus())

	case statusTimeoutMsg:
		m.statusMessage = ""

	case errMsg:
		m.fatalErr = msg.err
	}

	return m, tea.Batch(cmds...)
}

func (m model) dismissWelcome() (tea.Model, tea.Cmd) {
	m.state = statePlayer
	if err := markWelcomeSeen(m.cfg.DataDir); err != nil {
		log.Warn("Could not persist welcome flag", "err", err)
	}
	return m, nil
}

func (m model) updatePlayerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.deps.Coordinator

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "ctrl+z":
		return m, tea.Suspend

	case " ":
		if m.snap.IsPlaying {
			c.Pause()
		} else {
			c.Play()
		}

	case "n":
		c.Next()

	case "p":
		c.Previous()

	case "left":
		c.Seek(m.snap.Position - seekStep)

	case "right":
		c.Seek(m.snap.Position + seekStep)

	case "v":
		c.SetVolume(m.snap.Volume - volumeStep)

	case "V":
		c.SetVolume(m.snap.Volume + volumeStep)

	case "b":
		c.SetMusicVolume(m.snap.MusicVolume - volumeStep)

	case "B":
		c.SetMusicVolume(m.snap.MusicVolume + volumeStep)

	case "m":
		m.toggleMusic()

	case "c":
		c.ToggleCaptions()

	case "s":
		return m, copyShareLink(m.cfg.ShareBaseURL, m.snap.TrackID)

	case "t", "tab":
		m.state = stateDrawer
		m.drawer.open(m.snap.TrackIndex)

	case "w":
		m.state = stateWelcome

	case "?":
		m.showHelp = !m.showHelp
	}

	m.snap = c.Snapshot()
	return m, nil
}

func (m model) updateDrawerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	done, index := m.drawer.update(msg)
	if !done {
		return m, nil
	}
	m.state = statePlayer
	if index >= 0 {
		m.deps.Coordinator.SelectTrack(index)
		m.snap = m.deps.Coordinator.Snapshot()
	}
	return m, nil
}

// toggleMusic stops the bed when enabled, otherwise brings back the previous
// selection, falling back to the first catalog entry for a fresh session.
func (m model) toggleMusic() {
	c := m.deps.Coordinator
	switch {
	case m.snap.MusicEnabled:
		c.StopMusic()
	case m.snap.LastMusicID != "":
		c.ResumeMusic()
	default:
		music := c.Catalog().Music()
		if len(music) > 0 {
			c.SelectMusic(music[0].ID)
		}
	}
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}

	switch m.state {
	case stateWelcome:
		return m.welcomeView()
	case stateDrawer:
		return m.drawer.view()
	default:
		return m.player.view(m.snap, m.activeCaption(), m.statusMessage, m.showHelp)
	}
}

// activeCaption resolves the caption under the playhead, if captions are on.
func (m model) activeCaption() string {
	if !m.snap.CaptionsEnabled || m.captions == nil {
		return ""
	}
	c, ok := m.captions.ActiveAt(m.snap.Position)
	if !ok {
		return ""
	}
	return c.Text
}

func errorView(err error, fatal bool) string {
	exitMsg := "press any key to "
	if fatal {
		exitMsg += "exit"
	} else {
		exitMsg += "return"
	}
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle.Render("ERROR"),
		err,
		subtleStyle.Render(exitMsg),
	)
	return "\n" + indent(s, 3)
}

// COMMANDS

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func loadCaptions(loader *caption.Loader, trackID string) tea.Cmd {
	return func() tea.Msg {
		index, err := loader.Load(trackID)
		return captionsLoadedMsg{trackID: trackID, index: index, err: err}
	}
}

func waitForCatalog(w *catalog.Watcher) tea.Cmd {
	return func() tea.Msg {
		cat, ok := <-w.Updates()
		if !ok {
			return nil
		}
		return catalogReloadedMsg{cat: cat}
	}
}

func copyShareLink(base, trackID string) tea.Cmd {
	return func() tea.Msg {
		link := strings.TrimSuffix(base, "/") + "/" + trackID
		err := clipboard.WriteAll(link)
		return shareCopiedMsg{link: link, err: err}
	}
}

func clearStatus() tea.Cmd {
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusTimeoutMsg{}
	})
}

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}
