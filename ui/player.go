package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/wordwrap"

	"github.com/stillpointfm/stillpoint/internal/coordinator"
	"github.com/stillpointfm/stillpoint/internal/playback"
)

const (
	minPlayerWidth = 20
	maxScrubWidth  = 64
)

type playerModel struct {
	progress progress.Model
	width    int
	height   int
}

func newPlayerModel() playerModel {
	p := progress.New(progress.WithScaledGradient("#1C8760", "#89F0CB"))
	p.ShowPercentage = false
	return playerModel{progress: p}
}

func (p *playerModel) setSize(w, h int) {
	p.width = w
	p.height = h
	sw := w - 14
	if sw > maxScrubWidth {
		sw = maxScrubWidth
	}
	if sw < minPlayerWidth {
		sw = minPlayerWidth
	}
	p.progress.Width = sw
}

func (p playerModel) view(snap coordinator.Snapshot, activeCaption, statusMessage string, showHelp bool) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(center(titleStyle.Render(snap.TrackTitle), p.width))
	b.WriteString("\n")
	b.WriteString(center(subtleStyle.Render(stateLine(snap)), p.width))
	b.WriteString("\n\n")

	b.WriteString(center(p.scrubber(snap), p.width))
	b.WriteString("\n\n")

	b.WriteString(p.captionView(activeCaption))
	b.WriteString("\n")

	if showHelp {
		b.WriteString(helpView())
		b.WriteString("\n")
	}

	b.WriteString(p.statusBar(snap, statusMessage))
	return b.String()
}

// stateLine is the one-line transport summary under the title.
func stateLine(snap coordinator.Snapshot) string {
	var parts []string

	switch {
	case snap.Err != nil:
		parts = append(parts, "playback failed, press space to retry")
	case snap.Blocked:
		parts = append(parts, "press space to allow audio")
	case snap.IsPlaying:
		parts = append(parts, "playing")
	case snap.VoiceStatus == playback.StatusLoading:
		parts = append(parts, "loading")
	default:
		parts = append(parts, "paused")
	}

	if snap.MusicEnabled && snap.ActiveMusicID != "" {
		parts = append(parts, musicBadgeStyle.Render("♪ "+snap.ActiveMusicID))
	}
	return strings.Join(parts, "  ")
}

func (p playerModel) scrubber(snap coordinator.Snapshot) string {
	var percent float64
	if snap.Duration > 0 {
		percent = float64(snap.Position) / float64(snap.Duration)
	}
	if percent > 1 {
		percent = 1
	}

	return fmt.Sprintf("%s %s %s",
		timecodeStyle.Render(formatClock(snap.Position)),
		p.progress.ViewAs(percent),
		timecodeStyle.Render(formatClock(snap.Duration)),
	)
}

// captionView renders the active caption wrapped and centered, holding two
// lines of vertical space so the layout doesn't jump between captions.
func (p playerModel) captionView(text string) string {
	width := p.width
	if width <= 0 {
		width = 80
	}
	wrapWidth := width * 3 / 4
	if wrapWidth < minPlayerWidth {
		wrapWidth = width
	}

	lines := make([]string, 0, 3)
	if text != "" {
		wrapped := wordwrap.String(text, wrapWidth)
		for _, line := range strings.Split(wrapped, "\n") {
			lines = append(lines, center(captionStyle.Render(line), width))
		}
	}
	for len(lines) < 2 {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (p playerModel) statusBar(snap coordinator.Snapshot, statusMessage string) string {
	help := statusBarHelpStyle(" ? Help ")

	var note string
	if statusMessage != "" {
		note = statusBarMessageStyle(" " + statusMessage + " ")
	} else {
		note = statusBarNoteStyle(fmt.Sprintf(" vol %d%%  music %d%% ",
			int(snap.Volume*100+0.5), int(snap.MusicVolume*100+0.5)))
	}

	padding := p.width - ansi.PrintableRuneWidth(note) - ansi.PrintableRuneWidth(help)
	if padding < 0 {
		padding = 0
	}
	return note + statusBarNoteStyle(strings.Repeat(" ", padding)) + help
}

func helpView() string {
	rows := []string{
		"space    play/pause            t/tab  track drawer",
		"n/p      next/previous track   s      copy share link",
		"←/→      seek ±15s             c      captions on/off",
		"v/V      volume down/up        m      music on/off",
		"b/B      music volume          q      quit",
	}
	var b strings.Builder
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(helpViewStyle("  " + r))
		b.WriteString("\n")
	}
	return b.String()
}

// formatClock renders a playhead as m:ss, or h:mm:ss past the hour.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// center pads a rendered line to the given width. Styled sequences are
// measured by their printable width.
func center(s string, width int) string {
	w := ansi.PrintableRuneWidth(s)
	if width <= w {
		return s
	}
	return strings.Repeat(" ", (width-w)/2) + s
}
