package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stillpointfm/stillpoint/internal/catalog"
	"github.com/stillpointfm/stillpoint/internal/coordinator"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{-3 * time.Second, "0:00"},
		{59 * time.Second, "0:59"},
		{time.Minute, "1:00"},
		{30*time.Minute + 47*time.Second, "30:47"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := formatClock(tt.d); got != tt.want {
			t.Errorf("formatClock(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestCenter(t *testing.T) {
	if got := center("abcd", 10); got != "   abcd" {
		t.Errorf("center = %q", got)
	}
	if got := center("abcd", 3); got != "abcd" {
		t.Errorf("center on narrow width = %q, want unchanged", got)
	}
}

func TestStateLine(t *testing.T) {
	if got := stateLine(coordinator.Snapshot{IsPlaying: true}); !strings.Contains(got, "playing") {
		t.Errorf("playing state line = %q", got)
	}
	if got := stateLine(coordinator.Snapshot{Blocked: true}); !strings.Contains(got, "allow audio") {
		t.Errorf("blocked state line = %q", got)
	}
	got := stateLine(coordinator.Snapshot{MusicEnabled: true, ActiveMusicID: "rain"})
	if !strings.Contains(got, "rain") {
		t.Errorf("music badge missing: %q", got)
	}
}

func TestCaptionViewHoldsVerticalSpace(t *testing.T) {
	p := newPlayerModel()
	p.setSize(80, 24)

	empty := p.captionView("")
	if got := strings.Count(empty, "\n"); got != 1 {
		t.Errorf("empty caption view has %d newlines, want 1 (two lines)", got)
	}
	if full := p.captionView("be still and know"); !strings.Contains(full, "be still and know") {
		t.Errorf("caption text missing from view: %q", full)
	}
}

func drawerCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Track{
		{ID: "a", Title: "The Pathless Path", Duration: 100 * time.Second, MediaPath: "a.wav"},
		{ID: "b", Title: "Beyond the Self", Duration: 200 * time.Second, MediaPath: "b.wav"},
		{ID: "c", Title: "Cosmic Consciousness", Duration: 300 * time.Second, MediaPath: "c.wav"},
	}, nil)
}

func key(s string) tea.KeyMsg {
	if len(s) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{}
}

func TestDrawerSelection(t *testing.T) {
	d := newDrawerModel(drawerCatalog())
	d.open(1)

	done, sel := d.update(key("enter"))
	if !done || sel != 1 {
		t.Errorf("enter on active row = (%v, %d), want (true, 1)", done, sel)
	}
}

func TestDrawerCursorMovement(t *testing.T) {
	d := newDrawerModel(drawerCatalog())
	d.open(0)

	d.update(key("down"))
	d.update(key("down"))
	d.update(key("down")) // clamped at last row
	done, sel := d.update(key("enter"))
	if !done || sel != 2 {
		t.Errorf("selection after cursor movement = (%v, %d), want (true, 2)", done, sel)
	}
}

func TestDrawerFuzzyFilter(t *testing.T) {
	d := newDrawerModel(drawerCatalog())
	d.open(0)

	d.update(key("/"))
	for _, r := range "cosmic" {
		d.update(key(string(r)))
	}
	d.update(key("enter")) // leave filter entry
	done, sel := d.update(key("enter"))
	if !done || sel != 2 {
		t.Errorf("filtered selection = (%v, %d), want (true, 2)", done, sel)
	}
}

func TestDrawerFilterEscClears(t *testing.T) {
	d := newDrawerModel(drawerCatalog())
	d.open(0)

	d.update(key("/"))
	d.update(key("z"))
	if len(d.visible) != 0 {
		t.Fatalf("filter %q should match nothing, visible=%v", d.filter, d.visible)
	}
	d.update(key("esc"))
	if len(d.visible) != 3 {
		t.Errorf("esc should clear the filter, visible=%v", d.visible)
	}
}

func TestDrawerDismiss(t *testing.T) {
	d := newDrawerModel(drawerCatalog())
	d.open(0)

	done, sel := d.update(key("esc"))
	if !done || sel != -1 {
		t.Errorf("esc = (%v, %d), want (true, -1)", done, sel)
	}
}

func TestWelcomeFlagRoundTrip(t *testing.T) {
	dir := t.TempDir()

	if WelcomeSeen(dir) {
		t.Fatal("flag set before first dismissal")
	}
	if err := markWelcomeSeen(dir); err != nil {
		t.Fatalf("markWelcomeSeen: %v", err)
	}
	if !WelcomeSeen(dir) {
		t.Error("flag not visible after dismissal")
	}
}

func TestWelcomeFlagEmptyDir(t *testing.T) {
	if WelcomeSeen("") {
		t.Error("empty data dir should never report seen")
	}
	if err := markWelcomeSeen(""); err != nil {
		t.Errorf("marking with empty data dir should be a no-op, got %v", err)
	}
}
