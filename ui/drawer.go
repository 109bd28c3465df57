package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/stillpointfm/stillpoint/internal/catalog"
)

// drawerModel is the track selection drawer: a filterable list over the
// catalog.
type drawerModel struct {
	cat       *catalog.Catalog
	visible   []int // catalog indexes currently shown
	cursor    int
	filter    string
	filtering bool
	width     int
	height    int
}

func newDrawerModel(cat *catalog.Catalog) drawerModel {
	d := drawerModel{cat: cat}
	d.refilter()
	return d
}

func (d *drawerModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d *drawerModel) setCatalog(cat *catalog.Catalog) {
	d.cat = cat
	d.refilter()
}

// open resets the drawer with the cursor on the active track.
func (d *drawerModel) open(activeIndex int) {
	d.filter = ""
	d.filtering = false
	d.refilter()
	d.cursor = 0
	for i, ci := range d.visible {
		if ci == activeIndex {
			d.cursor = i
			break
		}
	}
}

// update handles one key. It reports done=true when the drawer should close,
// with the selected catalog index or -1 for a dismissal.
func (d *drawerModel) update(msg tea.KeyMsg) (done bool, selected int) {
	key := msg.String()

	if d.filtering {
		switch key {
		case "esc":
			d.filtering = false
			d.filter = ""
			d.refilter()
		case "enter":
			d.filtering = false
		case "backspace":
			if d.filter != "" {
				d.filter = d.filter[:len(d.filter)-1]
				d.refilter()
			}
		default:
			if msg.Type == tea.KeyRunes {
				d.filter += string(msg.Runes)
				d.refilter()
			}
		}
		return false, -1
	}

	switch key {
	case "esc", "t", "tab", "q":
		return true, -1
	case "up", "k":
		if d.cursor > 0 {
			d.cursor--
		}
	case "down", "j":
		if d.cursor < len(d.visible)-1 {
			d.cursor++
		}
	case "/":
		d.filtering = true
	case "enter":
		if len(d.visible) > 0 {
			return true, d.visible[d.cursor]
		}
		return true, -1
	}
	return false, -1
}

// refilter recomputes the visible rows from the current filter.
func (d *drawerModel) refilter() {
	titles := d.cat.Titles()
	if d.filter == "" {
		d.visible = make([]int, len(titles))
		for i := range titles {
			d.visible[i] = i
		}
	} else {
		matches := fuzzy.Find(d.filter, titles)
		d.visible = make([]int, len(matches))
		for i, match := range matches {
			d.visible[i] = match.Index
		}
	}
	if d.cursor >= len(d.visible) {
		d.cursor = 0
	}
}

func (d drawerModel) view() string {
	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(titleStyle.Render("Tracks"))
	b.WriteString("\n\n")

	if d.filtering || d.filter != "" {
		b.WriteString(fmt.Sprintf("  /%s\n\n", d.filter))
	}

	if len(d.visible) == 0 {
		b.WriteString(subtleStyle.Render("  no matching tracks"))
		b.WriteString("\n")
	}

	titleWidth := d.width - 14
	if titleWidth < minPlayerWidth {
		titleWidth = minPlayerWidth
	}

	for i, ci := range d.visible {
		track, err := d.cat.Track(ci)
		if err != nil {
			continue
		}

		title := runewidth.Truncate(track.Title, titleWidth, "…")
		row := fmt.Sprintf("%s  %s", runewidth.FillRight(title, titleWidth), formatClock(track.Duration))
		if i == d.cursor {
			b.WriteString("  " + selectedItemStyle.Render("> "+row))
		} else {
			b.WriteString("    " + row)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(subtleStyle.Render("  enter play · / filter · esc close"))
	b.WriteString("\n")
	return b.String()
}
