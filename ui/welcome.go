package ui

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	te "github.com/muesli/termenv"
)

// welcomeSeenFile is the only persisted state in the whole application.
const welcomeSeenFile = "welcome_seen"

const welcomeText = `# Stillpoint

Narrated talks with an optional ambient music bed underneath.

Press **space** to begin listening. Background music follows the voice
track: it pauses when you pause and switches when a talk carries its own
ambience.

- ` + "`t`" + ` opens the track drawer
- ` + "`c`" + ` shows time-synced captions
- ` + "`m`" + ` toggles the music bed
- ` + "`?`" + ` lists every key

*Press any key to continue.*
`

// WelcomeSeen reports whether the welcome screen was dismissed in a previous
// session.
func WelcomeSeen(dataDir string) bool {
	if dataDir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(dataDir, welcomeSeenFile))
	return err == nil
}

func markWelcomeSeen(dataDir string) error {
	if dataDir == "" {
		return nil
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dataDir, welcomeSeenFile), []byte{}, 0o644)
}

func (m model) welcomeView() string {
	width := m.width
	if width <= 0 || width > 80 {
		width = 80
	}

	style := m.cfg.GlamourStyle
	if style == "" || style == styles.AutoStyle {
		if te.HasDarkBackground() {
			style = styles.DarkStyle
		} else {
			style = styles.LightStyle
		}
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		log.Debug("Glamour renderer unavailable", "err", err)
		return welcomeText
	}
	out, err := r.Render(welcomeText)
	if err != nil {
		return welcomeText
	}
	return out
}
