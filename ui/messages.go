package ui

import (
	"time"

	"github.com/stillpointfm/stillpoint/internal/caption"
	"github.com/stillpointfm/stillpoint/internal/catalog"
)

// Messages for Bubble Tea communication between the player and the engine.

// tickMsg drives the position/caption refresh loop.
type tickMsg time.Time

// captionsLoadedMsg carries the caption index resolved for a track.
type captionsLoadedMsg struct {
	trackID string
	index   *caption.Index
	err     error
}

// shareCopiedMsg indicates the share link landed on the clipboard.
type shareCopiedMsg struct {
	link string
	err  error
}

// catalogReloadedMsg carries a fresh catalog snapshot from the watcher.
type catalogReloadedMsg struct {
	cat *catalog.Catalog
}

// statusTimeoutMsg clears a transient status message.
type statusTimeoutMsg struct{}

// errMsg wraps an error for display.
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }
