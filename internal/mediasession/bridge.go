// Package mediasession bridges the coordinator to the platform's now-playing
// surface: it pushes metadata and transport state outward and maps
// system-originated transport commands back into coordinator calls.
package mediasession

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/stillpointfm/stillpoint/internal/coordinator"
)

// Command is a system-originated transport command.
type Command int

const (
	CommandPlay Command = iota
	CommandPause
	CommandNext
	CommandPrevious
	CommandSeekTo
	CommandSeekBackward
	CommandSeekForward
)

// String returns the platform command name.
func (c Command) String() string {
	switch c {
	case CommandPlay:
		return "play"
	case CommandPause:
		return "pause"
	case CommandNext:
		return "nexttrack"
	case CommandPrevious:
		return "previoustrack"
	case CommandSeekTo:
		return "seekto"
	case CommandSeekBackward:
		return "seekbackward"
	case CommandSeekForward:
		return "seekforward"
	default:
		return "unknown"
	}
}

// Session is the platform now-playing integration. Implementations push
// metadata to lock screens, hardware keys, desktop applets. Absence is fine;
// the bridge degrades to nothing.
type Session interface {
	SetMetadata(title, artist string)
	SetPlaybackState(playing bool)
	SetPosition(pos, duration time.Duration)
	OnCommand(fn func(cmd Command, pos time.Duration))
	Close() error
}

// Transport is what the bridge needs from the coordinator.
type Transport interface {
	Play()
	Pause()
	Next()
	Previous()
	Seek(pos time.Duration)
	Snapshot() coordinator.Snapshot
}

// SkipInterval is the seek distance for seekbackward/seekforward commands.
const SkipInterval = 15 * time.Second

// Bridge pushes coordinator state to a Session with deduplication and relays
// session commands back. Safe for concurrent Update calls.
type Bridge struct {
	session   Session
	transport Transport

	mu          sync.Mutex
	lastTitle   string
	lastPlaying bool
	havePlaying bool
	lastPos     time.Duration
	lastDur     time.Duration
	havePos     bool
}

// New wires a bridge between session and transport. A nil session yields an
// inert bridge. Command relaying is registered immediately.
func New(session Session, transport Transport) *Bridge {
	b := &Bridge{session: session, transport: transport}
	if session != nil {
		session.OnCommand(b.handleCommand)
	}
	return b
}

// Update pushes the snapshot's metadata, play state, and position to the
// session. Unchanged values are not re-pushed; positions are deduplicated at
// whole-second granularity so the tick loop doesn't spam the platform.
func (b *Bridge) Update(s coordinator.Snapshot) {
	if b.session == nil {
		return
	}

	b.mu.Lock()
	pushTitle := s.TrackTitle != b.lastTitle
	pushPlaying := !b.havePlaying || s.IsPlaying != b.lastPlaying
	pos := s.Position.Truncate(time.Second)
	pushPos := !b.havePos || pos != b.lastPos || s.Duration != b.lastDur
	b.lastTitle = s.TrackTitle
	b.lastPlaying = s.IsPlaying
	b.havePlaying = true
	b.lastPos = pos
	b.lastDur = s.Duration
	b.havePos = true
	b.mu.Unlock()

	if pushTitle {
		b.session.SetMetadata(s.TrackTitle, "Stillpoint")
	}
	if pushPlaying {
		b.session.SetPlaybackState(s.IsPlaying)
	}
	if pushPos {
		b.session.SetPosition(pos, s.Duration)
	}
}

// Close shuts the session down.
func (b *Bridge) Close() error {
	if b.session == nil {
		return nil
	}
	return b.session.Close()
}

func (b *Bridge) handleCommand(cmd Command, pos time.Duration) {
	snap := b.transport.Snapshot()
	log.Debug("Media session command", "command", cmd)

	switch cmd {
	case CommandPlay:
		if snap.IsPlaying {
			return
		}
		b.transport.Play()
	case CommandPause:
		if !snap.IsPlaying {
			return
		}
		b.transport.Pause()
	case CommandNext:
		b.transport.Next()
	case CommandPrevious:
		b.transport.Previous()
	case CommandSeekTo:
		b.transport.Seek(pos)
	case CommandSeekBackward:
		b.transport.Seek(snap.Position - SkipInterval)
	case CommandSeekForward:
		b.transport.Seek(snap.Position + SkipInterval)
	}
}

// NopSession is the production placeholder session: platform now-playing
// integration varies per OS, so by default commands never arrive and pushes
// go to the debug log.
type NopSession struct{}

func (NopSession) SetMetadata(title, artist string) {
	log.Debug("Now playing", "title", title, "artist", artist)
}

func (NopSession) SetPlaybackState(playing bool) {
	log.Debug("Playback state", "playing", playing)
}

func (NopSession) SetPosition(pos, duration time.Duration) {}

func (NopSession) OnCommand(fn func(cmd Command, pos time.Duration)) {}

func (NopSession) Close() error { return nil }

var _ Session = NopSession{}
