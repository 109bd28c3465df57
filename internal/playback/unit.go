// Package playback wraps one media source and its platform element behind a
// small command surface. A Unit owns exactly one element in one role (voice
// or music), tracks its lifecycle status, and republishes element events as
// discrete unit events for its single subscriber.
package playback

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/stillpointfm/stillpoint/internal/audio"
)

// Status is the lifecycle state of a Unit's source.
type Status int

const (
	// StatusEmpty means no source has been assigned.
	StatusEmpty Status = iota
	// StatusLoading means a source is assigned and loading.
	StatusLoading
	// StatusReady means the source can be played.
	StatusReady
	// StatusPlaying means the source is playing.
	StatusPlaying
	// StatusPaused means the source is paused.
	StatusPaused
	// StatusEnded means the source played to its natural end.
	StatusEnded
	// StatusErrored means the source failed to load or play.
	StatusErrored
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Loaded reports whether the unit holds a playable source.
func (s Status) Loaded() bool {
	switch s {
	case StatusReady, StatusPlaying, StatusPaused, StatusEnded:
		return true
	default:
		return false
	}
}

// Outcome classifies the result of a play request.
type Outcome int

const (
	// Started means playback began.
	Started Outcome = iota
	// Pending means the source is still loading; the request is queued
	// and will resolve through the unit's event stream.
	Pending
	// Blocked means the platform refused autoplay; retry after a user
	// gesture.
	Blocked
	// Failed means a hard failure (missing source, decode error).
	Failed
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case Started:
		return "started"
	case Pending:
		return "pending"
	case Blocked:
		return "blocked"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// PlayResult is the resolution of a play request. Callers branch on Outcome;
// Reason and Err are set for Failed.
type PlayResult struct {
	Outcome Outcome
	Reason  audio.FailReason
	Err     error
}

// EventKind identifies a unit lifecycle event.
type EventKind int

const (
	// EventReady fires when the source becomes playable.
	EventReady EventKind = iota
	// EventPlaying fires when playback starts or resumes.
	EventPlaying
	// EventPaused fires when playback pauses.
	EventPaused
	// EventEnded fires on natural completion.
	EventEnded
	// EventBlocked fires when a queued play resolved but the platform
	// refused autoplay.
	EventBlocked
	// EventErrored fires on a hard load or play failure.
	EventErrored
)

// Event is one unit lifecycle notification. Token identifies the load the
// event belongs to, so a subscriber can discard events from a superseded
// source.
type Event struct {
	Kind     EventKind
	Token    uint64
	Duration time.Duration
	Reason   audio.FailReason
	Err      error
}

// Unit manages exactly one media source. All commands are safe to call from
// the owning coordinator's goroutine plus the unit's own event pump; a Unit
// is not meant for concurrent command issuance from multiple callers.
type Unit struct {
	role string
	el   audio.Element

	mu          sync.Mutex
	status      Status
	path        string
	token       uint64
	duration    time.Duration
	position    time.Duration // optimistic, reconciled against the element
	volume      float64
	pendingPlay bool
	retried     bool
	subscriber  func(Event)

	done      chan struct{}
	closeOnce sync.Once
}

// NewUnit creates a unit in the given role on ctx. Role is used only for
// logging.
func NewUnit(role string, ctx audio.Context) (*Unit, error) {
	el, err := ctx.NewElement()
	if err != nil {
		return nil, err
	}
	u := &Unit{
		role:   role,
		el:     el,
		status: StatusEmpty,
		volume: 1.0,
		done:   make(chan struct{}),
	}
	go u.pump()
	return u, nil
}

// Subscribe registers the unit's single event subscriber. Must be called
// before the first Load; later calls replace the subscriber.
func (u *Unit) Subscribe(fn func(Event)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.subscriber = fn
}

// Load assigns a new source. A Load while an earlier load is in flight
// supersedes it: the earlier load's completion is discarded. Loading the
// source already held in a playable state is a no-op, so redundant track
// selections never trigger a reload.
func (u *Unit) Load(path string) {
	u.mu.Lock()
	if u.path == path && u.status.Loaded() {
		u.mu.Unlock()
		log.Debug("Load skipped, source already loaded", "role", u.role, "path", path)
		return
	}

	u.token++
	u.path = path
	u.status = StatusLoading
	u.position = 0
	u.duration = 0
	u.pendingPlay = false
	u.retried = false
	u.mu.Unlock()

	log.Debug("Loading source", "role", u.role, "path", path)
	u.el.Load(path)
}

// Play requests playback. While the source is loading the request is queued
// (not dropped) and resolves through the event stream once the source is
// ready. The caller can distinguish a Blocked resolution, retryable after a
// user gesture, from a hard failure.
func (u *Unit) Play() PlayResult {
	u.mu.Lock()
	switch u.status {
	case StatusEmpty:
		u.mu.Unlock()
		return PlayResult{Outcome: Failed, Reason: audio.FailUnknown}
	case StatusErrored:
		u.mu.Unlock()
		return PlayResult{Outcome: Failed, Reason: audio.FailUnknown}
	case StatusPlaying:
		u.mu.Unlock()
		return PlayResult{Outcome: Started}
	case StatusLoading:
		u.pendingPlay = true
		u.mu.Unlock()
		log.Debug("Play queued until source is ready", "role", u.role)
		return PlayResult{Outcome: Pending}
	}
	u.mu.Unlock()

	return u.playNow()
}

func (u *Unit) playNow() PlayResult {
	err := u.el.Play()
	switch {
	case err == nil:
		return PlayResult{Outcome: Started}
	case err == audio.ErrBlocked:
		log.Debug("Playback blocked", "role", u.role)
		return PlayResult{Outcome: Blocked, Reason: audio.FailBlocked}
	default:
		log.Warn("Playback failed", "role", u.role, "err", err)
		return PlayResult{Outcome: Failed, Reason: audio.FailUnknown, Err: err}
	}
}

// Pause stops playback. Always succeeds, and cancels any queued play so a
// pause interleaved with a pending play leaves the unit paused.
func (u *Unit) Pause() {
	u.mu.Lock()
	u.pendingPlay = false
	if u.status == StatusPlaying {
		u.status = StatusPaused
	}
	u.mu.Unlock()

	u.el.Pause()
}

// Seek moves the playhead, clamped to the known duration. The position is
// updated optimistically and reconciled by the element's own reports.
func (u *Unit) Seek(pos time.Duration) {
	u.mu.Lock()
	if pos < 0 {
		pos = 0
	}
	if u.duration > 0 && pos > u.duration {
		pos = u.duration
	}
	u.position = pos
	if u.status == StatusEnded {
		// Seeking back into an ended source makes it playable again.
		u.status = StatusPaused
	}
	u.mu.Unlock()

	u.el.SeekTo(pos)
}

// SetVolume sets the element gain, clamped to [0,1]. Element-level volume is
// best effort on some platforms, so the coordinator keeps the processing
// graph gain numerically in step with this value.
func (u *Unit) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	u.mu.Lock()
	u.volume = v
	u.mu.Unlock()

	u.el.SetVolume(v)
}

// Stop pauses and rewinds. Used on track switch.
func (u *Unit) Stop() {
	u.Pause()
	u.Seek(0)
}

// Status returns the current lifecycle status.
func (u *Unit) Status() Status {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status
}

// Token returns the current load generation.
func (u *Unit) Token() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.token
}

// Path returns the current source path.
func (u *Unit) Path() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.path
}

// Volume returns the last set gain.
func (u *Unit) Volume() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.volume
}

// Duration returns the source duration, or 0 while unknown.
func (u *Unit) Duration() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.duration
}

// Position returns the current playhead.
func (u *Unit) Position() time.Duration {
	u.mu.Lock()
	status := u.status
	optimistic := u.position
	u.mu.Unlock()

	switch status {
	case StatusPlaying, StatusPaused, StatusEnded:
		return u.el.Position()
	default:
		return optimistic
	}
}

// Close tears the unit down and releases the element.
func (u *Unit) Close() error {
	var err error
	u.closeOnce.Do(func() {
		close(u.done)
		err = u.el.Close()
	})
	return err
}

// pump translates element events into unit events. It is the only goroutine
// that mutates status in response to the platform.
func (u *Unit) pump() {
	for {
		select {
		case <-u.done:
			return
		case ev, ok := <-u.el.Events():
			if !ok {
				return
			}
			u.handle(ev)
		}
	}
}

func (u *Unit) handle(ev audio.Event) {
	u.mu.Lock()
	token := u.token
	sub := u.subscriber

	switch ev.Kind {
	case audio.EventLoadStart:
		u.mu.Unlock()
		return

	case audio.EventCanPlay:
		if u.status != StatusLoading {
			// A stale completion for a source we've moved past.
			u.mu.Unlock()
			return
		}
		u.status = StatusReady
		u.duration = ev.Duration
		pending := u.pendingPlay
		u.pendingPlay = false
		u.mu.Unlock()

		u.notify(sub, Event{Kind: EventReady, Token: token, Duration: ev.Duration})
		if pending {
			u.resolvePending(token, sub)
		}
		return

	case audio.EventPlay:
		u.status = StatusPlaying
		u.mu.Unlock()
		u.notify(sub, Event{Kind: EventPlaying, Token: token})
		return

	case audio.EventPause:
		if u.status == StatusPlaying {
			u.status = StatusPaused
		}
		u.mu.Unlock()
		u.notify(sub, Event{Kind: EventPaused, Token: token})
		return

	case audio.EventEnded:
		u.status = StatusEnded
		u.position = u.duration
		u.mu.Unlock()
		u.notify(sub, Event{Kind: EventEnded, Token: token})
		return

	case audio.EventError:
		if u.status == StatusLoading && !u.retried {
			// One automatic retry; after that the failure stands.
			u.retried = true
			path := u.path
			u.mu.Unlock()
			log.Debug("Retrying failed load", "role", u.role, "path", path, "reason", ev.Reason)
			u.el.Load(path)
			return
		}
		u.status = StatusErrored
		u.pendingPlay = false
		u.mu.Unlock()
		log.Warn("Source errored", "role", u.role, "reason", ev.Reason, "err", ev.Err)
		u.notify(sub, Event{Kind: EventErrored, Token: token, Reason: ev.Reason, Err: ev.Err})
		return
	}

	u.mu.Unlock()
}

// resolvePending runs a queued play once the source is ready, unless a newer
// load has superseded the queue's token.
func (u *Unit) resolvePending(token uint64, sub func(Event)) {
	u.mu.Lock()
	if u.token != token {
		u.mu.Unlock()
		return
	}
	u.mu.Unlock()

	res := u.playNow()
	switch res.Outcome {
	case Started:
		// The element's play event will drive EventPlaying.
	case Blocked:
		u.notify(sub, Event{Kind: EventBlocked, Token: token, Reason: audio.FailBlocked})
	case Failed:
		u.mu.Lock()
		u.status = StatusErrored
		u.mu.Unlock()
		u.notify(sub, Event{Kind: EventErrored, Token: token, Reason: res.Reason, Err: res.Err})
	}
}

func (u *Unit) notify(sub func(Event), ev Event) {
	if sub != nil {
		sub(ev)
	}
}
