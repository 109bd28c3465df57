// Package audio abstracts the platform audio device behind a process-wide
// Context and per-source media Elements. The production implementation plays
// through oto; a scripted fake drives the playback and coordinator tests.
package audio

import (
	"errors"
	"time"
)

// ErrBlocked is returned by Element.Play when the platform refused to start
// audio, typically because the shared context is still suspended. Recoverable:
// resume the context and play again.
var ErrBlocked = errors.New("playback blocked by platform")

// FailReason classifies why a load or play attempt failed.
type FailReason int

const (
	// FailUnknown is an unclassified failure.
	FailUnknown FailReason = iota
	// FailNotFound means the media source does not exist.
	FailNotFound
	// FailDecode means the media source exists but could not be decoded.
	FailDecode
	// FailBlocked means the platform refused to start audio without a
	// user gesture.
	FailBlocked
)

// String returns the string representation of the reason.
func (r FailReason) String() string {
	switch r {
	case FailNotFound:
		return "not found"
	case FailDecode:
		return "decode error"
	case FailBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// EventKind identifies a media element lifecycle event.
type EventKind int

const (
	// EventLoadStart fires when a new source starts loading.
	EventLoadStart EventKind = iota
	// EventCanPlay fires when enough of the source is available to play.
	EventCanPlay
	// EventPlay fires when playback actually starts or resumes.
	EventPlay
	// EventPause fires when playback pauses.
	EventPause
	// EventEnded fires when the source plays to its natural end.
	EventEnded
	// EventError fires when loading or playback fails.
	EventError
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventLoadStart:
		return "loadstart"
	case EventCanPlay:
		return "canplay"
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one media element lifecycle notification. Events for a single
// element arrive in causal order; nothing is guaranteed across elements.
type Event struct {
	Kind     EventKind
	Duration time.Duration // carried by EventCanPlay
	Reason   FailReason    // carried by EventError
	Err      error         // carried by EventError
}

// Element is the platform media element analog: one playable source with
// asynchronous loading and an event stream.
type Element interface {
	// Load assigns a new source and starts loading it. A Load supersedes
	// any earlier in-flight load on the same element.
	Load(path string)

	// Play starts or resumes playback. Returns ErrBlocked when the
	// platform refuses to start audio; other errors are hard failures.
	Play() error

	// Pause stops playback. Never fails.
	Pause()

	// SeekTo moves the playback position.
	SeekTo(pos time.Duration)

	// SetVolume sets the element gain in [0,1].
	SetVolume(v float64)

	// Position reports the current playback position.
	Position() time.Duration

	// Duration reports the source duration, or 0 while unknown.
	Duration() time.Duration

	// Events delivers lifecycle events until the element is closed.
	Events() <-chan Event

	// Close releases the source and stops event delivery.
	Close() error
}

// Context is the shared audio processing context for the whole process.
// Creating more than one is wasteful, so callers go through the reference-
// counted singleton in Get; tests inject their own implementation instead.
type Context interface {
	// NewElement creates a media element on this context.
	NewElement() (Element, error)

	// EnsureResumed resumes a suspended context. Must be called from a
	// user-gesture path; reports whether the context is now running.
	// Called on every play attempt, not just the first, because the
	// platform may re-suspend the context.
	EnsureResumed() bool

	// Suspended reports whether the context is currently suspended.
	Suspended() bool

	// Acquire adds a reference to the context.
	Acquire()

	// Release drops a reference. The context tears down its device
	// resources when the last reference is released.
	Release()

	// Close releases device resources regardless of reference count.
	Close() error
}
