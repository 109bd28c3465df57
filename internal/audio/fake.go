package audio

import (
	"errors"
	"sync"
	"time"
)

// FakeContext is a Context for tests and headless environments. Loads
// complete synchronously unless a test flips Manual and scripts the element
// itself; the suspended state models the autoplay-policy gate.
type FakeContext struct {
	mu        sync.Mutex
	suspended bool
	resumeOK  bool
	refs      int
	closed    bool
	elements  []*FakeElement
}

// NewFakeContext creates a running fake context.
func NewFakeContext() *FakeContext {
	return &FakeContext{resumeOK: true}
}

// NewSuspendedContext creates a fake context that refuses playback until
// EnsureResumed is called, like a platform enforcing its autoplay policy.
func NewSuspendedContext() *FakeContext {
	return &FakeContext{suspended: true, resumeOK: true}
}

// NewElement creates a fake element on this context.
func (c *FakeContext) NewElement() (Element, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("audio context is closed")
	}
	el := newFakeElement(c)
	c.elements = append(c.elements, el)
	return el, nil
}

// EnsureResumed resumes the context when resuming is allowed.
func (c *FakeContext) EnsureResumed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resumeOK {
		c.suspended = false
	}
	return !c.suspended
}

// Suspended reports the suspended state.
func (c *FakeContext) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended
}

// Suspend re-suspends the context, as platforms do when the page loses focus.
func (c *FakeContext) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspended = true
}

// SetResumeAllowed controls whether EnsureResumed succeeds.
func (c *FakeContext) SetResumeAllowed(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeOK = ok
}

// Acquire adds a reference.
func (c *FakeContext) Acquire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs++
}

// Release drops a reference.
func (c *FakeContext) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refs > 0 {
		c.refs--
	}
}

// Refs returns the current reference count.
func (c *FakeContext) Refs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs
}

// Close marks the context closed.
func (c *FakeContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Elements returns every element created on this context, open or closed.
func (c *FakeContext) Elements() []*FakeElement {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*FakeElement, len(c.elements))
	copy(out, c.elements)
	return out
}

// FakeElement is a scriptable media element. By default Load completes
// immediately with a one-minute duration; with Manual set, the test drives
// loading through CompleteLoad and FailLoad, which lets it stage slow loads,
// 404s, and load/track-change races.
type FakeElement struct {
	ctx *FakeContext

	mu       sync.Mutex
	path     string
	loading  bool
	loaded   bool
	playing  bool
	pos      time.Duration
	duration time.Duration
	volume   float64
	closed   bool

	// Scripting knobs.
	Manual       bool
	LoadDuration time.Duration // duration reported by automatic loads
	FailPlayWith error         // forced Play error, e.g. a decode failure

	// Counters for assertions.
	LoadCalls int
	PlayCalls int
	SeekCalls int

	events chan Event
}

func newFakeElement(ctx *FakeContext) *FakeElement {
	return &FakeElement{
		ctx:          ctx,
		volume:       1.0,
		LoadDuration: time.Minute,
		events:       make(chan Event, 32),
	}
}

func (e *FakeElement) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		// Tests that never drain shouldn't deadlock the element.
	}
}

// Load assigns a new source.
func (e *FakeElement) Load(path string) {
	e.mu.Lock()
	e.LoadCalls++
	e.path = path
	e.loading = true
	e.loaded = false
	e.playing = false
	e.pos = 0
	e.duration = 0
	manual := e.Manual
	d := e.LoadDuration
	e.mu.Unlock()

	e.emit(Event{Kind: EventLoadStart})
	if !manual {
		e.CompleteLoad(d)
	}
}

// CompleteLoad finishes the in-flight load with the given duration.
func (e *FakeElement) CompleteLoad(duration time.Duration) {
	e.mu.Lock()
	if !e.loading {
		e.mu.Unlock()
		return
	}
	e.loading = false
	e.loaded = true
	e.duration = duration
	e.mu.Unlock()

	e.emit(Event{Kind: EventCanPlay, Duration: duration})
}

// FailLoad fails the in-flight load with the given reason.
func (e *FakeElement) FailLoad(reason FailReason, err error) {
	e.mu.Lock()
	e.loading = false
	e.loaded = false
	e.mu.Unlock()

	e.emit(Event{Kind: EventError, Reason: reason, Err: err})
}

// Play starts playback, honoring the context's suspended state.
func (e *FakeElement) Play() error {
	e.mu.Lock()
	e.PlayCalls++
	failWith := e.FailPlayWith
	e.mu.Unlock()

	if failWith != nil {
		return failWith
	}
	if e.ctx.Suspended() {
		return ErrBlocked
	}

	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return errors.New("no source loaded")
	}
	if e.playing {
		e.mu.Unlock()
		return nil
	}
	e.playing = true
	e.mu.Unlock()

	e.emit(Event{Kind: EventPlay})
	return nil
}

// Pause stops playback.
func (e *FakeElement) Pause() {
	e.mu.Lock()
	if !e.playing {
		e.mu.Unlock()
		return
	}
	e.playing = false
	e.mu.Unlock()

	e.emit(Event{Kind: EventPause})
}

// SeekTo moves the playhead, clamped like the real element.
func (e *FakeElement) SeekTo(pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.SeekCalls++
	if pos < 0 {
		pos = 0
	}
	if e.duration > 0 && pos > e.duration {
		pos = e.duration
	}
	e.pos = pos
}

// SetVolume records the element gain.
func (e *FakeElement) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	e.volume = v
}

// Position reports the scripted playhead.
func (e *FakeElement) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos
}

// Duration reports the loaded duration.
func (e *FakeElement) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// Events delivers the element's lifecycle events.
func (e *FakeElement) Events() <-chan Event {
	return e.events
}

// Close marks the element closed.
func (e *FakeElement) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.playing = false
	return nil
}

// Test inspection helpers.

// Path returns the most recently loaded source path.
func (e *FakeElement) Path() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.path
}

// Playing reports whether the element is playing.
func (e *FakeElement) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// Volume returns the last applied gain.
func (e *FakeElement) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// Closed reports whether Close was called.
func (e *FakeElement) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// AdvanceTo scripts the playhead to pos, as if time passed.
func (e *FakeElement) AdvanceTo(pos time.Duration) {
	e.mu.Lock()
	e.pos = pos
	e.mu.Unlock()
}

// FinishPlayback plays the element to its natural end.
func (e *FakeElement) FinishPlayback() {
	e.mu.Lock()
	e.pos = e.duration
	e.playing = false
	e.mu.Unlock()

	e.emit(Event{Kind: EventEnded})
}

var (
	_ Context = (*FakeContext)(nil)
	_ Element = (*FakeElement)(nil)
	_ Context = (*otoContext)(nil)
	_ Element = (*otoElement)(nil)
)
