// Package analytics is a fire-and-forget event sink. Emit never blocks and
// never lets a reporter failure escape to the caller; when no reporter is
// configured the sink is inert.
package analytics

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// Event names, matching the product taxonomy.
const (
	EventAudioPlay      = "audio_play"
	EventAudioPause     = "audio_pause"
	EventTrackChange    = "audio_track_change"
	EventTrackSelect    = "audio_track_select"
	EventSeek           = "audio_seek"
	EventVolumeChange   = "audio_volume_change"
	EventMusicPlay      = "background_music_play"
	EventMusicPause     = "background_music_pause"
	EventMusicChange    = "background_music_change"
	EventCaptionsToggle = "captions_toggle"
	EventShare          = "audio_share"
	EventError          = "audio_error"
)

// Reporter delivers one event to wherever analytics go. Implementations may
// be slow; the sink decouples them from the caller.
type Reporter interface {
	Report(name string, props map[string]any)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(name string, props map[string]any)

// Report calls f.
func (f ReporterFunc) Report(name string, props map[string]any) {
	f(name, props)
}

// LogReporter writes events to the debug log. The default production
// reporter; useful on its own when no analytics endpoint is configured.
type LogReporter struct{}

// Report logs the event.
func (LogReporter) Report(name string, props map[string]any) {
	log.Debug("Analytics event", "event", name, "props", props)
}

type event struct {
	name  string
	props map[string]any
}

// Sink buffers events and delivers them on a background goroutine. When the
// buffer is full the oldest queued event is dropped, so a stalled reporter
// costs events, not caller latency.
type Sink struct {
	reporter Reporter
	limiter  *rate.Limiter

	mu     sync.Mutex
	queue  []event
	wake   chan struct{}
	closed bool

	done      chan struct{}
	closeOnce sync.Once
	drained   sync.WaitGroup
}

const maxQueued = 256

// NewSink creates a sink delivering to reporter. A nil reporter yields an
// inert sink whose Emit is a no-op. Delivery is rate-limited to smooth bursts
// from scrubbing and rapid track skipping.
func NewSink(reporter Reporter) *Sink {
	s := &Sink{
		reporter: reporter,
		limiter:  rate.NewLimiter(rate.Limit(20), 50),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if reporter != nil {
		s.drained.Add(1)
		go s.run()
	}
	return s
}

// Emit queues an event. Never blocks, never panics, safe on a nil Sink.
func (s *Sink) Emit(name string, props map[string]any) {
	if s == nil || s.reporter == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.queue) >= maxQueued {
		s.queue = s.queue[1:]
	}
	s.queue = append(s.queue, event{name: name, props: props})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Close stops delivery after draining what is already queued.
func (s *Sink) Close() {
	if s == nil || s.reporter == nil {
		return
	}
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		s.drained.Wait()
	})
}

func (s *Sink) run() {
	defer s.drained.Done()
	for {
		ev, ok := s.next()
		if ok {
			s.deliver(ev)
			continue
		}

		select {
		case <-s.wake:
		case <-s.done:
			// Drain the remainder, then exit.
			for {
				ev, ok := s.next()
				if !ok {
					return
				}
				s.deliver(ev)
			}
		}
	}
}

func (s *Sink) next() (event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return event{}, false
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, true
}

func (s *Sink) deliver(ev event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Analytics reporter panicked", "event", ev.name, "recovered", r)
		}
	}()

	if err := s.limiter.Wait(context.Background()); err != nil {
		return
	}
	s.reporter.Report(ev.name, ev.props)
}
