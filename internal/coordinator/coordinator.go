// Package coordinator implements the dual-track synchronization engine. A
// Coordinator owns one voice playback unit and one background music unit,
// exposes the unified transport surface, and keeps the two clocks loosely
// coupled: music follows the voice track's play/pause state but never blocks
// or fails voice playback.
package coordinator

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/stillpointfm/stillpoint/internal/analytics"
	"github.com/stillpointfm/stillpoint/internal/audio"
	"github.com/stillpointfm/stillpoint/internal/catalog"
	"github.com/stillpointfm/stillpoint/internal/playback"
)

// Sink receives transport events. Satisfied by *analytics.Sink; nil is fine.
type Sink interface {
	Emit(name string, props map[string]any)
}

// Snapshot is the flattened session state consumed by the scrubber, caption
// overlay, and media-session bridge. It is a value copy; readers never see a
// torn state.
type Snapshot struct {
	TrackIndex      int
	TrackID         string
	TrackTitle      string
	IsPlaying       bool
	Blocked         bool
	Position        time.Duration
	Duration        time.Duration
	Volume          float64
	MusicVolume     float64
	MusicEnabled    bool
	ActiveMusicID   string
	LastMusicID     string
	CaptionsEnabled bool
	HasUserGesture  bool
	VoiceStatus     playback.Status
	Err             error
}

// DefaultMusicVolume is the ambient-bed gain applied under the voice track
// until the listener adjusts it.
const DefaultMusicVolume = 0.3

// Coordinator is the transport state machine. All public methods are safe
// for concurrent use; unit events arriving on pump goroutines are serialized
// through the same mutex.
type Coordinator struct {
	cat  *catalog.Catalog
	actx audio.Context
	sink Sink

	voice *playback.Unit
	music *playback.Unit

	mu              sync.Mutex
	trackIndex      int
	voiceToken      uint64
	isPlaying       bool
	blocked         bool
	duration        time.Duration
	volume          float64
	musicVolume     float64
	musicEnabled    bool
	activeMusicID   string
	lastMusicID     string
	captionsEnabled bool
	hasUserGesture  bool
	lastErr         error
	onChange        func(Snapshot)

	closeOnce sync.Once
}

// New builds a coordinator over the catalog, acquires a reference on the
// audio context, and loads the first track without starting playback. A nil
// sink disables analytics.
func New(cat *catalog.Catalog, actx audio.Context, sink Sink) (*Coordinator, error) {
	if cat.Len() == 0 {
		return nil, catalog.ErrEmptyCatalog
	}

	voice, err := playback.NewUnit("voice", actx)
	if err != nil {
		return nil, fmt.Errorf("voice unit: %w", err)
	}
	music, err := playback.NewUnit("music", actx)
	if err != nil {
		voice.Close()
		return nil, fmt.Errorf("music unit: %w", err)
	}

	c := &Coordinator{
		cat:         cat,
		actx:        actx,
		sink:        sink,
		voice:       voice,
		music:       music,
		volume:      1.0,
		musicVolume: DefaultMusicVolume,
	}
	actx.Acquire()
	voice.Subscribe(c.onVoiceEvent)
	music.Subscribe(c.onMusicEvent)

	c.mu.Lock()
	c.loadTrackLocked(0, false)
	c.mu.Unlock()
	c.notify()
	return c, nil
}

// SetOnChange registers the state-change listener (the media-session bridge).
// The callback runs outside the coordinator lock and may call back in.
func (c *Coordinator) SetOnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Catalog returns the track catalog.
func (c *Coordinator) Catalog() *catalog.Catalog {
	return c.cat
}

// Snapshot returns the current session state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	track, _ := c.cat.Track(c.trackIndex)
	duration := c.duration
	if duration == 0 {
		duration = track.Duration
	}
	return Snapshot{
		TrackIndex:      c.trackIndex,
		TrackID:         track.ID,
		TrackTitle:      track.Title,
		IsPlaying:       c.isPlaying,
		Blocked:         c.blocked,
		Position:        c.voice.Position(),
		Duration:        duration,
		Volume:          c.volume,
		MusicVolume:     c.musicVolume,
		MusicEnabled:    c.musicEnabled,
		ActiveMusicID:   c.activeMusicID,
		LastMusicID:     c.lastMusicID,
		CaptionsEnabled: c.captionsEnabled,
		HasUserGesture:  c.hasUserGesture,
		VoiceStatus:     c.voice.Status(),
		Err:             c.lastErr,
	}
}

// Play starts or resumes the voice track. Called from a user gesture, so it
// marks the gesture flag and resumes the audio context before every attempt;
// platforms re-suspend the context when focus is lost. A blocked result
// leaves the transport pressable again rather than wedged.
func (c *Coordinator) Play() {
	c.mu.Lock()
	c.hasUserGesture = true
	c.lastErr = nil

	if !c.actx.EnsureResumed() {
		log.Debug("Audio context still suspended after resume attempt")
	}

	if c.voice.Status() == playback.StatusErrored {
		// Pressing play again retries a failed track from the top.
		c.loadTrackLocked(c.trackIndex, true)
		c.mu.Unlock()
		c.notify()
		return
	}

	res := c.voice.Play()
	switch res.Outcome {
	case playback.Blocked:
		c.blocked = true
		c.isPlaying = false
	case playback.Failed:
		c.lastErr = res.Err
		c.isPlaying = false
	default:
		c.blocked = false
	}
	index, id := c.trackIndex, c.trackID()
	c.mu.Unlock()

	c.emit(analytics.EventAudioPlay, map[string]any{"track_id": id, "index": index})
	c.notify()
}

// Pause stops the voice track and therefore the music. Synchronous and
// unconditional.
func (c *Coordinator) Pause() {
	c.mu.Lock()
	c.voice.Pause()
	c.music.Pause()
	c.isPlaying = false
	id := c.trackID()
	pos := c.voice.Position()
	c.mu.Unlock()

	c.emit(analytics.EventAudioPause, map[string]any{"track_id": id, "position": pos.Seconds()})
	c.notify()
}

// Next advances to the next track, wrapping past the end. Manual skips load
// the new track without starting it; only natural track end autoplays.
func (c *Coordinator) Next() {
	c.skip(1)
}

// Previous moves to the previous track, wrapping past the start.
func (c *Coordinator) Previous() {
	c.skip(-1)
}

func (c *Coordinator) skip(dir int) {
	c.mu.Lock()
	var index int
	if dir >= 0 {
		index = c.cat.Next(c.trackIndex)
	} else {
		index = c.cat.Previous(c.trackIndex)
	}
	c.loadTrackLocked(index, false)
	id := c.trackID()
	c.mu.Unlock()

	c.emit(analytics.EventTrackChange, map[string]any{"track_id": id, "index": index, "direction": dir})
	c.notify()
}

// SelectTrack jumps to track i and autoplays; explicit selection is intent
// to listen. Out-of-range indices are ignored.
func (c *Coordinator) SelectTrack(i int) {
	c.mu.Lock()
	if _, err := c.cat.Track(i); err != nil {
		c.mu.Unlock()
		log.Warn("Ignoring out-of-range track selection", "index", i)
		return
	}
	c.hasUserGesture = true
	c.actx.EnsureResumed()
	c.loadTrackLocked(i, true)
	id := c.trackID()
	c.mu.Unlock()

	c.emit(analytics.EventTrackSelect, map[string]any{"track_id": id, "index": i})
	c.notify()
}

// loadTrackLocked switches the active track: stops both units, resolves the
// new track's default music, loads the voice source, and optionally queues
// autoplay. The unit's load token fences out late events from the source
// being abandoned.
func (c *Coordinator) loadTrackLocked(i int, autoplay bool) {
	track, err := c.cat.Track(i)
	if err != nil {
		return
	}

	c.voice.Stop()
	c.music.Pause()
	c.trackIndex = i
	c.duration = 0
	c.isPlaying = false
	c.blocked = false
	c.lastErr = nil

	if track.DefaultMusicID != "" && c.musicEnabled && c.hasUserGesture {
		if c.activeMusicID != track.DefaultMusicID {
			log.Debug("Switching to track default music", "music_id", track.DefaultMusicID)
		}
		c.activeMusicID = track.DefaultMusicID
	}

	c.voice.Load(track.MediaPath)
	c.voiceToken = c.voice.Token()
	if autoplay {
		res := c.voice.Play()
		if res.Outcome == playback.Blocked {
			c.blocked = true
		}
	}
}

// Seek moves the voice playhead. The scrub position survives pause/resume.
func (c *Coordinator) Seek(pos time.Duration) {
	c.mu.Lock()
	c.voice.Seek(pos)
	id := c.trackID()
	c.mu.Unlock()

	c.emit(analytics.EventSeek, map[string]any{"track_id": id, "position": pos.Seconds()})
	c.notify()
}

// SetVolume sets the master gain. The music gain is recomputed so both paths
// stay numerically consistent.
func (c *Coordinator) SetVolume(v float64) {
	c.mu.Lock()
	c.volume = clamp01(v)
	c.voice.SetVolume(c.volume)
	c.applyMusicGainLocked()
	vol := c.volume
	c.mu.Unlock()

	c.emit(analytics.EventVolumeChange, map[string]any{"volume": vol})
	c.notify()
}

// SetMusicVolume sets the music layer's own gain; the effective element gain
// is volume * musicVolume.
func (c *Coordinator) SetMusicVolume(v float64) {
	c.mu.Lock()
	c.musicVolume = clamp01(v)
	c.applyMusicGainLocked()
	vol := c.musicVolume
	c.mu.Unlock()

	c.emit(analytics.EventVolumeChange, map[string]any{"music_volume": vol})
	c.notify()
}

func (c *Coordinator) applyMusicGainLocked() {
	c.music.SetVolume(c.volume * c.musicVolume)
}

// SelectMusic activates the background music with the given id. Selecting
// the id already playing is a no-op so the bed never restarts from zero;
// otherwise the new source starts only if the voice track is playing.
func (c *Coordinator) SelectMusic(id string) {
	c.mu.Lock()
	mt, ok := c.cat.MusicByID(id)
	if !ok {
		c.mu.Unlock()
		log.Warn("Ignoring unknown music selection", "music_id", id)
		return
	}

	if id == c.activeMusicID && c.musicEnabled && c.music.Status() == playback.StatusPlaying {
		c.mu.Unlock()
		return
	}

	c.activeMusicID = id
	c.musicEnabled = true
	c.music.Load(mt.MediaPath)
	c.applyMusicGainLocked()
	if c.isPlaying {
		c.startMusicLocked()
	}
	c.mu.Unlock()

	c.emit(analytics.EventMusicChange, map[string]any{"music_id": id})
	c.notify()
}

// StopMusic pauses the music layer but keeps the selection visible, so the
// UI can show what would resume.
func (c *Coordinator) StopMusic() {
	c.mu.Lock()
	if c.activeMusicID != "" {
		c.lastMusicID = c.activeMusicID
	}
	c.musicEnabled = false
	c.music.Pause()
	id := c.activeMusicID
	c.mu.Unlock()

	c.emit(analytics.EventMusicPause, map[string]any{"music_id": id})
	c.notify()
}

// ResumeMusic re-enables the last stopped music selection, starting it only
// if the voice track is playing.
func (c *Coordinator) ResumeMusic() {
	c.mu.Lock()
	if c.lastMusicID == "" {
		c.mu.Unlock()
		return
	}
	id := c.lastMusicID
	mt, ok := c.cat.MusicByID(id)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.activeMusicID = id
	c.musicEnabled = true
	c.music.Load(mt.MediaPath)
	c.applyMusicGainLocked()
	if c.isPlaying {
		c.startMusicLocked()
	}
	c.mu.Unlock()

	c.emit(analytics.EventMusicPlay, map[string]any{"music_id": id})
	c.notify()
}

// ToggleCaptions flips caption display and returns the new state.
func (c *Coordinator) ToggleCaptions() bool {
	c.mu.Lock()
	c.captionsEnabled = !c.captionsEnabled
	on := c.captionsEnabled
	c.mu.Unlock()

	c.emit(analytics.EventCaptionsToggle, map[string]any{"enabled": on})
	c.notify()
	return on
}

// Close tears down both units and releases the audio context reference.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		c.voice.Close()
		c.music.Close()
		c.actx.Release()
	})
}

// startMusicLocked loads and plays the active music selection. Music start
// is always causally after voice start; callers invoke this only once the
// voice track is playing. Failures are logged and swallowed, the bed is an
// enhancement.
func (c *Coordinator) startMusicLocked() {
	if !c.musicEnabled || c.activeMusicID == "" {
		return
	}
	mt, ok := c.cat.MusicByID(c.activeMusicID)
	if !ok {
		return
	}

	c.music.Load(mt.MediaPath)
	c.applyMusicGainLocked()
	res := c.music.Play()
	if res.Outcome == playback.Failed {
		log.Warn("Background music failed to start", "music_id", mt.ID, "err", res.Err)
	}
}

// onVoiceEvent serializes voice unit events into the state machine. Events
// carrying a token older than the current load belong to an abandoned source
// and are dropped.
func (c *Coordinator) onVoiceEvent(ev playback.Event) {
	c.mu.Lock()
	if ev.Token != c.voiceToken {
		c.mu.Unlock()
		log.Debug("Discarding stale voice event", "token", ev.Token, "current", c.voiceToken)
		return
	}

	advance := false
	switch ev.Kind {
	case playback.EventReady:
		c.duration = ev.Duration

	case playback.EventPlaying:
		c.isPlaying = true
		c.blocked = false
		c.lastErr = nil
		c.startMusicLocked()

	case playback.EventPaused:
		c.isPlaying = false
		c.music.Pause()

	case playback.EventEnded:
		c.isPlaying = false
		c.music.Pause()
		advance = true

	case playback.EventBlocked:
		c.isPlaying = false
		c.blocked = true

	case playback.EventErrored:
		c.isPlaying = false
		c.blocked = false
		c.lastErr = ev.Err
		c.music.Pause()
		log.Warn("Voice track errored", "reason", ev.Reason, "err", ev.Err)
	}

	if advance {
		// Natural completion: advance with autoplay and re-resolve the
		// next track's default music.
		next := c.cat.Next(c.trackIndex)
		c.loadTrackLocked(next, true)
	}
	id, index := c.trackID(), c.trackIndex
	c.mu.Unlock()

	if advance {
		c.emit(analytics.EventTrackChange, map[string]any{"track_id": id, "index": index, "direction": 1, "auto": true})
	}
	if ev.Kind == playback.EventErrored {
		c.emit(analytics.EventError, map[string]any{"track_id": id, "reason": ev.Reason.String()})
	}
	c.notify()
}

// onMusicEvent watches the music unit. Music failures never propagate; a bed
// that cannot play is simply absent.
func (c *Coordinator) onMusicEvent(ev playback.Event) {
	switch ev.Kind {
	case playback.EventErrored:
		log.Warn("Background music errored", "reason", ev.Reason, "err", ev.Err)
	case playback.EventEnded:
		// Loop the bed while the voice is still going.
		c.mu.Lock()
		if c.isPlaying && c.musicEnabled {
			c.music.Seek(0)
			c.music.Play()
		}
		c.mu.Unlock()
	}
}

func (c *Coordinator) trackID() string {
	track, _ := c.cat.Track(c.trackIndex)
	return track.ID
}

func (c *Coordinator) emit(name string, props map[string]any) {
	if c.sink != nil {
		c.sink.Emit(name, props)
	}
}

func (c *Coordinator) notify() {
	c.mu.Lock()
	fn := c.onChange
	var snap Snapshot
	if fn != nil {
		snap = c.snapshotLocked()
	}
	c.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
