package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// otoContext is the production Context backed by an oto device context.
type otoContext struct {
	ctx    *oto.Context
	ready  chan struct{}
	format Format

	mu       sync.Mutex
	refs     int
	closed   bool
	elements int
}

func newOtoContext(format Format) (*otoContext, error) {
	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("unable to create audio context: %w", err)
	}

	log.Debug("Created audio context", "sample_rate", format.SampleRate, "channels", format.Channels)
	return &otoContext{
		ctx:    ctx,
		ready:  ready,
		format: format,
	}, nil
}

func (c *otoContext) NewElement() (Element, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("audio context is closed")
	}
	c.elements++
	return newOtoElement(c), nil
}

// EnsureResumed waits briefly for the device to come up. The device readiness
// gate is the desktop analog of the suspended-until-gesture state.
func (c *otoContext) EnsureResumed() bool {
	select {
	case <-c.ready:
		return true
	case <-time.After(2 * time.Second):
		log.Warn("Audio context still suspended after resume attempt")
		return false
	}
}

func (c *otoContext) Suspended() bool {
	select {
	case <-c.ready:
		return false
	default:
		return true
	}
}

func (c *otoContext) Acquire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs++
}

func (c *otoContext) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refs > 0 {
		c.refs--
	}
	if c.refs == 0 && !c.closed {
		// oto has no context Close; dropping the reference is all the
		// teardown available to us.
		c.closed = true
		c.ctx = nil
		log.Debug("Released audio context")
	}
}

func (c *otoContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.ctx = nil
	return nil
}

// otoElement is one playable source on the production context. Position is
// tracked against the wall clock and reconciled on pause and seek, since oto
// players do not report a playhead.
type otoElement struct {
	ctx *otoContext

	mu         sync.Mutex
	generation int
	path       string

	// data must stay referenced for the life of the player to keep the GC
	// away from buffers the device is still reading.
	data     []byte
	reader   *bytes.Reader
	player   *oto.Player
	duration time.Duration
	volume   float64

	base         time.Duration // position at last play/seek/pause
	playingSince time.Time     // zero while not playing
	playing      bool

	events  chan Event
	done    chan struct{}
	watchMu sync.Mutex
	watch   chan struct{}
}

func newOtoElement(ctx *otoContext) *otoElement {
	return &otoElement{
		ctx:    ctx,
		volume: 1.0,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
}

func (e *otoElement) emit(ev Event) {
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

func (e *otoElement) Load(path string) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.path = path
	e.stopLocked()
	e.data = nil
	e.reader = nil
	e.duration = 0
	e.base = 0
	e.mu.Unlock()

	e.emit(Event{Kind: EventLoadStart})

	go func() {
		data, duration, err := readMedia(path, e.ctx.format)

		e.mu.Lock()
		if gen != e.generation {
			// A newer Load superseded this one.
			e.mu.Unlock()
			return
		}
		if err != nil {
			e.mu.Unlock()
			e.emit(Event{Kind: EventError, Reason: classifyLoadError(err), Err: err})
			return
		}
		e.data = data
		e.reader = bytes.NewReader(data)
		e.duration = duration
		e.mu.Unlock()

		e.emit(Event{Kind: EventCanPlay, Duration: duration})
	}()
}

func (e *otoElement) Play() error {
	if e.ctx.Suspended() {
		return ErrBlocked
	}

	e.mu.Lock()
	if e.reader == nil {
		e.mu.Unlock()
		return errors.New("no source loaded")
	}
	if e.playing {
		e.mu.Unlock()
		return nil
	}

	if e.player == nil {
		e.ctx.mu.Lock()
		octx := e.ctx.ctx
		e.ctx.mu.Unlock()
		if octx == nil {
			e.mu.Unlock()
			return errors.New("audio context is closed")
		}
		e.player = octx.NewPlayer(e.reader)
		e.player.SetVolume(e.volume)
		e.seekReaderLocked(e.base)
	}

	e.player.Play()
	e.playing = true
	e.playingSince = time.Now()
	e.startWatchLocked()
	e.mu.Unlock()

	e.emit(Event{Kind: EventPlay})
	return nil
}

func (e *otoElement) Pause() {
	e.mu.Lock()
	if !e.playing {
		e.mu.Unlock()
		return
	}
	e.base = e.positionLocked()
	e.playing = false
	e.playingSince = time.Time{}
	if e.player != nil {
		e.player.Pause()
	}
	e.stopWatchLocked()
	e.mu.Unlock()

	e.emit(Event{Kind: EventPause})
}

func (e *otoElement) SeekTo(pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if pos < 0 {
		pos = 0
	}
	if e.duration > 0 && pos > e.duration {
		pos = e.duration
	}

	e.base = pos
	if e.playing {
		e.playingSince = time.Now()
	}
	e.seekReaderLocked(pos)
}

// seekReaderLocked positions the underlying PCM stream, frame aligned.
func (e *otoElement) seekReaderLocked(pos time.Duration) {
	if e.reader == nil {
		return
	}
	frame := int64(e.ctx.format.Channels * e.ctx.format.BitDepth / 8)
	offset := int64(float64(pos) / float64(time.Second) * float64(e.ctx.format.BytesPerSecond()))
	offset -= offset % frame
	if offset > int64(len(e.data)) {
		offset = int64(len(e.data))
	}

	if e.player != nil {
		if _, err := e.player.Seek(offset, io.SeekStart); err != nil {
			log.Warn("Seek failed", "err", err)
		}
		return
	}
	if _, err := e.reader.Seek(offset, io.SeekStart); err != nil {
		log.Warn("Seek failed", "err", err)
	}
}

func (e *otoElement) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
	if e.player != nil {
		e.player.SetVolume(v)
	}
}

func (e *otoElement) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *otoElement) positionLocked() time.Duration {
	pos := e.base
	if e.playing {
		pos += time.Since(e.playingSince)
	}
	if e.duration > 0 && pos > e.duration {
		pos = e.duration
	}
	return pos
}

func (e *otoElement) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *otoElement) Events() <-chan Event {
	return e.events
}

func (e *otoElement) Close() error {
	e.mu.Lock()
	e.generation++
	e.stopLocked()
	e.data = nil
	e.reader = nil
	e.mu.Unlock()

	close(e.done)

	e.ctx.mu.Lock()
	if e.ctx.elements > 0 {
		e.ctx.elements--
	}
	e.ctx.mu.Unlock()
	return nil
}

// stopLocked halts playback and discards the device player.
func (e *otoElement) stopLocked() {
	if e.player != nil {
		e.player.Pause()
		_ = e.player.Close()
		e.player = nil
	}
	e.playing = false
	e.playingSince = time.Time{}
	e.stopWatchLocked()
}

// startWatchLocked runs the end-of-source watcher for the current playback.
func (e *otoElement) startWatchLocked() {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	if e.watch != nil {
		return
	}
	stop := make(chan struct{})
	e.watch = stop

	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-e.done:
				return
			case <-ticker.C:
				e.mu.Lock()
				ended := e.playing && e.duration > 0 && e.positionLocked() >= e.duration
				if ended {
					e.base = e.duration
					e.playing = false
					e.playingSince = time.Time{}
					if e.player != nil {
						e.player.Pause()
					}
				}
				e.mu.Unlock()

				if ended {
					e.stopWatch()
					e.emit(Event{Kind: EventEnded})
					return
				}
			}
		}
	}()
}

func (e *otoElement) stopWatchLocked() {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	if e.watch != nil {
		close(e.watch)
		e.watch = nil
	}
}

func (e *otoElement) stopWatch() {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	if e.watch != nil {
		e.watch = nil
	}
}

func classifyLoadError(err error) FailReason {
	if errors.Is(err, fs.ErrNotExist) {
		return FailNotFound
	}
	if errors.Is(err, errBadMedia) {
		return FailDecode
	}
	return FailUnknown
}

var errBadMedia = errors.New("unrecognized media data")

// readMedia loads a source file into interleaved 16-bit PCM. WAV files have
// their header stripped and duration computed from their own byte rate; any
// other file is treated as raw PCM at the context format.
func readMedia(path string, format Format) ([]byte, time.Duration, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	if len(b) == 0 {
		return nil, 0, fmt.Errorf("%w: empty file", errBadMedia)
	}

	if bytes.HasPrefix(b, []byte("RIFF")) {
		return decodeWAV(b)
	}

	duration := time.Duration(len(b)) * time.Second / time.Duration(format.BytesPerSecond())
	return b, duration, nil
}

// decodeWAV extracts the PCM payload of a RIFF/WAVE file.
func decodeWAV(b []byte) ([]byte, time.Duration, error) {
	if len(b) < 44 || string(b[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("%w: not a WAVE file", errBadMedia)
	}

	var byteRate uint32
	var data []byte

	// Walk the RIFF chunks for fmt and data.
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if body+size > len(b) {
			size = len(b) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("%w: short fmt chunk", errBadMedia)
			}
			byteRate = binary.LittleEndian.Uint32(b[body+8 : body+12])
		case "data":
			data = b[body : body+size]
		}

		// Chunks are word aligned.
		off = body + size + size%2
	}

	if byteRate == 0 || data == nil {
		return nil, 0, fmt.Errorf("%w: missing fmt or data chunk", errBadMedia)
	}

	duration := time.Duration(len(data)) * time.Second / time.Duration(byteRate)
	return data, duration, nil
}
