package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func TestFailReasonString(t *testing.T) {
	tests := []struct {
		reason   FailReason
		expected string
	}{
		{FailNotFound, "not found"},
		{FailDecode, "decode error"},
		{FailBlocked, "blocked"},
		{FailUnknown, "unknown"},
		{FailReason(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.expected {
			t.Errorf("FailReason(%d).String() = %q, want %q", tt.reason, got, tt.expected)
		}
	}
}

func TestEventKindString(t *testing.T) {
	tests := []struct {
		kind     EventKind
		expected string
	}{
		{EventLoadStart, "loadstart"},
		{EventCanPlay, "canplay"},
		{EventPlay, "play"},
		{EventPause, "pause"},
		{EventEnded, "ended"},
		{EventError, "error"},
		{EventKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("EventKind.String() = %q, want %q", got, tt.expected)
		}
	}
}

func drainUntil(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v event", kind)
		}
	}
}

func TestFakeElementLoadPlayPause(t *testing.T) {
	ctx := NewFakeContext()
	el, err := ctx.NewElement()
	if err != nil {
		t.Fatal(err)
	}

	el.Load("talk.mp3")
	ev := drainUntil(t, el.Events(), EventCanPlay)
	if ev.Duration != time.Minute {
		t.Errorf("canplay duration = %v, want 1m", ev.Duration)
	}

	if err := el.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	drainUntil(t, el.Events(), EventPlay)

	el.Pause()
	drainUntil(t, el.Events(), EventPause)
}

func TestFakeElementBlockedWhileSuspended(t *testing.T) {
	ctx := NewSuspendedContext()
	el, err := ctx.NewElement()
	if err != nil {
		t.Fatal(err)
	}
	el.Load("talk.mp3")
	drainUntil(t, el.Events(), EventCanPlay)

	if err := el.Play(); !errors.Is(err, ErrBlocked) {
		t.Fatalf("Play() while suspended = %v, want ErrBlocked", err)
	}

	if !ctx.EnsureResumed() {
		t.Fatal("EnsureResumed should succeed")
	}
	if err := el.Play(); err != nil {
		t.Fatalf("Play() after resume = %v", err)
	}
}

func TestFakeContextResumeDenied(t *testing.T) {
	ctx := NewSuspendedContext()
	ctx.SetResumeAllowed(false)
	if ctx.EnsureResumed() {
		t.Error("EnsureResumed should fail when resume is denied")
	}
	if !ctx.Suspended() {
		t.Error("context should remain suspended")
	}
}

func TestFakeContextRefCounting(t *testing.T) {
	ctx := NewFakeContext()
	ctx.Acquire()
	ctx.Acquire()
	if ctx.Refs() != 2 {
		t.Fatalf("Refs = %d, want 2", ctx.Refs())
	}
	ctx.Release()
	ctx.Release()
	ctx.Release() // over-release must not go negative
	if ctx.Refs() != 0 {
		t.Errorf("Refs = %d, want 0", ctx.Refs())
	}
}

func TestFakeElementSeekClamps(t *testing.T) {
	ctx := NewFakeContext()
	el, _ := ctx.NewElement()
	el.Load("x")
	drainUntil(t, el.Events(), EventCanPlay)

	tests := []struct {
		seek time.Duration
		want time.Duration
	}{
		{-5 * time.Second, 0},
		{30 * time.Second, 30 * time.Second},
		{2 * time.Hour, time.Minute},
	}
	for _, tt := range tests {
		el.SeekTo(tt.seek)
		if got := el.Position(); got != tt.want {
			t.Errorf("SeekTo(%v): Position = %v, want %v", tt.seek, got, tt.want)
		}
	}
}

func TestGlobalContextInjection(t *testing.T) {
	defer ResetGlobal()

	fake := NewFakeContext()
	SetGlobal(fake)

	got, err := Get()
	if err != nil {
		t.Fatal(err)
	}
	if got != Context(fake) {
		t.Error("Get should return the injected context")
	}
}

// TestDecodeWAV tests RIFF chunk walking against a synthesized file.
func TestDecodeWAV(t *testing.T) {
	pcm := make([]byte, 44100*4) // one second of silence at 44.1k stereo 16-bit
	wav := buildWAV(t, pcm, 44100*4)

	data, duration, err := decodeWAV(wav)
	if err != nil {
		t.Fatalf("decodeWAV error = %v", err)
	}
	if len(data) != len(pcm) {
		t.Errorf("payload length = %d, want %d", len(data), len(pcm))
	}
	if duration != time.Second {
		t.Errorf("duration = %v, want 1s", duration)
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("RIFF")},
		{"wrong magic", append([]byte("RIFFxxxxNOPE"), make([]byte, 64)...)},
		{"header only", buildWAV(t, nil, 0)[:12]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := decodeWAV(tt.data); err == nil {
				t.Error("decodeWAV should reject malformed input")
			}
		})
	}
}

func buildWAV(t *testing.T, pcm []byte, byteRate uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm))) //nolint:gosec
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2)) // channels
	_ = binary.Write(&buf, binary.LittleEndian, uint32(44100))
	_ = binary.Write(&buf, binary.LittleEndian, byteRate)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(4))  // block align
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm))) //nolint:gosec
	buf.Write(pcm)
	return buf.Bytes()
}
