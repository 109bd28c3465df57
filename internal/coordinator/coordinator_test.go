package coordinator_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stillpointfm/stillpoint/internal/analytics"
	"github.com/stillpointfm/stillpoint/internal/audio"
	"github.com/stillpointfm/stillpoint/internal/catalog"
	"github.com/stillpointfm/stillpoint/internal/coordinator"
	"github.com/stillpointfm/stillpoint/internal/playback"
)

func testCatalog() *catalog.Catalog {
	tracks := []catalog.Track{
		{ID: "t0", Title: "First Talk", Duration: 100 * time.Second, MediaPath: "audio/t0.wav"},
		{ID: "t1", Title: "Second Talk", Duration: 200 * time.Second, MediaPath: "audio/t1.wav", DefaultMusicID: "calm"},
		{ID: "t2", Title: "Third Talk", Duration: 300 * time.Second, MediaPath: "audio/t2.wav"},
	}
	music := []catalog.MusicTrack{
		{ID: "calm", Title: "Calm Waters", MediaPath: "music/calm.wav"},
		{ID: "rain", Title: "Soft Rain", MediaPath: "music/rain.wav"},
	}
	return catalog.New(tracks, music)
}

func newTestCoordinator(t *testing.T, fctx *audio.FakeContext) (*coordinator.Coordinator, *audio.FakeElement, *audio.FakeElement) {
	t.Helper()
	c, err := coordinator.New(testCatalog(), fctx, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)

	els := fctx.Elements()
	if len(els) != 2 {
		t.Fatalf("expected voice and music elements, got %d", len(els))
	}
	return c, els[0], els[1]
}

func waitState(t *testing.T, c *coordinator.Coordinator, desc string, cond func(coordinator.Snapshot) bool) coordinator.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := c.Snapshot(); cond(s) {
			return s
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; last snapshot: %+v", desc, c.Snapshot())
	return coordinator.Snapshot{}
}

func waitElement(t *testing.T, el *audio.FakeElement, desc string, cond func(*audio.FakeElement) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond(el) {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for element %s", desc)
}

func TestInitialStateLoadsFirstTrackWithoutPlaying(t *testing.T) {
	c, voice, _ := newTestCoordinator(t, audio.NewFakeContext())

	s := waitState(t, c, "first track ready", func(s coordinator.Snapshot) bool {
		return s.VoiceStatus == playback.StatusReady
	})
	if s.TrackIndex != 0 || s.TrackID != "t0" {
		t.Errorf("initial track = %d (%s), want 0 (t0)", s.TrackIndex, s.TrackID)
	}
	if s.IsPlaying {
		t.Error("playing before any gesture")
	}
	if voice.Path() != "audio/t0.wav" {
		t.Errorf("voice source = %q", voice.Path())
	}
}

func TestPlayPauseIdempotent(t *testing.T) {
	c, voice, _ := newTestCoordinator(t, audio.NewFakeContext())

	c.Play()
	waitState(t, c, "playing", func(s coordinator.Snapshot) bool { return s.IsPlaying })

	c.Play()
	s := c.Snapshot()
	if !s.IsPlaying {
		t.Error("second play toggled playback off")
	}

	c.Pause()
	s = c.Snapshot()
	if s.IsPlaying {
		t.Error("still playing after pause")
	}
	if voice.Playing() {
		t.Error("voice element still playing after pause")
	}
}

func TestSeekSurvivesPauseResume(t *testing.T) {
	c, _, _ := newTestCoordinator(t, audio.NewFakeContext())

	c.Play()
	waitState(t, c, "playing", func(s coordinator.Snapshot) bool { return s.IsPlaying })

	c.Seek(50 * time.Second)
	c.Pause()
	c.Play()

	s := waitState(t, c, "resumed", func(s coordinator.Snapshot) bool { return s.IsPlaying })
	if s.Position != 50*time.Second {
		t.Errorf("position after resume = %v, want 50s", s.Position)
	}
}

func TestManualSkipLoadsWithoutAutoplay(t *testing.T) {
	c, voice, _ := newTestCoordinator(t, audio.NewFakeContext())

	c.Next()
	s := waitState(t, c, "next track ready", func(s coordinator.Snapshot) bool {
		return s.TrackIndex == 1 && s.VoiceStatus == playback.StatusReady
	})
	if s.IsPlaying {
		t.Error("manual skip started playback")
	}
	if s.Position != 0 {
		t.Errorf("position after skip = %v, want 0", s.Position)
	}
	if voice.Path() != "audio/t1.wav" {
		t.Errorf("voice source = %q, want track 1", voice.Path())
	}
}

func TestNextPreviousWrap(t *testing.T) {
	c, _, _ := newTestCoordinator(t, audio.NewFakeContext())

	c.Previous()
	if s := c.Snapshot(); s.TrackIndex != 2 {
		t.Errorf("previous from 0 = %d, want 2", s.TrackIndex)
	}
	c.Next()
	if s := c.Snapshot(); s.TrackIndex != 0 {
		t.Errorf("next from last = %d, want 0", s.TrackIndex)
	}
}

func TestSelectTrackAutoplays(t *testing.T) {
	c, _, _ := newTestCoordinator(t, audio.NewFakeContext())

	c.SelectTrack(2)
	s := waitState(t, c, "selected track playing", func(s coordinator.Snapshot) bool {
		return s.TrackIndex == 2 && s.IsPlaying
	})
	if s.TrackID != "t2" {
		t.Errorf("track id = %q, want t2", s.TrackID)
	}
}

func TestSelectTrackOutOfRangeIgnored(t *testing.T) {
	c, _, _ := newTestCoordinator(t, audio.NewFakeContext())

	before := c.Snapshot()
	c.SelectTrack(99)
	c.SelectTrack(-1)
	after := c.Snapshot()
	if after.TrackIndex != before.TrackIndex || after.IsPlaying != before.IsPlaying {
		t.Errorf("out-of-range selection changed state: %+v", after)
	}
}

func TestMusicPlaysOnlyWhileVoicePlays(t *testing.T) {
	c, voice, music := newTestCoordinator(t, audio.NewFakeContext())

	c.SelectMusic("rain")
	if music.Playing() {
		t.Fatal("music started while voice paused")
	}

	c.Play()
	waitState(t, c, "voice playing", func(s coordinator.Snapshot) bool { return s.IsPlaying })
	waitElement(t, music, "music playing", (*audio.FakeElement).Playing)
	if !voice.Playing() {
		t.Fatal("music playing while voice is not")
	}

	c.Pause()
	if music.Playing() {
		t.Error("music still playing after pause")
	}
}

func TestMusicGainIsProductOfVolumes(t *testing.T) {
	c, voice, music := newTestCoordinator(t, audio.NewFakeContext())

	c.SetVolume(0.5)
	c.SetMusicVolume(0.4)

	if got := voice.Volume(); got != 0.5 {
		t.Errorf("voice gain = %v, want 0.5", got)
	}
	if got := music.Volume(); got != 0.2 {
		t.Errorf("music gain = %v, want 0.5*0.4", got)
	}

	s := c.Snapshot()
	if s.Volume != 0.5 || s.MusicVolume != 0.4 {
		t.Errorf("snapshot volumes = %v/%v, want 0.5/0.4", s.Volume, s.MusicVolume)
	}
}

func TestSelectSameMusicDoesNotRestart(t *testing.T) {
	c, _, music := newTestCoordinator(t, audio.NewFakeContext())

	c.SelectMusic("rain")
	c.Play()
	waitElement(t, music, "music playing", (*audio.FakeElement).Playing)

	music.AdvanceTo(30 * time.Second)
	c.SelectMusic("rain")

	if got := music.Position(); got < 30*time.Second {
		t.Errorf("music position = %v after redundant select, want >= 30s", got)
	}
	if !music.Playing() {
		t.Error("music stopped by redundant select")
	}
}

func TestStopMusicKeepsSelection(t *testing.T) {
	c, _, music := newTestCoordinator(t, audio.NewFakeContext())

	c.SelectMusic("rain")
	c.Play()
	waitElement(t, music, "music playing", (*audio.FakeElement).Playing)

	c.StopMusic()
	if music.Playing() {
		t.Fatal("music still playing after stop")
	}
	s := c.Snapshot()
	if s.ActiveMusicID != "rain" {
		t.Errorf("active music id = %q, want selection kept", s.ActiveMusicID)
	}
	if s.LastMusicID != "rain" {
		t.Errorf("last music id = %q, want rain", s.LastMusicID)
	}
	if s.MusicEnabled {
		t.Error("music still enabled after stop")
	}

	c.ResumeMusic()
	waitElement(t, music, "music resumed", (*audio.FakeElement).Playing)
	if s := c.Snapshot(); !s.MusicEnabled {
		t.Error("music not re-enabled by resume")
	}
}

func TestResumeMusicWhilePausedWaitsForVoice(t *testing.T) {
	c, _, music := newTestCoordinator(t, audio.NewFakeContext())

	c.SelectMusic("rain")
	c.Play()
	waitElement(t, music, "music playing", (*audio.FakeElement).Playing)
	c.StopMusic()
	c.Pause()

	c.ResumeMusic()
	if music.Playing() {
		t.Fatal("resumed music while voice paused")
	}

	c.Play()
	waitElement(t, music, "music after voice resumes", (*audio.FakeElement).Playing)
}

func TestNaturalEndAdvancesAndResolvesDefaultMusic(t *testing.T) {
	c, voice, music := newTestCoordinator(t, audio.NewFakeContext())

	c.SelectMusic("rain")
	c.Play()
	waitState(t, c, "voice playing", func(s coordinator.Snapshot) bool { return s.IsPlaying })
	waitElement(t, music, "music playing", (*audio.FakeElement).Playing)

	voice.FinishPlayback()

	s := waitState(t, c, "advanced and autoplaying", func(s coordinator.Snapshot) bool {
		return s.TrackIndex == 1 && s.IsPlaying
	})
	if s.ActiveMusicID != "calm" {
		t.Errorf("active music = %q, want next track's default", s.ActiveMusicID)
	}
	waitElement(t, music, "default music playing", func(el *audio.FakeElement) bool {
		return el.Playing() && el.Path() == "music/calm.wav"
	})
}

func TestManualSkipStopsPreviousMusic(t *testing.T) {
	c, _, music := newTestCoordinator(t, audio.NewFakeContext())

	c.SelectMusic("rain")
	c.Play()
	waitElement(t, music, "music playing", (*audio.FakeElement).Playing)

	c.Next()
	if music.Playing() {
		t.Error("previous track's music still playing after skip")
	}
}

func TestBlockedAutoplayIsRecoverable(t *testing.T) {
	fctx := audio.NewSuspendedContext()
	fctx.SetResumeAllowed(false)
	c, voice, _ := newTestCoordinator(t, fctx)

	c.Play()
	s := c.Snapshot()
	if s.IsPlaying {
		t.Fatal("playing while context suspended")
	}
	if !s.Blocked {
		t.Fatal("blocked state not surfaced")
	}
	if voice.Playing() {
		t.Fatal("voice element playing while blocked")
	}

	fctx.SetResumeAllowed(true)
	c.Play()
	s = waitState(t, c, "playing after resume", func(s coordinator.Snapshot) bool { return s.IsPlaying })
	if s.Blocked {
		t.Error("blocked flag still set after successful play")
	}
}

func TestDoubleSkipDiscardsStaleLoad(t *testing.T) {
	c, voice, _ := newTestCoordinator(t, audio.NewFakeContext())
	waitState(t, c, "initial ready", func(s coordinator.Snapshot) bool {
		return s.VoiceStatus == playback.StatusReady
	})
	voice.Manual = true

	c.Next()
	c.Next()

	voice.CompleteLoad(300 * time.Second)
	s := waitState(t, c, "final track ready", func(s coordinator.Snapshot) bool {
		return s.VoiceStatus == playback.StatusReady
	})
	if s.TrackIndex != 2 || s.TrackID != "t2" {
		t.Errorf("track = %d (%s), want 2 (t2)", s.TrackIndex, s.TrackID)
	}
	if s.Duration != 300*time.Second {
		t.Errorf("duration = %v, want the final load's", s.Duration)
	}
	if s.IsPlaying {
		t.Error("manual double-skip started playback")
	}
	if voice.Path() != "audio/t2.wav" {
		t.Errorf("voice source = %q, want the final track", voice.Path())
	}
}

func TestVoiceFailureSurfacesWithoutAutoAdvance(t *testing.T) {
	c, voice, _ := newTestCoordinator(t, audio.NewFakeContext())
	waitState(t, c, "initial ready", func(s coordinator.Snapshot) bool {
		return s.VoiceStatus == playback.StatusReady
	})
	voice.Manual = true

	c.Next()
	voice.FailLoad(audio.FailNotFound, audio.ErrBlocked)
	voice.FailLoad(audio.FailNotFound, audio.ErrBlocked)

	s := waitState(t, c, "errored", func(s coordinator.Snapshot) bool {
		return s.VoiceStatus == playback.StatusErrored
	})
	if s.IsPlaying {
		t.Error("shows playing while errored")
	}
	if s.TrackIndex != 1 {
		t.Errorf("auto-advanced past failed track to %d", s.TrackIndex)
	}
	if s.Err == nil {
		t.Error("error not surfaced in snapshot")
	}

	// Pressing play again retries the track.
	c.Play()
	voice.CompleteLoad(200 * time.Second)
	waitState(t, c, "recovered", func(s coordinator.Snapshot) bool { return s.IsPlaying })
}

func TestMusicFailureIsSwallowed(t *testing.T) {
	c, _, music := newTestCoordinator(t, audio.NewFakeContext())
	music.Manual = true

	c.SelectMusic("rain")
	c.Play()
	waitState(t, c, "voice playing", func(s coordinator.Snapshot) bool { return s.IsPlaying })

	music.FailLoad(audio.FailNotFound, audio.ErrBlocked)
	music.FailLoad(audio.FailNotFound, audio.ErrBlocked)

	time.Sleep(20 * time.Millisecond)
	s := c.Snapshot()
	if !s.IsPlaying {
		t.Error("music failure interrupted voice playback")
	}
	if s.Err != nil {
		t.Errorf("music failure surfaced as coordinator error: %v", s.Err)
	}
}

func TestMusicLoopsWhileVoicePlays(t *testing.T) {
	c, _, music := newTestCoordinator(t, audio.NewFakeContext())

	c.SelectMusic("rain")
	c.Play()
	waitElement(t, music, "music playing", (*audio.FakeElement).Playing)

	music.FinishPlayback()
	waitElement(t, music, "music looped", func(el *audio.FakeElement) bool {
		return el.Playing() && el.Position() == 0
	})
}

func TestToggleCaptions(t *testing.T) {
	c, _, _ := newTestCoordinator(t, audio.NewFakeContext())

	if !c.ToggleCaptions() {
		t.Error("first toggle should enable captions")
	}
	if c.ToggleCaptions() {
		t.Error("second toggle should disable captions")
	}
	if s := c.Snapshot(); s.CaptionsEnabled {
		t.Error("snapshot disagrees with toggle result")
	}
}

func TestCloseReleasesContextReference(t *testing.T) {
	fctx := audio.NewFakeContext()
	c, err := coordinator.New(testCatalog(), fctx, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := fctx.Refs(); got != 1 {
		t.Fatalf("refs after New = %d, want 1", got)
	}

	c.Close()
	c.Close()
	if got := fctx.Refs(); got != 0 {
		t.Errorf("refs after Close = %d, want 0", got)
	}
	for _, el := range fctx.Elements() {
		if !el.Closed() {
			t.Error("element left open after Close")
		}
	}
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	c, _, _ := newTestCoordinator(t, audio.NewFakeContext())

	var mu sync.Mutex
	var last coordinator.Snapshot
	seen := false
	c.SetOnChange(func(s coordinator.Snapshot) {
		mu.Lock()
		last = s
		seen = true
		mu.Unlock()
	})

	c.Play()
	waitState(t, c, "playing", func(s coordinator.Snapshot) bool { return s.IsPlaying })

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		ok := seen && last.IsPlaying
		mu.Unlock()
		if ok {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("listener never observed the playing state")
}

type captureSink struct {
	mu    sync.Mutex
	names []string
}

func (s *captureSink) Emit(name string, _ map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
}

func (s *captureSink) has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

func TestTransportEmitsAnalytics(t *testing.T) {
	sink := &captureSink{}
	fctx := audio.NewFakeContext()
	c, err := coordinator.New(testCatalog(), fctx, sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)

	c.Play()
	waitState(t, c, "playing", func(s coordinator.Snapshot) bool { return s.IsPlaying })
	c.Seek(10 * time.Second)
	c.Pause()
	c.Next()
	c.SelectMusic("rain")

	for _, want := range []string{
		analytics.EventAudioPlay,
		analytics.EventSeek,
		analytics.EventAudioPause,
		analytics.EventTrackChange,
		analytics.EventMusicChange,
	} {
		if !sink.has(want) {
			t.Errorf("missing analytics event %q", want)
		}
	}
}
