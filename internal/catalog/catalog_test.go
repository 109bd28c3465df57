package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testCatalog(n int) *Catalog {
	tracks := make([]Track, 0, n)
	for i := 0; i < n; i++ {
		tracks = append(tracks, Track{
			ID:        string(rune('a' + i)),
			Title:     "Track " + string(rune('A'+i)),
			MediaPath: "media/track.mp3",
			Duration:  time.Minute,
		})
	}
	return New(tracks, nil)
}

// TestNextPrevious tests wrap-around navigation arithmetic.
func TestNextPrevious(t *testing.T) {
	c := testCatalog(5)

	tests := []struct {
		name     string
		from     int
		next     int
		previous int
	}{
		{"middle", 2, 3, 1},
		{"first", 0, 1, 4},
		{"last", 4, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Next(tt.from); got != tt.next {
				t.Errorf("Next(%d) = %d, want %d", tt.from, got, tt.next)
			}
			if got := c.Previous(tt.from); got != tt.previous {
				t.Errorf("Previous(%d) = %d, want %d", tt.from, got, tt.previous)
			}
		})
	}
}

func TestNextPreviousEmpty(t *testing.T) {
	c := New(nil, nil)
	if got := c.Next(0); got != 0 {
		t.Errorf("Next on empty catalog = %d, want 0", got)
	}
	if got := c.Previous(0); got != 0 {
		t.Errorf("Previous on empty catalog = %d, want 0", got)
	}
}

func TestClamp(t *testing.T) {
	c := testCatalog(3)

	tests := []struct {
		in   int
		want int
	}{
		{-1, 0},
		{0, 0},
		{2, 2},
		{3, 0},
		{99, 0},
	}
	for _, tt := range tests {
		if got := c.Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTrackOutOfRange(t *testing.T) {
	c := testCatalog(2)
	if _, err := c.Track(2); err == nil {
		t.Error("Track(2) on 2-track catalog should error")
	}
	if _, err := c.Track(-1); err == nil {
		t.Error("Track(-1) should error")
	}
}

func TestMusicByID(t *testing.T) {
	c := New(nil, []MusicTrack{
		{ID: "stillness", Title: "Stillness", MediaPath: "m.mp3"},
		{ID: "deep-earth", Title: "Deep Earth", MediaPath: "d.mp3"},
	})

	m, ok := c.MusicByID("deep-earth")
	if !ok || m.Title != "Deep Earth" {
		t.Errorf("MusicByID(deep-earth) = %+v, %v", m, ok)
	}
	if _, ok := c.MusicByID("nope"); ok {
		t.Error("MusicByID(nope) should not be found")
	}
}

// TestValidate tests catalog consistency checks.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tracks  []Track
		music   []MusicTrack
		wantErr bool
	}{
		{
			name:    "empty catalog",
			wantErr: true,
		},
		{
			name:   "valid",
			tracks: []Track{{ID: "a", MediaPath: "a.mp3"}},
		},
		{
			name:    "duplicate ids",
			tracks:  []Track{{ID: "a", MediaPath: "a.mp3"}, {ID: "a", MediaPath: "b.mp3"}},
			wantErr: true,
		},
		{
			name:    "missing media",
			tracks:  []Track{{ID: "a"}},
			wantErr: true,
		},
		{
			name:    "dangling default music",
			tracks:  []Track{{ID: "a", MediaPath: "a.mp3", DefaultMusicID: "ghost"}},
			wantErr: true,
		},
		{
			name:   "resolvable default music",
			tracks: []Track{{ID: "a", MediaPath: "a.mp3", DefaultMusicID: "still"}},
			music:  []MusicTrack{{ID: "still", MediaPath: "s.mp3"}},
		},
		{
			name:    "music missing media",
			tracks:  []Track{{ID: "a", MediaPath: "a.mp3"}},
			music:   []MusicTrack{{ID: "still"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.tracks, tt.music).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultCatalogValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default catalog should validate: %v", err)
	}
}

func TestParseResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yml")
	data := `caption_dir: captions
tracks:
  - id: one
    title: One
    duration: 60s
    media: media/one.mp3
music:
  - id: still
    title: Stillness
    media: media/still.mp3
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	track, err := c.Track(0)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "media/one.mp3"); track.MediaPath != want {
		t.Errorf("MediaPath = %q, want %q", track.MediaPath, want)
	}
	if want := filepath.Join(dir, "captions"); c.CaptionDir != want {
		t.Errorf("CaptionDir = %q, want %q", c.CaptionDir, want)
	}
	if track.Duration != time.Minute {
		t.Errorf("Duration = %v, want 1m", track.Duration)
	}
}
