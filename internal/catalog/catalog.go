// Package catalog holds the static lists of talks and background music the
// player can play. Entries are immutable after load; the catalog is addressed
// by integer index with wrap-around for next/previous navigation.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
)

// ErrEmptyCatalog is returned when an operation requires at least one track.
var ErrEmptyCatalog = errors.New("catalog has no tracks")

// Track describes one narrated talk. Duration is a hint for the scrubber
// before media metadata is known.
type Track struct {
	ID          string
	Title       string
	Description string
	Duration    time.Duration
	MediaPath   string

	// DefaultMusicID optionally names the background music that should
	// accompany this talk. Pure configuration data; the player never
	// assumes any particular pairing.
	DefaultMusicID string
}

// MusicTrack describes one ambient background music option.
type MusicTrack struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	MediaPath   string `yaml:"media"`
}

// Catalog is a read-only snapshot of the available tracks and music.
type Catalog struct {
	tracks []Track
	music  []MusicTrack

	// CaptionDir is where caption files for the tracks live.
	CaptionDir string
}

// New builds a catalog from the given entries.
func New(tracks []Track, music []MusicTrack) *Catalog {
	return &Catalog{
		tracks: tracks,
		music:  music,
	}
}

// Len returns the number of voice tracks.
func (c *Catalog) Len() int {
	return len(c.tracks)
}

// Track returns the track at index i.
func (c *Catalog) Track(i int) (Track, error) {
	if i < 0 || i >= len(c.tracks) {
		return Track{}, fmt.Errorf("track index %d out of range [0,%d)", i, len(c.tracks))
	}
	return c.tracks[i], nil
}

// Tracks returns a copy of the track list.
func (c *Catalog) Tracks() []Track {
	out := make([]Track, len(c.tracks))
	copy(out, c.tracks)
	return out
}

// Music returns a copy of the music list.
func (c *Catalog) Music() []MusicTrack {
	out := make([]MusicTrack, len(c.music))
	copy(out, c.music)
	return out
}

// MusicByID looks up a background music entry by its id.
func (c *Catalog) MusicByID(id string) (MusicTrack, bool) {
	return lo.Find(c.music, func(m MusicTrack) bool { return m.ID == id })
}

// Next returns the index after i, wrapping to 0 past the last track.
func (c *Catalog) Next(i int) int {
	if len(c.tracks) == 0 {
		return 0
	}
	return (i + 1) % len(c.tracks)
}

// Previous returns the index before i, wrapping to the last track before 0.
func (c *Catalog) Previous(i int) int {
	if len(c.tracks) == 0 {
		return 0
	}
	return (i - 1 + len(c.tracks)) % len(c.tracks)
}

// Clamp coerces i into a valid track index. Out-of-range selections land on
// the first track rather than failing.
func (c *Catalog) Clamp(i int) int {
	if i < 0 || i >= len(c.tracks) {
		return 0
	}
	return i
}

// Titles returns the track titles in catalog order.
func (c *Catalog) Titles() []string {
	return lo.Map(c.tracks, func(t Track, _ int) string { return t.Title })
}

// Validate checks the catalog for internal consistency: unique track ids and
// default-music references that resolve to a known music entry.
func (c *Catalog) Validate() error {
	if len(c.tracks) == 0 {
		return ErrEmptyCatalog
	}

	ids := lo.CountValuesBy(c.tracks, func(t Track) string { return t.ID })
	for id, n := range ids {
		if id == "" {
			return errors.New("track with empty id")
		}
		if n > 1 {
			return fmt.Errorf("duplicate track id %q", id)
		}
	}

	for _, t := range c.tracks {
		if t.MediaPath == "" {
			return fmt.Errorf("track %q has no media path", t.ID)
		}
		if t.DefaultMusicID == "" {
			continue
		}
		if _, ok := c.MusicByID(t.DefaultMusicID); !ok {
			return fmt.Errorf("track %q references unknown music id %q", t.ID, t.DefaultMusicID)
		}
	}

	for _, m := range c.music {
		if m.ID == "" {
			return errors.New("music entry with empty id")
		}
		if m.MediaPath == "" {
			return fmt.Errorf("music %q has no media path", m.ID)
		}
	}

	return nil
}
