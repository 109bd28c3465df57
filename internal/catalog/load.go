package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk serialization of a catalog. Durations are
// written either as a Go duration string ("30m47s") or plain seconds.
type catalogFile struct {
	CaptionDir string       `yaml:"caption_dir"`
	Tracks     []trackEntry `yaml:"tracks"`
	Music      []MusicTrack `yaml:"music"`
}

type trackEntry struct {
	ID             string       `yaml:"id"`
	Title          string       `yaml:"title"`
	Description    string       `yaml:"description"`
	Duration       durationHint `yaml:"duration"`
	MediaPath      string       `yaml:"media"`
	DefaultMusicID string       `yaml:"default_music"`
}

type durationHint time.Duration

func (d *durationHint) UnmarshalYAML(value *yaml.Node) error {
	var secs int64
	if err := value.Decode(&secs); err == nil {
		*d = durationHint(time.Duration(secs) * time.Second)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("unable to decode duration: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("unable to parse duration %q: %w", s, err)
	}
	*d = durationHint(parsed)
	return nil
}

// Load reads a catalog from a YAML file. Relative media and caption paths are
// resolved against the catalog file's directory; a leading ~ is expanded.
func Load(path string) (*Catalog, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("unable to expand catalog path: %w", err)
	}

	b, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("unable to read catalog: %w", err)
	}

	cat, err := Parse(b)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(expanded)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i := range cat.tracks {
		cat.tracks[i].MediaPath = resolve(cat.tracks[i].MediaPath)
	}
	for i := range cat.music {
		cat.music[i].MediaPath = resolve(cat.music[i].MediaPath)
	}
	cat.CaptionDir = resolve(cat.CaptionDir)

	log.Debug("Loaded catalog", "path", expanded, "tracks", cat.Len(), "music", len(cat.music))
	return cat, nil
}

// Parse decodes a catalog from YAML bytes and validates it.
func Parse(b []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("unable to parse catalog: %w", err)
	}

	tracks := make([]Track, 0, len(f.Tracks))
	for _, e := range f.Tracks {
		tracks = append(tracks, Track{
			ID:             e.ID,
			Title:          e.Title,
			Description:    e.Description,
			Duration:       time.Duration(e.Duration),
			MediaPath:      e.MediaPath,
			DefaultMusicID: e.DefaultMusicID,
		})
	}

	cat := New(tracks, f.Music)
	cat.CaptionDir = f.CaptionDir
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return cat, nil
}

// Default returns the built-in catalog used when no catalog file is given.
// Durations are hints for the scrubber before media metadata is known.
func Default() *Catalog {
	return New(
		[]Track{
			{
				ID:          "pathless-path",
				Title:       "The Pathless Path",
				Description: "A journey into the depths of consciousness and awakening",
				Duration:    1847 * time.Second,
				MediaPath:   "media/pathless-path.mp3",
			},
			{
				ID:          "beyond-the-self",
				Title:       "Beyond the Self",
				Description: "Exploring the nature of identity and transcendence",
				Duration:    2156 * time.Second,
				MediaPath:   "media/beyond-the-self.mp3",
				DefaultMusicID: "stillness",
			},
			{
				ID:          "evolutionary-enlightenment",
				Title:       "Evolutionary Enlightenment",
				Description: "The next step in human consciousness development",
				Duration:    2890 * time.Second,
				MediaPath:   "media/evolutionary-enlightenment.mp3",
			},
			{
				ID:          "miracle-of-awakening",
				Title:       "The Miracle of Awakening",
				Description: "Understanding the profound shift in perspective",
				Duration:    1623 * time.Second,
				MediaPath:   "media/miracle-of-awakening.mp3",
				DefaultMusicID: "deep-earth",
			},
			{
				ID:          "cosmic-consciousness",
				Title:       "Cosmic Consciousness",
				Description: "Experiencing unity with the infinite",
				Duration:    2344 * time.Second,
				MediaPath:   "media/cosmic-consciousness.mp3",
			},
		},
		[]MusicTrack{
			{
				ID:          "stillness",
				Title:       "Stillness",
				Description: "Soft drones and distant bells",
				MediaPath:   "media/music/stillness.mp3",
			},
			{
				ID:          "deep-earth",
				Title:       "Deep Earth",
				Description: "Low resonant tones",
				MediaPath:   "media/music/deep-earth.mp3",
			},
			{
				ID:          "morning-light",
				Title:       "Morning Light",
				Description: "Gentle ambient textures",
				MediaPath:   "media/music/morning-light.mp3",
			},
		},
	)
}
