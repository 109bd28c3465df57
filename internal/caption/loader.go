package caption

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
)

// Loader resolves caption files for track ids from a directory. Accepted
// forms, tried in order: <id>.srt, <id>.srt.gz, <id>.json. A track with no
// caption file resolves to an empty index; only unreadable or undecodable
// files are reported as errors.
type Loader struct {
	dir string
}

// NewLoader creates a loader rooted at dir. An empty dir resolves every track
// to an empty index.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load resolves the caption index for a track id.
func (l *Loader) Load(trackID string) (*Index, error) {
	if l.dir == "" || trackID == "" {
		return NewIndex(nil), nil
	}

	candidates := []struct {
		name  string
		parse func(io.Reader) ([]Caption, error)
	}{
		{trackID + ".srt", readSRT},
		{trackID + ".srt.gz", readSRTGz},
		{trackID + ".json", readJSON},
	}

	for _, cand := range candidates {
		path := filepath.Join(l.dir, cand.name)
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("unable to open captions: %w", err)
		}

		captions, err := cand.parse(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("unable to parse captions %s: %w", path, err)
		}

		log.Debug("Loaded captions", "track", trackID, "file", cand.name, "count", len(captions))
		return NewIndex(captions), nil
	}

	log.Debug("No captions for track", "track", trackID)
	return NewIndex(nil), nil
}

func readSRT(r io.Reader) ([]Caption, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseSRT(string(b)), nil
}

func readSRTGz(r io.Reader) ([]Caption, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gz.Close() //nolint:errcheck
	return readSRT(gz)
}

// jsonCaption is the direct list-of-records serialization, with times in
// seconds as the web player wrote them.
type jsonCaption struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func readJSON(r io.Reader) ([]Caption, error) {
	var records []jsonCaption
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}

	captions := make([]Caption, 0, len(records))
	for _, rec := range records {
		if rec.Text == "" {
			continue
		}
		captions = append(captions, Caption{
			Start: time.Duration(rec.Start * float64(time.Second)),
			End:   time.Duration(rec.End * float64(time.Second)),
			Text:  rec.Text,
		})
	}
	return captions, nil
}
