package caption

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timestampPattern matches an SRT timecode range such as
// "00:00:01,022 --> 00:00:02,625".
var timestampPattern = regexp.MustCompile(
	`(\d{2}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2}),(\d{3})`)

// speakerPattern matches a leading speaker label like "Speaker 1: ".
var speakerPattern = regexp.MustCompile(`^Speaker \d+:\s*`)

// ParseSRT parses subtitle text in SRT form: sequence number, timecode range,
// one or more text lines, blocks separated by a blank line. Multi-line text is
// joined with spaces and speaker labels are stripped. Blocks that are
// malformed or end up with empty text are skipped rather than failing the
// whole file.
func ParseSRT(content string) []Caption {
	var captions []Caption

	content = strings.ReplaceAll(content, "\r\n", "\n")
	for _, block := range strings.Split(strings.TrimSpace(content), "\n\n") {
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) < 3 {
			continue
		}

		// lines[0] is the sequence number, which we don't need.
		m := timestampPattern.FindStringSubmatch(lines[1])
		if m == nil {
			continue
		}

		start := timecode(m[1], m[2], m[3], m[4])
		end := timecode(m[5], m[6], m[7], m[8])

		text := strings.Join(lines[2:], " ")
		text = speakerPattern.ReplaceAllString(text, "")
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		captions = append(captions, Caption{Start: start, End: end, Text: text})
	}

	return captions
}

func timecode(h, m, s, ms string) time.Duration {
	hours, _ := strconv.Atoi(h)
	mins, _ := strconv.Atoi(m)
	secs, _ := strconv.Atoi(s)
	millis, _ := strconv.Atoi(ms)
	return time.Duration(hours)*time.Hour +
		time.Duration(mins)*time.Minute +
		time.Duration(secs)*time.Second +
		time.Duration(millis)*time.Millisecond
}

// FormatTimecode renders a duration in SRT timecode form. Used by the track
// listing for caption previews.
func FormatTimecode(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
