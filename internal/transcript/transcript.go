// Package transcript loads timed speech segments produced by whisper.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Segment is one timed utterance, in seconds from the start of the media
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is an ordered list of segments
type Transcript struct {
	Language string
	Segments []Segment
}

// Load parses a transcript by extension: .json (whisper JSON) or .srt.
func Load(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseWhisperJSON(f)
	case ".srt":
		return ParseSRT(f)
	default:
		return nil, fmt.Errorf("unsupported transcript format: %s", path)
	}
}

// Duration returns the end time of the last segment
func (t *Transcript) Duration() float64 {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// Window returns the segments overlapping [start, end), clipped to the
// window and shifted so that start becomes zero.
func (t *Transcript) Window(start, end float64) []Segment {
	var out []Segment
	for _, s := range t.Segments {
		if s.End <= start || s.Start >= end {
			continue
		}
		clipped := Segment{
			Start: max(s.Start, start) - start,
			End:   min(s.End, end) - start,
			Text:  s.Text,
		}
		if clipped.End > clipped.Start {
			out = append(out, clipped)
		}
	}
	return out
}

// Timestamped renders the transcript as "[start-end] text" lines, the
// form given to the chaptering model.
func (t *Transcript) Timestamped() string {
	var b strings.Builder
	for _, s := range t.Segments {
		fmt.Fprintf(&b, "[%.2f-%.2f] %s\n", s.Start, s.End, s.Text)
	}
	return b.String()
}
