// Package subtitles renders transcript segments as ASS subtitle files for
// burning into vertical shorts.
package subtitles

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnzdotmx/chapterize/internal/transcript"
)

// Style is the single ASS style used for every event
type Style struct {
	FontName      string
	FontSize      int
	PrimaryColour string // &HAABBGGRR
	OutlineColour string
	Bold          bool
	Outline       int
	Shadow        int
	Alignment     int // numpad layout, 2 = bottom centre
	MarginV       int
}

// DefaultStyle suits a 1080x1920 frame: large bold white text with a black
// outline, sitting in the lower third.
var DefaultStyle = Style{
	FontName:      "Montserrat",
	FontSize:      72,
	PrimaryColour: "&H00FFFFFF",
	OutlineColour: "&H00000000",
	Bold:          true,
	Outline:       4,
	Shadow:        0,
	Alignment:     2,
	MarginV:       420,
}

// Event is one subtitle line, times relative to the clip
type Event struct {
	Start float64
	End   float64
	Text  string
}

// Document is a complete ASS script
type Document struct {
	PlayResX int
	PlayResY int
	Style    Style
	Events   []Event
}

// Options controls FromSegments
type Options struct {
	Width       int
	Height      int
	Style       *Style
	MaxLineLen  int // characters before wrapping, 0 = 28
	MaxLines    int // lines per event, 0 = 2
	MinDuration float64
}

// FromSegments builds a document from clip-local segments. Long segments
// are split into several events, each shown for a share of the segment
// proportional to its length.
func FromSegments(segs []transcript.Segment, opts Options) Document {
	if opts.Width == 0 {
		opts.Width = 1080
	}
	if opts.Height == 0 {
		opts.Height = 1920
	}
	if opts.MaxLineLen == 0 {
		opts.MaxLineLen = 28
	}
	if opts.MaxLines == 0 {
		opts.MaxLines = 2
	}
	style := DefaultStyle
	if opts.Style != nil {
		style = *opts.Style
	}

	doc := Document{PlayResX: opts.Width, PlayResY: opts.Height, Style: style}
	for _, s := range segs {
		chunks := chunk(wrap(s.Text, opts.MaxLineLen), opts.MaxLines)
		total := 0
		for _, c := range chunks {
			total += textLen(c)
		}
		if total == 0 {
			continue
		}

		at := s.Start
		span := s.End - s.Start
		for i, c := range chunks {
			end := at + span*float64(textLen(c))/float64(total)
			if i == len(chunks)-1 {
				end = s.End
			}
			if end-at < opts.MinDuration {
				end = at + opts.MinDuration
			}
			doc.Events = append(doc.Events, Event{Start: at, End: end, Text: strings.Join(c, `\N`)})
			at = end
		}
	}
	return doc
}

func textLen(lines []string) int {
	n := 0
	for _, l := range lines {
		n += len([]rune(l))
	}
	return n
}

// wrap breaks text into lines of at most width runes on word boundaries.
// A single word longer than width gets its own line.
func wrap(text string, width int) []string {
	var (
		lines []string
		cur   []string
		n     int
	)
	for _, w := range strings.Fields(text) {
		wl := len([]rune(w))
		if n > 0 && n+1+wl > width {
			lines = append(lines, strings.Join(cur, " "))
			cur, n = nil, 0
		}
		if n > 0 {
			n++
		}
		cur = append(cur, w)
		n += wl
	}
	if len(cur) > 0 {
		lines = append(lines, strings.Join(cur, " "))
	}
	return lines
}

func chunk(lines []string, size int) [][]string {
	var out [][]string
	for len(lines) > size {
		out = append(out, lines[:size])
		lines = lines[size:]
	}
	if len(lines) > 0 {
		out = append(out, lines)
	}
	return out
}

// FormatTime renders seconds as H:MM:SS.cc
func FormatTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	cs := int64(math.Round(sec * 100))
	h := cs / 360000
	m := cs / 6000 % 60
	s := cs / 100 % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}

func assBool(v bool) int {
	if v {
		return -1
	}
	return 0
}

// escapeText neutralises override blocks and real newlines
func escapeText(s string) string {
	r := strings.NewReplacer("{", "(", "}", ")", "\r\n", `\N`, "\n", `\N`)
	return r.Replace(s)
}

// Write renders doc in ASS v4+ format
func Write(w io.Writer, doc Document) error {
	bw := bufio.NewWriter(w)
	st := doc.Style

	fmt.Fprintf(bw, "[Script Info]\nScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\nWrapStyle: 2\nScaledBorderAndShadow: yes\n\n", doc.PlayResX, doc.PlayResY)
	fmt.Fprint(bw, "[V4+ Styles]\n")
	fmt.Fprint(bw, "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(bw, "Style: Default,%s,%d,%s,%s,%s,&H00000000,%d,0,0,0,100,100,0,0,1,%d,%d,%d,60,60,%d,1\n\n",
		st.FontName, st.FontSize, st.PrimaryColour, st.PrimaryColour, st.OutlineColour,
		assBool(st.Bold), st.Outline, st.Shadow, st.Alignment, st.MarginV)
	fmt.Fprint(bw, "[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, e := range doc.Events {
		fmt.Fprintf(bw, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n", FormatTime(e.Start), FormatTime(e.End), escapeText(e.Text))
	}
	return bw.Flush()
}

// WriteFile writes doc to path, creating parent directories
func WriteFile(path string, doc Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create subtitle directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create subtitle file: %w", err)
	}
	if err := Write(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("failed to write subtitle file: %w", err)
	}
	return f.Close()
}
