package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type whisperJSON struct {
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// ParseWhisperJSON reads the JSON written by `whisper --output_format json`
func ParseWhisperJSON(r io.Reader) (*Transcript, error) {
	var doc whisperJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode whisper JSON: %w", err)
	}

	t := &Transcript{Language: doc.Language}
	for _, s := range doc.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" || s.End <= s.Start {
			continue
		}
		t.Segments = append(t.Segments, Segment{Start: s.Start, End: s.End, Text: text})
	}
	return t, nil
}

// ParseSRT reads SubRip cues. Cue numbers are ignored; multi-line cue text
// is joined with spaces.
func ParseSRT(r io.Reader) (*Transcript, error) {
	t := &Transcript{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cur     *Segment
		lines   []string
		lineNum int
	)
	flush := func() {
		if cur != nil {
			cur.Text = strings.Join(lines, " ")
			if cur.Text != "" {
				t.Segments = append(t.Segments, *cur)
			}
		}
		cur, lines = nil, nil
	}

	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		switch {
		case line == "":
			flush()
		case strings.Contains(line, "-->"):
			flush()
			start, end, err := parseSRTRange(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			cur = &Segment{Start: start, End: end}
		case cur == nil:
			// cue index
		default:
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read SRT: %w", err)
	}
	flush()
	return t, nil
}

func parseSRTRange(line string) (float64, float64, error) {
	parts := strings.SplitN(line, "-->", 2)
	start, err := ParseSRTTime(parts[0])
	if err != nil {
		return 0, 0, err
	}
	// position hints may follow the end time
	endField := strings.Fields(parts[1])
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("missing end time in %q", line)
	}
	end, err := ParseSRTTime(endField[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ParseSRTTime parses HH:MM:SS,mmm (a '.' separator is also accepted)
func ParseSRTTime(s string) (float64, error) {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	hms := strings.Split(s, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid SRT time %q", s)
	}
	h, err1 := strconv.Atoi(hms[0])
	m, err2 := strconv.Atoi(hms[1])
	sec, err3 := strconv.ParseFloat(hms[2], 64)
	if err1 != nil || err2 != nil || err3 != nil || m >= 60 || sec >= 60 {
		return 0, fmt.Errorf("invalid SRT time %q", s)
	}
	return float64(h*3600+m*60) + sec, nil
}
