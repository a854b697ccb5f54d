package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSRT = `1
00:00:00,000 --> 00:00:02,500
Hello and welcome

2
00:00:02,500 --> 00:00:05,000 X1:0 X2:10
to the show,
everyone.

3
00:01:01,250 --> 00:01:03,000
Bye
`

const sampleJSON = `{
  "text": " Hello and welcome to the show.",
  "language": "en",
  "segments": [
    {"id": 0, "start": 0.0, "end": 2.5, "text": " Hello and welcome"},
    {"id": 1, "start": 2.5, "end": 5.0, "text": " to the show."},
    {"id": 2, "start": 5.0, "end": 5.0, "text": " "}
  ]
}`

func TestParseSRT(t *testing.T) {
	tr, err := ParseSRT(strings.NewReader(sampleSRT))
	require.NoError(t, err)
	require.Len(t, tr.Segments, 3)

	assert.Equal(t, Segment{Start: 0, End: 2.5, Text: "Hello and welcome"}, tr.Segments[0])
	assert.Equal(t, "to the show, everyone.", tr.Segments[1].Text)
	assert.InDelta(t, 61.25, tr.Segments[2].Start, 1e-9)
	assert.InDelta(t, 63.0, tr.Duration(), 1e-9)
}

func TestParseSRT_BadTime(t *testing.T) {
	_, err := ParseSRT(strings.NewReader("1\n00:00:xx,000 --> 00:00:01,000\nhi\n"))
	assert.Error(t, err)
}

func TestParseSRTTime(t *testing.T) {
	tests := map[string]float64{
		"00:00:00,000": 0,
		"01:02:03,500": 3723.5,
		"00:00:09.250": 9.25,
	}
	for in, want := range tests {
		got, err := ParseSRTTime(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}

	for _, bad := range []string{"", "1:2", "00:61:00,000", "aa:00:00,000"} {
		_, err := ParseSRTTime(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseWhisperJSON(t *testing.T) {
	tr, err := ParseWhisperJSON(strings.NewReader(sampleJSON))
	require.NoError(t, err)
	assert.Equal(t, "en", tr.Language)
	require.Len(t, tr.Segments, 2, "empty segment dropped")
	assert.Equal(t, "to the show.", tr.Segments[1].Text)

	_, err = ParseWhisperJSON(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	srt := filepath.Join(dir, "a.srt")
	js := filepath.Join(dir, "a.json")
	txt := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(srt, []byte(sampleSRT), 0644))
	require.NoError(t, os.WriteFile(js, []byte(sampleJSON), 0644))
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0644))

	tr, err := Load(srt)
	require.NoError(t, err)
	assert.Len(t, tr.Segments, 3)

	tr, err = Load(js)
	require.NoError(t, err)
	assert.Len(t, tr.Segments, 2)

	_, err = Load(txt)
	assert.Error(t, err)
	_, err = Load(filepath.Join(dir, "missing.srt"))
	assert.Error(t, err)
}

func TestWindow(t *testing.T) {
	tr := &Transcript{Segments: []Segment{
		{Start: 0, End: 4, Text: "a"},
		{Start: 4, End: 8, Text: "b"},
		{Start: 8, End: 12, Text: "c"},
		{Start: 12, End: 16, Text: "d"},
	}}

	got := tr.Window(6, 12)
	require.Len(t, got, 2)
	assert.Equal(t, Segment{Start: 0, End: 2, Text: "b"}, got[0])
	assert.Equal(t, Segment{Start: 2, End: 6, Text: "c"}, got[1])

	assert.Empty(t, tr.Window(20, 30))
}

func TestTimestamped(t *testing.T) {
	tr := &Transcript{Segments: []Segment{{Start: 1, End: 2.5, Text: "hi"}}}
	assert.Equal(t, "[1.00-2.50] hi\n", tr.Timestamped())
}
