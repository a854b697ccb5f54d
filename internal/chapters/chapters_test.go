package chapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gnzdotmx/chapterize/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChapter_Validate(t *testing.T) {
	tests := []struct {
		name    string
		chapter Chapter
		field   string
	}{
		{"valid", Chapter{Title: "Intro", Start: 0, End: 30, EngagementScore: 0.5}, ""},
		{"empty title", Chapter{Title: " ", Start: 0, End: 30}, "title"},
		{"negative start", Chapter{Title: "a", Start: -1, End: 30}, "start"},
		{"start equals end", Chapter{Title: "a", Start: 30, End: 30}, "end"},
		{"start after end", Chapter{Title: "a", Start: 40, End: 30}, "end"},
		{"score above one", Chapter{Title: "a", Start: 0, End: 30, EngagementScore: 1.2}, "engagement_score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.chapter.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *utils.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValid(t *testing.T) {
	chs := []Chapter{
		{Title: "ok", Start: 0, End: 10, EngagementScore: 0.1},
		{Title: "bad", Start: 10, End: 5},
		{Title: "ok2", Start: 20, End: 25, EngagementScore: 1},
	}
	got := Valid(chs)
	require.Len(t, got, 2)
	assert.Equal(t, "ok", got[0].Title)
	assert.Equal(t, "ok2", got[1].Title)
}

func TestSelect(t *testing.T) {
	chs := []Chapter{
		{Title: "a", Start: 100, End: 150, EngagementScore: 0.6},
		{Title: "b", Start: 0, End: 40, EngagementScore: 0.9},
		{Title: "c", Start: 50, End: 90, EngagementScore: 0.6},
		{Title: "d", Start: 200, End: 210, EngagementScore: 0.95},
		{Title: "e", Start: 300, End: 320, EngagementScore: 0.2},
	}

	t.Run("orders by score then start", func(t *testing.T) {
		got := Select(chs, SelectOptions{})
		titles := make([]string, len(got))
		for i, c := range got {
			titles[i] = c.Title
		}
		assert.Equal(t, []string{"d", "b", "c", "a", "e"}, titles)
	})

	t.Run("applies bounds", func(t *testing.T) {
		got := Select(chs, SelectOptions{MinScore: 0.5, MinDuration: 15, MaxCount: 2})
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].Title)
		assert.Equal(t, "c", got[1].Title)
	})

	t.Run("max duration", func(t *testing.T) {
		got := Select(chs, SelectOptions{MaxDuration: 20})
		require.Len(t, got, 2)
		assert.Equal(t, "d", got[0].Title)
		assert.Equal(t, "e", got[1].Title)
	})

	assert.Equal(t, "a", chs[0].Title, "input must not be reordered")
}

func TestWriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	res := &Result{
		Source: "videos/abc.mp4",
		Chapters: []Chapter{
			{Title: "Q&A <live>", Start: 1.5, End: 42, EngagementScore: 0.8, Tags: []string{"go"}},
		},
	}

	for _, name := range []string{"talk.json", "talk.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			require.NoError(t, Write(path, res))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, res, got)
		})
	}

	data, err := os.ReadFile(filepath.Join(dir, "nested", "talk.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Q&A <live>"`)
	assert.Contains(t, string(data), `"engagement_score": 0.8`)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestPathFor(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "chapters", "abc.json"), PathFor(filepath.Join("data", "chapters"), "data/transcripts/abc.srt"))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    int
		wantErr bool
	}{
		{
			name:  "plain object",
			reply: `{"chapters":[{"title":"a","start":0,"end":10,"engagement_score":0.5}]}`,
			want:  1,
		},
		{
			name:  "fenced",
			reply: "```json\n{\"chapters\":[{\"title\":\"a\",\"start\":0,\"end\":10},{\"title\":\"b\",\"start\":10,\"end\":20}]}\n```",
			want:  2,
		},
		{
			name:  "prose around",
			reply: "Here you go:\n{\"chapters\": []}\nEnjoy!",
			want:  0,
		},
		{
			name:  "bare array",
			reply: `[{"title":"a","start":0,"end":10},{"title":"b","start":11,"end":20}]`,
			want:  2,
		},
		{
			name:    "garbage",
			reply:   "I cannot help with that.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Decode(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, res.Chapters, tt.want)
		})
	}
}
