package chapterize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gnzdotmx/chapterize/internal/chapters"
	"github.com/gnzdotmx/chapterize/internal/config"
	modules "github.com/gnzdotmx/chapterize/internal/mod"
	"github.com/gnzdotmx/chapterize/internal/services/llm"
	"github.com/gnzdotmx/chapterize/internal/services/llm/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testTranscript = `{"language":"en","segments":[
{"start":0,"end":40,"text":"Intro to the topic."},
{"start":40,"end":95,"text":"The main argument with an example."},
{"start":95,"end":150,"text":"A surprising twist and the wrap up."}]}`

// testModule is a wrapper around the real module for testing
type testModule struct {
	*Module
	mockService llm.Servicer
}

// newTestModule creates a new test module with the given mock service
func newTestModule(mockService llm.Servicer) modules.Module {
	return &testModule{
		Module:      New().(*Module),
		mockService: mockService,
	}
}

// Execute overrides the real module's Execute method to use the mock service
func (m *testModule) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	if m.mockService != nil {
		ctx = context.WithValue(ctx, LLMServiceKey, m.mockService)
	}
	return m.Module.Execute(ctx, params)
}

func writeTranscript(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, config.TranscriptDirName, "talk.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(testTranscript), 0644))
	return path
}

func TestModule_Name(t *testing.T) {
	assert.Equal(t, "chapterize", New().Name())
}

func TestModule_Validate(t *testing.T) {
	tempDir := t.TempDir()
	input := writeTranscript(t, tempDir)
	txt := filepath.Join(tempDir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0644))

	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{name: "valid", params: map[string]interface{}{"input": input, "output": tempDir, "model": "pro"}},
		{name: "missing input", params: map[string]interface{}{"output": tempDir}, wantErr: true},
		{name: "wrong extension", params: map[string]interface{}{"input": txt, "output": tempDir}, wantErr: true},
		{name: "unknown model", params: map[string]interface{}{"input": input, "output": tempDir, "model": "ULTRA"}, wantErr: true},
		{
			name:    "min above max",
			params:  map[string]interface{}{"input": input, "output": tempDir, "minDuration": 90, "maxDuration": 30},
			wantErr: true,
		},
		{
			name:    "missing prompt file",
			params:  map[string]interface{}{"input": input, "output": tempDir, "promptFilePath": filepath.Join(tempDir, "none.yaml")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Validate(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestModule_Execute(t *testing.T) {
	tempDir := t.TempDir()
	input := writeTranscript(t, tempDir)

	reply := "```json\n" + `{"chapters":[
{"title":"The twist","start":95,"end":160,"engagement_score":0.9},
{"title":"Main argument","start":40,"end":95,"engagement_score":0.7},
{"title":"","start":0,"end":40,"engagement_score":0.5},
{"title":"Backwards","start":50,"end":20,"engagement_score":0.5}]}` + "\n```"

	mockService := mocks.NewMockServicer(t)
	mockService.On("GetContent", mock.Anything, mock.MatchedBy(func(msgs []llm.Message) bool {
		return len(msgs) == 2 &&
			msgs[0].Role == llm.RoleSystem &&
			strings.Contains(msgs[1].Content, "between 30 and 90 seconds") &&
			strings.Contains(msgs[1].Content, "[40.00-95.00] The main argument with an example.") &&
			strings.Contains(msgs[1].Content, "Write titles in en")
	}), mock.MatchedBy(func(opts llm.CompletionOptions) bool {
		return opts.JSONMode && opts.Model == string(config.Gemini25Pro)
	})).Return(reply, nil)

	result, err := newTestModule(mockService).Execute(context.Background(), map[string]interface{}{
		"input":  input,
		"output": tempDir,
		"model":  "GEMINI_2_5_PRO",
	})
	require.NoError(t, err)

	expected := filepath.Join(tempDir, config.ChapterDirName, "talk.json")
	assert.Equal(t, expected, result.Outputs["chapters"])
	assert.Equal(t, 4, result.Statistics["proposed"])
	assert.Equal(t, 2, result.Statistics["valid"])

	saved, err := chapters.Load(expected)
	require.NoError(t, err)
	require.Len(t, saved.Chapters, 2)
	assert.Equal(t, "The twist", saved.Chapters[0].Title)
	assert.Equal(t, 150.0, saved.Chapters[0].End, "end clamped to transcript length")
	assert.Equal(t, input, saved.Source)
}

func TestModule_Execute_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		tempDir := t.TempDir()
		input := writeTranscript(t, tempDir)

		mockService := mocks.NewMockServicer(t)
		mockService.On("GetContent", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota exceeded"))

		_, err := newTestModule(mockService).Execute(context.Background(), map[string]interface{}{"input": input, "output": tempDir})
		assert.ErrorContains(t, err, "quota exceeded")
	})

	t.Run("unparseable reply", func(t *testing.T) {
		tempDir := t.TempDir()
		input := writeTranscript(t, tempDir)

		mockService := mocks.NewMockServicer(t)
		mockService.On("GetContent", mock.Anything, mock.Anything, mock.Anything).Return("Sorry, I cannot help.", nil)

		_, err := newTestModule(mockService).Execute(context.Background(), map[string]interface{}{"input": input, "output": tempDir})
		assert.ErrorContains(t, err, "failed to parse API response")
	})

	t.Run("no valid chapters", func(t *testing.T) {
		tempDir := t.TempDir()
		input := writeTranscript(t, tempDir)

		mockService := mocks.NewMockServicer(t)
		mockService.On("GetContent", mock.Anything, mock.Anything, mock.Anything).
			Return(`{"chapters":[{"title":"late","start":200,"end":260,"engagement_score":0.4}]}`, nil)

		_, err := newTestModule(mockService).Execute(context.Background(), map[string]interface{}{"input": input, "output": tempDir})
		assert.ErrorContains(t, err, "none valid")
		assert.NoFileExists(t, filepath.Join(tempDir, config.ChapterDirName, "talk.json"))
	})
}

func TestGetPromptTemplate(t *testing.T) {
	m := &Module{}

	role, prompt, err := m.getPromptTemplate("")
	require.NoError(t, err)
	assert.Equal(t, defaultRole, role)
	assert.Equal(t, defaultPrompt, prompt)

	path := filepath.Join(t.TempDir(), "prompt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: custom\nprompt: |\n  %d-%d %s\n  %s\n"), 0644))
	role, prompt, err = m.getPromptTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, defaultRole, role)
	assert.Equal(t, "%d-%d %s\n%s\n", prompt)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("title: nothing\n"), 0644))
	_, _, err = m.getPromptTemplate(empty)
	assert.Error(t, err)
}
