package extractaudio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnzdotmx/chapterize/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records the last ffmpeg invocation
type fakeRunner struct {
	args []string
	err  error
}

func (r *fakeRunner) Run(ctx context.Context, args []string) error {
	r.args = args
	return r.err
}

func TestModule_GetIO(t *testing.T) {
	io := New().GetIO()

	assert.Len(t, io.RequiredInputs, 2)
	assert.Equal(t, "input", io.RequiredInputs[0].Name)
	assert.Equal(t, "output", io.RequiredInputs[1].Name)

	assert.Len(t, io.OptionalInputs, 3)
	assert.Equal(t, "outputName", io.OptionalInputs[0].Name)
	assert.Equal(t, "sampleRate", io.OptionalInputs[1].Name)
	assert.Equal(t, "channels", io.OptionalInputs[2].Name)

	assert.True(t, io.HasOutput("audio"))
}

func TestModule_Validate(t *testing.T) {
	module := NewWithRunner(&fakeRunner{})
	tempDir := t.TempDir()

	videoPath := filepath.Join(tempDir, "test.mp4")
	require.NoError(t, os.WriteFile(videoPath, []byte("dummy video content"), 0644))
	textPath := filepath.Join(tempDir, "test.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("dummy text content"), 0644))

	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{
			name: "valid parameters",
			params: map[string]interface{}{
				"input":      videoPath,
				"output":     tempDir,
				"sampleRate": 16000,
				"channels":   1,
			},
		},
		{
			name:    "missing input",
			params:  map[string]interface{}{"output": tempDir},
			wantErr: true,
		},
		{
			name:    "missing output",
			params:  map[string]interface{}{"input": videoPath},
			wantErr: true,
		},
		{
			name:    "invalid input extension",
			params:  map[string]interface{}{"input": textPath, "output": tempDir},
			wantErr: true,
		},
		{
			name: "invalid output name extension",
			params: map[string]interface{}{
				"input":      videoPath,
				"output":     tempDir,
				"outputName": "output.mp3",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := module.Validate(tt.params)
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
	videoPath := filepath.Join(tempDir, "talk.mp4")
	require.NoError(t, os.WriteFile(videoPath, []byte("dummy video content"), 0644))
	audioDir := filepath.Join(tempDir, config.AudioDirName)

	tests := []struct {
		name           string
		params         map[string]interface{}
		expectedOutput string
		expectedRate   string
	}{
		{
			name:           "defaults",
			params:         map[string]interface{}{"input": videoPath, "output": tempDir},
			expectedOutput: filepath.Join(audioDir, "talk.wav"),
			expectedRate:   "16000",
		},
		{
			name: "custom output name and rate",
			params: map[string]interface{}{
				"input":      videoPath,
				"output":     tempDir,
				"outputName": "custom.wav",
				"sampleRate": 44100,
			},
			expectedOutput: filepath.Join(audioDir, "custom.wav"),
			expectedRate:   "44100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			result, err := NewWithRunner(runner).Execute(context.Background(), tt.params)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedOutput, result.Outputs["audio"])
			assert.Equal(t, []string{
				"-y", "-i", videoPath, "-vn", "-ac", "1", "-ar", tt.expectedRate,
				"-c:a", "pcm_s16le", tt.expectedOutput,
			}, runner.args)
			assert.DirExists(t, audioDir)
		})
	}
}

func TestModule_Execute_RunnerError(t *testing.T) {
	tempDir := t.TempDir()
	runner := &fakeRunner{err: errors.New("exit status 1")}

	_, err := NewWithRunner(runner).Execute(context.Background(), map[string]interface{}{
		"input":  filepath.Join(tempDir, "a.mp4"),
		"output": tempDir,
	})
	assert.ErrorContains(t, err, "ffmpeg command failed")
}

func TestModule_Name(t *testing.T) {
	assert.Equal(t, "extractaudio", New().Name())
}
