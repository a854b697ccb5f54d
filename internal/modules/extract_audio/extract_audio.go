package extractaudio

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/gnzdotmx/chapterize/internal/config"
	modules "github.com/gnzdotmx/chapterize/internal/mod"
	"github.com/gnzdotmx/chapterize/internal/media"
	"github.com/gnzdotmx/chapterize/internal/utils"
)

// Module implements the audio extraction functionality
type Module struct {
	runner media.Runner
}

// Params contains the parameters for audio extraction
type Params struct {
	Input      string `json:"input"`      // Path to input video file
	Output     string `json:"output"`     // Run directory; the track lands in audio/
	OutputName string `json:"outputName"` // Custom output filename (optional)
	SampleRate int    `json:"sampleRate"` // Sample rate in Hz (default: 16000)
	Channels   int    `json:"channels"`   // Number of audio channels (default: 1)
}

var videoExts = []string{".mp4", ".mov", ".mkv", ".webm", ".m4v"}

// New creates a new extractaudio module backed by the configured ffmpeg
func New() modules.Module {
	binary := ""
	if cfg, err := config.FromEnv(); err == nil {
		binary = cfg.FFmpegPath
	}
	return &Module{runner: media.NewFFmpegRunner(binary, true)}
}

// NewWithRunner creates a module that runs ffmpeg through r
func NewWithRunner(r media.Runner) modules.Module {
	return &Module{runner: r}
}

// Name returns the module name
func (m *Module) Name() string {
	return "extractaudio"
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return err
	}

	if err := utils.ValidateInputFile("input", p.Input); err != nil {
		return err
	}
	if err := utils.ValidateFileExtension(p.Input, videoExts); err != nil {
		return err
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}
	if p.OutputName != "" {
		if err := utils.ValidateFileExtension(p.OutputName, []string{".wav"}); err != nil {
			return err
		}
	}
	if p.SampleRate < 0 || p.Channels < 0 {
		return &utils.ValidationError{Field: "sampleRate", Message: "sampleRate and channels must be positive"}
	}
	return nil
}

// Execute extracts a PCM WAV track for transcription
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}
	if p.SampleRate == 0 {
		p.SampleRate = 16000
	}
	if p.Channels == 0 {
		p.Channels = 1
	}

	audioDir, err := config.Paths{Root: p.Output}.AudioDir()
	if err != nil {
		return modules.ModuleResult{}, err
	}

	name := p.OutputName
	if name == "" {
		name = utils.TrimExt(filepath.Base(p.Input)) + ".wav"
	}
	audioPath := filepath.Join(audioDir, name)

	utils.LogVerbose("Extracting audio from %s to %s", p.Input, audioPath)
	args := []string{
		"-y",
		"-i", p.Input,
		"-vn",
		"-ac", strconv.Itoa(p.Channels),
		"-ar", strconv.Itoa(p.SampleRate),
		"-c:a", "pcm_s16le",
		audioPath,
	}
	if err := m.runner.Run(ctx, args); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("ffmpeg command failed: %w", err)
	}

	utils.LogSuccess("Successfully extracted audio to %s", audioPath)
	return modules.ModuleResult{
		Outputs: map[string]string{
			"audio": audioPath,
		},
		Metadata: map[string]interface{}{
			"sampleRate": p.SampleRate,
			"channels":   p.Channels,
		},
	}, nil
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "input",
				Description: "Path to input video file",
				Patterns:    videoExts,
				Type:        string(modules.InputTypeFile),
			},
			{
				Name:        "output",
				Description: "Run directory",
				Type:        string(modules.InputTypeDirectory),
			},
		},
		OptionalInputs: []modules.ModuleInput{
			{
				Name:        "outputName",
				Description: "Custom output filename",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "sampleRate",
				Description: "Sample rate in Hz (default: 16000)",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "channels",
				Description: "Number of audio channels (default: 1)",
				Type:        string(modules.InputTypeData),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "audio",
				Description: "Extracted WAV file",
				Patterns:    []string{".wav"},
				Type:        string(modules.OutputTypeFile),
			},
		},
	}
}
