package transcribe

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gnzdotmx/chapterize/internal/config"
	modules "github.com/gnzdotmx/chapterize/internal/mod"
	"github.com/gnzdotmx/chapterize/internal/transcript"
	"github.com/gnzdotmx/chapterize/internal/utils"
)

// Module implements audio transcription with the whisper CLI
type Module struct {
	cmdExecutor utils.CommandExecutor
}

// Params contains the parameters for audio transcription
type Params struct {
	Input         string `json:"input"`         // Path to input audio file
	Output        string `json:"output"`        // Run directory; transcripts land in transcripts/
	Model         string `json:"model"`         // whisper model name (default: "turbo")
	Language      string `json:"language"`      // spoken language, empty or "auto" to detect
	OutputFormat  string `json:"outputFormat"`  // json or srt (default: json)
	WhisperParams string `json:"whisperParams"` // extra arguments passed through to whisper
	WhisperPath   string `json:"whisperPath"`   // whisper binary (default from WHISPER_PATH)
	Force         bool   `json:"force"`         // transcribe even if a transcript exists
}

// DefaultModel is the whisper model used when none is given
const DefaultModel = "turbo"

var (
	audioExts     = []string{".wav", ".mp3", ".m4a", ".aac", ".flac"}
	outputFormats = map[string]bool{"json": true, "srt": true}
)

// New creates a new transcribe module
func New() modules.Module {
	return &Module{cmdExecutor: &utils.RealCommandExecutor{}}
}

// NewWithExecutor creates a new transcribe module with a custom command executor
func NewWithExecutor(executor utils.CommandExecutor) modules.Module {
	return &Module{cmdExecutor: executor}
}

// Name returns the module name
func (m *Module) Name() string {
	return "transcribe"
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
	if err := utils.ValidateFileExtension(p.Input, audioExts); err != nil {
		return err
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}
	if p.OutputFormat != "" && !outputFormats[p.OutputFormat] {
		return fmt.Errorf("unsupported output format: %s", p.OutputFormat)
	}

	if _, err := m.cmdExecutor.LookPath(m.binary(p)); err != nil {
		utils.LogWarning("%s not found in PATH; transcribe will only reuse existing transcripts", m.binary(p))
	}
	return nil
}

// Execute transcribes the input, or reuses a transcript already on disk
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}
	if p.Model == "" {
		p.Model = DefaultModel
	}
	if p.OutputFormat == "" {
		p.OutputFormat = "json"
	}

	transcriptDir, err := config.Paths{Root: p.Output}.TranscriptDir()
	if err != nil {
		return modules.ModuleResult{}, err
	}
	outputFile := filepath.Join(transcriptDir, utils.TrimExt(p.Input)+"."+p.OutputFormat)

	reused := false
	switch {
	case !p.Force && utils.FileExists(outputFile):
		utils.LogInfo("Reusing existing transcript %s", outputFile)
		reused = true
	default:
		if _, err := m.cmdExecutor.LookPath(m.binary(p)); err != nil {
			return modules.ModuleResult{}, fmt.Errorf("%s is not installed and no transcript exists at %s", m.binary(p), outputFile)
		}
		if err := m.run(ctx, p, transcriptDir); err != nil {
			return modules.ModuleResult{}, err
		}
		if !utils.FileExists(outputFile) {
			return modules.ModuleResult{}, fmt.Errorf("whisper did not produce %s", outputFile)
		}
	}

	tr, err := transcript.Load(outputFile)
	if err != nil {
		return modules.ModuleResult{}, err
	}
	if len(tr.Segments) == 0 {
		return modules.ModuleResult{}, fmt.Errorf("transcript %s has no segments", outputFile)
	}

	utils.LogSuccess("Transcript ready: %s (%d segments)", outputFile, len(tr.Segments))
	return modules.ModuleResult{
		Outputs: map[string]string{
			"transcript": outputFile,
		},
		Metadata: map[string]interface{}{
			"model":    p.Model,
			"format":   p.OutputFormat,
			"language": tr.Language,
			"reused":   reused,
		},
		Statistics: map[string]interface{}{
			"segments": len(tr.Segments),
			"duration": tr.Duration(),
		},
	}, nil
}

func (m *Module) run(ctx context.Context, p Params, outputDir string) error {
	args := buildWhisperCommand(p, outputDir)
	utils.LogInfo("Transcribing %s with whisper %s", p.Input, p.Model)
	out, err := m.cmdExecutor.ExecuteCommand(ctx, m.binary(p), args)
	if err != nil {
		return fmt.Errorf("transcription command failed: %w\n%s", err, strings.TrimSpace(string(out)))
	}
	utils.LogDebug("whisper output:\n%s", out)
	return nil
}

func (m *Module) binary(p Params) string {
	if p.WhisperPath != "" {
		return p.WhisperPath
	}
	if cfg, err := config.FromEnv(); err == nil {
		return cfg.WhisperPath
	}
	return "whisper"
}

// buildWhisperCommand constructs the whisper CLI arguments. Flags given in
// WhisperParams win over the defaults.
func buildWhisperCommand(p Params, outputDir string) []string {
	extra := strings.Fields(p.WhisperParams)
	args := []string{p.Input}
	if !containsParam(extra, "--model") {
		args = append(args, "--model", p.Model)
	}
	if p.Language != "" && p.Language != "auto" && !containsParam(extra, "--language") {
		args = append(args, "--language", p.Language)
	}
	args = append(args, extra...)
	args = append(args, "--output_dir", outputDir, "--output_format", p.OutputFormat)
	return args
}

func containsParam(args []string, param string) bool {
	for _, a := range args {
		if a == param || strings.HasPrefix(a, param+"=") {
			return true
		}
	}
	return false
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "input",
				Description: "Path to input audio file",
				Patterns:    audioExts,
				Type:        string(modules.InputTypeFile),
			},
			{
				Name:        "output",
				Description: "Run directory",
				Type:        string(modules.InputTypeDirectory),
			},
		},
		OptionalInputs: []modules.ModuleInput{
			{Name: "model", Description: "Whisper model (default: turbo)", Type: string(modules.InputTypeData)},
			{Name: "language", Description: "Spoken language, auto to detect", Type: string(modules.InputTypeData)},
			{Name: "outputFormat", Description: "json or srt (default: json)", Type: string(modules.InputTypeData)},
			{Name: "whisperParams", Description: "Extra whisper arguments", Type: string(modules.InputTypeData)},
			{Name: "whisperPath", Description: "Path to the whisper binary", Type: string(modules.InputTypeData)},
			{Name: "force", Description: "Transcribe even if a transcript exists", Type: string(modules.InputTypeData)},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "transcript",
				Description: "Timed transcript",
				Patterns:    []string{".json", ".srt"},
				Type:        string(modules.OutputTypeFile),
			},
		},
	}
}
