// Package validator checks that the external tools and settings a run
// depends on are available.
package validator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gnzdotmx/chapterize/internal/config"
	"github.com/gnzdotmx/chapterize/internal/utils"
)

// ExternalTool represents an external command-line tool requirement
type ExternalTool struct {
	Name        string
	Binary      string // resolved binary, defaults to Name
	VersionArgs []string
	Validate    func(output string) bool
	Purpose     string
}

// versionTimeout bounds each version probe
const versionTimeout = 30 * time.Second

// Tools returns the required and optional tools for cfg
func Tools(cfg *config.Config) (required, optional []ExternalTool) {
	required = []ExternalTool{
		{
			Name:        "ffmpeg",
			Binary:      cfg.FFmpegPath,
			VersionArgs: []string{"-version"},
			Validate:    func(out string) bool { return strings.Contains(out, "ffmpeg version") },
			Purpose:     "cutting, reframing and subtitling",
		},
		{
			Name:        "ffprobe",
			VersionArgs: []string{"-version"},
			Validate:    func(out string) bool { return strings.Contains(out, "ffprobe version") },
			Purpose:     "reading video resolutions",
		},
	}
	optional = []ExternalTool{
		{
			Name:        "yt-dlp",
			Binary:      cfg.YtDlpPath,
			VersionArgs: []string{"--version"},
			Validate:    func(out string) bool { return strings.TrimSpace(out) != "" },
			Purpose:     "downloading URLs",
		},
		{
			Name:        "whisper",
			Binary:      cfg.WhisperPath,
			VersionArgs: []string{"--help"},
			Validate: func(out string) bool {
				return strings.Contains(out, "usage") || strings.Contains(out, "Usage") || strings.Contains(out, "options")
			},
			Purpose: "transcription",
		},
	}
	return required, optional
}

// Validator runs the checks through a command executor
type Validator struct {
	executor utils.CommandExecutor
	cfg      *config.Config
}

// New creates a validator for the current environment
func New() (*Validator, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return NewWithExecutor(cfg, &utils.RealCommandExecutor{}), nil
}

// NewWithExecutor creates a validator with a custom executor
func NewWithExecutor(cfg *config.Config, executor utils.CommandExecutor) *Validator {
	return &Validator{executor: executor, cfg: cfg}
}

// ValidateExternalTools checks if all required external tools are installed.
// Missing optional tools are only reported.
func (v *Validator) ValidateExternalTools(ctx context.Context) error {
	required, optional := Tools(v.cfg)

	for _, tool := range required {
		path, err := v.check(ctx, tool)
		if err != nil {
			return fmt.Errorf("%s (needed for %s): %w", tool.Name, tool.Purpose, err)
		}
		utils.LogVerbose("✓ %s found at %s", tool.Name, path)
	}

	for _, tool := range optional {
		path, err := v.check(ctx, tool)
		if err != nil {
			utils.LogWarning("Optional tool %s unavailable, %s will not work: %v", tool.Name, tool.Purpose, err)
			continue
		}
		utils.LogVerbose("✓ Optional tool %s found at %s", tool.Name, path)
	}
	return nil
}

func (v *Validator) check(ctx context.Context, tool ExternalTool) (string, error) {
	binary := tool.Binary
	if binary == "" {
		binary = tool.Name
	}
	path, err := v.executor.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("not found in PATH: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	output, err := v.executor.ExecuteCommand(ctx, path, tool.VersionArgs)
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", path, err)
	}
	if !tool.Validate(string(output)) {
		return "", fmt.Errorf("unexpected version output from %s", path)
	}
	return path, nil
}

// ValidateEnvVars checks the settings the LLM step needs
func (v *Validator) ValidateEnvVars() error {
	if v.cfg.LLMAPIKey == "" {
		return fmt.Errorf("environment variable %s (or %s) not set", config.EnvLLMAPIKey, config.EnvGeminiKey)
	}
	// Don't print the actual value for security
	utils.LogVerbose("✓ LLM API key is set")
	utils.LogVerbose("✓ Model %s via %s", v.cfg.Model, v.cfg.LLMBaseURL)
	return nil
}
