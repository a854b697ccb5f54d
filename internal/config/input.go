package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Input kinds recognised by InputConfig
const (
	InputKindURL        = "url"
	InputKindVideo      = "video"
	InputKindAudio      = "audio"
	InputKindTranscript = "transcript"
	InputKindUnknown    = "unknown"
)

var (
	videoExts      = map[string]bool{".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true, ".m4v": true}
	audioExts      = map[string]bool{".wav": true, ".mp3": true, ".m4a": true, ".aac": true, ".flac": true}
	transcriptExts = map[string]bool{".json": true, ".srt": true}
)

// InputConfig holds the command line inputs of a workflow run
type InputConfig struct {
	WorkflowPath string
	// InputPath is a local file or an http(s) URL to download
	InputPath  string
	OutputPath string
	// RetryStep names the step a retry resumes from
	RetryStep string

	InputKind string
	InputExt  string
}

// NewInputConfig validates and normalises the run inputs. A non-empty
// retryStep turns on retry mode, which needs an existing output directory.
func NewInputConfig(workflowPath, inputPath, outputPath, retryStep string) (*InputConfig, error) {
	c := &InputConfig{
		WorkflowPath: workflowPath,
		InputPath:    strings.TrimSpace(inputPath),
		OutputPath:   outputPath,
		RetryStep:    retryStep,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Retry reports whether this run resumes a previous one
func (c *InputConfig) Retry() bool {
	return c.RetryStep != ""
}

func (c *InputConfig) validate() error {
	if c.WorkflowPath == "" {
		return fmt.Errorf("workflow path is required")
	}
	if _, err := os.Stat(c.WorkflowPath); os.IsNotExist(err) {
		return fmt.Errorf("workflow file does not exist: %s", c.WorkflowPath)
	}

	c.InputKind = InputKindUnknown
	if c.InputPath != "" {
		if IsURL(c.InputPath) {
			c.InputKind = InputKindURL
		} else {
			info, err := os.Stat(c.InputPath)
			if err != nil {
				return fmt.Errorf("input path does not exist: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("input must be a file, not a directory: %s", c.InputPath)
			}
			c.InputExt = strings.ToLower(filepath.Ext(c.InputPath))
			c.InputKind = kindForExt(c.InputExt)
		}
	}

	if c.Retry() {
		if c.OutputPath == "" {
			return fmt.Errorf("output path is required when using retry mode")
		}
		info, err := os.Stat(c.OutputPath)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("retry output directory does not exist: %s", c.OutputPath)
		}
		return nil
	}

	if c.OutputPath != "" {
		info, err := os.Stat(c.OutputPath)
		switch {
		case os.IsNotExist(err):
			if err := os.MkdirAll(c.OutputPath, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to access output path: %w", err)
		case !info.IsDir():
			return fmt.Errorf("output must be a directory, not a file: %s", c.OutputPath)
		}
	}
	return nil
}

// IsURL reports whether s is an absolute http or https URL
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func kindForExt(ext string) string {
	switch {
	case videoExts[ext]:
		return InputKindVideo
	case audioExts[ext]:
		return InputKindAudio
	case transcriptExts[ext]:
		return InputKindTranscript
	default:
		return InputKindUnknown
	}
}
