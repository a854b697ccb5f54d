// Package download fetches a source video with yt-dlp.
package download

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnzdotmx/chapterize/internal/config"
	modules "github.com/gnzdotmx/chapterize/internal/mod"
	"github.com/gnzdotmx/chapterize/internal/utils"
)

// Module implements video download
type Module struct {
	cmdExecutor utils.CommandExecutor
}

// Params contains the parameters for a download
type Params struct {
	Input     string `json:"input"`     // video URL
	Output    string `json:"output"`    // run directory; the file lands in videos/
	Quality   string `json:"quality"`   // max height, e.g. "1080" or "P720" (default 1080)
	WithAudio bool   `json:"withAudio"` // also fetch and merge the best audio stream
	YtDlpPath string `json:"ytDlpPath"` // yt-dlp binary (default from YTDLP_PATH)
}

// New creates a new download module
func New() modules.Module {
	return &Module{cmdExecutor: &utils.RealCommandExecutor{}}
}

// NewWithExecutor creates a download module with a custom command executor
func NewWithExecutor(executor utils.CommandExecutor) modules.Module {
	return &Module{cmdExecutor: executor}
}

// Name returns the module name
func (m *Module) Name() string {
	return "download"
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return err
	}

	if !config.IsURL(p.Input) {
		return &utils.ValidationError{Field: "input", Message: fmt.Sprintf("not an http(s) URL: %q", p.Input)}
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}
	if _, err := config.ParseVideoQuality(p.Quality); err != nil {
		return &utils.ValidationError{Field: "quality", Message: "unsupported quality", Err: err}
	}
	if _, err := m.cmdExecutor.LookPath(m.binary(p)); err != nil {
		return &utils.ValidationError{Field: "ytDlpPath", Message: fmt.Sprintf("%s not found in PATH", m.binary(p)), Err: err}
	}
	return nil
}

// Execute downloads the video and reports the merged file path
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}

	quality, err := config.ParseVideoQuality(p.Quality)
	if err != nil {
		return modules.ModuleResult{}, err
	}

	videoDir, err := config.Paths{Root: p.Output}.VideoDir()
	if err != nil {
		return modules.ModuleResult{}, err
	}

	args := buildArgs(p.Input, videoDir, quality, p.WithAudio)
	utils.LogInfo("Downloading %s (max %dp)", p.Input, quality.MaxHeight())

	out, err := m.cmdExecutor.ExecuteCommand(ctx, m.binary(p), args)
	if err != nil {
		return modules.ModuleResult{}, fmt.Errorf("yt-dlp failed: %w\n%s", err, strings.TrimSpace(string(out)))
	}

	videoPath, err := downloadedPath(out)
	if err != nil {
		return modules.ModuleResult{}, err
	}

	utils.LogSuccess("Downloaded %s", videoPath)
	return modules.ModuleResult{
		Outputs: map[string]string{
			"video": videoPath,
		},
		Metadata: map[string]interface{}{
			"url":       p.Input,
			"quality":   quality.MaxHeight(),
			"withAudio": p.WithAudio,
		},
	}, nil
}

func (m *Module) binary(p Params) string {
	if p.YtDlpPath != "" {
		return p.YtDlpPath
	}
	if cfg, err := config.FromEnv(); err == nil {
		return cfg.YtDlpPath
	}
	return "yt-dlp"
}

// FormatSelector returns the yt-dlp format expression for quality. Without
// audio it picks the best video-only stream under the height bound.
func FormatSelector(quality config.VideoQuality, withAudio bool) string {
	h := quality.MaxHeight()
	if withAudio {
		return fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", h, h)
	}
	return fmt.Sprintf("bestvideo[height<=%d]/best", h)
}

func buildArgs(url, videoDir string, quality config.VideoQuality, withAudio bool) []string {
	return []string{
		"-f", FormatSelector(quality, withAudio),
		"-o", filepath.Join(videoDir, "%(id)s.%(ext)s"),
		"--merge-output-format", "mp4",
		"--no-warnings",
		"--no-playlist",
		"--print", "after_move:filepath",
		url,
	}
}

// downloadedPath picks the last printed line that names an existing file.
func downloadedPath(out []byte) (string, error) {
	var found string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if info, err := os.Stat(line); err == nil && !info.IsDir() {
			found = line
		}
	}
	if found == "" {
		return "", fmt.Errorf("yt-dlp did not report a downloaded file")
	}
	return found, nil
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "input",
				Description: "Video URL",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "output",
				Description: "Run directory",
				Type:        string(modules.InputTypeDirectory),
			},
		},
		OptionalInputs: []modules.ModuleInput{
			{
				Name:        "quality",
				Description: "Maximum height: 480, 720, 1080, 1440 or 2160 (default: 1080)",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "withAudio",
				Description: "Merge the best audio stream into the download",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "ytDlpPath",
				Description: "Path to the yt-dlp binary",
				Type:        string(modules.InputTypeData),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "video",
				Description: "Downloaded video file",
				Patterns:    []string{".mp4", ".mkv", ".webm"},
				Type:        string(modules.OutputTypeFile),
			},
		},
	}
}
