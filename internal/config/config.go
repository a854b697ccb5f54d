// Package config resolves runtime settings from the environment and lays
// out the data directory shared by the pipeline steps.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment variable names
const (
	EnvBaseDataDir = "BASE_DATA_DIR"
	EnvLLMAPIKey   = "LLM_API_KEY"
	EnvGeminiKey   = "GEMINI_API_KEY"
	EnvLLMBaseURL  = "LLM_BASE_URL"
	EnvGeminiModel = "GEMINI_MODEL"
	EnvFFmpegPath  = "FFMPEG_PATH"
	EnvYtDlpPath   = "YTDLP_PATH"
	EnvWhisperPath = "WHISPER_PATH"
	EnvFontsDir    = "FONTS_DIR"
	EnvWorkers     = "WORKERS"
)

// DefaultLLMBaseURL is Gemini's OpenAI-compatible endpoint
const DefaultLLMBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// Config holds settings read from the environment
type Config struct {
	BaseDataDir string
	LLMAPIKey   string
	LLMBaseURL  string
	Model       Model
	FFmpegPath  string
	YtDlpPath   string
	WhisperPath string
	FontsDir    string
	Workers     int
}

// FromEnv reads Config from the process environment. Unset values fall back
// to defaults; malformed ones are errors.
func FromEnv() (*Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		BaseDataDir: get(EnvBaseDataDir, "data"),
		LLMAPIKey:   get(EnvLLMAPIKey, get(EnvGeminiKey, "")),
		LLMBaseURL:  get(EnvLLMBaseURL, DefaultLLMBaseURL),
		FFmpegPath:  get(EnvFFmpegPath, "ffmpeg"),
		YtDlpPath:   get(EnvYtDlpPath, "yt-dlp"),
		WhisperPath: get(EnvWhisperPath, "whisper"),
		FontsDir:    get(EnvFontsDir, "assets/fonts"),
		Workers:     1,
	}

	model, err := ResolveModel(get(EnvGeminiModel, ""))
	if err != nil {
		return nil, err
	}
	cfg.Model = model

	if v := get(EnvWorkers, ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%s must be a positive integer, got %q", EnvWorkers, v)
		}
		cfg.Workers = n
	}
	return cfg, nil
}

// Paths returns the data layout rooted at BaseDataDir
func (c *Config) Paths() Paths {
	return Paths{Root: c.BaseDataDir}
}

// Directory names under the data root
const (
	VideoDirName      = "videos"
	AudioDirName      = "audio"
	TranscriptDirName = "transcripts"
	ChapterDirName    = "chapters"
	ShortsDirName     = "shorts"
)

// Paths is the on-disk layout. Each accessor creates its directory.
type Paths struct {
	Root string
}

func (p Paths) ensure(name string) (string, error) {
	dir := filepath.Join(p.Root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// VideoDir holds downloaded sources
func (p Paths) VideoDir() (string, error) { return p.ensure(VideoDirName) }

// AudioDir holds extracted WAV tracks
func (p Paths) AudioDir() (string, error) { return p.ensure(AudioDirName) }

// TranscriptDir holds whisper output
func (p Paths) TranscriptDir() (string, error) { return p.ensure(TranscriptDirName) }

// ChapterDir holds chapter JSON files
func (p Paths) ChapterDir() (string, error) { return p.ensure(ChapterDirName) }

// ShortsDir holds per-chapter intermediates and final shorts
func (p Paths) ShortsDir() (string, error) { return p.ensure(ShortsDirName) }
