package chapters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnzdotmx/chapterize/internal/utils"
	"gopkg.in/yaml.v3"
)

// Load reads a chapters document. .yaml and .yml files are parsed as YAML,
// everything else as JSON.
func Load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chapters file: %w", err)
	}

	var res Result
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("failed to parse chapters YAML %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("failed to parse chapters JSON %s: %w", path, err)
		}
	}
	return &res, nil
}

// Write stores res as indented JSON, or YAML for .yaml/.yml paths.
func Write(path string, res *Result) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		out, err := yaml.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to marshal chapters: %w", err)
		}
		data = out
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to marshal chapters: %w", err)
		}
		data = buf.Bytes()
	}
	return utils.WriteTextFile(path, string(data))
}

// PathFor returns chapters/<transcript stem>.json under dir
func PathFor(dir, transcriptPath string) string {
	return filepath.Join(dir, utils.TrimExt(transcriptPath)+".json")
}

// Decode parses a model reply. The reply may wrap the JSON in a markdown
// fence, surround it with prose, or be a bare array of chapters.
func Decode(reply string) (*Result, error) {
	body := stripFence(strings.TrimSpace(reply))

	if obj := between(body, '{', '}'); obj != "" {
		var res Result
		if err := json.Unmarshal([]byte(obj), &res); err == nil && res.Chapters != nil {
			return &res, nil
		}
	}
	if arr := between(body, '[', ']'); arr != "" {
		var chs []Chapter
		if err := json.Unmarshal([]byte(arr), &chs); err == nil {
			return &Result{Chapters: chs}, nil
		}
	}
	return nil, fmt.Errorf("no chapters JSON found in model reply")
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the language tag line
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

func between(s string, open, close byte) string {
	i := strings.IndexByte(s, open)
	j := strings.LastIndexByte(s, close)
	if i < 0 || j <= i {
		return ""
	}
	return s[i : j+1]
}
