package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// EnsureDir creates dir and its parents if missing and returns it
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return dir, nil
}

// FileExists reports whether path is an existing regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// SanitizeFilename turns a free-form title into a file name component.
// Runs of unsafe characters collapse to a single underscore.
func SanitizeFilename(name string) string {
	s := unsafeFileChars.ReplaceAllString(strings.TrimSpace(name), "_")
	s = strings.Trim(s, "_.")
	if r := []rune(s); len(r) > 80 {
		s = strings.TrimRight(string(r[:80]), "_.")
	}
	if s == "" {
		return "untitled"
	}
	return s
}

// TrimExt returns the base name of path without its extension
func TrimExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WriteTextFile writes content to filePath, creating parent directories
func WriteTextFile(filePath string, content string) error {
	if _, err := EnsureDir(filepath.Dir(filePath)); err != nil {
		return err
	}
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	LogDebug("Successfully wrote content to %s", filePath)
	return nil
}

// ExpandHomeDir expands a path if it starts with "~/"
func ExpandHomeDir(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
