package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExecLookPath allows us to mock exec.LookPath in tests
var ExecLookPath = exec.LookPath

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateInputFile checks that path names an existing regular file.
// field is the parameter name reported in the error.
func ValidateInputFile(field, path string) error {
	if path == "" {
		return &ValidationError{
			Field:   field,
			Message: "path is required",
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("file does not exist: %s", path),
			Err:     err,
		}
	}
	if info.IsDir() {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("expected a file but got a directory: %s", path),
		}
	}
	return nil
}

// ValidateOutputPath validates an output directory, creating it if needed
func ValidateOutputPath(output string) error {
	if output == "" {
		return &ValidationError{
			Field:   "output",
			Message: "output path is required",
		}
	}

	if err := os.MkdirAll(output, 0755); err != nil {
		return &ValidationError{
			Field:   "output",
			Message: "failed to create output directory",
			Err:     err,
		}
	}

	return nil
}

// ValidateFileExtension checks if a file has one of the allowed extensions
func ValidateFileExtension(filePath string, allowedExts []string) error {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, allowedExt := range allowedExts {
		if ext == allowedExt {
			return nil
		}
	}
	return &ValidationError{
		Field:   "extension",
		Message: fmt.Sprintf("file extension %s not allowed. Allowed extensions: %v", ext, allowedExts),
	}
}
