package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/gnzdotmx/chapterize/internal/utils"
)

// Runner executes one ffmpeg invocation. args excludes the binary name.
type Runner interface {
	Run(ctx context.Context, args []string) error
}

// execCommand allows us to mock exec.CommandContext in tests
var execCommand = exec.CommandContext

// FFmpegRunner runs the ffmpeg binary
type FFmpegRunner struct {
	Binary string
	// Quiet captures ffmpeg output and only prints it on failure
	Quiet bool
}

// NewFFmpegRunner creates a runner for binary, defaulting to "ffmpeg" on PATH.
func NewFFmpegRunner(binary string, quiet bool) *FFmpegRunner {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegRunner{Binary: binary, Quiet: quiet}
}

// Run executes ffmpeg and reports a non-zero exit as an error.
func (r *FFmpegRunner) Run(ctx context.Context, args []string) error {
	if r.Quiet {
		args = append([]string{"-v", "error", "-stats"}, args...)
	}

	cmd := execCommand(ctx, r.Binary, args...)
	utils.LogDebug("Running: %s %s", r.Binary, strings.Join(args, " "))

	var stderr bytes.Buffer
	if r.Quiet {
		cmd.Stdout = nil
		cmd.Stderr = &stderr
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if stderr.Len() > 0 {
			return fmt.Errorf("%s: %w\n%s", r.Binary, err, strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("%s: %w", r.Binary, err)
	}
	return nil
}
