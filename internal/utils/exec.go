package utils

import (
	"context"
	"os/exec"
)

// CommandExecutor runs external tools such as yt-dlp and whisper
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, name string, args []string) ([]byte, error)
	LookPath(file string) (string, error)
}

// RealCommandExecutor runs commands on the host
type RealCommandExecutor struct{}

// ExecuteCommand runs name and returns its combined output
func (e *RealCommandExecutor) ExecuteCommand(ctx context.Context, name string, args []string) ([]byte, error) {
	LogDebug("Running: %s %v", name, args)
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// LookPath resolves file through ExecLookPath
func (e *RealCommandExecutor) LookPath(file string) (string, error) {
	return ExecLookPath(file)
}
