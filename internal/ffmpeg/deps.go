package ffmpeg

import (
	"context"
	"os/exec"
)

// commandRunner executes external commands.
type commandRunner interface {
	// CombinedOutput runs a command and returns stdout+stderr together.
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
	// Output runs a command and returns stdout only.
	Output(ctx context.Context, name string, args []string) ([]byte, error)
}

// osCommandRunner implements commandRunner using exec.CommandContext.
type osCommandRunner struct{}

func (osCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name and args are assembled internally, not user input
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

func (osCommandRunner) Output(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name and args are assembled internally, not user input
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}
