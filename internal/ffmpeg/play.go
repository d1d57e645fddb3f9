package ffmpeg

import (
	"context"
	"fmt"
)

// Player plays audio clips through ffplay.
type Player struct {
	tools Tools
	cmd   commandRunner
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithPlayerRunner sets the command runner (for testing).
func WithPlayerRunner(r commandRunner) PlayerOption {
	return func(p *Player) { p.cmd = r }
}

// NewPlayer creates a Player using the resolved tools.
func NewPlayer(tools Tools, opts ...PlayerOption) *Player {
	p := &Player{tools: tools, cmd: osCommandRunner{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play plays a clip and blocks until playback finishes. Playback is never
// interrupted mid-clip; cancellation is honored by the caller at the next
// unit boundary.
func (p *Player) Play(ctx context.Context, clipPath string) error {
	args := []string{"-nodisp", "-autoexit", "-v", "quiet", "-hide_banner", clipPath}
	if out, err := p.cmd.CombinedOutput(ctx, p.tools.FFplay, args); err != nil {
		return fmt.Errorf("%w: %s: %v\nOutput: %s", ErrPlaybackFailed, clipPath, err, string(out))
	}
	return nil
}
