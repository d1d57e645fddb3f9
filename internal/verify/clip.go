package verify

import (
	"context"
	"fmt"
	"os"

	"crossvoice/internal/wavio"
)

// Player plays an audio clip and blocks until it finishes.
type Player interface {
	Play(ctx context.Context, clipPath string) error
}

// playRange exports one time range of a WAV to a temporary clip and plays
// it. The clip is removed afterwards.
func playRange(ctx context.Context, player Player, wavPath string, start, end float64) error {
	audio, err := wavio.ReadFile(wavPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", wavPath, err)
	}

	clip, err := os.CreateTemp("", "crossvoice-clip-*.wav")
	if err != nil {
		return fmt.Errorf("failed to create clip: %w", err)
	}
	clipPath := clip.Name()
	_ = clip.Close()
	defer func() { _ = os.Remove(clipPath) }()

	slice := wavio.Audio{SampleRate: audio.SampleRate, Samples: audio.Slice(start, end)}
	if err := wavio.WriteFile(clipPath, slice); err != nil {
		return fmt.Errorf("failed to write clip: %w", err)
	}
	return player.Play(ctx, clipPath)
}
