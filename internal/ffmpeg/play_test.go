package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestPlay(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	p := NewPlayer(testTools, WithPlayerRunner(runner))

	if err := p.Play(context.Background(), "clip.wav"); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(runner.calls))
	}
	got := strings.Join(runner.calls[0], " ")
	for _, want := range []string{"ffplay", "-nodisp", "-autoexit", "-v quiet", "-hide_banner", "clip.wav"} {
		if !strings.Contains(got, want) {
			t.Errorf("play command missing %q: %s", want, got)
		}
	}
}

func TestPlayFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		outputs: map[string][]byte{"ffplay": []byte("no audio device")},
		errs:    map[string]error{"ffplay": errors.New("exit status 1")},
	}
	p := NewPlayer(testTools, WithPlayerRunner(runner))

	err := p.Play(context.Background(), "clip.wav")
	if !errors.Is(err, ErrPlaybackFailed) {
		t.Fatalf("Play() error = %v, want ErrPlaybackFailed", err)
	}
}
