package cli_test

import (
	"context"
	"sync"

	"crossvoice/internal/config"
	"crossvoice/internal/embed"
	"crossvoice/internal/ffmpeg"
	"crossvoice/internal/verify"
)

type stubConfigLoader struct {
	cfg config.Config
	err error
}

func (s stubConfigLoader) Load() (config.Config, error) {
	return s.cfg, s.err
}

type stubToolsResolver struct {
	tools ffmpeg.Tools
	err   error
}

func (s stubToolsResolver) Resolve(bool) (ffmpeg.Tools, error) {
	return s.tools, s.err
}

type stubBackendProvider struct {
	backend embed.Backend
	err     error
}

func (s stubBackendProvider) Acquire(context.Context, config.Config) (embed.Backend, error) {
	return s.backend, s.err
}

type stubPlayerFactory struct {
	player verify.Player
}

func (s stubPlayerFactory) NewPlayer(ffmpeg.Tools) verify.Player {
	return s.player
}

type nopPlayer struct{}

func (nopPlayer) Play(context.Context, string) error { return nil }

// stubBackend returns a constant-direction vector per waveform length so
// clustering in tests is deterministic.
type stubBackend struct {
	mu    sync.Mutex
	calls int
}

var _ embed.Backend = (*stubBackend)(nil)

func (b *stubBackend) Name() string         { return "stub" }
func (b *stubBackend) Batchable() bool      { return true }
func (b *stubBackend) ConcurrentSafe() bool { return true }

func (b *stubBackend) Probe(context.Context) error { return nil }

func (b *stubBackend) EncodeBatch(_ context.Context, waveforms [][]float32, _ int) ([][]float32, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	out := make([][]float32, len(waveforms))
	for i, w := range waveforms {
		out[i] = []float32{float32(len(w)), 1, 0, 0}
	}
	return out, nil
}
