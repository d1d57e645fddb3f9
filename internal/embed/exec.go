package embed

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"crossvoice/internal/apierr"
	"crossvoice/internal/wavio"
)

// runFunc executes an external command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- name and args are assembled internally, not user input
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ExecBackend runs a local embedding binary, one clip at a time: the
// waveform goes out as a temporary WAV, the vector comes back as a raw
// little-endian float32 file. Accelerator access is serialized, so the
// backend is neither batchable nor concurrent-safe.
type ExecBackend struct {
	binary string
	run    runFunc
}

// ExecOption configures an ExecBackend.
type ExecOption func(*ExecBackend)

// WithExecRunner sets the command runner (for testing).
func WithExecRunner(r runFunc) ExecOption {
	return func(b *ExecBackend) { b.run = r }
}

// NewExecBackend creates a backend around the embedding binary at path.
func NewExecBackend(binary string, opts ...ExecOption) *ExecBackend {
	b := &ExecBackend{binary: binary, run: runCommand}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ Backend = (*ExecBackend)(nil)

func (b *ExecBackend) Name() string         { return "binary " + b.binary }
func (b *ExecBackend) Batchable() bool      { return false }
func (b *ExecBackend) ConcurrentSafe() bool { return false }

// Probe checks that the binary exists and is executable.
func (b *ExecBackend) Probe(_ context.Context) error {
	info, err := os.Stat(b.binary)
	if err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrModelUnavailable, err)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s is not executable", apierr.ErrModelUnavailable, b.binary)
	}
	return nil
}

// EncodeBatch encodes each waveform through a filesystem roundtrip.
func (b *ExecBackend) EncodeBatch(ctx context.Context, waveforms [][]float32, sampleRate int) ([][]float32, error) {
	dir, err := os.MkdirTemp("", "crossvoice-embed-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	vectors := make([][]float32, 0, len(waveforms))
	for i, w := range waveforms {
		wavPath := filepath.Join(dir, fmt.Sprintf("clip_%d.wav", i))
		vecPath := filepath.Join(dir, fmt.Sprintf("clip_%d.vec", i))

		audio := wavio.Audio{SampleRate: sampleRate, Samples: toPCM16(w)}
		if err := wavio.WriteFile(wavPath, audio); err != nil {
			return nil, fmt.Errorf("failed to write clip: %w", err)
		}

		out, err := b.run(ctx, b.binary, "-input", wavPath, "-output", vecPath)
		if err != nil {
			return nil, fmt.Errorf("embedding binary failed: %v\nOutput: %s", err, string(out))
		}

		vec, err := readVector(vecPath)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

// readVector reads a raw little-endian float32 vector file.
func readVector(path string) ([]float32, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path is inside our temp dir
	if err != nil {
		return nil, fmt.Errorf("failed to read vector: %w", err)
	}
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil, fmt.Errorf("malformed vector file %s: %d bytes", filepath.Base(path), len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec, nil
}

// toPCM16 converts [-1, 1] float samples back to 16-bit PCM with clipping.
func toPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := s * 32767
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}
