package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"crossvoice/internal/format"
	"crossvoice/internal/segment"
	"crossvoice/internal/wavio"
)

// artifactSuffix names the per-file embedding artifact.
const artifactSuffix = "_embeddings.json"

// Extraction result statuses.
const (
	StatusExtracted     = "extracted"
	StatusAlreadyExists = "already exists"
)

// Record is one embedding paired with its originating segment.
type Record struct {
	File    string    `json:"file"`
	Speaker string    `json:"speaker"`
	Start   float64   `json:"start"`
	End     float64   `json:"end"`
	Vector  []float32 `json:"vector"`
}

// Job names one file and the target speaker whose segments to embed.
type Job struct {
	File    string
	Speaker string
}

// Result reports the outcome of extraction for one file.
type Result struct {
	File   string
	Status string
	Count  int
	Failed int
	Err    error
}

// Extractor turns each file's eligible segments into an embedding artifact.
type Extractor struct {
	store     *segment.Store
	outDir    string
	backend   Backend
	batchSize int
	progress  io.Writer
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithBatchSize overrides the capability-derived batch size.
func WithBatchSize(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithProgress sets the writer for per-segment failure notices.
func WithProgress(w io.Writer) ExtractorOption {
	return func(e *Extractor) { e.progress = w }
}

// NewExtractor creates an Extractor writing artifacts into outDir.
func NewExtractor(store *segment.Store, outDir string, backend Backend, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		store:     store,
		outDir:    outDir,
		backend:   backend,
		batchSize: batchSizeFor(backend),
		progress:  io.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ArtifactPath returns the embedding artifact path for a file.
func ArtifactPath(dir, fileID string) string {
	return filepath.Join(dir, fileID+artifactSuffix)
}

// ExtractFile embeds every eligible segment of one file's target speaker.
// When the file's artifact already exists the file is skipped entirely and
// the existing record count is reported.
func (e *Extractor) ExtractFile(ctx context.Context, fileID, target string) (Result, error) {
	res := Result{File: fileID}

	artifact := ArtifactPath(e.outDir, fileID)
	if existing, err := ReadArtifact(artifact); err == nil {
		res.Status = StatusAlreadyExists
		res.Count = len(existing)
		return res, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return res, fmt.Errorf("unreadable artifact %s: %w", artifact, err)
	}

	segs, err := e.store.Load(fileID)
	if err != nil {
		return res, err
	}
	audio, err := wavio.ReadFile(e.store.WavPath(fileID))
	if err != nil {
		return res, err
	}
	if audio.SampleRate != wavio.RateDefault && audio.SampleRate != wavio.RateLegacy {
		audio = wavio.Resample(audio, wavio.RateDefault)
	}

	local, ok := segment.MatchLocalLabel(target, segment.Speakers(segs))
	if !ok {
		return res, fmt.Errorf("target %q matches no local speaker in %s", target, fileID)
	}

	var eligible []segment.Segment
	for _, s := range segs {
		if s.Speaker == local && s.Eligible() {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) == 0 {
		return res, fmt.Errorf("no usable segments for target %q in %s", target, fileID)
	}

	records := make([]Record, 0, len(eligible))
	for start := 0; start < len(eligible); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := min(start+e.batchSize, len(eligible))
		batch := eligible[start:end]

		waveforms := make([][]float32, len(batch))
		for i, s := range batch {
			waveforms[i] = wavio.Normalize(wavio.ToFloat32(audio.Slice(s.Start, s.End)))
		}

		vectors, failed := e.encodeBatch(ctx, fileID, batch, waveforms, audio.SampleRate)
		res.Failed += failed
		for i, vec := range vectors {
			if vec == nil {
				continue
			}
			records = append(records, Record{
				File:    fileID,
				Speaker: batch[i].Speaker,
				Start:   batch[i].Start,
				End:     batch[i].End,
				Vector:  vec,
			})
		}
	}

	if err := WriteArtifact(artifact, records); err != nil {
		return res, err
	}
	res.Status = StatusExtracted
	res.Count = len(records)
	return res, nil
}

// encodeBatch embeds one batch with zero-padding to the longest member.
// A failed batch call falls back to encoding items one at a time so a single
// bad segment never discards its batchmates. Returned slice is positional;
// failed items are nil.
func (e *Extractor) encodeBatch(
	ctx context.Context,
	fileID string,
	batch []segment.Segment,
	waveforms [][]float32,
	sampleRate int,
) ([][]float32, int) {
	vectors, err := e.backend.EncodeBatch(ctx, padWaveforms(waveforms), sampleRate)
	if err == nil && len(vectors) == len(waveforms) {
		return vectors, 0
	}

	out := make([][]float32, len(waveforms))
	failed := 0
	for i, w := range waveforms {
		if ctx.Err() != nil {
			failed += len(waveforms) - i
			break
		}
		single, err := e.backend.EncodeBatch(ctx, [][]float32{w}, sampleRate)
		if err != nil || len(single) != 1 {
			failed++
			fmt.Fprintf(e.progress, "  segment %s %s (%s): %v\n",
				fileID, batch[i].Speaker, format.SecondsRange(batch[i].Start, batch[i].End), err)
			continue
		}
		out[i] = single[0]
	}
	return out, failed
}

// padWaveforms zero-pads a ragged batch to its longest member. Inputs are
// copied, never mutated.
func padWaveforms(waveforms [][]float32) [][]float32 {
	longest := 0
	for _, w := range waveforms {
		longest = max(longest, len(w))
	}
	padded := make([][]float32, len(waveforms))
	for i, w := range waveforms {
		p := make([]float32, longest)
		copy(p, w)
		padded[i] = p
	}
	return padded
}

// PoolSize returns how many files may be embedded at once: a single worker
// when the backend requires exclusive accelerator access, otherwise bounded
// by CPU count.
func PoolSize(b Backend) int {
	if !b.ConcurrentSafe() {
		return 1
	}
	return max(1, min(8, runtime.NumCPU()-1))
}

// ExtractAll embeds every job in the list with a bounded worker pool.
// Per-file failures are recorded in the result, not propagated; only
// cancellation aborts the run. Results are in input order.
func (e *Extractor) ExtractAll(ctx context.Context, jobs []Job) ([]Result, error) {
	if len(jobs) == 0 {
		return nil, nil
	}

	results := make([]Result, len(jobs))
	sem := make(chan struct{}, PoolSize(e.backend))

	g, ctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			res, err := e.ExtractFile(ctx, job.File, job.Speaker)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				res.Err = err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ReadArtifact loads one embedding artifact.
func ReadArtifact(path string) ([]Record, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path is under the data dir
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("malformed artifact %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// WriteArtifact persists one embedding artifact via write-then-rename so a
// crash never leaves a half-written artifact at the final path.
func WriteArtifact(path string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize artifact: %w", err)
	}
	return nil
}

// LoadAll reads every embedding artifact in dir, sorted by file name.
func LoadAll(dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), artifactSuffix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var all []Record
	for _, name := range names {
		records, err := ReadArtifact(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}
