// Package embed converts audio segments into fixed-length speaker embedding
// vectors through an external pretrained model. Two backends exist: an HTTP
// server that accepts batches, and a local binary that processes one clip at
// a time through the filesystem. The extractor dispatches on capability, not
// on backend identity.
package embed

import (
	"context"
	"fmt"
	"strings"

	"crossvoice/internal/apierr"
)

// Batch size policy. Accelerated backends take larger batches and backends
// that serialize inference take smaller ones; DefaultBatchSize applies when
// a batch-capable backend reports nothing about its hardware.
const (
	DefaultBatchSize    = 8
	ConcurrentBatchSize = 16
	SerializedBatchSize = 4
)

// Backend produces speaker embeddings from waveforms.
type Backend interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Batchable reports whether EncodeBatch accepts more than one waveform
	// per call.
	Batchable() bool

	// ConcurrentSafe reports whether EncodeBatch may be called from multiple
	// goroutines at once.
	ConcurrentSafe() bool

	// Probe checks that the backend is reachable and ready.
	Probe(ctx context.Context) error

	// EncodeBatch converts waveforms into one fixed-length vector each.
	// All waveforms share the given sample rate.
	EncodeBatch(ctx context.Context, waveforms [][]float32, sampleRate int) ([][]float32, error)
}

// batchSizer is implemented by backends that know their preferred batch
// size, typically after probing the serving hardware.
type batchSizer interface {
	BatchSize() int
}

// batchSizeFor derives the batch size from a backend's capabilities.
func batchSizeFor(b Backend) int {
	if !b.Batchable() {
		return 1
	}
	if s, ok := b.(batchSizer); ok {
		return s.BatchSize()
	}
	return DefaultBatchSize
}

// Acquire probes candidate backends in order and returns the first one that
// answers. Each probe is retried with exponential backoff for transient
// failures. When every candidate fails, the error wraps
// apierr.ErrModelUnavailable.
func Acquire(ctx context.Context, retry apierr.Backoff, candidates ...Backend) (Backend, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no backend candidates configured", apierr.ErrModelUnavailable)
	}

	var tried []string
	for _, b := range candidates {
		err := retry.Do(ctx, apierr.IsRetryable, func() error {
			return b.Probe(ctx)
		})
		if err == nil {
			return b, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		tried = append(tried, fmt.Sprintf("%s (%v)", b.Name(), err))
	}
	return nil, fmt.Errorf("%w: tried %s", apierr.ErrModelUnavailable, strings.Join(tried, "; "))
}
