package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrDataDirMissing indicates no data directory is configured.
	ErrDataDirMissing = errors.New("data directory not configured (run 'crossvoice config set data-dir <path>')")

	// ErrNoFiles indicates the data directory holds no diarized JSON/WAV pairs.
	ErrNoFiles = errors.New("no diarized files found")

	// ErrNoVideos indicates the videos directory holds no video files.
	ErrNoVideos = errors.New("no video files found")

	// ErrNoEmbeddings indicates no embedding artifacts exist yet.
	ErrNoEmbeddings = errors.New("no embeddings found (run 'crossvoice extract' first)")

	// ErrGlobalMappingEmpty indicates the global mapping has no rows yet.
	ErrGlobalMappingEmpty = errors.New("global mapping is empty (run 'crossvoice cluster' first)")

	// ErrNoTargets indicates the target mapping has no rows yet.
	ErrNoTargets = errors.New("no target speakers mapped (run 'crossvoice identify' first)")
)
