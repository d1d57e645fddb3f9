package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"crossvoice/internal/embed"
	"crossvoice/internal/mapping"
	"crossvoice/internal/segment"
)

// ExtractCmd creates the extract command.
func ExtractCmd(env *Env) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract speaker embeddings for every identified file",
		Long: `Convert each identified file's target-speaker segments into embedding
vectors using the configured embedding backend (embed-server, falling
back to embed-binary). Only segments of the target speaker recorded
during identification are embedded.

Segments shorter than 1 second are skipped. Files with an existing
embedding artifact are not re-extracted.`,
		Example: `  crossvoice extract
  crossvoice extract --batch-size 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, env, batchSize)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Segments per backend call (default: derived from the backend)")

	return cmd
}

func runExtract(cmd *cobra.Command, env *Env, batchSize int) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	// 1. Config and layout
	cfg, layout, err := loadLayout(env)
	if err != nil {
		return err
	}

	// 2. Identified targets present
	targets, err := mapping.LoadOrInitTargets(layout.MappingFile)
	if err != nil {
		return err
	}
	var jobs []embed.Job
	for _, row := range targets.Rows() {
		if row.Speaker == "" || row.Speaker == notTargetMarker {
			continue
		}
		jobs = append(jobs, embed.Job{File: row.WavFile, Speaker: row.Speaker})
	}
	if len(jobs) == 0 {
		return ErrNoTargets
	}

	// 3. Embedding backend
	backend, err := env.Backends.Acquire(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "Using %s (%d workers)\n", backend.Name(), embed.PoolSize(backend))

	// === EXTRACTION ===

	store := segment.NewStore(layout.JSONDir, layout.WavDir)
	extractor := embed.NewExtractor(store, layout.EmbeddingsDir, backend,
		embed.WithBatchSize(batchSize),
		embed.WithProgress(env.Stderr),
	)
	results, err := extractor.ExtractAll(ctx, jobs)
	if err != nil {
		return err
	}

	// === SUMMARY ===

	var extracted, skipped, failed int
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
			fmt.Fprintf(env.Stdout, "%s: failed: %v\n", res.File, res.Err)
		case res.Status == embed.StatusAlreadyExists:
			skipped++
			fmt.Fprintf(env.Stdout, "%s: already exists (%d embeddings)\n", res.File, res.Count)
		default:
			extracted++
			if res.Failed > 0 {
				fmt.Fprintf(env.Stdout, "%s: %d embeddings, %d segments failed\n", res.File, res.Count, res.Failed)
			} else {
				fmt.Fprintf(env.Stdout, "%s: %d embeddings\n", res.File, res.Count)
			}
		}
	}
	fmt.Fprintf(env.Stdout, "\nDone: %d extracted, %d already present, %d failed\n",
		extracted, skipped, failed)
	return nil
}
