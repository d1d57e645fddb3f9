package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"crossvoice/internal/cluster"
	"crossvoice/internal/embed"
	"crossvoice/internal/mapping"
)

// ClusterCmd creates the cluster command.
func ClusterCmd(env *Env) *cobra.Command {
	var nClusters int

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Merge embeddings into global speaker identities",
		Long: `Cluster all embeddings across all files into global speakers and write
the global mapping. Each file's most common global speaker is noted
next to that file's target; the target itself is left untouched.

The cluster count defaults to a heuristic based on how many local
speakers the corpus holds.`,
		Example: `  crossvoice cluster
  crossvoice cluster --n-clusters 12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCluster(env, nClusters)
		},
	}

	cmd.Flags().IntVar(&nClusters, "n-clusters", 0, "Number of global speakers (default: derived)")

	return cmd
}

func runCluster(env *Env, nClusters int) error {
	// === VALIDATION (fail-fast) ===

	// 1. Config and layout
	_, layout, err := loadLayout(env)
	if err != nil {
		return err
	}

	// 2. Embeddings present
	records, err := embed.LoadAll(layout.EmbeddingsDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if len(records) == 0 {
		return ErrNoEmbeddings
	}

	// === CLUSTERING ===

	res, err := cluster.Cluster(records, nClusters)
	if err != nil {
		return err
	}

	rows := make([]mapping.GlobalRow, len(records))
	for i, r := range records {
		rows[i] = mapping.GlobalRow{
			File:            r.File,
			OriginalSpeaker: r.Speaker,
			GlobalSpeaker:   res.Labels[i],
			Start:           r.Start,
			End:             r.End,
		}
	}

	// === PERSISTENCE ===

	global, err := mapping.LoadOrInitGlobal(layout.GlobalFile)
	if err != nil {
		return err
	}
	if err := global.Replace(rows); err != nil {
		return err
	}

	targets, err := mapping.LoadOrInitTargets(layout.MappingFile)
	if err != nil {
		return err
	}
	if err := mapping.AnnotateGlobalSpeakers(targets, rows); err != nil {
		return err
	}

	fmt.Fprintf(env.Stdout, "Clustered %d embeddings into %d global speakers\n", len(records), res.K)
	fmt.Fprintf(env.Stdout, "Global mapping written to %s\n", layout.GlobalFile)
	return nil
}
