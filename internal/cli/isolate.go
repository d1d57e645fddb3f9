package cli

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"crossvoice/internal/mapping"
	"crossvoice/internal/segment"
	"crossvoice/internal/wavio"
)

// notTargetMarker marks files recorded as having no target speaker.
const notTargetMarker = "not-target-speaker"

// IsolateCmd creates the isolate command.
func IsolateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "isolate",
		Short: "Export each target speaker's segments as clips",
		Long: `Cut every mapped file's target speaker segments (1 second or longer)
into standalone WAV clips under targeted/. Files whose target is empty
or marked ` + notTargetMarker + ` are skipped.`,
		Example: `  crossvoice isolate`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIsolate(cmd, env)
		},
	}
}

func runIsolate(cmd *cobra.Command, env *Env) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	// 1. Config and layout
	_, layout, err := loadLayout(env)
	if err != nil {
		return err
	}

	// 2. Target mapping present
	targets, err := mapping.LoadOrInitTargets(layout.MappingFile)
	if err != nil {
		return err
	}
	rows := targets.Rows()
	if len(rows) == 0 {
		return ErrNoTargets
	}

	// === EXPORT ===

	store := segment.NewStore(layout.JSONDir, layout.WavDir)
	counts := make([]int, len(rows))
	sem := make(chan struct{}, max(1, min(8, runtime.NumCPU()-1)))

	g, ctx := errgroup.WithContext(ctx)
	for i, row := range rows {
		if row.Speaker == "" || row.Speaker == notTargetMarker {
			counts[i] = -1
			continue
		}
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			n, err := isolateFile(store, layout.TargetedDir, row)
			if err != nil {
				fmt.Fprintf(env.Stderr, "%s: %v\n", row.WavFile, err)
				counts[i] = -1
				return nil
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total := 0
	for i, n := range counts {
		if n < 0 {
			continue
		}
		total += n
		fmt.Fprintf(env.Stdout, "%s: %d clips\n", rows[i].WavFile, n)
	}
	fmt.Fprintf(env.Stdout, "\nExported %d clips to %s\n", total, layout.TargetedDir)
	return nil
}

// isolateFile exports one file's target speaker segments, de-duplicating
// identical time ranges.
func isolateFile(store *segment.Store, outDir string, row mapping.Target) (int, error) {
	segs, err := store.Load(row.WavFile)
	if err != nil {
		return 0, err
	}

	local, ok := segment.MatchLocalLabel(row.Speaker, segment.Speakers(segs))
	if !ok {
		return 0, fmt.Errorf("target %q matches no local speaker", row.Speaker)
	}

	audio, err := wavio.ReadFile(store.WavPath(row.WavFile))
	if err != nil {
		return 0, err
	}

	seen := make(map[[2]float64]struct{})
	count := 0
	for _, s := range segs {
		if s.Speaker != local || !s.Eligible() {
			continue
		}
		key := [2]float64{s.Start, s.End}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		clip := wavio.Audio{SampleRate: audio.SampleRate, Samples: audio.Slice(s.Start, s.End)}
		name := fmt.Sprintf("%s_%s_%.2f-%.2f.wav", row.WavFile, sanitizeLabel(local), s.Start, s.End)
		if err := wavio.WriteFile(filepath.Join(outDir, name), clip); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// sanitizeLabel makes a speaker label safe for file names.
func sanitizeLabel(label string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, label)
}
