package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"crossvoice/internal/format"
	"crossvoice/internal/mapping"
	"crossvoice/internal/segment"
)

// ReviewPrefix marks clusters the operator judged inconsistent.
const ReviewPrefix = "REVIEW_"

// maxSamples is how many segments are played per cluster.
const maxSamples = 3

// ClusterVerifier replays samples from each global speaker cluster and asks
// the operator whether the voice is consistent.
type ClusterVerifier struct {
	Store    *segment.Store
	Global   *mapping.GlobalTable
	Player   Player
	Prompter Prompter
	Out      io.Writer
}

// Run reviews every undecided cluster. Clusters already verified or already
// flagged for review are skipped. Clusters left untouched when the run ends
// keep is_verified = false.
func (v *ClusterVerifier) Run(ctx context.Context) error {
	for _, speaker := range v.Global.Speakers() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if decided(speaker, v.Global.RowsFor(speaker)) {
			continue
		}
		if err := v.reviewCluster(ctx, speaker); err != nil {
			return err
		}
	}
	return nil
}

// decided reports whether a cluster has already been reviewed in a prior
// session.
func decided(speaker string, rows []mapping.GlobalRow) bool {
	if strings.HasPrefix(speaker, ReviewPrefix) {
		return true
	}
	for _, r := range rows {
		if !r.IsVerified {
			return false
		}
	}
	return len(rows) > 0
}

func (v *ClusterVerifier) reviewCluster(ctx context.Context, speaker string) error {
	rows := v.Global.RowsFor(speaker)
	samples := sampleRows(rows, maxSamples)

	fmt.Fprintf(v.Out, "\n=== %s (%d segments) ===\n", speaker, len(rows))
	v.renderSamples(samples)

	for i, r := range samples {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(v.Out, "Playing sample %d/%d...\n", i+1, len(samples))
		if err := v.play(ctx, r); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	answer, err := v.Prompter.Ask("Is this voice consistent across all samples? [y/N]: ")
	if err != nil {
		return err
	}

	if !strings.EqualFold(strings.TrimSpace(answer), "y") {
		flagged := ReviewPrefix + speaker
		fmt.Fprintf(v.Out, "Flagged as %s\n", flagged)
		return v.Global.ApplyVerification(speaker, flagged, false)
	}

	name, err := v.Prompter.Ask(fmt.Sprintf("New name for %s (enter to keep): ", speaker))
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = speaker
	}
	fmt.Fprintf(v.Out, "Verified as %s\n", name)
	return v.Global.ApplyVerification(speaker, name, true)
}

// sampleRows picks up to limit representative rows, one per source file
// when at least limit distinct files exist, otherwise simply the first
// limit rows.
func sampleRows(rows []mapping.GlobalRow, limit int) []mapping.GlobalRow {
	byFile := make(map[string]mapping.GlobalRow)
	var order []string
	for _, r := range rows {
		if _, ok := byFile[r.File]; !ok {
			byFile[r.File] = r
			order = append(order, r.File)
		}
	}

	if len(order) >= limit {
		out := make([]mapping.GlobalRow, 0, limit)
		for _, file := range order[:limit] {
			out = append(out, byFile[file])
		}
		return out
	}

	if len(rows) > limit {
		rows = rows[:limit]
	}
	return append([]mapping.GlobalRow(nil), rows...)
}

func (v *ClusterVerifier) renderSamples(samples []mapping.GlobalRow) {
	tw := table.NewWriter()
	tw.SetOutputMirror(v.Out)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "File", "Local speaker", "Range"})
	for i, r := range samples {
		tw.AppendRow(table.Row{i + 1, r.File, r.OriginalSpeaker, format.SecondsRange(r.Start, r.End)})
	}
	tw.Render()
}

func (v *ClusterVerifier) play(ctx context.Context, r mapping.GlobalRow) error {
	err := playRange(ctx, v.Player, v.Store.WavPath(r.File), r.Start, r.End)
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintf(v.Out, "playback failed: %v\n", err)
	return nil
}
