package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"crossvoice/internal/mapping"
)

// SummaryCmd creates the summary command.
func SummaryCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show segment counts per file and global speaker",
		Long: `Project the global mapping into per-file, per-speaker segment counts,
print them as a table, and write them to speaker_summary.csv.`,
		Example: `  crossvoice summary`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(env)
		},
	}
}

func runSummary(env *Env) error {
	// === VALIDATION (fail-fast) ===

	_, layout, err := loadLayout(env)
	if err != nil {
		return err
	}

	global, err := mapping.LoadOrInitGlobal(layout.GlobalFile)
	if err != nil {
		return err
	}
	rows := global.Rows()
	if len(rows) == 0 {
		return ErrGlobalMappingEmpty
	}

	// === SUMMARY ===

	summary := mapping.Summarize(rows)

	tw := table.NewWriter()
	tw.SetOutputMirror(env.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"File", "Global speaker", "Segments"})
	for _, r := range summary {
		tw.AppendRow(table.Row{r.File, r.GlobalSpeaker, r.Count})
	}
	tw.Render()

	if err := mapping.WriteSummary(layout.SummaryFile, summary); err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "Summary written to %s\n", layout.SummaryFile)
	return nil
}
