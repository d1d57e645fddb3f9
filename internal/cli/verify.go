package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"crossvoice/internal/mapping"
	"crossvoice/internal/segment"
	"crossvoice/internal/verify"
)

// VerifyCmd creates the verify command.
func VerifyCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Review global speaker clusters by ear",
		Long: `Play up to three samples from each global speaker cluster and confirm
the voice is consistent. Confirmed clusters may be renamed and are
marked verified; inconsistent clusters are renamed REVIEW_<label>.

Clusters already reviewed are skipped, so a session can be resumed.`,
		Example: `  crossvoice verify`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, env)
		},
	}
}

func runVerify(cmd *cobra.Command, env *Env) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	// 1. Config and layout
	_, layout, err := loadLayout(env)
	if err != nil {
		return err
	}

	// 2. Playback tooling
	tools, err := env.ToolsResolver.Resolve(true)
	if err != nil {
		return err
	}

	// 3. Global mapping present
	global, err := mapping.LoadOrInitGlobal(layout.GlobalFile)
	if err != nil {
		return err
	}
	if len(global.Rows()) == 0 {
		return ErrGlobalMappingEmpty
	}

	// === VERIFICATION ===

	v := &verify.ClusterVerifier{
		Store:    segment.NewStore(layout.JSONDir, layout.WavDir),
		Global:   global,
		Player:   env.Players.NewPlayer(tools),
		Prompter: verify.NewLinePrompter(env.Stdin, env.Stdout),
		Out:      env.Stdout,
	}
	if err := v.Run(ctx); err != nil {
		if errors.Is(err, verify.ErrExited) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(env.Stdout, "Session ended. Run verify again to continue.")
			return nil
		}
		return err
	}

	fmt.Fprintln(env.Stdout, "\nAll clusters reviewed.")
	return nil
}
