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

// IdentifyCmd creates the identify command.
func IdentifyCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "identify",
		Short: "Pick each file's target speaker by ear",
		Long: `Walk through every diarized file, playing one segment at a time, and
record which local speaker is the file's target.

Commands at each segment:
  Y  this speaker is the target (ends the file)
  N  not the target; the speaker's remaining segments are skipped
  T  play the next segment of the same speaker
  L  listen to the current segment again
  X  exit; everything decided so far is kept

Files that already have a target are skipped, so a session can be
resumed at any time.`,
		Example: `  crossvoice identify`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIdentify(cmd, env)
		},
	}
}

func runIdentify(cmd *cobra.Command, env *Env) error {
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

	// 3. Diarized files present
	store := segment.NewStore(layout.JSONDir, layout.WavDir)
	files, err := store.Files()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w in %s", ErrNoFiles, layout.JSONDir)
	}

	// 4. Target table
	targets, err := mapping.LoadOrInitTargets(layout.MappingFile)
	if err != nil {
		return err
	}

	// === IDENTIFICATION ===

	id := &verify.Identifier{
		Store:    store,
		Targets:  targets,
		Player:   env.Players.NewPlayer(tools),
		Prompter: verify.NewLinePrompter(env.Stdin, env.Stdout),
		Out:      env.Stdout,
	}
	if err := id.Run(ctx, files); err != nil {
		// X and a single Ctrl+C at a unit boundary both end the session
		// normally; decided units are already on disk.
		if errors.Is(err, verify.ErrExited) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(env.Stdout, "Session ended. Run identify again to continue.")
			return nil
		}
		return err
	}

	fmt.Fprintf(env.Stdout, "\nAll %d files processed.\n", len(files))
	return nil
}
