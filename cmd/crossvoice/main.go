package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"crossvoice/internal/apierr"
	"crossvoice/internal/cli"
	"crossvoice/internal/cluster"
	"crossvoice/internal/ffmpeg"
	"crossvoice/internal/interrupt"
	"crossvoice/internal/segment"
	"crossvoice/internal/wavio"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitInterrupt  = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C cancels the context so the current unit can finish;
	// a second one aborts immediately.
	handler, ctx := interrupt.NewHandler(context.Background())
	defer handler.Stop()

	env := cli.DefaultEnv()

	rootCmd := &cobra.Command{
		Use:     "crossvoice",
		Short:   "Identify and track speakers across diarized audio files",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.AudioCmd(env))
	rootCmd.AddCommand(cli.IdentifyCmd(env))
	rootCmd.AddCommand(cli.ExtractCmd(env))
	rootCmd.AddCommand(cli.ClusterCmd(env))
	rootCmd.AddCommand(cli.VerifyCmd(env))
	rootCmd.AddCommand(cli.IsolateCmd(env))
	rootCmd.AddCommand(cli.SummaryCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors: Cobra flag/arg parsing. Cobra doesn't expose typed
	// errors, so known message patterns are matched instead.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors: missing tools, backends, or configuration.
	if errors.Is(err, ffmpeg.ErrNotFound) ||
		errors.Is(err, apierr.ErrModelUnavailable) ||
		errors.Is(err, apierr.ErrAuthFailed) ||
		errors.Is(err, cli.ErrDataDirMissing) {
		return ExitSetup
	}

	// Validation errors: bad or missing inputs.
	if errors.Is(err, cli.ErrNoFiles) ||
		errors.Is(err, cli.ErrNoVideos) ||
		errors.Is(err, cli.ErrNoEmbeddings) ||
		errors.Is(err, cli.ErrGlobalMappingEmpty) ||
		errors.Is(err, cli.ErrNoTargets) ||
		errors.Is(err, cluster.ErrInsufficientData) ||
		errors.Is(err, segment.ErrNotFound) ||
		errors.Is(err, ffmpeg.ErrNoEnglishAudio) ||
		errors.Is(err, wavio.ErrNotWAV) ||
		errors.Is(err, wavio.ErrUnsupportedFormat) {
		return ExitValidation
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate
// Cobra usage errors. These patterns are stable across Cobra versions.
var cobraUsageErrorPatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"unknown command",
	"flag needs an argument",
	"invalid argument",
	"accepts ",
	"requires at least",
	"requires at most",
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
