package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"crossvoice/internal/ffmpeg"
)

// videoExtensions lists container formats the audio command accepts.
var videoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".webm": true,
}

// AudioCmd creates the audio command.
func AudioCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "audio",
		Short: "Extract English audio tracks from videos",
		Long: `Extract the English audio track of every video under videos/ into a
mono 44.1 kHz WAV under wavs/, ready for diarization. Videos whose WAV
already exists are skipped.

Supported containers: avi, mkv, mov, mp4, webm`,
		Example: `  crossvoice audio`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudio(cmd, env)
		},
	}
}

func runAudio(cmd *cobra.Command, env *Env) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	// 1. Config and layout
	_, layout, err := loadLayout(env)
	if err != nil {
		return err
	}

	// 2. ffmpeg and ffprobe
	tools, err := env.ToolsResolver.Resolve(false)
	if err != nil {
		return err
	}

	// 3. Videos present
	videos, err := listVideos(layout.VideoDir)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		return fmt.Errorf("%w in %s", ErrNoVideos, layout.VideoDir)
	}

	// === EXTRACTION ===

	extractor := ffmpeg.NewExtractor(tools)
	type outcome struct{ status string }
	outcomes := make([]outcome, len(videos))
	sem := make(chan struct{}, max(1, min(8, runtime.NumCPU()-1)))

	g, ctx := errgroup.WithContext(ctx)
	for i, video := range videos {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			stem := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
			wavPath := filepath.Join(layout.WavDir, stem+".wav")
			if _, err := os.Stat(wavPath); err == nil {
				outcomes[i] = outcome{status: "already extracted"}
				return nil
			}

			if err := extractor.ExtractEnglishAudio(ctx, video, wavPath); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				outcomes[i] = outcome{status: fmt.Sprintf("failed: %v", err)}
				return nil
			}
			outcomes[i] = outcome{status: "extracted"}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// === SUMMARY ===

	for i, video := range videos {
		fmt.Fprintf(env.Stdout, "%s: %s\n", filepath.Base(video), outcomes[i].status)
	}
	return nil
}

// listVideos returns the video files under dir, sorted.
func listVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var videos []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if videoExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			videos = append(videos, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(videos)
	return videos, nil
}
