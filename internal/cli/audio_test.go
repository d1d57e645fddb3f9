package cli_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"crossvoice/internal/cli"
)

func TestAudioNoVideos(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, "")
	if err := te.layout().Ensure(); err != nil {
		t.Fatal(err)
	}
	// Non-video files must not count.
	notes := filepath.Join(te.layout().VideoDir, "notes.txt")
	if err := os.WriteFile(notes, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := execute(t, cli.AudioCmd(te.env))
	if !errors.Is(err, cli.ErrNoVideos) {
		t.Fatalf("audio error = %v, want ErrNoVideos", err)
	}
}

func TestAudioDataDirMissing(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, "", cli.WithConfigLoader(stubConfigLoader{}))

	err := execute(t, cli.AudioCmd(te.env))
	if !errors.Is(err, cli.ErrDataDirMissing) {
		t.Fatalf("audio error = %v, want ErrDataDirMissing", err)
	}
}
