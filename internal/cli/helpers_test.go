package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"crossvoice/internal/cli"
	"crossvoice/internal/config"
	"crossvoice/internal/mapping"
	"crossvoice/internal/segment"
	"crossvoice/internal/wavio"
)

// testEnv bundles an Env with its captured output and data directory.
type testEnv struct {
	env     *cli.Env
	dataDir string
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
}

func newTestEnv(t *testing.T, stdin string, opts ...cli.EnvOption) testEnv {
	t.Helper()

	dataDir := t.TempDir()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	base := []cli.EnvOption{
		cli.WithStdin(strings.NewReader(stdin)),
		cli.WithStdout(stdout),
		cli.WithStderr(stderr),
		cli.WithGetenv(func(string) string { return "" }),
		cli.WithConfigLoader(stubConfigLoader{cfg: config.Config{DataDir: dataDir}}),
		cli.WithToolsResolver(stubToolsResolver{}),
		cli.WithPlayerFactory(stubPlayerFactory{player: nopPlayer{}}),
	}
	env := cli.NewEnv(append(base, opts...)...)
	return testEnv{env: env, dataDir: dataDir, stdout: stdout, stderr: stderr}
}

func (te testEnv) layout() config.Layout {
	return config.NewLayout(te.dataDir)
}

// seedFile writes a diarized JSON/WAV pair into the data directory.
func seedFile(t *testing.T, te testEnv, fileID string, segs []segment.Segment) {
	t.Helper()

	layout := te.layout()
	if err := layout.Ensure(); err != nil {
		t.Fatal(err)
	}

	store := segment.NewStore(layout.JSONDir, layout.WavDir)
	if err := store.Save(fileID, segs); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	samples := make([]int16, 10*wavio.RateLegacy)
	audio := wavio.Audio{SampleRate: wavio.RateLegacy, Samples: samples}
	if err := wavio.WriteFile(store.WavPath(fileID), audio); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

// seedTarget records a file's target speaker as identification would.
func seedTarget(t *testing.T, te testEnv, fileID, speaker string) {
	t.Helper()

	targets, err := mapping.LoadOrInitTargets(te.layout().MappingFile)
	if err != nil {
		t.Fatal(err)
	}
	if err := targets.Upsert(fileID, speaker); err != nil {
		t.Fatal(err)
	}
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.ExecuteContext(context.Background())
}

func fileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	return err == nil
}

func readFileString(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", filepath.Base(path), err)
	}
	return string(raw)
}
