package cli_test

import (
	"errors"
	"strings"
	"testing"

	"crossvoice/internal/cli"
)

func TestSummaryRendersAndWritesCSV(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, "")
	seedGlobal(t, te)

	if err := execute(t, cli.SummaryCmd(te.env)); err != nil {
		t.Fatalf("summary error = %v", err)
	}

	out := te.stdout.String()
	for _, want := range []string{"ep1", "ep2", "Speaker_1", "Speaker_2"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	if !fileExists(t, te.layout().SummaryFile) {
		t.Fatal("summary CSV not written")
	}
	csv := readFileString(t, te.layout().SummaryFile)
	if !strings.HasPrefix(csv, "file,global_speaker,segment_count") {
		t.Errorf("summary CSV header = %q", strings.SplitN(csv, "\n", 2)[0])
	}
	if !strings.Contains(csv, "ep1,Speaker_1,1") {
		t.Errorf("summary CSV missing count row:\n%s", csv)
	}
}

func TestSummaryEmptyGlobalMapping(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, "")
	if err := te.layout().Ensure(); err != nil {
		t.Fatal(err)
	}

	err := execute(t, cli.SummaryCmd(te.env))
	if !errors.Is(err, cli.ErrGlobalMappingEmpty) {
		t.Fatalf("summary error = %v, want ErrGlobalMappingEmpty", err)
	}
}
