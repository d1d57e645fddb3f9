package verify_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"crossvoice/internal/mapping"
	"crossvoice/internal/segment"
	"crossvoice/internal/verify"
)

func newGlobal(t *testing.T, rows []mapping.GlobalRow) *mapping.GlobalTable {
	t.Helper()
	g, err := mapping.LoadOrInitGlobal(filepath.Join(t.TempDir(), "global_mappings.csv"))
	if err != nil {
		t.Fatalf("LoadOrInitGlobal() error = %v", err)
	}
	if err := g.Replace(rows); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	return g
}

func clusterRows() []mapping.GlobalRow {
	return []mapping.GlobalRow{
		{File: "ep1", OriginalSpeaker: "A", GlobalSpeaker: "Speaker_1", Start: 0, End: 2},
		{File: "ep2", OriginalSpeaker: "B", GlobalSpeaker: "Speaker_1", Start: 1, End: 3},
		{File: "ep1", OriginalSpeaker: "C", GlobalSpeaker: "Speaker_2", Start: 4, End: 6},
		{File: "ep2", OriginalSpeaker: "D", GlobalSpeaker: "Speaker_2", Start: 3, End: 5},
	}
}

func newClusterVerifier(t *testing.T, g *mapping.GlobalTable, prompter verify.Prompter) *verify.ClusterVerifier {
	t.Helper()
	f := newFixture(t, map[string][]segment.Segment{
		"ep1": {{Speaker: "A", Start: 0, End: 8}},
		"ep2": {{Speaker: "B", Start: 0, End: 8}},
	})
	return &verify.ClusterVerifier{
		Store:    f.store,
		Global:   g,
		Player:   &countingPlayer{},
		Prompter: prompter,
		Out:      &bytes.Buffer{},
	}
}

func TestClusterVerifyConsistentAndRename(t *testing.T) {
	t.Parallel()

	g := newGlobal(t, clusterRows())
	// Speaker_1: yes, rename to Alice. Speaker_2: yes, keep name.
	v := newClusterVerifier(t, g, &scriptPrompter{answers: []string{"y", "Alice", "y", ""}})

	if err := v.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, r := range g.Rows() {
		if !r.IsVerified {
			t.Errorf("row not verified after review: %+v", r)
		}
		switch r.OriginalSpeaker {
		case "A", "B":
			if r.GlobalSpeaker != "Alice" {
				t.Errorf("renamed cluster row = %+v", r)
			}
		case "C", "D":
			if r.GlobalSpeaker != "Speaker_2" {
				t.Errorf("kept cluster row = %+v", r)
			}
		}
	}
}

func TestClusterVerifyInconsistentFlagsForReview(t *testing.T) {
	t.Parallel()

	g := newGlobal(t, clusterRows())
	v := newClusterVerifier(t, g, &scriptPrompter{answers: []string{"n", "y", ""}})

	if err := v.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, r := range g.Rows() {
		switch r.OriginalSpeaker {
		case "A", "B":
			if r.GlobalSpeaker != "REVIEW_Speaker_1" || r.IsVerified {
				t.Errorf("flagged cluster row = %+v", r)
			}
		case "C", "D":
			if !r.IsVerified {
				t.Errorf("verified cluster row = %+v", r)
			}
		}
	}
}

func TestClusterVerifyEarlyExitLeavesRowsUnverified(t *testing.T) {
	t.Parallel()

	g := newGlobal(t, clusterRows())
	// Answers run out after the first cluster; the second stays untouched.
	v := newClusterVerifier(t, g, &scriptPrompter{answers: []string{"y", ""}})

	err := v.Run(context.Background())
	if err == nil {
		t.Fatal("Run() expected error when answers run out")
	}

	for _, r := range g.Rows() {
		switch r.GlobalSpeaker {
		case "Speaker_1":
			if !r.IsVerified {
				t.Errorf("reviewed cluster row = %+v", r)
			}
		case "Speaker_2":
			if r.IsVerified {
				t.Errorf("untouched cluster row = %+v, want is_verified false", r)
			}
		}
	}
}

func TestClusterVerifyResumeSkipsDecidedClusters(t *testing.T) {
	t.Parallel()

	rows := clusterRows()
	for i := range rows {
		if rows[i].GlobalSpeaker == "Speaker_1" {
			rows[i].IsVerified = true
		}
	}
	g := newGlobal(t, rows)

	prompter := &scriptPrompter{answers: []string{"y", ""}}
	v := newClusterVerifier(t, g, prompter)

	if err := v.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Only Speaker_2 prompts: one consistency question and one rename.
	if prompter.asked != 2 {
		t.Errorf("prompts = %d, want 2", prompter.asked)
	}
}

func TestSampleRowsPrefersDistinctFiles(t *testing.T) {
	t.Parallel()

	rows := []mapping.GlobalRow{
		{File: "ep1", Start: 0, End: 2},
		{File: "ep1", Start: 2, End: 4},
		{File: "ep2", Start: 0, End: 2},
		{File: "ep3", Start: 0, End: 2},
		{File: "ep4", Start: 0, End: 2},
	}

	got := verify.SampleRows(rows, 3)
	if len(got) != 3 {
		t.Fatalf("samples = %d, want 3", len(got))
	}
	files := map[string]bool{}
	for _, r := range got {
		files[r.File] = true
	}
	if len(files) != 3 {
		t.Errorf("distinct files = %d, want 3: %v", len(files), got)
	}
}

func TestSampleRowsFallsBackToFirstThree(t *testing.T) {
	t.Parallel()

	rows := []mapping.GlobalRow{
		{File: "ep1", Start: 0, End: 2},
		{File: "ep1", Start: 2, End: 4},
		{File: "ep2", Start: 0, End: 2},
		{File: "ep2", Start: 2, End: 4},
	}

	got := verify.SampleRows(rows, 3)
	if len(got) != 3 {
		t.Fatalf("samples = %d, want 3", len(got))
	}
	for i := range got {
		if got[i] != rows[i] {
			t.Errorf("sample %d = %+v, want first rows in order", i, got[i])
		}
	}
}
