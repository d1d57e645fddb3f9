package verify_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"crossvoice/internal/mapping"
	"crossvoice/internal/segment"
	"crossvoice/internal/verify"
	"crossvoice/internal/wavio"
)

// scriptPrompter replays canned answers.
type scriptPrompter struct {
	answers []string
	asked   int
}

func (p *scriptPrompter) Ask(string) (string, error) {
	if p.asked >= len(p.answers) {
		return "", io.EOF
	}
	answer := p.answers[p.asked]
	p.asked++
	return answer, nil
}

// countingPlayer records how many clips were played.
type countingPlayer struct {
	plays int
	err   error
}

func (p *countingPlayer) Play(context.Context, string) error {
	p.plays++
	return p.err
}

type fixture struct {
	store   *segment.Store
	targets *mapping.TargetTable
}

func newFixture(t *testing.T, segsByFile map[string][]segment.Segment) fixture {
	t.Helper()

	root := t.TempDir()
	jsonDir := filepath.Join(root, "jsons")
	wavDir := filepath.Join(root, "wavs")
	for _, dir := range []string{jsonDir, wavDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatal(err)
		}
	}

	store := segment.NewStore(jsonDir, wavDir)
	for fileID, segs := range segsByFile {
		if err := store.Save(fileID, segs); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		samples := make([]int16, 10*wavio.RateLegacy)
		audio := wavio.Audio{SampleRate: wavio.RateLegacy, Samples: samples}
		if err := wavio.WriteFile(store.WavPath(fileID), audio); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	targets, err := mapping.LoadOrInitTargets(filepath.Join(root, "mappings.csv"))
	if err != nil {
		t.Fatalf("LoadOrInitTargets() error = %v", err)
	}
	return fixture{store: store, targets: targets}
}

func newIdentifier(f fixture, prompter verify.Prompter) *verify.Identifier {
	return &verify.Identifier{
		Store:    f.store,
		Targets:  f.targets,
		Player:   &countingPlayer{},
		Prompter: prompter,
		Out:      &bytes.Buffer{},
	}
}

func TestIdentifyRejectThenConfirm(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string][]segment.Segment{
		"ep1": {
			{Speaker: "A", Start: 0, End: 2},
			{Speaker: "A", Start: 2, End: 4},
			{Speaker: "B", Start: 4, End: 6},
		},
	})
	id := newIdentifier(f, &scriptPrompter{answers: []string{"n", "y"}})

	if err := id.Run(context.Background(), []string{"ep1"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if speaker, ok := f.targets.Get("ep1"); !ok || speaker != "B" {
		t.Errorf("target = %q, %v; want B, true", speaker, ok)
	}

	segs, err := f.store.Load("ep1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []segment.Status{segment.StatusNotTargeted, segment.StatusNotTargeted, segment.StatusTargeted}
	for i, w := range want {
		if segs[i].IdentifiedAs != w {
			t.Errorf("segment %d status = %q, want %q", i, segs[i].IdentifiedAs, w)
		}
	}
}

func TestIdentifyConfirmLeavesRestUnexamined(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string][]segment.Segment{
		"ep1": {
			{Speaker: "A", Start: 0, End: 2},
			{Speaker: "B", Start: 2, End: 4},
			{Speaker: "C", Start: 4, End: 6},
		},
	})
	id := newIdentifier(f, &scriptPrompter{answers: []string{"y"}})

	if err := id.Run(context.Background(), []string{"ep1"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	segs, _ := f.store.Load("ep1")
	if segs[0].IdentifiedAs != segment.StatusTargeted {
		t.Errorf("confirmed segment status = %q", segs[0].IdentifiedAs)
	}
	for i := 1; i < 3; i++ {
		if segs[i].IdentifiedAs != segment.StatusUnprocessed {
			t.Errorf("segment %d status = %q, want unprocessed", i, segs[i].IdentifiedAs)
		}
	}
}

func TestIdentifySkipsShortSegments(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string][]segment.Segment{
		"ep1": {
			{Speaker: "A", Start: 0, End: 0.5}, // below the gate, no prompt
			{Speaker: "B", Start: 1, End: 3},
		},
	})
	prompter := &scriptPrompter{answers: []string{"y"}}
	id := newIdentifier(f, prompter)

	if err := id.Run(context.Background(), []string{"ep1"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	segs, _ := f.store.Load("ep1")
	if segs[0].IdentifiedAs != segment.StatusNotTargeted {
		t.Errorf("short segment status = %q, want auto not_targeted", segs[0].IdentifiedAs)
	}
	if speaker, _ := f.targets.Get("ep1"); speaker != "B" {
		t.Errorf("target = %q, want B", speaker)
	}
	if prompter.asked != 1 {
		t.Errorf("prompts = %d, want 1 (short segment never asked)", prompter.asked)
	}
}

func TestIdentifyNextSameSpeakerFallsBackToReject(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string][]segment.Segment{
		"ep1": {
			{Speaker: "A", Start: 0, End: 2}, // T with no further A segment
			{Speaker: "B", Start: 2, End: 4},
		},
	})
	id := newIdentifier(f, &scriptPrompter{answers: []string{"t", "y"}})

	if err := id.Run(context.Background(), []string{"ep1"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	segs, _ := f.store.Load("ep1")
	if segs[0].IdentifiedAs != segment.StatusNotTargeted {
		t.Errorf("segment 0 status = %q, want not_targeted", segs[0].IdentifiedAs)
	}
	if speaker, _ := f.targets.Get("ep1"); speaker != "B" {
		t.Errorf("target = %q, want B", speaker)
	}
}

func TestIdentifyExitDiscardsInFlightDecision(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string][]segment.Segment{
		"ep1": {
			{Speaker: "A", Start: 0, End: 2},
			{Speaker: "B", Start: 2, End: 4},
		},
	})
	id := newIdentifier(f, &scriptPrompter{answers: []string{"x"}})

	err := id.Run(context.Background(), []string{"ep1"})
	if !errors.Is(err, verify.ErrExited) {
		t.Fatalf("Run() error = %v, want ErrExited", err)
	}

	if _, ok := f.targets.Get("ep1"); ok {
		t.Error("exit persisted an in-flight decision")
	}
	segs, _ := f.store.Load("ep1")
	for i, s := range segs {
		if s.IdentifiedAs != segment.StatusUnprocessed {
			t.Errorf("segment %d status = %q, want unprocessed", i, s.IdentifiedAs)
		}
	}
}

func TestIdentifyResumesSkippingMappedFiles(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string][]segment.Segment{
		"ep1": {{Speaker: "A", Start: 0, End: 2}},
		"ep2": {{Speaker: "B", Start: 0, End: 2}},
	})
	if err := f.targets.Upsert("ep1", "A"); err != nil {
		t.Fatal(err)
	}

	prompter := &scriptPrompter{answers: []string{"y"}}
	id := newIdentifier(f, prompter)

	if err := id.Run(context.Background(), []string{"ep1", "ep2"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if prompter.asked != 1 {
		t.Errorf("prompts = %d, want 1 (mapped file skipped)", prompter.asked)
	}
	if speaker, _ := f.targets.Get("ep2"); speaker != "B" {
		t.Errorf("ep2 target = %q, want B", speaker)
	}
}

func TestIdentifyReplayDoesNotAdvance(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string][]segment.Segment{
		"ep1": {{Speaker: "A", Start: 0, End: 2}},
	})
	player := &countingPlayer{}
	id := &verify.Identifier{
		Store:    f.store,
		Targets:  f.targets,
		Player:   player,
		Prompter: &scriptPrompter{answers: []string{"l", "l", "y"}},
		Out:      &bytes.Buffer{},
	}

	if err := id.Run(context.Background(), []string{"ep1"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Initial play plus two replays.
	if player.plays != 3 {
		t.Errorf("plays = %d, want 3", player.plays)
	}
	if speaker, _ := f.targets.Get("ep1"); speaker != "A" {
		t.Errorf("target = %q, want A", speaker)
	}
}
