package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"crossvoice/internal/format"
	"crossvoice/internal/mapping"
	"crossvoice/internal/segment"
)

// ErrExited indicates the operator ended the session. The in-flight
// decision is discarded; everything committed before it is kept.
var ErrExited = errors.New("session ended by operator")

const identifyPrompt = "[Y] target  [N] not target  [T] next same speaker  [L] listen again  [X] exit: "

// Identifier walks each file's unprocessed segments and asks the operator
// to pick the file's target speaker.
type Identifier struct {
	Store    *segment.Store
	Targets  *mapping.TargetTable
	Player   Player
	Prompter Prompter
	Out      io.Writer
}

// Run processes the given files in order. Files that already have a target
// or no unprocessed segments are skipped, so an interrupted session picks
// up where it left off.
func (id *Identifier) Run(ctx context.Context, fileIDs []string) error {
	for _, fileID := range fileIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, done := id.Targets.Get(fileID); done {
			continue
		}
		if err := id.runFile(ctx, fileID); err != nil {
			return err
		}
	}
	return nil
}

func (id *Identifier) runFile(ctx context.Context, fileID string) error {
	segs, err := id.Store.Load(fileID)
	if err != nil {
		return err
	}

	idx, ok := segment.NextUnprocessed(segs, -1)
	if !ok {
		return nil
	}
	fmt.Fprintf(id.Out, "\n=== %s (%d segments) ===\n", fileID, len(segs))

	for ok {
		if err := ctx.Err(); err != nil {
			return err
		}

		seg := segs[idx]
		if !seg.Eligible() {
			// Too short to judge by ear.
			segs[idx].IdentifiedAs = segment.StatusNotTargeted
			if err := id.Store.Save(fileID, segs); err != nil {
				return err
			}
			idx, ok = segment.NextUnprocessed(segs, idx)
			continue
		}

		fmt.Fprintf(id.Out, "%s %s (%s)\n",
			fileID, seg.Speaker, format.SecondsRange(seg.Start, seg.End))
		if err := id.play(ctx, fileID, seg); err != nil {
			return err
		}

		next, advanced, err := id.decide(ctx, fileID, segs, idx)
		if err != nil {
			return err
		}
		if !advanced {
			return nil // target confirmed, rest of the file stays unexamined
		}
		idx, ok = next, next >= 0
	}
	return nil
}

// decide prompts until the operator makes a decision for the segment at
// idx. It returns the next segment index, or advanced=false when the file
// is finished.
func (id *Identifier) decide(ctx context.Context, fileID string, segs []segment.Segment, idx int) (next int, advanced bool, err error) {
	seg := segs[idx]
	for {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}

		answer, err := id.Prompter.Ask(identifyPrompt)
		if err != nil {
			return 0, false, err
		}

		switch strings.ToUpper(strings.TrimSpace(answer)) {
		case "Y":
			if err := id.Targets.Upsert(fileID, seg.Speaker); err != nil {
				return 0, false, err
			}
			segment.MarkAndCascade(segs, idx, segment.StatusTargeted)
			if err := id.Store.Save(fileID, segs); err != nil {
				return 0, false, err
			}
			fmt.Fprintf(id.Out, "Target for %s: %s\n", fileID, seg.Speaker)
			return 0, false, nil

		case "N":
			segment.MarkAndCascade(segs, idx, segment.StatusNotTargeted)
			if err := id.Store.Save(fileID, segs); err != nil {
				return 0, false, err
			}
			n, ok := segment.NextUnprocessed(segs, idx)
			if !ok {
				return -1, true, nil
			}
			return n, true, nil

		case "T":
			if n, ok := segment.NextSameSpeaker(segs, idx, seg.Speaker); ok {
				return n, true, nil
			}
			// No further segment for this speaker: treat as a rejection.
			segment.MarkAndCascade(segs, idx, segment.StatusNotTargeted)
			if err := id.Store.Save(fileID, segs); err != nil {
				return 0, false, err
			}
			n, ok := segment.NextUnprocessed(segs, idx)
			if !ok {
				return -1, true, nil
			}
			return n, true, nil

		case "L":
			if err := id.play(ctx, fileID, seg); err != nil {
				return 0, false, err
			}

		case "X":
			return 0, false, ErrExited

		default:
			fmt.Fprintf(id.Out, "Unknown command %q\n", answer)
		}
	}
}

// play plays a segment, reporting playback problems without failing the
// session.
func (id *Identifier) play(ctx context.Context, fileID string, seg segment.Segment) error {
	err := playRange(ctx, id.Player, id.Store.WavPath(fileID), seg.Start, seg.End)
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintf(id.Out, "playback failed: %v\n", err)
	return nil
}
