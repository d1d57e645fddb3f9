// Package segment models diarized speaker segments and their per-file
// identification state. Segment lists come from the diarization
// collaborator as JSON and keep their emission order; identification status
// is the only mutable field and every mutation is written through to disk
// so an interrupted session loses at most the in-flight decision.
package segment

import (
	"strconv"
	"strings"
)

// MinDuration is the minimum segment length (seconds) eligible for
// identification and embedding. Shorter segments carry too little voice to
// be useful and are dropped everywhere.
const MinDuration = 1.0

// Status is the identification state of a segment.
// Transitions are forward-only: unprocessed -> {targeted, not_targeted}.
type Status string

const (
	StatusUnprocessed Status = "unprocessed"
	StatusTargeted    Status = "targeted"
	StatusNotTargeted Status = "not_targeted"
)

// Segment is one diarized time range attributed to a local speaker label.
// Start/End are seconds from the beginning of the source file.
type Segment struct {
	Speaker      string  `json:"speaker"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	IdentifiedAs Status  `json:"identified_as,omitempty"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Eligible reports whether the segment is long enough for identification
// and embedding.
func (s Segment) Eligible() bool {
	return s.Duration() >= MinDuration
}

// NextUnprocessed returns the first index after from whose segment is still
// unprocessed. Pass from = -1 to scan from the beginning.
func NextUnprocessed(segs []Segment, from int) (int, bool) {
	for i := from + 1; i < len(segs); i++ {
		if segs[i].IdentifiedAs == StatusUnprocessed {
			return i, true
		}
	}
	return 0, false
}

// NextSameSpeaker returns the first index after from with an unprocessed
// segment by the same speaker.
func NextSameSpeaker(segs []Segment, from int, speaker string) (int, bool) {
	for i := from + 1; i < len(segs); i++ {
		if segs[i].Speaker == speaker && segs[i].IdentifiedAs == StatusUnprocessed {
			return i, true
		}
	}
	return 0, false
}

// MarkAndCascade sets the segment at index to outcome. Rejecting a speaker
// rejects all their future segments in the file: when outcome is
// not_targeted, every later unprocessed segment with the same speaker is
// marked not_targeted too. Earlier segments are never touched.
func MarkAndCascade(segs []Segment, index int, outcome Status) {
	if index < 0 || index >= len(segs) {
		return
	}
	segs[index].IdentifiedAs = outcome
	if outcome != StatusNotTargeted {
		return
	}
	speaker := segs[index].Speaker
	for i := index + 1; i < len(segs); i++ {
		if segs[i].Speaker == speaker && segs[i].IdentifiedAs == StatusUnprocessed {
			segs[i].IdentifiedAs = StatusNotTargeted
		}
	}
}

// Speakers returns the distinct speaker labels in emission order.
func Speakers(segs []Segment) []string {
	seen := make(map[string]bool, 4)
	var out []string
	for _, s := range segs {
		if !seen[s.Speaker] {
			seen[s.Speaker] = true
			out = append(out, s.Speaker)
		}
	}
	return out
}

// MatchLocalLabel resolves a global speaker label against a file's local
// labels, best effort: exact match, then case-insensitive, then trailing
// numeric suffix, then singleton fallback when the file has exactly one
// local label. Returns false when nothing matches.
func MatchLocalLabel(global string, locals []string) (string, bool) {
	for _, l := range locals {
		if l == global {
			return l, true
		}
	}

	for _, l := range locals {
		if strings.EqualFold(l, global) {
			return l, true
		}
	}

	if n, ok := trailingNumber(global); ok {
		for _, l := range locals {
			if m, ok := trailingNumber(l); ok && m == n {
				return l, true
			}
		}
	}

	if len(locals) == 1 {
		return locals[0], true
	}

	return "", false
}

// trailingNumber extracts the trailing decimal digits of a label.
// "REVIEW_Speaker_2" -> 2, "SPEAKER_07" -> 7.
func trailingNumber(label string) (int, bool) {
	end := len(label)
	start := end
	for start > 0 && label[start-1] >= '0' && label[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(label[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
