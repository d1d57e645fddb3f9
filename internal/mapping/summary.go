package mapping

import (
	"sort"
	"strconv"
)

var summaryHeader = []string{"file", "global_speaker", "segment_count"}

// SummaryRow counts how many segments a global speaker has in one file.
type SummaryRow struct {
	File          string
	GlobalSpeaker string
	Count         int
}

// Summarize projects the global mapping into per-(file, speaker) segment
// counts, sorted by file then speaker.
func Summarize(rows []GlobalRow) []SummaryRow {
	counts := make(map[[2]string]int)
	for _, r := range rows {
		counts[[2]string{r.File, r.GlobalSpeaker}]++
	}

	out := make([]SummaryRow, 0, len(counts))
	for key, n := range counts {
		out = append(out, SummaryRow{File: key[0], GlobalSpeaker: key[1], Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].GlobalSpeaker < out[j].GlobalSpeaker
	})
	return out
}

// WriteSummary persists summary rows as CSV.
func WriteSummary(path string, rows []SummaryRow) error {
	records := [][]string{summaryHeader}
	for _, r := range rows {
		records = append(records, []string{r.File, r.GlobalSpeaker, strconv.Itoa(r.Count)})
	}
	return writeCSV(path, records)
}

// AnnotateGlobalSpeakers writes each file's most common global speaker into
// the target table's annotation column. Ties go to the speaker appearing
// first in the mapping. The human-chosen target column is never modified,
// and files without a target row are not added.
func AnnotateGlobalSpeakers(targets *TargetTable, rows []GlobalRow) error {
	type tally struct {
		count int
		order int
	}
	byFile := make(map[string]map[string]*tally)
	var files []string

	for i, r := range rows {
		speakers, ok := byFile[r.File]
		if !ok {
			speakers = make(map[string]*tally)
			byFile[r.File] = speakers
			files = append(files, r.File)
		}
		t, ok := speakers[r.GlobalSpeaker]
		if !ok {
			t = &tally{order: i}
			speakers[r.GlobalSpeaker] = t
		}
		t.count++
	}

	for _, file := range files {
		best := ""
		var bestTally *tally
		for speaker, t := range byFile[file] {
			if bestTally == nil ||
				t.count > bestTally.count ||
				(t.count == bestTally.count && t.order < bestTally.order) {
				best = speaker
				bestTally = t
			}
		}
		if err := targets.Annotate(file, best); err != nil {
			return err
		}
	}
	return nil
}
