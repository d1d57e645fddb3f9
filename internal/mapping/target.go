// Package mapping persists the pipeline's two CSV tables: the per-file
// target speaker table and the global speaker mapping produced by
// clustering. Tables are small and rewritten whole on every save, with a
// flush and fsync before any save returns.
package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Canonical target table header. Earlier tool generations wrote the same
// table under different column names; those are accepted on read and
// normalized on the next save.
var (
	targetHeader = []string{"wav_file", "speaker"}
	// annotatedTargetHeader is written once clustering has recorded each
	// file's global speaker next to the human-chosen target.
	annotatedTargetHeader = []string{"wav_file", "speaker", "global_speaker"}
	legacyTargetHeaders   = [][]string{
		{"json_file", "target_speaker_label"},
		{"episode", "target_speaker"},
	}
)

// Target maps one file to its chosen target speaker. GlobalSpeaker is
// filled in by clustering and never replaces the human decision in Speaker.
type Target struct {
	WavFile       string
	Speaker       string
	GlobalSpeaker string
}

// TargetTable is the on-disk file-to-target-speaker mapping.
type TargetTable struct {
	path string
	rows []Target
}

// LoadOrInitTargets opens the target table at path, creating it when
// absent. A file with an unrecognized header is replaced by an empty table;
// foreign rows are never merged.
func LoadOrInitTargets(path string) (*TargetTable, error) {
	t := &TargetTable{path: path}

	f, err := os.Open(path) // #nosec G304 -- path is under the data dir
	if errors.Is(err, fs.ErrNotExist) {
		return t, t.save()
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed target table %s: %w", path, err)
	}
	if len(records) == 0 || !knownTargetHeader(records[0]) {
		return t, t.save()
	}

	for _, rec := range records[1:] {
		if len(rec) < 2 || rec[0] == "" {
			continue
		}
		row := Target{WavFile: rec[0], Speaker: rec[1]}
		if len(rec) > 2 {
			row.GlobalSpeaker = rec[2]
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func knownTargetHeader(header []string) bool {
	if headerEqual(header, targetHeader) || headerEqual(header, annotatedTargetHeader) {
		return true
	}
	for _, legacy := range legacyTargetHeaders {
		if headerEqual(header, legacy) {
			return true
		}
	}
	return false
}

func headerEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Rows returns the table contents in file order.
func (t *TargetTable) Rows() []Target {
	return append([]Target(nil), t.rows...)
}

// Get returns the target speaker recorded for a file.
func (t *TargetTable) Get(wavFile string) (string, bool) {
	for _, r := range t.rows {
		if r.WavFile == wavFile {
			return r.Speaker, true
		}
	}
	return "", false
}

// Upsert records a file's target speaker, replacing any earlier choice, and
// persists the table before returning.
func (t *TargetTable) Upsert(wavFile, speaker string) error {
	for i, r := range t.rows {
		if r.WavFile == wavFile {
			t.rows[i].Speaker = speaker
			return t.save()
		}
	}
	t.rows = append(t.rows, Target{WavFile: wavFile, Speaker: speaker})
	return t.save()
}

// Annotate records a file's global speaker alongside its target. Files
// without a target row are left alone; the speaker column is never touched.
func (t *TargetTable) Annotate(wavFile, globalSpeaker string) error {
	for i, r := range t.rows {
		if r.WavFile == wavFile {
			if r.GlobalSpeaker == globalSpeaker {
				return nil
			}
			t.rows[i].GlobalSpeaker = globalSpeaker
			return t.save()
		}
	}
	return nil
}

// save rewrites the whole table under the canonical header, switching to
// the annotated header once any row carries a global speaker.
func (t *TargetTable) save() error {
	annotated := false
	for _, r := range t.rows {
		if r.GlobalSpeaker != "" {
			annotated = true
			break
		}
	}

	header := targetHeader
	if annotated {
		header = annotatedTargetHeader
	}
	records := [][]string{header}
	for _, r := range t.rows {
		rec := []string{r.WavFile, r.Speaker}
		if annotated {
			rec = append(rec, r.GlobalSpeaker)
		}
		records = append(records, rec)
	}
	return writeCSV(t.path, records)
}

// writeCSV rewrites a CSV file and syncs it to disk.
func writeCSV(path string, records [][]string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return f.Close()
}
