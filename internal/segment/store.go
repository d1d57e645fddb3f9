package segment

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound indicates the JSON/WAV pair backing a file is missing.
var ErrNotFound = errors.New("segment data not found")

// Store loads and persists per-file segment lists. A file is identified by
// its stem: <stem>.json under the JSON directory paired with <stem>.wav
// under the WAV directory.
type Store struct {
	jsonDir string
	wavDir  string
}

// NewStore creates a Store over the given directories.
func NewStore(jsonDir, wavDir string) *Store {
	return &Store{jsonDir: jsonDir, wavDir: wavDir}
}

// JSONPath returns the diarization JSON path for a file.
func (s *Store) JSONPath(fileID string) string {
	return filepath.Join(s.jsonDir, fileID+".json")
}

// WavPath returns the audio path for a file.
func (s *Store) WavPath(fileID string) string {
	return filepath.Join(s.wavDir, fileID+".wav")
}

// Files lists the file IDs (JSON stems) present in the store, sorted.
func (s *Store) Files() ([]string, error) {
	entries, err := os.ReadDir(s.jsonDir)
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", s.jsonDir, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Load reads a file's segment list, preserving diarization emission order.
// Entries missing a speaker label or with a non-positive time range are
// skipped at the boundary rather than propagated. Segments without a
// status default to unprocessed. Fails with ErrNotFound when either the
// JSON or the WAV half of the pair is missing.
func (s *Store) Load(fileID string) ([]Segment, error) {
	jsonPath := s.JSONPath(fileID)
	if _, err := os.Stat(jsonPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jsonPath)
	}
	if _, err := os.Stat(s.WavPath(fileID)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.WavPath(fileID))
	}

	data, err := os.ReadFile(jsonPath) // #nosec G304 -- path from the dataset layout
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", jsonPath, err)
	}

	var raw []Segment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid diarization JSON %s: %w", jsonPath, err)
	}

	segs := make([]Segment, 0, len(raw))
	for _, seg := range raw {
		if seg.Speaker == "" || seg.End <= seg.Start {
			continue
		}
		if seg.IdentifiedAs == "" {
			seg.IdentifiedAs = StatusUnprocessed
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// Save writes a file's segment list back, synchronously, so that every
// committed decision survives an interruption.
func (s *Store) Save(fileID string, segs []Segment) error {
	data, err := json.MarshalIndent(segs, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode segments: %w", err)
	}

	jsonPath := s.JSONPath(fileID)
	// #nosec G302 G304 -- segment metadata with standard permissions under the data dir
	f, err := os.OpenFile(jsonPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", jsonPath, err)
	}

	_, writeErr := f.Write(data)
	if writeErr == nil {
		writeErr = f.Sync()
	}
	if err := f.Close(); writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		return fmt.Errorf("cannot write %s: %w", jsonPath, writeErr)
	}
	return nil
}
