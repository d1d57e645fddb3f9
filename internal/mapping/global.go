package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
)

var globalHeader = []string{"file", "original_speaker", "global_speaker", "start", "end", "is_verified"}

// GlobalRow links one embedding's segment to its global speaker identity.
type GlobalRow struct {
	File            string
	OriginalSpeaker string
	GlobalSpeaker   string
	Start           float64
	End             float64
	IsVerified      bool
}

// GlobalTable is the on-disk global speaker mapping.
type GlobalTable struct {
	path string
	rows []GlobalRow
}

// LoadOrInitGlobal opens the global mapping at path, creating it when
// absent. A file with an unrecognized header is replaced by an empty table.
func LoadOrInitGlobal(path string) (*GlobalTable, error) {
	g := &GlobalTable{path: path}

	f, err := os.Open(path) // #nosec G304 -- path is under the data dir
	if errors.Is(err, fs.ErrNotExist) {
		return g, g.save()
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed global mapping %s: %w", path, err)
	}
	if len(records) == 0 || !headerEqual(records[0], globalHeader) {
		return g, g.save()
	}

	for _, rec := range records[1:] {
		row, ok := parseGlobalRow(rec)
		if !ok {
			continue
		}
		g.rows = append(g.rows, row)
	}
	return g, nil
}

func parseGlobalRow(rec []string) (GlobalRow, bool) {
	if len(rec) < 6 || rec[0] == "" {
		return GlobalRow{}, false
	}
	start, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return GlobalRow{}, false
	}
	end, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return GlobalRow{}, false
	}
	verified, err := strconv.ParseBool(rec[5])
	if err != nil {
		verified = false
	}
	return GlobalRow{
		File:            rec[0],
		OriginalSpeaker: rec[1],
		GlobalSpeaker:   rec[2],
		Start:           start,
		End:             end,
		IsVerified:      verified,
	}, true
}

// Rows returns the table contents in file order.
func (g *GlobalTable) Rows() []GlobalRow {
	return append([]GlobalRow(nil), g.rows...)
}

// Replace swaps in a freshly computed mapping and persists it.
func (g *GlobalTable) Replace(rows []GlobalRow) error {
	g.rows = append([]GlobalRow(nil), rows...)
	return g.save()
}

// Speakers returns the distinct global speaker labels in first-appearance
// order.
func (g *GlobalTable) Speakers() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, r := range g.rows {
		if _, ok := seen[r.GlobalSpeaker]; ok {
			continue
		}
		seen[r.GlobalSpeaker] = struct{}{}
		out = append(out, r.GlobalSpeaker)
	}
	return out
}

// RowsFor returns the rows belonging to one global speaker.
func (g *GlobalTable) RowsFor(globalSpeaker string) []GlobalRow {
	var out []GlobalRow
	for _, r := range g.rows {
		if r.GlobalSpeaker == globalSpeaker {
			out = append(out, r)
		}
	}
	return out
}

// ApplyVerification renames a global speaker and sets the verified flag on
// every row in the cluster, then persists. Applying the same verification
// twice is a no-op.
func (g *GlobalTable) ApplyVerification(globalSpeaker, newLabel string, verified bool) error {
	if newLabel == "" {
		newLabel = globalSpeaker
	}
	changed := false
	for i, r := range g.rows {
		if r.GlobalSpeaker != globalSpeaker {
			continue
		}
		if r.GlobalSpeaker != newLabel || r.IsVerified != verified {
			g.rows[i].GlobalSpeaker = newLabel
			g.rows[i].IsVerified = verified
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return g.save()
}

// save rewrites the whole table.
func (g *GlobalTable) save() error {
	records := [][]string{globalHeader}
	for _, r := range g.rows {
		records = append(records, []string{
			r.File,
			r.OriginalSpeaker,
			r.GlobalSpeaker,
			strconv.FormatFloat(r.Start, 'f', -1, 64),
			strconv.FormatFloat(r.End, 'f', -1, 64),
			strconv.FormatBool(r.IsVerified),
		})
	}
	return writeCSV(g.path, records)
}
