// Package refdata serves the reference files that live beside the
// database: the failure-mode catalog and the motor specification sheet.
// Both are plain CSV so plant engineers can edit them directly.
package refdata

import (
	"encoding/csv"
	"errors"
	"os"
	"strings"
)

// ErrUnknownType is returned when the catalog has no column for the
// requested object type.
var ErrUnknownType = errors.New("object type not in failure-mode catalog")

// sensorKeywords maps instrument-style type names onto the shared
// "Sensor" column.
var sensorKeywords = []string{
	"switch", "element", "transmitter", "gauge", "indicator",
	"detector", "monitor", "phasor", "probe", "sensor",
}

// canonicalType folds instrument variants into "Sensor" and leaves
// everything else as given.
func canonicalType(objectType string) string {
	lower := strings.ToLower(objectType)
	for _, kw := range sensorKeywords {
		if strings.Contains(lower, kw) {
			return "Sensor"
		}
	}
	return strings.TrimSpace(objectType)
}

// readCatalog loads the catalog CSV. The header row holds object
// types; each column below it lists that type's failure modes.
func readCatalog(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// columnIndex finds the catalog column for an object type,
// case-insensitively.
func columnIndex(header []string, objectType string) int {
	want := strings.ToLower(strings.TrimSpace(objectType))
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i
		}
	}
	return -1
}

// FailureModes lists the known failure modes for an object type.
func FailureModes(path, objectType string) ([]string, error) {
	records, err := readCatalog(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrUnknownType
	}
	col := columnIndex(records[0], canonicalType(objectType))
	if col < 0 {
		return nil, ErrUnknownType
	}
	var modes []string
	for _, row := range records[1:] {
		if col >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[col]); v != "" {
			modes = append(modes, v)
		}
	}
	return modes, nil
}

// AddFailureMode appends a mode to an object type's column, creating
// the column when the type is new. Reports false when the mode was
// already present.
func AddFailureMode(path, objectType, mode string) (bool, error) {
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return false, errors.New("empty failure mode")
	}
	objectType = canonicalType(objectType)

	records, err := readCatalog(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return false, err
		}
		records = [][]string{{}}
	}
	if len(records) == 0 {
		records = [][]string{{}}
	}

	col := columnIndex(records[0], objectType)
	if col < 0 {
		records[0] = append(records[0], objectType)
		col = len(records[0]) - 1
	}

	// Find the first free slot in the column, rejecting duplicates.
	target := -1
	for i, row := range records[1:] {
		if col < len(row) && strings.EqualFold(strings.TrimSpace(row[col]), mode) {
			return false, nil
		}
		if target < 0 && (col >= len(row) || strings.TrimSpace(row[col]) == "") {
			target = i + 1
		}
	}
	if target < 0 {
		records = append(records, make([]string, col+1))
		target = len(records) - 1
	}
	for len(records[target]) <= col {
		records[target] = append(records[target], "")
	}
	records[target][col] = mode

	// Square the grid so the writer accepts it.
	width := 0
	for _, row := range records {
		if len(row) > width {
			width = len(row)
		}
	}
	for i := range records {
		for len(records[i]) < width {
			records[i] = append(records[i], "")
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return false, err
	}
	w.Flush()
	return true, w.Error()
}
