package refdata

import (
	"encoding/csv"
	"os"
	"strings"
)

// normalizeItem strips the decoration that creeps into the ITEM column
// of the spec sheet so it compares cleanly against an equipment tag.
func normalizeItem(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

// MotorSpecs looks up a tag's row in the motor specification sheet and
// returns its non-empty fields keyed by column header. The second
// return is false when the tag has no row.
func MotorSpecs(path, tag string) (map[string]string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, false, err
	}
	if len(records) < 2 {
		return nil, false, nil
	}

	header := records[0]
	itemCol := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "ITEM") {
			itemCol = i
			break
		}
	}
	if itemCol < 0 {
		return nil, false, nil
	}

	want := normalizeItem(tag)
	for _, row := range records[1:] {
		if itemCol >= len(row) || normalizeItem(row[itemCol]) != want {
			continue
		}
		specs := make(map[string]string)
		for i, h := range header {
			if i >= len(row) {
				break
			}
			key := strings.TrimSpace(h)
			val := strings.TrimSpace(row[i])
			if key == "" || val == "" {
				continue
			}
			specs[key] = val
		}
		return specs, true, nil
	}
	return nil, false, nil
}
