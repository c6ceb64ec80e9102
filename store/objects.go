package store

import (
	"database/sql"
	"fmt"
	"strings"

	"maintlog/tagging"
)

// Object is one equipment-register row.
type Object struct {
	Tag         string `json:"object_tag"`
	Description string `json:"object_desc"`
	Category    string `json:"category_desc"`
	Criticality string `json:"criticality_desc"`
	Note        string `json:"object_note"`
	MIHLevel    string `json:"mih_level_desc"`
	UnitCode    string `json:"unit_code"`
	ObjectType  string `json:"object_type"`
	Train       string `json:"train"`
	FatherTag   string `json:"father_tag"`
	LongTag     string `json:"long_tag"`
	Registered  string `json:"registered"`
	Modified    string `json:"modified"`
}

// RenameResult reports how far a tag rename cascaded.
type RenameResult struct {
	Jobs    int `json:"jobs"`
	Fathers int `json:"fathers"`
	Lineage int `json:"lineage"`
}

const objectColumns = `Object_Tag, Object_Desc, Category_Desc, Criticality_Desc,
	Object_Note, MIHLevel_Desc, Unit_Code, Object_Type, Train, Father_Tag,
	Long_Tag, Registered, Modified`

// AddObject inserts a new equipment record. Tags are stored uppercase;
// a duplicate tag returns ErrTagExists.
func (s *Store) AddObject(o Object) error {
	o.Tag = strings.ToUpper(strings.TrimSpace(o.Tag))
	return s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO objects (`+objectColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.Tag, o.Description, o.Category, o.Criticality, o.Note, o.MIHLevel,
			o.UnitCode, o.ObjectType, o.Train, o.FatherTag, o.LongTag,
			o.Registered, o.Modified)
		if isConstraint(err) {
			return ErrTagExists
		}
		return err
	})
}

// GetObject fetches a single record; the second return is false when
// the tag is unknown.
func (s *Store) GetObject(tag string) (Object, bool, error) {
	var o Object
	found := false
	err := s.read(func(db *sql.DB) error {
		row := db.QueryRow(`SELECT `+objectColumns+` FROM objects WHERE Object_Tag = ?`,
			strings.ToUpper(strings.TrimSpace(tag)))
		obj, err := scanObject(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		o, found = obj, true
		return nil
	})
	return o, found, err
}

// SearchObjects filters the register. Tag and father tag match as
// prefixes, unit and train exactly. Blank criteria are skipped.
func (s *Store) SearchObjects(tag, fatherTag, unitCode, train string, limit int) ([]Object, error) {
	if limit <= 0 {
		limit = 1000
	}
	conds := []string{"1=1"}
	var args []any
	if v := strings.TrimSpace(tag); v != "" {
		conds = append(conds, "Object_Tag LIKE ?")
		args = append(args, strings.ToUpper(v)+"%")
	}
	if v := strings.TrimSpace(fatherTag); v != "" {
		conds = append(conds, "Father_Tag LIKE ?")
		args = append(args, strings.ToUpper(v)+"%")
	}
	if v := strings.TrimSpace(unitCode); v != "" {
		conds = append(conds, "Unit_Code = ?")
		args = append(args, v)
	}
	if v := strings.TrimSpace(train); v != "" {
		conds = append(conds, "Train = ?")
		args = append(args, v)
	}
	args = append(args, limit)

	var out []Object
	err := s.read(func(db *sql.DB) error {
		out = out[:0]
		rows, err := db.Query(`SELECT `+objectColumns+` FROM objects
			WHERE `+strings.Join(conds, " AND ")+`
			ORDER BY Object_Tag LIMIT ?`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		return appendObjects(rows, &out)
	})
	return out, err
}

// UpdateObject overwrites the record currently stored under tag with o
// and appends modEntry to the Modified log. If o carries a different
// tag the rename fans out in the same transaction: job history is
// repointed, children's Father_Tag rows are updated, and every lineage
// path containing the tag as a segment is rewritten.
func (s *Store) UpdateObject(tag string, o Object, modEntry string) (RenameResult, error) {
	oldTag := strings.ToUpper(strings.TrimSpace(tag))
	newTag := strings.ToUpper(strings.TrimSpace(o.Tag))
	var result RenameResult

	err := s.write(func(tx *sql.Tx) error {
		result = RenameResult{}

		var modified sql.NullString
		err := tx.QueryRow("SELECT Modified FROM objects WHERE Object_Tag = ?", oldTag).
			Scan(&modified)
		if err != nil {
			return err
		}
		newModified := modified.String
		if modEntry != "" {
			if newModified != "" {
				newModified += "\n"
			}
			newModified += modEntry
		}

		if _, err := tx.Exec(`UPDATE objects SET
			Object_Tag = ?, Object_Desc = ?, Category_Desc = ?, Criticality_Desc = ?,
			Object_Note = ?, MIHLevel_Desc = ?, Unit_Code = ?, Object_Type = ?,
			Train = ?, Father_Tag = ?, Long_Tag = ?, Modified = ?
			WHERE Object_Tag = ?`,
			newTag, o.Description, o.Category, o.Criticality, o.Note, o.MIHLevel,
			o.UnitCode, o.ObjectType, o.Train, o.FatherTag, o.LongTag,
			newModified, oldTag); err != nil {
			if isConstraint(err) {
				return ErrTagExists
			}
			return err
		}

		if newTag == oldTag {
			return nil
		}

		res, err := tx.Exec("UPDATE job_reports SET Object_Tag = ? WHERE Object_Tag = ?",
			newTag, oldTag)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		result.Jobs = int(n)

		res, err = tx.Exec("UPDATE objects SET Father_Tag = ? WHERE Father_Tag = ?",
			newTag, oldTag)
		if err != nil {
			return err
		}
		n, _ = res.RowsAffected()
		result.Fathers = int(n)

		rows, err := tx.Query(`SELECT Object_Tag, Long_Tag FROM objects
			WHERE Long_Tag LIKE ?`, "%"+oldTag+"%")
		if err != nil {
			return err
		}
		type rewrite struct{ tag, longTag string }
		var rewrites []rewrite
		for rows.Next() {
			var t string
			var lt sql.NullString
			if err := rows.Scan(&t, &lt); err != nil {
				rows.Close()
				return err
			}
			if tagging.ContainsSegment(lt.String, oldTag) {
				rewrites = append(rewrites, rewrite{t, tagging.ReplaceSegment(lt.String, oldTag, newTag)})
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for _, rw := range rewrites {
			if _, err := tx.Exec("UPDATE objects SET Long_Tag = ? WHERE Object_Tag = ?",
				rw.longTag, rw.tag); err != nil {
				return err
			}
			result.Lineage++
		}
		return nil
	})
	return result, err
}

// DeleteObject removes a record; reports false when nothing matched.
func (s *Store) DeleteObject(tag string) (bool, error) {
	var deleted bool
	err := s.write(func(tx *sql.Tx) error {
		res, err := tx.Exec("DELETE FROM objects WHERE Object_Tag = ?",
			strings.ToUpper(strings.TrimSpace(tag)))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

// distinctColumns is the allowlist for DistinctValues; column names
// never come from the request verbatim.
var distinctColumns = map[string]string{
	"unit_code":   "Unit_Code",
	"train":       "Train",
	"object_type": "Object_Type",
	"category":    "Category_Desc",
	"criticality": "Criticality_Desc",
	"mih_level":   "MIHLevel_Desc",
	"father_tag":  "Father_Tag",
}

// DistinctValues lists the non-empty distinct values of one register
// column, for populating selection lists.
func (s *Store) DistinctValues(column string) ([]string, error) {
	col, ok := distinctColumns[strings.ToLower(strings.TrimSpace(column))]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", column)
	}
	var out []string
	err := s.read(func(db *sql.DB) error {
		out = out[:0]
		rows, err := db.Query(`SELECT DISTINCT ` + col + ` FROM objects
			WHERE ` + col + ` IS NOT NULL AND ` + col + ` != '' ORDER BY ` + col)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return err
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}

// TagsWithPrefix lists tags starting with prefix, used by the variant
// and family lookups.
func (s *Store) TagsWithPrefix(prefix string) ([]string, error) {
	var out []string
	err := s.read(func(db *sql.DB) error {
		out = out[:0]
		rows, err := db.Query(`SELECT Object_Tag FROM objects
			WHERE Object_Tag LIKE ? ORDER BY Object_Tag`,
			strings.ToUpper(strings.TrimSpace(prefix))+"%")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	return out, err
}

// TagExists reports whether a tag is registered.
func (s *Store) TagExists(tag string) (bool, error) {
	var exists bool
	err := s.read(func(db *sql.DB) error {
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM objects WHERE Object_Tag = ?",
			strings.ToUpper(strings.TrimSpace(tag))).Scan(&n); err != nil {
			return err
		}
		exists = n > 0
		return nil
	})
	return exists, err
}

func scanObject(row *sql.Row) (Object, error) {
	var o Object
	var desc, cat, crit, note, mih, unit, otype, train, father, long, reg, mod sql.NullString
	err := row.Scan(&o.Tag, &desc, &cat, &crit, &note, &mih, &unit, &otype,
		&train, &father, &long, &reg, &mod)
	if err != nil {
		return o, err
	}
	o.Description, o.Category, o.Criticality = desc.String, cat.String, crit.String
	o.Note, o.MIHLevel, o.UnitCode = note.String, mih.String, unit.String
	o.ObjectType, o.Train, o.FatherTag = otype.String, train.String, father.String
	o.LongTag, o.Registered, o.Modified = long.String, reg.String, mod.String
	return o, nil
}

func appendObjects(rows *sql.Rows, out *[]Object) error {
	for rows.Next() {
		var o Object
		var desc, cat, crit, note, mih, unit, otype, train, father, long, reg, mod sql.NullString
		if err := rows.Scan(&o.Tag, &desc, &cat, &crit, &note, &mih, &unit,
			&otype, &train, &father, &long, &reg, &mod); err != nil {
			return err
		}
		o.Description, o.Category, o.Criticality = desc.String, cat.String, crit.String
		o.Note, o.MIHLevel, o.UnitCode = note.String, mih.String, unit.String
		o.ObjectType, o.Train, o.FatherTag = otype.String, train.String, father.String
		o.LongTag, o.Registered, o.Modified = long.String, reg.String, mod.String
		*out = append(*out, o)
	}
	return rows.Err()
}
