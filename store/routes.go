package store

import (
	"database/sql"
	"strings"
)

// RouteEntry is one tag on a preventive-maintenance route.
type RouteEntry struct {
	RouteID     int    `json:"route_id"`
	Code        string `json:"route_code"`
	Description string `json:"route_desc"`
	ObjectTag   string `json:"object_tag"`
	StandardJob string `json:"standard_job"`
}

const routeColumns = "Route_ID, PMRoute_Code, PMRoute_Desc, Object_Tag, StandardJob_Desc"

// SearchRoutes finds routes whose code, description, or member tag
// mention the given text, one entry per route code.
func (s *Store) SearchRoutes(code, description, tag string, limit int) ([]RouteEntry, error) {
	if limit <= 0 {
		limit = 300
	}
	conds := []string{"1=1"}
	var args []any
	if v := strings.TrimSpace(code); v != "" {
		conds = append(conds, "PMRoute_Code LIKE ?")
		args = append(args, "%"+v+"%")
	}
	if v := strings.TrimSpace(description); v != "" {
		conds = append(conds, "PMRoute_Desc LIKE ?")
		args = append(args, "%"+v+"%")
	}
	if v := strings.TrimSpace(tag); v != "" {
		conds = append(conds, "Object_Tag LIKE ?")
		args = append(args, "%"+strings.ToUpper(v)+"%")
	}
	args = append(args, limit)

	var all []RouteEntry
	err := s.read(func(db *sql.DB) error {
		all = all[:0]
		rows, err := db.Query(`SELECT `+routeColumns+` FROM routes
			WHERE `+strings.Join(conds, " AND ")+`
			ORDER BY PMRoute_Code LIMIT ?`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		return appendRoutes(rows, &all)
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []RouteEntry
	for _, r := range all {
		if seen[r.Code] {
			continue
		}
		seen[r.Code] = true
		out = append(out, r)
	}
	return out, nil
}

// RouteDetails lists every tag on a route.
func (s *Store) RouteDetails(code string) ([]RouteEntry, error) {
	var out []RouteEntry
	err := s.read(func(db *sql.DB) error {
		out = out[:0]
		rows, err := db.Query(`SELECT `+routeColumns+` FROM routes
			WHERE PMRoute_Code = ? ORDER BY Object_Tag`, strings.TrimSpace(code))
		if err != nil {
			return err
		}
		defer rows.Close()
		return appendRoutes(rows, &out)
	})
	return out, err
}

// AddRouteTag appends a tag to a route.
func (s *Store) AddRouteTag(code, description, tag, standardJob string) error {
	return s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO routes
			(PMRoute_Code, PMRoute_Desc, Object_Tag, StandardJob_Desc)
			VALUES (?, ?, ?, ?)`,
			strings.TrimSpace(code), description,
			strings.ToUpper(strings.TrimSpace(tag)), standardJob)
		return err
	})
}

// RemoveRouteTag drops a tag from a route; reports false when the pair
// was not present.
func (s *Store) RemoveRouteTag(code, tag string) (bool, error) {
	var removed bool
	err := s.write(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM routes
			WHERE PMRoute_Code = ? AND Object_Tag = ?`,
			strings.TrimSpace(code), strings.ToUpper(strings.TrimSpace(tag)))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		removed = n > 0
		return err
	})
	return removed, err
}

// UpdateRouteInfo rewrites the description and standard-job text of one
// tag's entry on a route.
func (s *Store) UpdateRouteInfo(code, tag, description, standardJob string) error {
	return s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE routes
			SET PMRoute_Desc = ?, StandardJob_Desc = ?
			WHERE PMRoute_Code = ? AND Object_Tag = ?`,
			description, standardJob,
			strings.TrimSpace(code), strings.ToUpper(strings.TrimSpace(tag)))
		return err
	})
}

func appendRoutes(rows *sql.Rows, out *[]RouteEntry) error {
	for rows.Next() {
		var r RouteEntry
		var code, desc, tag, std sql.NullString
		if err := rows.Scan(&r.RouteID, &code, &desc, &tag, &std); err != nil {
			return err
		}
		r.Code, r.Description, r.ObjectTag, r.StandardJob = code.String, desc.String, tag.String, std.String
		*out = append(*out, r)
	}
	return rows.Err()
}
