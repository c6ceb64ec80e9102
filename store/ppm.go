package store

import (
	"database/sql"
	"strings"
	"time"
)

// PPMItem is one tag's entry in a bulk route submission.
type PPMItem struct {
	ObjectTag   string `json:"object_tag"`
	Checked     bool   `json:"checked"`
	Description string `json:"job_description"`
}

// PPMJobsForRoute returns, per tag, the latest preventive report filed
// under the given work order. Tags with no report are absent from the
// map.
func (s *Store) PPMJobsForRoute(woNumber string, tags []string) (map[string]JobReport, error) {
	if len(tags) == 0 {
		return map[string]JobReport{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tags)), ",")
	args := []any{strings.TrimSpace(woNumber)}
	for _, t := range tags {
		args = append(args, strings.ToUpper(strings.TrimSpace(t)))
	}

	out := make(map[string]JobReport)
	err := s.read(func(db *sql.DB) error {
		out = make(map[string]JobReport)
		rows, err := db.Query(`SELECT job_indx, date, Object_Tag, job_description,
			keywords, department, wo_number, permit_number, status, action_list,
			job_type, employee, performed_action, route, registered_by,
			registered_date, anomaly, actual_start
			FROM job_reports
			WHERE wo_number = ? AND Object_Tag IN (`+placeholders+`)
			  AND UPPER(job_type) = 'PM'
			ORDER BY date DESC, job_indx DESC`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var all []JobReport
		if err := appendJobs(rows, &all); err != nil {
			return err
		}
		for _, j := range all {
			if _, ok := out[j.ObjectTag]; !ok {
				out[j.ObjectTag] = j
			}
		}
		return nil
	})
	return out, err
}

// ReconcilePPM applies one bulk route submission in a single
// transaction. header supplies the fields shared by every tag on the
// route (date, work order, department, route, registrant). Per item:
// checked entries are written as-is, unchecked entries with a
// description are written prefixed "Off - ", and unchecked blank
// entries drop any report previously filed for that tag under this
// work order.
func (s *Store) ReconcilePPM(header JobReport, items []PPMItem, modifier string, now time.Time) (inserted, updated, deleted int, err error) {
	err = s.write(func(tx *sql.Tx) error {
		inserted, updated, deleted = 0, 0, 0
		for _, item := range items {
			tag := strings.ToUpper(strings.TrimSpace(item.ObjectTag))
			desc := strings.TrimSpace(item.Description)

			var existing int
			var regBy, regDate sql.NullString
			found := true
			err := tx.QueryRow(`SELECT job_indx, registered_by, registered_date
				FROM job_reports
				WHERE wo_number = ? AND Object_Tag = ? AND UPPER(job_type) = 'PM'
				ORDER BY date DESC, job_indx DESC LIMIT 1`,
				header.WONumber, tag).Scan(&existing, &regBy, &regDate)
			if err == sql.ErrNoRows {
				found = false
			} else if err != nil {
				return err
			}

			if !item.Checked && desc == "" {
				if found {
					if _, err := tx.Exec("DELETE FROM job_reports WHERE job_indx = ?", existing); err != nil {
						return err
					}
					deleted++
				}
				continue
			}
			if !item.Checked {
				desc = "Off - " + desc
			}

			if found {
				newBy := appendAudit(regBy.String, modifier+" (modifier)")
				newDate := appendAudit(regDate.String, now.Format("2006-01-02")+" (modified)")
				if _, err := tx.Exec(`UPDATE job_reports SET
					date = ?, job_description = ?, department = ?, permit_number = ?,
					status = ?, route = ?, registered_by = ?, registered_date = ?,
					actual_start = ?
					WHERE job_indx = ?`,
					header.Date, desc, header.Department, header.PermitNumber,
					header.Status, header.Route, newBy, newDate,
					header.ActualStart, existing); err != nil {
					return err
				}
				updated++
				continue
			}

			if _, err := tx.Exec(`INSERT INTO job_reports
				(date, Object_Tag, job_description, keywords, department, wo_number,
				 permit_number, status, action_list, job_type, employee,
				 performed_action, route, registered_by, registered_date, anomaly, actual_start)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'PM', ?, ?, ?, ?, ?, 0, ?)`,
				header.Date, tag, desc, header.Keywords, header.Department,
				header.WONumber, header.PermitNumber, header.Status,
				boolInt(header.ActionList), header.Employee, header.PerformedAction,
				header.Route, header.RegisteredBy, header.RegisteredDate,
				header.ActualStart); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	return inserted, updated, deleted, err
}
