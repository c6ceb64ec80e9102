package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"
)

// JobReport is one maintenance report row.
type JobReport struct {
	JobIndex        int    `json:"job_indx"`
	Date            string `json:"date"`
	ObjectTag       string `json:"object_tag"`
	Description     string `json:"job_description"`
	Keywords        string `json:"keywords"`
	Department      string `json:"department"`
	WONumber        string `json:"wo_number"`
	PermitNumber    string `json:"permit_number"`
	Status          string `json:"status"`
	ActionList      bool   `json:"action_list"`
	JobType         string `json:"job_type"`
	Employee        string `json:"employee"`
	PerformedAction string `json:"performed_action"`
	Route           string `json:"route"`
	RegisteredBy    string `json:"registered_by"`
	RegisteredDate  string `json:"registered_date"`
	Anomaly         bool   `json:"anomaly"`
	ActualStart     string `json:"actual_start"`
}

// JobRow is one filter-search result: the report columns plus the two
// rolling per-tag counts anchored at the row's date.
type JobRow struct {
	JobIndex        int    `json:"job_indx"`
	Date            string `json:"date"`
	ObjectTag       string `json:"object_tag"`
	Department      string `json:"department"`
	WONumber        string `json:"wo_number"`
	PermitNumber    string `json:"permit_number"`
	Status          string `json:"status"`
	ActualStart     string `json:"actual_start"`
	JobType         string `json:"job_type"`
	PerformedAction string `json:"performed_action"`
	Description     string `json:"job_description"`
	Keywords        string `json:"keywords"`
	RegisteredBy    string `json:"registered_by"`
	Route           string `json:"route"`
	Anomaly         bool   `json:"anomaly"`
	ActionList      bool   `json:"action_list"`
	CountYTD        int    `json:"count_ytd"`
	CountMTD        int    `json:"count_mtd"`
}

// appendAudit extends an audit field with one more " | "-separated
// segment. The existing value, including its first segment, is never
// rewritten.
func appendAudit(current, entry string) string {
	current = strings.TrimSpace(current)
	if current == "" {
		return entry
	}
	return current + " | " + entry
}

// Registrant formats the identity segment written into registered_by.
func Registrant(username, machine string) string {
	return fmt.Sprintf("%s (%s)", username, machine)
}

// InsertJob stores a new report and returns its index.
func (s *Store) InsertJob(j JobReport) (int, error) {
	var id int64
	err := s.write(func(tx *sql.Tx) error {
		res, err := tx.Exec(`INSERT INTO job_reports
			(date, Object_Tag, job_description, keywords, department, wo_number,
			 permit_number, status, action_list, job_type, employee,
			 performed_action, route, registered_by, registered_date, anomaly, actual_start)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			j.Date, strings.ToUpper(strings.TrimSpace(j.ObjectTag)), j.Description,
			j.Keywords, j.Department, j.WONumber, j.PermitNumber, j.Status,
			boolInt(j.ActionList), j.JobType, j.Employee, j.PerformedAction,
			j.Route, j.RegisteredBy, j.RegisteredDate, boolInt(j.Anomaly), j.ActualStart)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return int(id), err
}

// UpdateJob overwrites the mutable fields of an existing report and
// appends the modifier to the audit trail. modifier is the
// "user (machine)" identity performing the change.
func (s *Store) UpdateJob(j JobReport, modifier string, now time.Time) error {
	return s.write(func(tx *sql.Tx) error {
		var regBy, regDate sql.NullString
		err := tx.QueryRow(
			"SELECT registered_by, registered_date FROM job_reports WHERE job_indx = ?",
			j.JobIndex).Scan(&regBy, &regDate)
		if err != nil {
			return err
		}
		newBy := appendAudit(regBy.String, modifier+" (modifier)")
		newDate := appendAudit(regDate.String, now.Format("2006-01-02")+" (modified)")

		_, err = tx.Exec(`UPDATE job_reports SET
			date = ?, Object_Tag = ?, job_description = ?, keywords = ?,
			department = ?, wo_number = ?, permit_number = ?, status = ?,
			action_list = ?, job_type = ?, employee = ?, performed_action = ?,
			route = ?, registered_by = ?, registered_date = ?, anomaly = ?,
			actual_start = ?
			WHERE job_indx = ?`,
			j.Date, strings.ToUpper(strings.TrimSpace(j.ObjectTag)), j.Description,
			j.Keywords, j.Department, j.WONumber, j.PermitNumber, j.Status,
			boolInt(j.ActionList), j.JobType, j.Employee, j.PerformedAction,
			j.Route, newBy, newDate, boolInt(j.Anomaly), j.ActualStart, j.JobIndex)
		return err
	})
}

// DeleteJob removes a report by index. Deleting a missing index is not
// an error; the returned bool reports whether a row was removed.
func (s *Store) DeleteJob(jobIndex int) (bool, error) {
	var deleted bool
	err := s.write(func(tx *sql.Tx) error {
		res, err := tx.Exec("DELETE FROM job_reports WHERE job_indx = ?", jobIndex)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

// GetJob fetches a single report. The second return is false when no
// row has that index.
func (s *Store) GetJob(jobIndex int) (JobReport, bool, error) {
	var j JobReport
	found := false
	err := s.read(func(db *sql.DB) error {
		row := db.QueryRow(`SELECT job_indx, date, Object_Tag, job_description,
			keywords, department, wo_number, permit_number, status, action_list,
			job_type, employee, performed_action, route, registered_by,
			registered_date, anomaly, actual_start
			FROM job_reports WHERE job_indx = ?`, jobIndex)
		jr, err := scanJob(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		j, found = jr, true
		return nil
	})
	return j, found, err
}

// ListJobs runs a filter search and returns the capped rows plus the
// uncapped matching total.
func (s *Store) ListJobs(f JobFilter, today time.Time) ([]JobRow, int, error) {
	var out []JobRow
	var total int
	err := s.read(func(db *sql.DB) error {
		out = out[:0]
		q, args := f.Query(today)
		rows, err := db.Query(q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r JobRow
			var dept, wo, permit, status, start, jtype, action, desc, kw, regBy, route sql.NullString
			var date sql.NullString
			var anomaly, actionList sql.NullInt64
			if err := rows.Scan(&r.JobIndex, &date, &r.ObjectTag, &dept, &wo,
				&permit, &status, &start, &jtype, &action, &desc, &kw, &regBy,
				&route, &anomaly, &actionList, &r.CountYTD, &r.CountMTD); err != nil {
				return err
			}
			r.Date = date.String
			r.Department, r.WONumber, r.PermitNumber = dept.String, wo.String, permit.String
			r.Status, r.ActualStart, r.JobType = status.String, start.String, jtype.String
			r.PerformedAction, r.Description, r.Keywords = action.String, desc.String, kw.String
			r.RegisteredBy, r.Route = regBy.String, route.String
			r.Anomaly, r.ActionList = anomaly.Int64 != 0, actionList.Int64 != 0
			out = append(out, r)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		cq, cargs := f.CountQuery(today)
		return db.QueryRow(cq, cargs...).Scan(&total)
	})
	return out, total, err
}

// JobsByIndexes fetches full reports for an explicit index list, used
// by the export endpoint. Order follows date descending.
func (s *Store) JobsByIndexes(indexes []int) ([]JobReport, error) {
	if len(indexes) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(indexes)), ",")
	args := make([]any, len(indexes))
	for i, v := range indexes {
		args[i] = v
	}
	var out []JobReport
	err := s.read(func(db *sql.DB) error {
		out = out[:0]
		rows, err := db.Query(`SELECT job_indx, date, Object_Tag, job_description,
			keywords, department, wo_number, permit_number, status, action_list,
			job_type, employee, performed_action, route, registered_by,
			registered_date, anomaly, actual_start
			FROM job_reports WHERE job_indx IN (`+placeholders+`)
			ORDER BY date DESC, job_indx DESC`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		return appendJobs(rows, &out)
	})
	return out, err
}

// statusRank orders corrective jobs for the related-work panel: work
// still open sorts before finished work.
func statusRank(status string) int {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "ongoing":
		return 0
	case "on hold":
		return 1
	case "completed":
		return 2
	default:
		return 3
	}
}

// RecentRelatedJobs returns the latest corrective jobs on a tag within
// a department, one row per work order / permit pair, open work first.
func (s *Store) RecentRelatedJobs(tag, department string, limit int) ([]JobReport, error) {
	var all []JobReport
	err := s.read(func(db *sql.DB) error {
		all = all[:0]
		rows, err := db.Query(`SELECT job_indx, date, Object_Tag, job_description,
			keywords, department, wo_number, permit_number, status, action_list,
			job_type, employee, performed_action, route, registered_by,
			registered_date, anomaly, actual_start
			FROM job_reports
			WHERE Object_Tag = ? AND UPPER(job_type) = 'CM' AND UPPER(department) = ?
			ORDER BY date DESC, job_indx DESC`,
			strings.ToUpper(strings.TrimSpace(tag)), strings.ToUpper(strings.TrimSpace(department)))
		if err != nil {
			return err
		}
		defer rows.Close()
		return appendJobs(rows, &all)
	})
	if err != nil {
		return nil, err
	}

	// Keep the newest row per (wo, permit) pair, then surface open work.
	seen := make(map[string]bool)
	var dedup []JobReport
	for _, j := range all {
		key := j.WONumber + "\x00" + j.PermitNumber
		if seen[key] {
			continue
		}
		seen[key] = true
		dedup = append(dedup, j)
	}
	sort.SliceStable(dedup, func(i, k int) bool {
		ri, rk := statusRank(dedup[i].Status), statusRank(dedup[k].Status)
		if ri != rk {
			return ri < rk
		}
		return dedup[i].Date > dedup[k].Date
	})
	if limit > 0 && len(dedup) > limit {
		dedup = dedup[:limit]
	}
	return dedup, nil
}

// SearchRelatedJobs finds jobs on a tag within a department whose work
// order, description, action, or keywords mention the given text.
func (s *Store) SearchRelatedJobs(tag, department, keyword string, limit int) ([]JobReport, error) {
	if limit <= 0 {
		limit = 5
	}
	pat := "%" + strings.TrimSpace(keyword) + "%"
	var out []JobReport
	err := s.read(func(db *sql.DB) error {
		out = out[:0]
		rows, err := db.Query(`SELECT job_indx, date, Object_Tag, job_description,
			keywords, department, wo_number, permit_number, status, action_list,
			job_type, employee, performed_action, route, registered_by,
			registered_date, anomaly, actual_start
			FROM job_reports
			WHERE Object_Tag = ? AND UPPER(department) = ?
			  AND (wo_number LIKE ? OR job_description LIKE ?
			       OR performed_action LIKE ? OR keywords LIKE ?)
			ORDER BY date DESC, job_indx DESC LIMIT ?`,
			strings.ToUpper(strings.TrimSpace(tag)), strings.ToUpper(strings.TrimSpace(department)),
			pat, pat, pat, pat, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		return appendJobs(rows, &out)
	})
	return out, err
}

// LastJobForTag returns the most recent report on a tag, optionally
// narrowed by job type and department.
func (s *Store) LastJobForTag(tag, jobType, department string) (JobReport, bool, error) {
	conds := []string{"Object_Tag = ?"}
	args := []any{strings.ToUpper(strings.TrimSpace(tag))}
	if v := strings.TrimSpace(jobType); v != "" && !strings.EqualFold(v, "All") {
		conds = append(conds, "UPPER(job_type) = ?")
		args = append(args, strings.ToUpper(v))
	}
	if v := strings.TrimSpace(department); v != "" && !strings.EqualFold(v, "All") {
		conds = append(conds, "UPPER(department) = ?")
		args = append(args, strings.ToUpper(v))
	}

	var j JobReport
	found := false
	err := s.read(func(db *sql.DB) error {
		row := db.QueryRow(`SELECT job_indx, date, Object_Tag, job_description,
			keywords, department, wo_number, permit_number, status, action_list,
			job_type, employee, performed_action, route, registered_by,
			registered_date, anomaly, actual_start
			FROM job_reports WHERE `+strings.Join(conds, " AND ")+`
			ORDER BY date DESC, job_indx DESC LIMIT 1`, args...)
		jr, err := scanJob(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		j, found = jr, true
		return nil
	})
	return j, found, err
}

// KeywordCount pairs a keyword with how often it appears.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// TopKeywordsForTag tallies the comma-separated keywords of the last
// 75 reports on a tag and returns the most frequent ones.
func (s *Store) TopKeywordsForTag(tag string, topN int) ([]KeywordCount, error) {
	if topN <= 0 {
		topN = 5
	}
	counts := make(map[string]int)
	var order []string
	err := s.read(func(db *sql.DB) error {
		counts = make(map[string]int)
		order = order[:0]
		rows, err := db.Query(`SELECT keywords FROM job_reports
			WHERE Object_Tag = ? AND keywords IS NOT NULL AND keywords != ''
			ORDER BY date DESC, job_indx DESC LIMIT 75`,
			strings.ToUpper(strings.TrimSpace(tag)))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var kw string
			if err := rows.Scan(&kw); err != nil {
				return err
			}
			for _, part := range strings.Split(kw, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if counts[part] == 0 {
					order = append(order, part)
				}
				counts[part]++
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(order, func(i, k int) bool {
		return counts[order[i]] > counts[order[k]]
	})
	if len(order) > topN {
		order = order[:topN]
	}
	out := make([]KeywordCount, 0, len(order))
	for _, kw := range order {
		out = append(out, KeywordCount{Keyword: kw, Count: counts[kw]})
	}
	return out, nil
}

func scanJob(row *sql.Row) (JobReport, error) {
	var j JobReport
	var date, desc, kw, dept, wo, permit, status, jtype, emp, action, route, regBy, regDate, start sql.NullString
	var actionList, anomaly sql.NullInt64
	err := row.Scan(&j.JobIndex, &date, &j.ObjectTag, &desc, &kw, &dept, &wo,
		&permit, &status, &actionList, &jtype, &emp, &action, &route, &regBy,
		&regDate, &anomaly, &start)
	if err != nil {
		return j, err
	}
	j.Date, j.Description, j.Keywords = date.String, desc.String, kw.String
	j.Department, j.WONumber, j.PermitNumber = dept.String, wo.String, permit.String
	j.Status, j.JobType, j.Employee = status.String, jtype.String, emp.String
	j.PerformedAction, j.Route = action.String, route.String
	j.RegisteredBy, j.RegisteredDate, j.ActualStart = regBy.String, regDate.String, start.String
	j.ActionList, j.Anomaly = actionList.Int64 != 0, anomaly.Int64 != 0
	return j, nil
}

func appendJobs(rows *sql.Rows, out *[]JobReport) error {
	for rows.Next() {
		var j JobReport
		var date, desc, kw, dept, wo, permit, status, jtype, emp, action, route, regBy, regDate, start sql.NullString
		var actionList, anomaly sql.NullInt64
		if err := rows.Scan(&j.JobIndex, &date, &j.ObjectTag, &desc, &kw, &dept,
			&wo, &permit, &status, &actionList, &jtype, &emp, &action, &route,
			&regBy, &regDate, &anomaly, &start); err != nil {
			return err
		}
		j.Date, j.Description, j.Keywords = date.String, desc.String, kw.String
		j.Department, j.WONumber, j.PermitNumber = dept.String, wo.String, permit.String
		j.Status, j.JobType, j.Employee = status.String, jtype.String, emp.String
		j.PerformedAction, j.Route = action.String, route.String
		j.RegisteredBy, j.RegisteredDate, j.ActualStart = regBy.String, regDate.String, start.String
		j.ActionList, j.Anomaly = actionList.Int64 != 0, anomaly.Int64 != 0
		*out = append(*out, j)
	}
	return rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
