package store

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"maintlog/tagging"
)

// JobCounts aggregates report activity over one scope: lifetime totals,
// the trailing month and year, and the preventive share of each.
type JobCounts struct {
	Total      int     `json:"total"`
	Month      int     `json:"month"`
	Year       int     `json:"year"`
	PMTotalPct float64 `json:"pm_total_pct"`
	PMYearPct  float64 `json:"pm_year_pct"`
}

// TagStats collects activity at three widening scopes around a tag:
// the tag itself, its lineage group, and its unit/train.
type TagStats struct {
	Tag          JobCounts `json:"tag"`
	Group        JobCounts `json:"group"`
	GroupDisplay string    `json:"group_display"`
	Unit         JobCounts `json:"unit"`
}

func scanCounts(row *sql.Row) (JobCounts, error) {
	var c JobCounts
	err := row.Scan(&c.Total, &c.Month, &c.Year, &c.PMTotalPct, &c.PMYearPct)
	return c, err
}

// StatsForTag computes tag, lineage-group, and unit/train activity for
// one equipment record.
func (s *Store) StatsForTag(o Object, now time.Time) (TagStats, error) {
	monthStart := now.AddDate(0, 0, -30).Format("2006-01-02")
	yearStart := now.AddDate(0, 0, -365).Format("2006-01-02")

	pattern := tagging.FamilyPattern(o.FatherTag, o.UnitCode, o.LongTag)
	display := o.FatherTag
	if strings.EqualFold(strings.TrimSpace(o.FatherTag), strings.TrimSpace(o.UnitCode)) {
		display = o.Tag
	}

	var st TagStats
	st.GroupDisplay = display
	err := s.read(func(db *sql.DB) error {
		tagQ := `SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN date >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN date >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(ROUND(100.0 * SUM(CASE WHEN UPPER(job_type) = 'PM' THEN 1 ELSE 0 END)
				/ NULLIF(COUNT(*), 0), 1), 0),
			COALESCE(ROUND(100.0 * SUM(CASE WHEN UPPER(job_type) = 'PM' AND date >= ? THEN 1 ELSE 0 END)
				/ NULLIF(SUM(CASE WHEN date >= ? THEN 1 ELSE 0 END), 0), 1), 0)
			FROM job_reports WHERE Object_Tag = ?`
		c, err := scanCounts(db.QueryRow(tagQ, monthStart, yearStart, yearStart, yearStart, o.Tag))
		if err != nil {
			return err
		}
		st.Tag = c

		groupQ := `SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN jr.date >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN jr.date >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(ROUND(100.0 * SUM(CASE WHEN UPPER(jr.job_type) = 'PM' THEN 1 ELSE 0 END)
				/ NULLIF(COUNT(*), 0), 1), 0),
			COALESCE(ROUND(100.0 * SUM(CASE WHEN UPPER(jr.job_type) = 'PM' AND jr.date >= ? THEN 1 ELSE 0 END)
				/ NULLIF(SUM(CASE WHEN jr.date >= ? THEN 1 ELSE 0 END), 0), 1), 0)
			FROM job_reports jr
			INNER JOIN objects ob ON ob.Object_Tag = jr.Object_Tag
			WHERE (ob.Long_Tag = ? OR ob.Long_Tag LIKE ?)`
		c, err = scanCounts(db.QueryRow(groupQ, monthStart, yearStart, yearStart,
			yearStart, pattern, pattern+"%"))
		if err != nil {
			return err
		}
		st.Group = c

		unitQ := `SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN jr.date >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN jr.date >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(ROUND(100.0 * SUM(CASE WHEN UPPER(jr.job_type) = 'PM' THEN 1 ELSE 0 END)
				/ NULLIF(COUNT(*), 0), 1), 0),
			COALESCE(ROUND(100.0 * SUM(CASE WHEN UPPER(jr.job_type) = 'PM' AND jr.date >= ? THEN 1 ELSE 0 END)
				/ NULLIF(SUM(CASE WHEN jr.date >= ? THEN 1 ELSE 0 END), 0), 1), 0)
			FROM job_reports jr
			INNER JOIN objects ob ON ob.Object_Tag = jr.Object_Tag
			WHERE ob.Unit_Code = ? AND ob.Train = ?`
		c, err = scanCounts(db.QueryRow(unitQ, monthStart, yearStart, yearStart,
			yearStart, o.UnitCode, o.Train))
		if err != nil {
			return err
		}
		st.Unit = c
		return nil
	})
	return st, err
}

// FatherAndRecentCount resolves the parent shown beside a report row
// and counts lineage-group activity in the 30 days ending at the
// report's own date.
func (s *Store) FatherAndRecentCount(tag, recordDate string) (string, int, error) {
	o, found, err := s.GetObject(tag)
	if err != nil || !found {
		return "", 0, err
	}
	display := o.FatherTag
	if strings.EqualFold(strings.TrimSpace(o.FatherTag), strings.TrimSpace(o.UnitCode)) {
		display = o.Tag
	}
	pattern := tagging.FamilyPattern(o.FatherTag, o.UnitCode, o.LongTag)

	var count int
	err = s.read(func(db *sql.DB) error {
		return db.QueryRow(`SELECT COUNT(*) FROM job_reports jr
			INNER JOIN objects ob ON ob.Object_Tag = jr.Object_Tag
			WHERE (ob.Long_Tag = ? OR ob.Long_Tag LIKE ?)
			  AND jr.date BETWEEN date(?, '-30 day') AND ?`,
			pattern, pattern+"%", recordDate, recordDate).Scan(&count)
	})
	return display, count, err
}

// JobBreakdown splits a tag's report history into preventive and
// corrective totals.
func (s *Store) JobBreakdown(tag string) (pm, cm, total int, err error) {
	err = s.read(func(db *sql.DB) error {
		return db.QueryRow(`SELECT
			COALESCE(SUM(CASE WHEN UPPER(job_type) = 'PM' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN UPPER(job_type) = 'CM' THEN 1 ELSE 0 END), 0),
			COUNT(*)
			FROM job_reports WHERE Object_Tag = ?`,
			strings.ToUpper(strings.TrimSpace(tag))).Scan(&pm, &cm, &total)
	})
	return pm, cm, total, err
}

// StandbyVariants lists sibling tags of a standby-lettered tag: every
// registered tag sharing the root, excluding the tag itself. Tags that
// do not follow the standby convention have no variants.
func (s *Store) StandbyVariants(tag string) ([]string, error) {
	active := strings.ToUpper(strings.TrimSpace(tag))
	root, ok := tagging.StandbyRoot(active)
	if !ok {
		return nil, nil
	}
	candidates, err := s.TagsWithPrefix(root)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{active: true}
	var out []string
	for _, t := range candidates {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// TypicalFamily unions a tag with its standby siblings and the
// registered same-position tags on other trains.
func (s *Store) TypicalFamily(tag string) ([]string, error) {
	active := strings.ToUpper(strings.TrimSpace(tag))
	family := map[string]bool{active: true}

	variants, err := s.StandbyVariants(active)
	if err != nil {
		return nil, err
	}
	for _, v := range variants {
		family[v] = true
	}

	var lookupErr error
	exists := func(candidate string) bool {
		if lookupErr != nil {
			return false
		}
		ok, err := s.TagExists(candidate)
		if err != nil {
			lookupErr = err
			return false
		}
		return ok
	}
	seeds := make([]string, 0, len(family))
	for t := range family {
		seeds = append(seeds, t)
	}
	for _, seed := range seeds {
		for _, t := range tagging.TypicalVariants(seed, exists) {
			family[t] = true
		}
		if lookupErr != nil {
			return nil, lookupErr
		}
	}

	out := make([]string, 0, len(family))
	for t := range family {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// MonthlyCount is one tag's preventive/corrective tally for one
// calendar month.
type MonthlyCount struct {
	Tag   string `json:"object_tag"`
	Month string `json:"month"` // YYYY-MM
	PM    int    `json:"pm"`
	CM    int    `json:"cm"`
}

// MonthlyBreakdown tallies per-month PM and CM counts for a tag set
// since the given date.
func (s *Store) MonthlyBreakdown(tags []string, since string) ([]MonthlyCount, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tags)), ",")
	args := make([]any, 0, len(tags)+1)
	for _, t := range tags {
		args = append(args, strings.ToUpper(strings.TrimSpace(t)))
	}
	args = append(args, since)

	var out []MonthlyCount
	err := s.read(func(db *sql.DB) error {
		out = out[:0]
		rows, err := db.Query(`SELECT Object_Tag, substr(date, 1, 7) AS ym,
			COALESCE(SUM(CASE WHEN UPPER(job_type) = 'PM' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN UPPER(job_type) = 'CM' THEN 1 ELSE 0 END), 0)
			FROM job_reports
			WHERE Object_Tag IN (`+placeholders+`) AND date >= ?
			GROUP BY Object_Tag, ym ORDER BY Object_Tag, ym`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var m MonthlyCount
			if err := rows.Scan(&m.Tag, &m.Month, &m.PM, &m.CM); err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	return out, err
}

// ActiveJobSummary is a tag's unfinished corrective work: the open
// rows, one per work order / permit pair, and a per-department tally.
type ActiveJobSummary struct {
	Jobs         []JobReport    `json:"jobs"`
	ByDepartment map[string]int `json:"by_department"`
}

// ActiveJobs returns the corrective reports on a tag still marked
// ongoing or on hold, keeping only the newest row per work order /
// permit pair.
func (s *Store) ActiveJobs(tag string) (ActiveJobSummary, error) {
	var all []JobReport
	err := s.read(func(db *sql.DB) error {
		all = all[:0]
		rows, err := db.Query(`SELECT job_indx, date, Object_Tag, job_description,
			keywords, department, wo_number, permit_number, status, action_list,
			job_type, employee, performed_action, route, registered_by,
			registered_date, anomaly, actual_start
			FROM job_reports
			WHERE Object_Tag = ? AND UPPER(job_type) = 'CM'
			ORDER BY date DESC, job_indx DESC`,
			strings.ToUpper(strings.TrimSpace(tag)))
		if err != nil {
			return err
		}
		defer rows.Close()
		return appendJobs(rows, &all)
	})
	if err != nil {
		return ActiveJobSummary{}, err
	}

	summary := ActiveJobSummary{ByDepartment: make(map[string]int)}
	seen := make(map[string]bool)
	for _, j := range all {
		key := j.WONumber + "\x00" + j.PermitNumber
		if seen[key] {
			continue
		}
		seen[key] = true
		switch strings.ToLower(strings.TrimSpace(j.Status)) {
		case "ongoing", "on hold":
			summary.Jobs = append(summary.Jobs, j)
			summary.ByDepartment[j.Department]++
		}
	}
	return summary, nil
}

// UserActivity summarizes one registrant's contribution.
type UserActivity struct {
	Total int `json:"total"`
	PM    int `json:"pm"`
	CM    int `json:"cm"`
	Month int `json:"month"`
}

// UserActivity counts the reports registered by a user. Matching is by
// username prefix on the registered_by field, so machine suffixes and
// later modifier segments do not interfere.
func (s *Store) UserActivity(username string, now time.Time) (UserActivity, error) {
	monthStart := now.AddDate(0, 0, -30).Format("2006-01-02")
	var a UserActivity
	err := s.read(func(db *sql.DB) error {
		return db.QueryRow(`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN UPPER(job_type) = 'PM' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN UPPER(job_type) = 'CM' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN date >= ? THEN 1 ELSE 0 END), 0)
			FROM job_reports WHERE registered_by LIKE ?`,
			monthStart, normalizeUsername(username)+"%").
			Scan(&a.Total, &a.PM, &a.CM, &a.Month)
	})
	return a, err
}

// TagActivity is one tag's share of a user's reports.
type TagActivity struct {
	Tag       string  `json:"object_tag"`
	Count     int     `json:"count"`
	PMPercent float64 `json:"pm_percent"`
}

// UserTopTags lists the tags a user reports on most.
func (s *Store) UserTopTags(username string, limit int) ([]TagActivity, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []TagActivity
	err := s.read(func(db *sql.DB) error {
		out = out[:0]
		rows, err := db.Query(`SELECT Object_Tag, COUNT(*) AS n,
			COALESCE(ROUND(100.0 * SUM(CASE WHEN UPPER(job_type) = 'PM' THEN 1 ELSE 0 END)
				/ NULLIF(COUNT(*), 0), 1), 0)
			FROM job_reports WHERE registered_by LIKE ?
			GROUP BY Object_Tag ORDER BY n DESC LIMIT ?`,
			normalizeUsername(username)+"%", limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var t TagActivity
			if err := rows.Scan(&t.Tag, &t.Count, &t.PMPercent); err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	return out, err
}

// UserRecentJobs lists a user's latest reports.
func (s *Store) UserRecentJobs(username string, limit int) ([]JobReport, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []JobReport
	err := s.read(func(db *sql.DB) error {
		out = out[:0]
		rows, err := db.Query(`SELECT job_indx, date, Object_Tag, job_description,
			keywords, department, wo_number, permit_number, status, action_list,
			job_type, employee, performed_action, route, registered_by,
			registered_date, anomaly, actual_start
			FROM job_reports WHERE registered_by LIKE ?
			ORDER BY date DESC, job_indx DESC LIMIT ?`,
			normalizeUsername(username)+"%", limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		return appendJobs(rows, &out)
	})
	return out, err
}

// TrendRow is one report joined with its equipment context, the input
// to trend aggregation.
type TrendRow struct {
	Date       string `json:"date"`
	JobType    string `json:"job_type"`
	Department string `json:"department"`
	ObjectTag  string `json:"object_tag"`
	UnitCode   string `json:"unit_code"`
	ObjectType string `json:"object_type"`
}

// TrendRows returns every report in a date range with its unit and
// object type attached. Reports on unregistered tags come back with
// blank equipment fields.
func (s *Store) TrendRows(dateFrom, dateTo string) ([]TrendRow, error) {
	var out []TrendRow
	err := s.read(func(db *sql.DB) error {
		out = out[:0]
		rows, err := db.Query(`SELECT r.date, r.job_type, r.department,
			r.Object_Tag, o.Unit_Code, o.Object_Type
			FROM job_reports r
			LEFT JOIN objects o ON o.Object_Tag = r.Object_Tag
			WHERE r.date BETWEEN ? AND ?
			ORDER BY r.date`, dateFrom, dateTo)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var t TrendRow
			var jtype, dept, unit, otype sql.NullString
			if err := rows.Scan(&t.Date, &jtype, &dept, &t.ObjectTag, &unit, &otype); err != nil {
				return err
			}
			t.JobType, t.Department = jtype.String, dept.String
			t.UnitCode, t.ObjectType = unit.String, otype.String
			out = append(out, t)
		}
		return rows.Err()
	})
	return out, err
}

// ListPMJobs returns recent preventive reports, optionally narrowed to
// one department, newest first.
func (s *Store) ListPMJobs(department string, limit int) ([]JobReport, error) {
	if limit <= 0 {
		limit = 1000
	}
	conds := []string{"UPPER(job_type) = 'PM'"}
	var args []any
	if v := strings.TrimSpace(department); v != "" && !strings.EqualFold(v, "All") {
		conds = append(conds, "UPPER(department) = ?")
		args = append(args, strings.ToUpper(v))
	}
	args = append(args, limit)

	var out []JobReport
	err := s.read(func(db *sql.DB) error {
		out = out[:0]
		rows, err := db.Query(`SELECT job_indx, date, Object_Tag, job_description,
			keywords, department, wo_number, permit_number, status, action_list,
			job_type, employee, performed_action, route, registered_by,
			registered_date, anomaly, actual_start
			FROM job_reports WHERE `+strings.Join(conds, " AND ")+`
			ORDER BY date DESC, job_indx DESC LIMIT ?`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		return appendJobs(rows, &out)
	})
	return out, err
}
