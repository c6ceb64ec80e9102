package store

import (
	"strings"
	"time"
)

// listLimit caps the rows returned by a filter search. The matching
// total is reported separately by the count query.
const listLimit = 150

// defaultRecentDays is the lookback window applied when the filter
// carries no explicit date bounds.
const defaultRecentDays = 7

// JobFilter describes one search over job_reports. Zero values mean
// "no restriction"; comma-separated multi-value fields are carried as
// slices and become OR groups.
type JobFilter struct {
	DateFrom   string // YYYY-MM-DD lower bound, inclusive
	DateTo     string // YYYY-MM-DD upper bound, inclusive
	RecentDays int    // lookback used when both bounds are empty

	JobType    string // "PM" / "CM"; "" or "All" means both
	Department string // exact match, case-insensitive; "" or "All" means any

	WONumber     string // substring match on wo_number
	PermitNumber string // substring match on permit_number
	Keyword      string // substring match on keywords or job_description
	ActualStart  string // exact calendar-day match on actual_start

	Tags       []string // substring matches on Object_Tag, OR-ed
	FatherTags []string // exact-or-substring on objects.Long_Tag, OR-ed
	Units      []string // exact matches on objects.Unit_Code, OR-ed
	Trains     []string // exact matches on objects.Train, OR-ed
}

// dateRange resolves the effective inclusive date bounds. A user-given
// bound always wins; a missing partner defaults to the epoch or today.
// With no bounds at all the range is the last RecentDays days.
func (f JobFilter) dateRange(today time.Time) (string, string) {
	from, to := strings.TrimSpace(f.DateFrom), strings.TrimSpace(f.DateTo)
	if from == "" && to == "" {
		days := f.RecentDays
		if days <= 0 {
			days = defaultRecentDays
		}
		return today.AddDate(0, 0, -days).Format("2006-01-02"), today.Format("2006-01-02")
	}
	if from == "" {
		from = "1970-01-01"
	}
	if to == "" {
		to = today.Format("2006-01-02")
	}
	return from, to
}

// predicates builds the WHERE fragments and their bind parameters, and
// reports whether the objects table must be joined in.
func (f JobFilter) predicates(today time.Time) (conds []string, args []any, needJoin bool) {
	from, to := f.dateRange(today)
	conds = append(conds, "b.date BETWEEN ? AND ?")
	args = append(args, from, to)

	if v := strings.TrimSpace(f.JobType); v != "" && !strings.EqualFold(v, "All") {
		conds = append(conds, "UPPER(b.job_type) = ?")
		args = append(args, strings.ToUpper(v))
	}
	if v := strings.TrimSpace(f.Department); v != "" && !strings.EqualFold(v, "All") {
		conds = append(conds, "UPPER(b.department) = ?")
		args = append(args, strings.ToUpper(v))
	}
	if v := strings.TrimSpace(f.WONumber); v != "" {
		conds = append(conds, "b.wo_number LIKE ?")
		args = append(args, "%"+v+"%")
	}
	if v := strings.TrimSpace(f.PermitNumber); v != "" {
		conds = append(conds, "b.permit_number LIKE ?")
		args = append(args, "%"+v+"%")
	}
	if v := strings.TrimSpace(f.Keyword); v != "" {
		conds = append(conds, "(b.keywords LIKE ? OR b.job_description LIKE ?)")
		args = append(args, "%"+v+"%", "%"+v+"%")
	}
	if v := strings.TrimSpace(f.ActualStart); v != "" {
		conds = append(conds, "date(b.actual_start) = ?")
		args = append(args, v)
	}

	if group, groupArgs := orGroup(f.Tags, func(v string) (string, []any) {
		return "b.Object_Tag LIKE ?", []any{"%" + v + "%"}
	}); group != "" {
		conds = append(conds, group)
		args = append(args, groupArgs...)
	}

	if group, groupArgs := orGroup(f.FatherTags, func(v string) (string, []any) {
		return "(o.Long_Tag = ? OR o.Long_Tag LIKE ?)", []any{v, "%" + v + "%"}
	}); group != "" {
		conds = append(conds, group)
		args = append(args, groupArgs...)
		needJoin = true
	}
	if group, groupArgs := orGroup(f.Units, func(v string) (string, []any) {
		return "o.Unit_Code = ?", []any{v}
	}); group != "" {
		conds = append(conds, group)
		args = append(args, groupArgs...)
		needJoin = true
	}
	if group, groupArgs := orGroup(f.Trains, func(v string) (string, []any) {
		return "o.Train = ?", []any{v}
	}); group != "" {
		conds = append(conds, group)
		args = append(args, groupArgs...)
		needJoin = true
	}
	return conds, args, needJoin
}

// orGroup turns a value list into a single parenthesized OR clause.
// Blank entries are skipped; an empty list yields no clause.
func orGroup(values []string, each func(string) (string, []any)) (string, []any) {
	var parts []string
	var args []any
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		cond, condArgs := each(v)
		parts = append(parts, cond)
		args = append(args, condArgs...)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

const listColumns = `b.job_indx, b.date, b.Object_Tag, b.department, b.wo_number,
	b.permit_number, b.status, b.actual_start, b.job_type, b.performed_action,
	b.job_description, b.keywords, b.registered_by, b.route, b.anomaly, b.action_list`

// Query assembles the row-returning search. Every row carries two
// rolling per-tag counts anchored at that row's own date: jobs in the
// trailing 365 days and in the trailing 30 days, both inclusive.
func (f JobFilter) Query(today time.Time) (string, []any) {
	conds, args, needJoin := f.predicates(today)

	from := "FROM job_reports b"
	if needJoin {
		from += " LEFT JOIN objects o ON o.Object_Tag = b.Object_Tag"
	}

	q := `SELECT ` + listColumns + `,
	(SELECT COUNT(*) FROM job_reports x
		WHERE x.Object_Tag = b.Object_Tag
		  AND x.date <= b.date AND x.date >= date(b.date, '-365 day')) AS count_ytd,
	(SELECT COUNT(*) FROM job_reports y
		WHERE y.Object_Tag = b.Object_Tag
		  AND y.date <= b.date AND y.date >= date(b.date, '-30 day')) AS count_mtd
	` + from + `
	WHERE ` + strings.Join(conds, " AND ") + `
	ORDER BY b.date DESC, b.job_indx DESC
	LIMIT ?`
	args = append(args, listLimit)
	return q, args
}

// CountQuery assembles the uncapped companion count so the caller can
// tell how many rows matched beyond the list limit.
func (f JobFilter) CountQuery(today time.Time) (string, []any) {
	conds, args, needJoin := f.predicates(today)

	from := "FROM job_reports b"
	if needJoin {
		from += " LEFT JOIN objects o ON o.Object_Tag = b.Object_Tag"
	}
	q := "SELECT COUNT(*) " + from + " WHERE " + strings.Join(conds, " AND ")
	return q, args
}
