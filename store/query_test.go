package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var queryToday = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func TestDateRangeDefaults(t *testing.T) {
	// No bounds: trailing window, default seven days.
	from, to := JobFilter{}.dateRange(queryToday)
	assert.Equal(t, "2025-06-23", from)
	assert.Equal(t, "2025-06-30", to)

	from, to = JobFilter{RecentDays: 30}.dateRange(queryToday)
	assert.Equal(t, "2025-05-31", from)

	// One explicit bound pins the range; the other side opens wide.
	from, to = JobFilter{DateFrom: "2025-01-15"}.dateRange(queryToday)
	assert.Equal(t, "2025-01-15", from)
	assert.Equal(t, "2025-06-30", to)

	from, to = JobFilter{DateTo: "2025-03-01"}.dateRange(queryToday)
	assert.Equal(t, "1970-01-01", from)
	assert.Equal(t, "2025-03-01", to)
}

func TestPredicatesSkipBlanksAndAll(t *testing.T) {
	conds, args, needJoin := JobFilter{
		JobType:    "All",
		Department: "  ",
		Keyword:    "leak",
	}.predicates(queryToday)

	joined := strings.Join(conds, " AND ")
	assert.NotContains(t, joined, "job_type")
	assert.NotContains(t, joined, "department")
	assert.Contains(t, joined, "(b.keywords LIKE ? OR b.job_description LIKE ?)")
	assert.False(t, needJoin)
	// date pair plus keyword pair
	assert.Len(t, args, 4)
}

func TestPredicatesCommaListsBecomeOrGroups(t *testing.T) {
	conds, args, _ := JobFilter{
		Tags: []string{"103-K-101", " 203-K-101 ", ""},
	}.predicates(queryToday)

	joined := strings.Join(conds, " AND ")
	assert.Contains(t, joined, "(b.Object_Tag LIKE ? OR b.Object_Tag LIKE ?)")
	assert.Contains(t, args, "%103-K-101%")
	assert.Contains(t, args, "%203-K-101%")
}

func TestHierarchyFiltersRequireJoin(t *testing.T) {
	_, _, needJoin := JobFilter{Tags: []string{"X"}}.predicates(queryToday)
	assert.False(t, needJoin, "plain tag filter works without the register")

	for _, f := range []JobFilter{
		{FatherTags: []string{"103-K-101"}},
		{Units: []string{"103"}},
		{Trains: []string{"1"}},
	} {
		_, _, needJoin := f.predicates(queryToday)
		assert.True(t, needJoin)
	}

	q, _ := JobFilter{Units: []string{"103"}}.Query(queryToday)
	assert.Contains(t, q, "LEFT JOIN objects o ON o.Object_Tag = b.Object_Tag")

	q, _ = JobFilter{}.Query(queryToday)
	assert.NotContains(t, q, "LEFT JOIN")
}

func TestCountQueryHasNoLimit(t *testing.T) {
	q, args := JobFilter{Keyword: "leak"}.CountQuery(queryToday)
	assert.True(t, strings.HasPrefix(q, "SELECT COUNT(*)"))
	assert.NotContains(t, q, "LIMIT")
	assert.Len(t, args, 4)

	q, args = JobFilter{Keyword: "leak"}.Query(queryToday)
	assert.Contains(t, q, "LIMIT ?")
	assert.Equal(t, listLimit, args[len(args)-1])
}
