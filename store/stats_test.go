package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsForTag(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	obj := Object{
		Tag: "103-K-101A", UnitCode: "103", Train: "1",
		FatherTag: "103-K-101", LongTag: "103/103-K-101/103-K-101A",
	}
	require.NoError(t, s.AddObject(obj))
	require.NoError(t, s.AddObject(Object{
		Tag: "103-K-101B", UnitCode: "103", Train: "1",
		FatherTag: "103-K-101", LongTag: "103/103-K-101/103-K-101B",
	}))

	// Two PM, two CM on the tag; one of each inside the last 30 days.
	for _, j := range []JobReport{
		{Date: "2025-06-20", ObjectTag: "103-K-101A", JobType: "PM"},
		{Date: "2025-06-25", ObjectTag: "103-K-101A", JobType: "CM"},
		{Date: "2024-09-01", ObjectTag: "103-K-101A", JobType: "PM"},
		{Date: "2023-01-01", ObjectTag: "103-K-101A", JobType: "CM"},
		{Date: "2025-06-10", ObjectTag: "103-K-101B", JobType: "CM"},
	} {
		_, err := s.InsertJob(j)
		require.NoError(t, err)
	}

	st, err := s.StatsForTag(obj, now)
	require.NoError(t, err)

	assert.Equal(t, 4, st.Tag.Total)
	assert.Equal(t, 2, st.Tag.Month)
	assert.Equal(t, 3, st.Tag.Year)
	assert.InDelta(t, 50.0, st.Tag.PMTotalPct, 0.01)

	// The sibling joins through the shared lineage prefix.
	assert.Equal(t, "103-K-101", st.GroupDisplay)
	assert.Equal(t, 5, st.Group.Total)

	assert.Equal(t, 5, st.Unit.Total)
}

func TestFatherAndRecentCount(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddObject(Object{
		Tag: "103-K-101A", UnitCode: "103", FatherTag: "103-K-101",
		LongTag: "103/103-K-101/103-K-101A",
	}))
	require.NoError(t, s.AddObject(Object{
		Tag: "103-K-101B", UnitCode: "103", FatherTag: "103-K-101",
		LongTag: "103/103-K-101/103-K-101B",
	}))

	for _, j := range []JobReport{
		{Date: "2025-06-15", ObjectTag: "103-K-101A"},
		{Date: "2025-06-05", ObjectTag: "103-K-101B"}, // sibling, in window
		{Date: "2025-05-01", ObjectTag: "103-K-101B"}, // too old
	} {
		_, err := s.InsertJob(j)
		require.NoError(t, err)
	}

	father, count, err := s.FatherAndRecentCount("103-K-101A", "2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, "103-K-101", father)
	assert.Equal(t, 2, count)
}

func TestFatherAndRecentCountTopOfBranch(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddObject(Object{
		Tag: "103-K-101", UnitCode: "103", FatherTag: "103",
		LongTag: "103/103-K-101",
	}))
	require.NoError(t, s.AddObject(Object{
		Tag: "103-X-001", UnitCode: "103", FatherTag: "103",
		LongTag: "103/103-X-001",
	}))

	father, _, err := s.FatherAndRecentCount("103-X-001", "2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, "103-X-001", father, "father equal to unit displays the tag itself")
}

func TestStandbyVariantsAndBreakdown(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddObject(Object{Tag: "103-K-101A"}))
	require.NoError(t, s.AddObject(Object{Tag: "103-K-101B"}))
	require.NoError(t, s.AddObject(Object{Tag: "103-K-102A"}))

	variants, err := s.StandbyVariants("103-K-101A")
	require.NoError(t, err)
	assert.Equal(t, []string{"103-K-101B"}, variants)

	// Tags without a standby letter have no siblings.
	variants, err = s.StandbyVariants("103-K-101")
	require.NoError(t, err)
	assert.Empty(t, variants)

	for _, j := range []JobReport{
		{Date: "2025-06-01", ObjectTag: "103-K-101B", JobType: "PM"},
		{Date: "2025-06-02", ObjectTag: "103-K-101B", JobType: "PM"},
		{Date: "2025-06-03", ObjectTag: "103-K-101B", JobType: "CM"},
	} {
		_, err := s.InsertJob(j)
		require.NoError(t, err)
	}
	pm, cm, total, err := s.JobBreakdown("103-K-101B")
	require.NoError(t, err)
	assert.Equal(t, 2, pm)
	assert.Equal(t, 1, cm)
	assert.Equal(t, 3, total)
}

func TestTypicalFamilyStopsAfterTwoMisses(t *testing.T) {
	s := newTestStore(t)
	for _, tag := range []string{
		"103-K-101A", "103-K-101B", "103-K-201A",
		// Trains 3 and 4 unregistered; train 5 exists but is beyond the
		// two-miss cutoff and must not appear.
		"103-K-501A",
	} {
		require.NoError(t, s.AddObject(Object{Tag: tag}))
	}

	family, err := s.TypicalFamily("103-K-101A")
	require.NoError(t, err)
	assert.Equal(t, []string{"103-K-101A", "103-K-101B", "103-K-201A"}, family)
}

func TestMonthlyBreakdown(t *testing.T) {
	s := newTestStore(t)
	for _, j := range []JobReport{
		{Date: "2025-05-10", ObjectTag: "103-K-101A", JobType: "PM"},
		{Date: "2025-05-20", ObjectTag: "103-K-101A", JobType: "CM"},
		{Date: "2025-06-01", ObjectTag: "103-K-101A", JobType: "PM"},
		{Date: "2025-06-02", ObjectTag: "203-K-101A", JobType: "CM"},
	} {
		_, err := s.InsertJob(j)
		require.NoError(t, err)
	}

	counts, err := s.MonthlyBreakdown([]string{"103-K-101A", "203-K-101A"}, "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, []MonthlyCount{
		{Tag: "103-K-101A", Month: "2025-05", PM: 1, CM: 1},
		{Tag: "103-K-101A", Month: "2025-06", PM: 1, CM: 0},
		{Tag: "203-K-101A", Month: "2025-06", PM: 0, CM: 1},
	}, counts)
}

func TestActiveJobs(t *testing.T) {
	s := newTestStore(t)
	for _, j := range []JobReport{
		{Date: "2025-06-01", ObjectTag: "103-K-101A", JobType: "CM",
			Department: "Mechanic", WONumber: "WO-1", Status: "ongoing"},
		// Same work order reported again later as completed: the pair is
		// closed and drops out entirely.
		{Date: "2025-06-05", ObjectTag: "103-K-101A", JobType: "CM",
			Department: "Mechanic", WONumber: "WO-1", Status: "completed"},
		{Date: "2025-06-03", ObjectTag: "103-K-101A", JobType: "CM",
			Department: "Electric", WONumber: "WO-2", Status: "on hold"},
		{Date: "2025-06-04", ObjectTag: "103-K-101A", JobType: "PM",
			Department: "Mechanic", WONumber: "WO-3", Status: "ongoing"},
	} {
		_, err := s.InsertJob(j)
		require.NoError(t, err)
	}

	summary, err := s.ActiveJobs("103-K-101A")
	require.NoError(t, err)
	require.Len(t, summary.Jobs, 1)
	assert.Equal(t, "WO-2", summary.Jobs[0].WONumber)
	assert.Equal(t, map[string]int{"Electric": 1}, summary.ByDepartment)
}

func TestUserActivityAndTopTags(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	for _, j := range []JobReport{
		{Date: "2025-06-20", ObjectTag: "103-K-101A", JobType: "PM",
			RegisteredBy: "writer (pc1)"},
		{Date: "2025-06-21", ObjectTag: "103-K-101A", JobType: "CM",
			RegisteredBy: "writer (pc2)"},
		{Date: "2024-01-01", ObjectTag: "113-P-116A", JobType: "PM",
			RegisteredBy: "writer (pc1)"},
		{Date: "2025-06-22", ObjectTag: "103-K-101A", JobType: "PM",
			RegisteredBy: "other (pc1)"},
	} {
		_, err := s.InsertJob(j)
		require.NoError(t, err)
	}

	activity, err := s.UserActivity("Writer", now)
	require.NoError(t, err)
	assert.Equal(t, UserActivity{Total: 3, PM: 2, CM: 1, Month: 2}, activity)

	top, err := s.UserTopTags("writer", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "103-K-101A", top[0].Tag)
	assert.Equal(t, 2, top[0].Count)

	recent, err := s.UserRecentJobs("writer", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2025-06-21", recent[0].Date)
}

func TestTrendRowsJoinEquipment(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddObject(Object{
		Tag: "103-K-101A", UnitCode: "103", ObjectType: "Compressor",
	}))
	for _, j := range []JobReport{
		{Date: "2025-06-01", ObjectTag: "103-K-101A", JobType: "PM", Department: "Mechanic"},
		{Date: "2025-06-02", ObjectTag: "GHOST-TAG", JobType: "CM", Department: "Electric"},
		{Date: "2024-06-01", ObjectTag: "103-K-101A", JobType: "PM", Department: "Mechanic"},
	} {
		_, err := s.InsertJob(j)
		require.NoError(t, err)
	}

	rows, err := s.TrendRows("2025-01-01", "2025-12-31")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Compressor", rows[0].ObjectType)
	assert.Equal(t, "103", rows[0].UnitCode)
	assert.Empty(t, rows[1].ObjectType, "unregistered tag keeps blank equipment fields")
}

func TestListPMJobs(t *testing.T) {
	s := newTestStore(t)
	for _, j := range []JobReport{
		{Date: "2025-06-01", ObjectTag: "A", JobType: "PM", Department: "Mechanic", Route: "R-01"},
		{Date: "2025-06-01", ObjectTag: "B", JobType: "PM", Department: "Electric", Route: "R-02"},
		{Date: "2025-06-01", ObjectTag: "C", JobType: "CM", Department: "Mechanic"},
	} {
		_, err := s.InsertJob(j)
		require.NoError(t, err)
	}

	jobs, err := s.ListPMJobs("", 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = s.ListPMJobs("mechanic", 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "A", jobs[0].ObjectTag)
}
