package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRoute(t *testing.T, s *Store) {
	t.Helper()
	require.NoError(t, s.AddRouteTag("R-01", "Compressor round", "103-K-101A", "Check oil level"))
	require.NoError(t, s.AddRouteTag("R-01", "Compressor round", "103-K-101B", "Check oil level"))
	require.NoError(t, s.AddRouteTag("R-02", "Pump round", "113-P-116A", "Grease bearings"))
}

func TestSearchRoutesDedupesByCode(t *testing.T) {
	s := newTestStore(t)
	seedRoute(t, s)

	routes, err := s.SearchRoutes("", "", "", 0)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "R-01", routes[0].Code)
	assert.Equal(t, "R-02", routes[1].Code)

	routes, err = s.SearchRoutes("", "pump", "", 0)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "R-02", routes[0].Code)

	routes, err = s.SearchRoutes("", "", "103-K", 0)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "R-01", routes[0].Code)
}

func TestRouteDetailsAndInfoUpdate(t *testing.T) {
	s := newTestStore(t)
	seedRoute(t, s)

	entries, err := s.RouteDetails("R-01")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, s.UpdateRouteInfo("R-01", "103-K-101A", "Compressor round", "Check oil and filter"))
	entries, err = s.RouteDetails("R-01")
	require.NoError(t, err)
	assert.Equal(t, "Check oil and filter", entries[0].StandardJob)
	assert.Equal(t, "Check oil level", entries[1].StandardJob, "other row untouched")
}

func TestRemoveRouteTag(t *testing.T) {
	s := newTestStore(t)
	seedRoute(t, s)

	removed, err := s.RemoveRouteTag("R-01", "103-K-101B")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveRouteTag("R-01", "103-K-101B")
	require.NoError(t, err)
	assert.False(t, removed)

	entries, err := s.RouteDetails("R-01")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPPMJobsForRouteKeepsLatestPerTag(t *testing.T) {
	s := newTestStore(t)
	_, err := s.InsertJob(JobReport{Date: "2025-06-01", ObjectTag: "103-K-101A",
		JobType: "PM", WONumber: "WO-9"})
	require.NoError(t, err)
	_, err = s.InsertJob(JobReport{Date: "2025-06-10", ObjectTag: "103-K-101A",
		JobType: "PM", WONumber: "WO-9"})
	require.NoError(t, err)
	_, err = s.InsertJob(JobReport{Date: "2025-06-05", ObjectTag: "103-K-101A",
		JobType: "CM", WONumber: "WO-9"})
	require.NoError(t, err)

	jobs, err := s.PPMJobsForRoute("WO-9", []string{"103-K-101A", "103-K-101B"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "2025-06-10", jobs["103-K-101A"].Date)
}

func TestReconcilePPM(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	header := JobReport{
		Date: "2025-06-15", WONumber: "WO-9", Department: "Mechanic",
		Status: "completed", Route: "R-01",
		RegisteredBy: "writer (pc1)", RegisteredDate: "2025-06-15",
	}

	// A pre-existing report for the tag that will come back unchecked
	// and blank.
	_, err := s.InsertJob(JobReport{Date: "2025-06-01", ObjectTag: "103-K-101C",
		JobType: "PM", WONumber: "WO-9", RegisteredBy: "writer (pc1)",
		RegisteredDate: "2025-06-01"})
	require.NoError(t, err)

	inserted, updated, deleted, err := s.ReconcilePPM(header, []PPMItem{
		{ObjectTag: "103-K-101A", Checked: true, Description: "done as per standard"},
		{ObjectTag: "103-K-101B", Checked: false, Description: "isolated for repair"},
		{ObjectTag: "103-K-101C", Checked: false, Description: ""},
		{ObjectTag: "103-K-101D", Checked: false, Description: ""},
	}, "writer (pc1)", now)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 0, updated)
	assert.Equal(t, 1, deleted)

	jobs, err := s.PPMJobsForRoute("WO-9", []string{
		"103-K-101A", "103-K-101B", "103-K-101C", "103-K-101D"})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "done as per standard", jobs["103-K-101A"].Description)
	assert.Equal(t, "Off - isolated for repair", jobs["103-K-101B"].Description)

	// Resubmitting updates in place and appends to the audit trail.
	inserted, updated, deleted, err = s.ReconcilePPM(header, []PPMItem{
		{ObjectTag: "103-K-101A", Checked: true, Description: "redone"},
	}, "editor (pc2)", now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 1, updated)
	assert.Equal(t, 0, deleted)

	jobs, err = s.PPMJobsForRoute("WO-9", []string{"103-K-101A"})
	require.NoError(t, err)
	assert.Equal(t, "redone", jobs["103-K-101A"].Description)
	assert.Contains(t, jobs["103-K-101A"].RegisteredBy, "editor (pc2) (modifier)")
	assert.Contains(t, jobs["103-K-101A"].RegisteredDate, "2025-06-16 (modified)")
}
