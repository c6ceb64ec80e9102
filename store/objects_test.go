package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddObjectUppercasesAndRejectsDuplicates(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddObject(Object{Tag: "103-k-101a", UnitCode: "103"}))

	got, found, err := s.GetObject("103-K-101A")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "103-K-101A", got.Tag)

	err = s.AddObject(Object{Tag: "103-K-101A"})
	assert.ErrorIs(t, err, ErrTagExists)
}

func TestSearchObjects(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddObject(Object{Tag: "103-K-101A", UnitCode: "103", Train: "1", FatherTag: "103-K-101"}))
	require.NoError(t, s.AddObject(Object{Tag: "103-K-101B", UnitCode: "103", Train: "1", FatherTag: "103-K-101"}))
	require.NoError(t, s.AddObject(Object{Tag: "203-K-101A", UnitCode: "203", Train: "2", FatherTag: "203-K-101"}))

	objs, err := s.SearchObjects("103-K", "", "", "", 0)
	require.NoError(t, err)
	assert.Len(t, objs, 2)

	objs, err = s.SearchObjects("", "", "203", "", 0)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "203-K-101A", objs[0].Tag)

	objs, err = s.SearchObjects("103-K", "", "", "2", 0)
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestUpdateObjectRenameCascades(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddObject(Object{
		Tag: "103-K-101", UnitCode: "103", FatherTag: "103",
		LongTag: "103/103-K-101",
	}))
	require.NoError(t, s.AddObject(Object{
		Tag: "103-K-101A", UnitCode: "103", FatherTag: "103-K-101",
		LongTag: "103/103-K-101/103-K-101A",
	}))
	jobID, err := s.InsertJob(JobReport{Date: "2025-06-01", ObjectTag: "103-K-101"})
	require.NoError(t, err)

	renamed := Object{
		Tag: "103-K-201", UnitCode: "103", FatherTag: "103",
		LongTag: "103/103-K-101",
	}
	result, err := s.UpdateObject("103-K-101", renamed, "editor (pc) | 03-06-2025")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Jobs)
	assert.Equal(t, 1, result.Fathers)
	// Both the renamed row's own path and the child's path carry the old
	// tag as a segment.
	assert.Equal(t, 2, result.Lineage)

	_, found, err := s.GetObject("103-K-101")
	require.NoError(t, err)
	assert.False(t, found)

	parent, found, err := s.GetObject("103-K-201")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "103/103-K-201", parent.LongTag)
	assert.Contains(t, parent.Modified, "editor (pc)")

	child, found, err := s.GetObject("103-K-101A")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "103-K-201", child.FatherTag)
	assert.Equal(t, "103/103-K-201/103-K-101A", child.LongTag)

	job, found, err := s.GetJob(jobID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "103-K-201", job.ObjectTag)
}

func TestUpdateObjectRenameToExistingTag(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddObject(Object{Tag: "A-B-1"}))
	require.NoError(t, s.AddObject(Object{Tag: "A-B-2"}))

	_, err := s.UpdateObject("A-B-1", Object{Tag: "A-B-2"}, "")
	assert.ErrorIs(t, err, ErrTagExists)
}

func TestUpdateObjectAppendsModifiedLog(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddObject(Object{Tag: "A-B-1", Modified: ""}))

	_, err := s.UpdateObject("A-B-1", Object{Tag: "A-B-1", Description: "x"}, "first (pc) | 01-06-2025")
	require.NoError(t, err)
	_, err = s.UpdateObject("A-B-1", Object{Tag: "A-B-1", Description: "y"}, "second (pc) | 02-06-2025")
	require.NoError(t, err)

	got, _, err := s.GetObject("A-B-1")
	require.NoError(t, err)
	assert.Equal(t, "first (pc) | 01-06-2025\nsecond (pc) | 02-06-2025", got.Modified)
}

func TestDeleteObject(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddObject(Object{Tag: "A-B-1"}))

	deleted, err := s.DeleteObject("a-b-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteObject("A-B-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDistinctValues(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddObject(Object{Tag: "A-B-1", UnitCode: "103"}))
	require.NoError(t, s.AddObject(Object{Tag: "A-B-2", UnitCode: "103"}))
	require.NoError(t, s.AddObject(Object{Tag: "A-B-3", UnitCode: "203"}))
	require.NoError(t, s.AddObject(Object{Tag: "A-B-4", UnitCode: ""}))

	values, err := s.DistinctValues("unit_code")
	require.NoError(t, err)
	assert.Equal(t, []string{"103", "203"}, values)

	_, err = s.DistinctValues("password_hash")
	assert.Error(t, err, "only the register allowlist is queryable")
}
