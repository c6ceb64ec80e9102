package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndVerifyUser(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RegisterUser(User{
		Username: "Writer", Name: "W. Author", Department: "Mechanic",
		PersonnelNumber: "1234",
	}, "s3cret"))

	// Usernames are stored lowercase.
	u, found, err := s.GetUser("writer")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "writer", u.Username)
	assert.False(t, u.IsAdmin)

	ok, err := s.VerifyUser("WRITER", "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.VerifyUser("writer", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.VerifyUser("nobody", "s3cret")
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.RegisterUser(User{Username: "writer"}, "other")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestChangePassword(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RegisterUser(User{Username: "writer"}, "old"))
	require.NoError(t, s.ChangePassword("writer", "new"))

	ok, err := s.VerifyUser("writer", "old")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.VerifyUser("writer", "new")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateUserPartial(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RegisterUser(User{
		Username: "writer", Name: "Old Name", Department: "Mechanic",
	}, "pw"))

	newName := "New Name"
	admin := true
	require.NoError(t, s.UpdateUser("writer", UserUpdate{Name: &newName, IsAdmin: &admin}))

	u, _, err := s.GetUser("writer")
	require.NoError(t, err)
	assert.Equal(t, "New Name", u.Name)
	assert.Equal(t, "Mechanic", u.Department, "untouched field survives")
	assert.True(t, u.IsAdmin)

	// No fields set: a no-op, not an error.
	require.NoError(t, s.UpdateUser("writer", UserUpdate{}))
}

func TestSearchUsers(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RegisterUser(User{Username: "alice", Department: "Mechanic"}, "pw"))
	require.NoError(t, s.RegisterUser(User{Username: "bob", Department: "Electric"}, "pw"))

	users, err := s.SearchUsers("", "", "", "mech")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)

	users, err = s.SearchUsers("", "", "", "")
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestDeleteUser(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RegisterUser(User{Username: "temp"}, "pw"))

	deleted, err := s.DeleteUser("temp")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteUser("temp")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSavedFilterLifecycle(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RegisterUser(User{Username: "writer"}, "pw"))

	saved, err := s.SavedFilter("writer")
	require.NoError(t, err)
	assert.Empty(t, saved)

	payload := `{"job_type":"PM","tags":["103-K-101A"]}`
	require.NoError(t, s.SaveFilter("writer", payload))

	saved, err = s.SavedFilter("writer")
	require.NoError(t, err)
	assert.Equal(t, payload, saved)

	require.NoError(t, s.SaveFilter("writer", ""))
	saved, err = s.SavedFilter("writer")
	require.NoError(t, err)
	assert.Empty(t, saved)
}
