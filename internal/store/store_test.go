package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeexpert/syncengine/pkg/project"
)

func TestOpenEmptyThenUpsertPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project_metadata.json")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.Find("p1")
	assert.False(t, ok)

	p := project.Project{Metadata: project.Metadata{ProjectID: "p1", Semester: "2024S"}}
	require.NoError(t, s.Upsert(p))

	got, ok := s.Find("p1")
	require.True(t, ok)
	assert.Equal(t, project.ID("p1"), got.ProjectID)

	// Re-open in a new Store instance (simulating a restart) and confirm
	// the write actually landed on disk.
	require.NoError(t, s.Close())
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got2, ok := s2.Find("p1")
	require.True(t, ok)
	assert.Equal(t, "2024S", got2.Semester)
}

func TestUpsertPromotesAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "meta.json"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Upsert(project.Project{Metadata: project.Metadata{ProjectID: "p1"}}))
	require.NoError(t, s.Upsert(project.Project{
		Metadata: project.Metadata{ProjectID: "p1"},
		Local:    &project.LocalState{BasePath: "2024S/course"},
	}))

	got, ok := s.Find("p1")
	require.True(t, ok)
	require.NotNil(t, got.Local)
	assert.Equal(t, "2024S/course", got.Local.BasePath)
}

func TestRemoveDeletesEntry(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "meta.json"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Upsert(project.Project{Metadata: project.Metadata{ProjectID: "p1"}}))
	require.NoError(t, s.Remove("p1"))

	_, ok := s.Find("p1")
	assert.False(t, ok)
}

func TestFindAllReturnsAllProjects(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "meta.json"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Upsert(project.Project{Metadata: project.Metadata{ProjectID: "p1"}}))
	require.NoError(t, s.Upsert(project.Project{Metadata: project.Metadata{ProjectID: "p2"}}))

	all := s.FindAll()
	assert.Len(t, all, 2)
}

func TestOpenRejectsSecondInstance(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.json")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(path)
	assert.Error(t, err)
}
