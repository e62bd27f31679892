package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeexpert/syncengine/internal/apiclient"
	"github.com/codeexpert/syncengine/internal/syncerr"
	"github.com/codeexpert/syncengine/pkg/project"
)

type fakeAPI struct {
	info        apiclient.ProjectInfoResponse
	files       map[string][]byte
	posted      [][]string // removeFiles seen on each PostProjectFiles call
	postErr     error
	infoCallNum int
	infoSeq     []apiclient.ProjectInfoResponse // if set, returns successive entries per call
}

func (f *fakeAPI) GetProjectInfo(ctx context.Context, id project.ID) (*apiclient.ProjectInfoResponse, error) {
	f.infoCallNum++
	if len(f.infoSeq) >= f.infoCallNum {
		return &f.infoSeq[f.infoCallNum-1], nil
	}
	return &f.info, nil
}

func (f *fakeAPI) GetProjectFile(ctx context.Context, id project.ID, path string) ([]byte, error) {
	return f.files[path], nil
}

func (f *fakeAPI) PostProjectFiles(ctx context.Context, id project.ID, tarHash string, tarBody []byte, removeFiles []string) (*apiclient.ProjectInfoResponse, error) {
	f.posted = append(f.posted, removeFiles)
	if f.postErr != nil {
		return nil, f.postErr
	}
	return &f.info, nil
}

type fakeStore struct {
	projects map[project.ID]project.Project
}

func newFakeStore() *fakeStore { return &fakeStore{projects: map[project.ID]project.Project{}} }

func (s *fakeStore) Find(id project.ID) (project.Project, bool) {
	p, ok := s.projects[id]
	return p, ok
}

func (s *fakeStore) Upsert(p project.Project) error {
	s.projects[p.ProjectID] = p
	return nil
}

func TestRunDownloadsNewRemoteFilesAndCommitsBaseline(t *testing.T) {
	root := t.TempDir()
	const id = project.ID("proj-1")

	remoteFiles := []project.RemoteFileInfo{
		{Path: "a.txt", Type: project.TypeFile, Version: 1, Permissions: project.PermReadWrite},
	}
	api := &fakeAPI{
		info:  apiclient.ProjectInfoResponse{ID: id, Files: remoteFiles},
		files: map[string][]byte{"a.txt": []byte("hello")},
	}
	st := newFakeStore()
	engine := &Engine{API: api, Store: st, Root: root, Status: NewStatus()}

	proj := project.Project{Metadata: project.Metadata{ProjectID: id}}
	committed, err := engine.Run(context.Background(), proj, nil)
	require.NoError(t, err)

	require.Len(t, committed.Local.Files, 1)
	assert.Equal(t, "a.txt", committed.Local.Files[0].Path)
	assert.NotEmpty(t, committed.Local.Files[0].Hash)

	content, err := os.ReadFile(filepath.Join(root, committed.RelativeDir(), "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	stored, ok := st.Find(id)
	require.True(t, ok)
	assert.Equal(t, committed, stored)
}

func TestRunRejectsConcurrentSyncOfSameProject(t *testing.T) {
	root := t.TempDir()
	const id = project.ID("proj-2")
	api := &fakeAPI{info: apiclient.ProjectInfoResponse{ID: id}}
	engine := &Engine{API: api, Store: newFakeStore(), Root: root}

	mu := engine.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	_, err := engine.Run(context.Background(), project.Project{Metadata: project.Metadata{ProjectID: id}}, nil)
	assert.ErrorIs(t, err, ErrSyncAlreadyRunning)
}

func TestRunFailsWithoutConfiguredRoot(t *testing.T) {
	engine := &Engine{API: &fakeAPI{}, Store: newFakeStore()}
	_, err := engine.Run(context.Background(), project.Project{}, nil)
	assert.True(t, syncerr.Is(err, syncerr.CodeProjectDirMissing))
}

func TestRunReportsConflictingChanges(t *testing.T) {
	root := t.TempDir()
	const id = project.ID("proj-3")

	baseline := []project.FileInfo{{Path: "a.txt", Type: project.TypeFile, Version: 1, Hash: "H1", Permissions: project.PermReadWrite}}
	remoteFiles := []project.RemoteFileInfo{{Path: "a.txt", Type: project.TypeFile, Version: 2, Permissions: project.PermReadWrite}}

	proj := project.Project{
		Metadata: project.Metadata{ProjectID: id},
		Local:    &project.LocalState{BasePath: "proj", Files: baseline},
	}
	projectDir := filepath.Join(root, "proj")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "a.txt"), []byte("locally edited"), 0o644))

	api := &fakeAPI{info: apiclient.ProjectInfoResponse{ID: id, Files: remoteFiles}}
	engine := &Engine{API: api, Store: newFakeStore(), Root: root}

	_, err := engine.Run(context.Background(), proj, nil)
	require.Error(t, err)
	assert.True(t, syncerr.Is(err, syncerr.CodeConflictingChanges))
}

func TestRunForcePushSkipsConflictGateAndUploads(t *testing.T) {
	root := t.TempDir()
	const id = project.ID("proj-4")

	baseline := []project.FileInfo{{Path: "a.txt", Type: project.TypeFile, Version: 1, Hash: "H1", Permissions: project.PermReadWrite}}
	remoteFiles := []project.RemoteFileInfo{
		{Path: "a.txt", Type: project.TypeFile, Version: 2, Permissions: project.PermReadWrite},
	}

	proj := project.Project{
		Metadata: project.Metadata{ProjectID: id},
		Local:    &project.LocalState{BasePath: "proj", Files: baseline},
	}
	projectDir := filepath.Join(root, "proj")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "a.txt"), []byte("locally edited"), 0o644))

	api := &fakeAPI{
		info: apiclient.ProjectInfoResponse{ID: id, Files: remoteFiles},
		infoSeq: []apiclient.ProjectInfoResponse{
			{ID: id, Files: remoteFiles},
			{ID: id, Files: remoteFiles},
		},
	}
	engine := &Engine{API: api, Store: newFakeStore(), Root: root}

	force := project.ForcePush
	committed, err := engine.Run(context.Background(), proj, &force)
	require.NoError(t, err)
	require.Len(t, api.posted, 1)
	assert.Contains(t, committed.Local.Files[0].Path, "a.txt")
}
