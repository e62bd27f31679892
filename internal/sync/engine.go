// Package sync implements the sync orchestrator (C7): the state machine
// that drives one sync run end-to-end for a single project, composing the
// path/FS primitives, signed API client, metadata store, change detection,
// validation, and archive builder packages. Structurally grounded on
// internal/client/sync/sync_engine.go's reconcile()/executeReconcileOperations()
// phase sequencing, generalised from syftbox's per-datasite blob sync to
// one project's tarball sync.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/codeexpert/syncengine/internal/apiclient"
	"github.com/codeexpert/syncengine/internal/archive"
	"github.com/codeexpert/syncengine/internal/diff"
	"github.com/codeexpert/syncengine/internal/fsutil"
	"github.com/codeexpert/syncengine/internal/syncerr"
	"github.com/codeexpert/syncengine/internal/validate"
	"github.com/codeexpert/syncengine/pkg/project"
)

// ErrSyncAlreadyRunning is returned when a sync is requested for a project
// that already has one in flight, mirroring the reference engine's
// muSync.TryLock() guard: at most one sync per project may run at a time.
var ErrSyncAlreadyRunning = errors.New("sync: a sync is already running for this project")

// RemoteAPI is the subset of apiclient.Client the orchestrator depends on.
// Kept as an interface so tests can substitute an in-memory fake instead of
// spinning up an HTTP server for every scenario.
type RemoteAPI interface {
	GetProjectInfo(ctx context.Context, id project.ID) (*apiclient.ProjectInfoResponse, error)
	GetProjectFile(ctx context.Context, id project.ID, path string) ([]byte, error)
	PostProjectFiles(ctx context.Context, id project.ID, tarHash string, tarBody []byte, removeFiles []string) (*apiclient.ProjectInfoResponse, error)
}

// MetadataStore is the subset of store.Store the orchestrator depends on.
type MetadataStore interface {
	Find(id project.ID) (project.Project, bool)
	Upsert(p project.Project) error
}

// Engine drives sync runs for any number of projects, rejecting a second
// concurrent run of the same project (ErrSyncAlreadyRunning) while allowing
// different projects to sync concurrently.
type Engine struct {
	API   RemoteAPI
	Store MetadataStore
	Root  string // configured project root; see Config.RequireProjectDir
	Status *Status

	running sync.Map // project.ID -> *sync.Mutex
}

func (e *Engine) lockFor(id project.ID) *sync.Mutex {
	v, _ := e.running.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Run drives one sync to completion for proj, optionally forcing push or
// pull. It returns the project record as committed to the store. On
// failure it returns a zero Project and the error; a failure before Commit
// leaves the persisted baseline untouched.
func (e *Engine) Run(ctx context.Context, proj project.Project, force *project.Force) (project.Project, error) {
	mu := e.lockFor(proj.ProjectID)
	if !mu.TryLock() {
		return project.Project{}, ErrSyncAlreadyRunning
	}
	defer mu.Unlock()

	logger := slog.With("project", proj.ProjectID)

	// Phase 1: setup.
	if e.Root == "" {
		return project.Project{}, syncerr.ProjectDirMissing()
	}
	relDir := proj.RelativeDir()
	if proj.IsLocal() {
		relDir = proj.Local.BasePath
	}
	projectDir := filepath.Join(e.Root, filepath.FromSlash(relDir))

	// Phase 2: inventory.
	remoteInfo, err := e.API.GetProjectInfo(ctx, proj.ProjectID)
	if err != nil {
		return project.Project{}, classifyTransport(err)
	}

	var baseline []project.FileInfo
	if proj.IsLocal() {
		baseline = proj.Local.Files
	}

	var localFiles []project.LocalFileState
	if proj.IsLocal() {
		localFiles, err = scanLocal(projectDir)
		if err != nil {
			return project.Project{}, err
		}
	}

	logger.Info("sync: inventory", "remote_files", len(remoteInfo.Files), "local_files", len(localFiles), "baseline", len(baseline))

	// Phase 3: diff.
	var remoteChanges []project.RemoteFileChange
	if force == nil || *force != project.ForcePush {
		remoteChanges = diff.RemoteDiff(baseline, remoteInfo.Files)
	}

	var localChanges []project.LocalFileChange
	if proj.IsLocal() && (force == nil || *force != project.ForcePull) {
		localChanges = diff.LocalDiff(baseline, localFiles)
	}

	// Phase 4: conflict gate.
	if force == nil {
		conflicts := validate.Conflicts(localChanges, remoteChanges)
		if len(conflicts) > 0 {
			paths := make([]string, len(conflicts))
			for i, c := range conflicts {
				paths[i] = c.Path
			}
			return project.Project{}, syncerr.ConflictingChanges(paths)
		}
	}

	// Phase 5: plan.
	p := buildPlan(localChanges, remoteChanges, remoteInfo.Files)
	if err := gateUploads(p.upload, remoteInfo.Files); err != nil {
		return project.Project{}, err
	}

	// Phase 6: apply.
	if len(p.upload) > 0 {
		if err := e.applyUpload(ctx, proj.ProjectID, projectDir, p.upload); err != nil {
			return project.Project{}, err
		}
	}

	if err := e.ensureDirs(projectDir, p.dirsToEnsure); err != nil {
		return project.Project{}, err
	}

	if force == nil || *force != project.ForcePush {
		if err := e.applyDownloads(ctx, proj.ProjectID, projectDir, p.download, force); err != nil {
			return project.Project{}, err
		}
		if err := e.applyDeletes(projectDir, p.deleteLocal); err != nil {
			return project.Project{}, err
		}
	}

	// Phase 7: commit.
	finalInfo, err := e.API.GetProjectInfo(ctx, proj.ProjectID)
	if err != nil {
		return project.Project{}, classifyTransport(err)
	}
	newBaseline, err := rehash(projectDir, finalInfo.Files)
	if err != nil {
		return project.Project{}, err
	}

	committed := project.Project{
		Metadata: proj.Metadata,
		Local: &project.LocalState{
			BasePath: relDir,
			Files:    newBaseline,
			SyncedAt: time.Now(),
			State:    project.SyncState{Syncing: false},
		},
	}
	if err := e.Store.Upsert(committed); err != nil {
		return project.Project{}, fmt.Errorf("sync: commit baseline: %w", err)
	}

	logger.Info("sync: committed", "files", len(newBaseline))
	return committed, nil
}

// applyUpload materialises the archive and posts it along with any local
// removals. Phase 7's re-fetch is the source of truth for the resulting
// inventory, so the response body is not consulted here.
func (e *Engine) applyUpload(ctx context.Context, id project.ID, projectDir string, upload []project.LocalFileChange) error {
	var relPaths []string
	for _, c := range upload {
		if c.Change != project.Removed {
			relPaths = append(relPaths, c.Path)
		}
	}
	sort.Strings(relPaths)

	tmpDir, err := fsutil.TempDir("sync-upload-*")
	if err != nil {
		return syncerr.FileSystemCorrupted("", "create temp dir", err)
	}
	defer fsutil.RemoveDir(tmpDir, true)

	var tarHash string
	var tarBody []byte
	if len(relPaths) > 0 {
		archivePath := filepath.Join(tmpDir, fmt.Sprintf("project_%s_%s.tar.br", id, uuid.NewString()))
		tarHash, err = archive.Build(ctx, archivePath, projectDir, relPaths)
		if err != nil {
			return syncerr.FileSystemCorrupted(archivePath, "build upload archive", err)
		}
		tarBody, err = os.ReadFile(archivePath)
		if err != nil {
			return syncerr.FileSystemCorrupted(archivePath, "read upload archive", err)
		}
		slog.Info("sync: upload", "files", len(relPaths), "size", humanize.Bytes(uint64(len(tarBody))))
	}

	removeFiles := pathsOfLocal(upload)
	if _, err := e.API.PostProjectFiles(ctx, id, tarHash, tarBody, removeFiles); err != nil {
		return classifyTransport(err)
	}
	return nil
}

func pathsOfLocal(changes []project.LocalFileChange) []string {
	var paths []string
	for _, c := range changes {
		if c.Change == project.Removed {
			paths = append(paths, c.Path)
		}
	}
	sort.Strings(paths)
	return paths
}

func (e *Engine) ensureDirs(projectDir string, dirs []project.RemoteFileInfo) error {
	for _, d := range dirs {
		abs := filepath.Join(projectDir, filepath.FromSlash(d.Path))
		if err := fsutil.Mkdir(abs, !d.Permissions.Writable()); err != nil {
			return syncerr.FileSystemCorrupted(d.Path, "create directory", err)
		}
	}
	return nil
}

func (e *Engine) applyDownloads(ctx context.Context, id project.ID, projectDir string, files []project.RemoteFileInfo, force *project.Force) error {
	for _, f := range files {
		if e.Status != nil {
			e.Status.SetSyncing(f.Path)
		}

		body, err := e.API.GetProjectFile(ctx, id, f.Path)
		if err != nil {
			if e.Status != nil {
				e.Status.SetError(f.Path)
			}
			return classifyTransport(err)
		}

		target := filepath.Join(projectDir, filepath.FromSlash(f.Path))
		if force != nil && *force == project.ForcePull && fsutil.Exists(target) {
			if _, err := fsutil.MarkConflicted(target); err != nil {
				return syncerr.FileSystemCorrupted(f.Path, "preserve local copy before overwrite", err)
			}
		}

		if err := fsutil.WriteFile(target, body, !f.Permissions.Writable()); err != nil {
			if e.Status != nil {
				e.Status.SetError(f.Path)
			}
			return syncerr.FileSystemCorrupted(f.Path, "write downloaded file", err)
		}

		if e.Status != nil {
			e.Status.SetCompleted(f.Path)
		}
	}
	return nil
}

func (e *Engine) applyDeletes(projectDir string, changes []project.RemoteFileChange) error {
	for _, c := range changes {
		target := filepath.Join(projectDir, filepath.FromSlash(c.Path))
		if err := fsutil.RemoveFile(target); err != nil {
			return syncerr.FileSystemCorrupted(c.Path, "delete local file", err)
		}
	}
	return nil
}

// scanLocal walks projectDir and hashes every file, in parallel (ordering
// is irrelevant for hashing), short-circuiting on the first error.
func scanLocal(projectDir string) ([]project.LocalFileState, error) {
	if !fsutil.Exists(projectDir) {
		return nil, nil
	}
	nodes, err := fsutil.ReadDirTree(projectDir)
	if err != nil {
		return nil, syncerr.FileSystemCorrupted(projectDir, "scan project directory", err)
	}

	results := make([]project.LocalFileState, len(nodes))
	g, _ := errgroup.WithContext(context.Background())
	for i, n := range nodes {
		i, n := i, n
		g.Go(func() error {
			rel, ok := fsutil.StripAncestor(projectDir, n.Path)
			if !ok {
				return syncerr.FileSystemCorrupted(n.Path, "path escapes project root", nil)
			}
			if n.Dir {
				results[i] = project.LocalFileState{Path: rel, Type: project.TypeDir}
				return nil
			}
			h, err := fsutil.HashFile(n.Path)
			if err != nil {
				return syncerr.FileSystemCorrupted(rel, "hash local file", err)
			}
			results[i] = project.LocalFileState{Path: rel, Type: project.TypeFile, Hash: h}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// rehash re-derives the new baseline from the final remote inventory,
// hashing every type=file entry now present on disk.
func rehash(projectDir string, remoteFiles []project.RemoteFileInfo) ([]project.FileInfo, error) {
	out := make([]project.FileInfo, 0, len(remoteFiles))
	for _, f := range remoteFiles {
		entry := project.FileInfo{Path: f.Path, Type: f.Type, Version: f.Version, Permissions: f.Permissions}
		if f.Type == project.TypeFile {
			abs := filepath.Join(projectDir, filepath.FromSlash(f.Path))
			h, err := fsutil.HashFile(abs)
			if err != nil {
				return nil, syncerr.FileSystemCorrupted(f.Path, "hash committed file", err)
			}
			entry.Hash = h
		}
		out = append(out, entry)
	}
	return out, nil
}

func classifyTransport(err error) error {
	var apiErr *apiclient.ApiError
	if errors.As(err, &apiErr) {
		return syncerr.NetworkError(apiErr.Message, apiErr)
	}
	return syncerr.NetworkError(err.Error(), err)
}

