// Package validate implements conflict detection and upload-eligibility
// gating (C5): whether a proposed local change may be applied against the
// remote inventory, given its writability and naming constraints.
package validate

import (
	"path"
	"sort"

	"github.com/codeexpert/syncengine/internal/fsutil"
	"github.com/codeexpert/syncengine/internal/syncerr"
	"github.com/codeexpert/syncengine/pkg/project"
)

// Conflicts returns every path present in both change sets, with both
// sides' change record attached. Per the design notes, any intersection —
// including added∧added — counts as a conflict; there is no silent content
// reconciliation.
func Conflicts(local []project.LocalFileChange, remote []project.RemoteFileChange) []project.Conflict {
	remoteByPath := make(map[string]project.RemoteFileChange, len(remote))
	for _, c := range remote {
		remoteByPath[c.Path] = c
	}

	var conflicts []project.Conflict
	for _, lc := range local {
		if rc, ok := remoteByPath[lc.Path]; ok {
			conflicts = append(conflicts, project.Conflict{Path: lc.Path, ChangeLocal: lc, ChangeRemote: rc})
		}
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Path < conflicts[j].Path })
	return conflicts
}

// RemoteIndex is the authoritative inventory indexed by path, used to find
// the closest existing ancestor and its permission.
type RemoteIndex map[string]project.RemoteFileInfo

func NewRemoteIndex(files []project.RemoteFileInfo) RemoteIndex {
	idx := make(RemoteIndex, len(files))
	for _, f := range files {
		idx[f.Path] = f
	}
	return idx
}

// ClosestExistingAncestor walks dirname(p) upward until it finds an entry
// present in the remote inventory, returning it. The project root (".") is
// returned only when the inventory carries an entry for it; otherwise the
// result is "not found", which callers treat as corruption.
func (idx RemoteIndex) ClosestExistingAncestor(p string) (project.RemoteFileInfo, bool) {
	dir := path.Dir(p)
	for dir != "." && dir != "/" {
		if info, ok := idx[dir]; ok {
			return info, true
		}
		dir = path.Dir(dir)
	}
	if info, ok := idx["."]; ok {
		return info, true
	}
	return project.RemoteFileInfo{}, false
}

// NewAncestorSegments returns every directory segment of p that is not yet
// present in the remote inventory — the segments a successful upload of p
// would newly introduce.
func (idx RemoteIndex) NewAncestorSegments(p string) []string {
	var segs []string
	dir := path.Dir(p)
	for dir != "." && dir != "/" {
		if _, ok := idx[dir]; ok {
			break
		}
		segs = append([]string{dir}, segs...)
		dir = path.Dir(dir)
	}
	return segs
}

// GateUpload validates one local change against the remote inventory,
// applying the per-kind eligibility rules. It returns nil when the change is
// eligible to upload.
func GateUpload(change project.LocalFileChange, remote RemoteIndex) error {
	switch change.Change {
	case project.Added:
		ancestor, ok := remote.ClosestExistingAncestor(change.Path)
		if !ok {
			return syncerr.FileSystemCorrupted(change.Path, "no existing ancestor found in remote inventory", nil)
		}
		if !ancestor.Permissions.Writable() {
			return syncerr.ReadOnlyFilesChanged(change.Path, "closest existing ancestor is read-only")
		}
		for _, seg := range remote.NewAncestorSegments(change.Path) {
			if !fsutil.IsValidDirName(path.Base(seg)) {
				return syncerr.FileSystemCorrupted(seg, "invalid directory name", nil)
			}
		}
		if !fsutil.IsValidFileName(path.Base(change.Path)) {
			return syncerr.InvalidFilename(path.Base(change.Path))
		}
		return nil

	case project.Removed:
		info, ok := remote[change.Path]
		if ok && !info.Permissions.Writable() {
			return syncerr.ReadOnlyFilesChanged(change.Path, "remote file is read-only")
		}
		ancestor, ok := remote.ClosestExistingAncestor(change.Path)
		if !ok {
			return syncerr.FileSystemCorrupted(change.Path, "no existing ancestor found in remote inventory", nil)
		}
		if !ancestor.Permissions.Writable() {
			return syncerr.ReadOnlyFilesChanged(change.Path, "closest existing ancestor is read-only")
		}
		return nil

	case project.Updated:
		info, ok := remote[change.Path]
		if !ok || !info.Permissions.Writable() {
			return syncerr.ReadOnlyFilesChanged(change.Path, "remote file is read-only")
		}
		return nil

	default:
		// A LocalFileChange in the upload plan is only ever constructed as
		// added/updated/removed (see internal/sync's planner); NoChange
		// reaching here is a programming error, not a user-facing one.
		panic("validate: upload plan received a change with no change kind for path " + change.Path)
	}
}
