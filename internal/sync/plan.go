package sync

import (
	"sort"
	"strings"

	"github.com/codeexpert/syncengine/internal/validate"
	"github.com/codeexpert/syncengine/pkg/project"
)

// plan is the materialised set of operations a sync run must perform: what
// to upload, what to download, what to delete locally, and which
// directories must exist before any write happens.
type plan struct {
	upload       []project.LocalFileChange
	download     []project.RemoteFileInfo
	deleteLocal  []project.RemoteFileChange
	dirsToEnsure []project.RemoteFileInfo
}

// buildPlan turns the local/remote diffs into the four plan sets. It does
// not itself run the upload-eligibility gate (GateUpload) — gateUploads
// below does that per-change and can fail the whole run on a readOnly or
// invalid-name violation, which buildPlan's caller must handle.
func buildPlan(localChanges []project.LocalFileChange, remoteChanges []project.RemoteFileChange, remoteFiles []project.RemoteFileInfo) plan {
	remoteByPath := make(map[string]project.RemoteFileInfo, len(remoteFiles))
	for _, f := range remoteFiles {
		remoteByPath[f.Path] = f
	}

	var upload []project.LocalFileChange
	for _, c := range localChanges {
		switch c.Change {
		case project.Added, project.Updated, project.Removed:
			upload = append(upload, c)
		}
	}

	var download []project.RemoteFileInfo
	for _, c := range remoteChanges {
		if c.Change != project.Added && c.Change != project.Updated {
			continue
		}
		if f, ok := remoteByPath[c.Path]; ok && f.Type == project.TypeFile {
			download = append(download, f)
		}
	}

	var deleteLocal []project.RemoteFileChange
	for _, c := range remoteChanges {
		if c.Change == project.Removed {
			deleteLocal = append(deleteLocal, c)
		}
	}

	var dirs []project.RemoteFileInfo
	for _, f := range remoteFiles {
		if f.Type == project.TypeDir {
			dirs = append(dirs, f)
		}
	}
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := depth(dirs[i].Path), depth(dirs[j].Path)
		if di != dj {
			return di < dj
		}
		return dirs[i].Path < dirs[j].Path
	})

	return plan{upload: upload, download: download, deleteLocal: deleteLocal, dirsToEnsure: dirs}
}

func depth(p string) int {
	if p == "" || p == "." {
		return 0
	}
	return strings.Count(p, "/") + 1
}

// gateUploads runs validate.GateUpload over every planned upload change,
// returning the first violation encountered (phases abort on first error).
func gateUploads(upload []project.LocalFileChange, remoteFiles []project.RemoteFileInfo) error {
	idx := validate.NewRemoteIndex(remoteFiles)
	for _, c := range upload {
		if err := validate.GateUpload(c, idx); err != nil {
			return err
		}
	}
	return nil
}
