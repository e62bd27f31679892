// Package diff implements the three-way change detection at the heart of
// the sync engine: given a baseline and an observed inventory, it computes
// which paths were added, removed, or updated, emitting a stable, sorted
// change list.
package diff

import (
	"sort"

	"github.com/codeexpert/syncengine/pkg/project"
)

// RemoteDiff compares a baseline against a remote inventory, using version
// as the updated-discriminator. Only type=file entries participate;
// directories are reconciled by existence alone elsewhere.
func RemoteDiff(baseline []project.FileInfo, latest []project.RemoteFileInfo) []project.RemoteFileChange {
	prevIdx := indexFileInfo(baseline)
	latestIdx := indexRemoteFileInfo(latest)

	var changes []project.RemoteFileChange
	for p, l := range latestIdx {
		if prev, ok := prevIdx[p]; !ok {
			changes = append(changes, project.RemoteFileChange{Path: p, Change: project.Added, Version: l.Version})
		} else if prev.Version != l.Version {
			changes = append(changes, project.RemoteFileChange{Path: p, Change: project.Updated, Version: l.Version})
		}
	}
	for p := range prevIdx {
		if _, ok := latestIdx[p]; !ok {
			changes = append(changes, project.RemoteFileChange{Path: p, Change: project.Removed})
		}
	}

	return sortRemoteChanges(changes)
}

// LocalDiff compares a baseline against an observed local scan, using
// content hash as the updated-discriminator.
func LocalDiff(baseline []project.FileInfo, latest []project.LocalFileState) []project.LocalFileChange {
	prevIdx := indexFileInfo(baseline)
	latestIdx := indexLocalFileState(latest)

	var changes []project.LocalFileChange
	for p, l := range latestIdx {
		if prev, ok := prevIdx[p]; !ok {
			changes = append(changes, project.LocalFileChange{Path: p, Change: project.Added})
		} else if prev.Hash != l.Hash {
			changes = append(changes, project.LocalFileChange{Path: p, Change: project.Updated})
		}
	}
	for p := range prevIdx {
		if _, ok := latestIdx[p]; !ok {
			changes = append(changes, project.LocalFileChange{Path: p, Change: project.Removed})
		}
	}

	return sortLocalChanges(changes)
}

func indexFileInfo(items []project.FileInfo) map[string]project.FileInfo {
	idx := make(map[string]project.FileInfo, len(items))
	for _, it := range items {
		if it.Type != project.TypeFile {
			continue
		}
		idx[it.Path] = it
	}
	return idx
}

func indexRemoteFileInfo(items []project.RemoteFileInfo) map[string]project.RemoteFileInfo {
	idx := make(map[string]project.RemoteFileInfo, len(items))
	for _, it := range items {
		if it.Type != project.TypeFile {
			continue
		}
		idx[it.Path] = it
	}
	return idx
}

func indexLocalFileState(items []project.LocalFileState) map[string]project.LocalFileState {
	idx := make(map[string]project.LocalFileState, len(items))
	for _, it := range items {
		if it.Type != project.TypeFile {
			continue
		}
		idx[it.Path] = it
	}
	return idx
}

// changeRank orders change kinds removed, added, updated for stable output,
// following a fixed "removed, then added, then updated" tie-break rule.
func changeRank(k project.ChangeKind) int {
	switch k {
	case project.Removed:
		return 0
	case project.Added:
		return 1
	case project.Updated:
		return 2
	default:
		return 3
	}
}

func sortRemoteChanges(changes []project.RemoteFileChange) []project.RemoteFileChange {
	sort.Slice(changes, func(i, j int) bool {
		ri, rj := changeRank(changes[i].Change), changeRank(changes[j].Change)
		if ri != rj {
			return ri < rj
		}
		return changes[i].Path < changes[j].Path
	})
	return changes
}

func sortLocalChanges(changes []project.LocalFileChange) []project.LocalFileChange {
	sort.Slice(changes, func(i, j int) bool {
		ri, rj := changeRank(changes[i].Change), changeRank(changes[j].Change)
		if ri != rj {
			return ri < rj
		}
		return changes[i].Path < changes[j].Path
	})
	return changes
}

// RemotePaths returns the path set touched by a remote change list, for
// intersection against a local change list during conflict detection.
func RemotePaths(changes []project.RemoteFileChange) map[string]project.RemoteFileChange {
	m := make(map[string]project.RemoteFileChange, len(changes))
	for _, c := range changes {
		m[c.Path] = c
	}
	return m
}

// LocalPaths returns the path set touched by a local change list.
func LocalPaths(changes []project.LocalFileChange) map[string]project.LocalFileChange {
	m := make(map[string]project.LocalFileChange, len(changes))
	for _, c := range changes {
		m[c.Path] = c
	}
	return m
}
