// Package project holds the shared data model for synchronised course
// projects: identity, metadata, the per-project baseline, and the change
// records produced while reconciling it against a remote or local inventory.
package project

import (
	"path/filepath"
	"strings"
	"time"
)

// ID is an opaque, server-assigned project identifier.
type ID string

// FileType distinguishes a regular file baseline entry from a directory one.
type FileType string

const (
	TypeFile FileType = "file"
	TypeDir  FileType = "dir"
)

// Permission mirrors the remote server's authoritative access mode for a path.
type Permission string

const (
	PermRead      Permission = "r"
	PermReadWrite Permission = "rw"
)

// Writable reports whether this permission allows local mutation.
func (p Permission) Writable() bool {
	return p == PermReadWrite
}

// Metadata identifies a course project and is used to derive its on-disk
// location under the configured project root.
type Metadata struct {
	ProjectID     ID     `json:"projectId"`
	Semester      string `json:"semester"`
	CourseName    string `json:"courseName"`
	ExerciseName  string `json:"exerciseName"`
	TaskName      string `json:"taskName"`
	Permissions   string `json:"permissions"`
	TaskOrder     int    `json:"taskOrder"`
	ExerciseOrder int    `json:"exerciseOrder"`
}

// RelativeDir derives the project's directory relative to the configured
// root, escaping every path segment so metadata text can never smuggle a
// path separator or traversal sequence into the filesystem layout.
func (m Metadata) RelativeDir() string {
	return filepath.Join(
		Escape(m.Semester),
		Escape(m.CourseName),
		Escape(m.ExerciseName),
		Escape(m.TaskName),
	)
}

// FileInfo is a baseline entry: the state of one path as recorded after the
// last successful sync. Directories carry no hash.
type FileInfo struct {
	Path        string     `json:"path"`
	Type        FileType   `json:"type"`
	Version     int        `json:"version"`
	Hash        string     `json:"hash,omitempty"`
	Permissions Permission `json:"permissions"`
}

// RemoteFileInfo is one entry of the authoritative remote inventory. It
// carries no hash; the server's version counter is the change discriminator.
type RemoteFileInfo struct {
	Path        string     `json:"path"`
	Type        FileType   `json:"type"`
	Version     int        `json:"version"`
	Permissions Permission `json:"permissions"`
}

// LocalFileState is one observed entry from a filesystem scan. It carries no
// version and no permission — the local filesystem does not track the
// server's access mode.
type LocalFileState struct {
	Path string   `json:"path"`
	Type FileType `json:"type"`
	Hash string   `json:"hash,omitempty"`
}

// ChangeKind classifies a path's relationship to the baseline.
type ChangeKind string

const (
	NoChange ChangeKind = "noChange"
	Added    ChangeKind = "added"
	Updated  ChangeKind = "updated"
	Removed  ChangeKind = "removed"
)

// RemoteFileChange is one emitted difference between a baseline and the
// remote inventory. Version is only meaningful for Added/Updated.
type RemoteFileChange struct {
	Path    string
	Change  ChangeKind
	Version int
}

// LocalFileChange is one emitted difference between a baseline and an
// observed local scan.
type LocalFileChange struct {
	Path   string
	Change ChangeKind
}

// Conflict names a path both sides changed since the last shared baseline.
type Conflict struct {
	Path          string
	ChangeLocal   LocalFileChange
	ChangeRemote  RemoteFileChange
}

// SyncPhase is the run-level state a caller observes while the engine drives
// one sync to completion.
type SyncPhase string

const (
	PhaseIdle   SyncPhase = "idle"
	PhasePlan   SyncPhase = "plan"
	PhaseUpload SyncPhase = "upload"
	PhaseWrite  SyncPhase = "write"
	PhaseCommit SyncPhase = "commit"
	PhaseDone   SyncPhase = "done"
	PhaseFailed SyncPhase = "failed"
)

// SyncState is the project's persisted synchronisation status.
type SyncState struct {
	Syncing bool   `json:"syncing"`
	Failed  bool   `json:"failed,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LocalState is the baseline and bookkeeping carried only by projects that
// have completed at least one sync.
type LocalState struct {
	BasePath string     `json:"basePath"`
	Files    []FileInfo `json:"files"`
	SyncedAt time.Time  `json:"syncedAt"`
	State    SyncState  `json:"syncState"`
}

// Project is the tagged Remote|Local variant from the data model: a project
// is either known only to the server (Remote) or has a synced baseline on
// disk (Local). Exactly one of the two states applies at a time; Project
// embeds Metadata directly so callers never juggle two structs.
type Project struct {
	Metadata
	Local *LocalState `json:"local,omitempty"`
}

// IsLocal reports whether this project has a baseline.
func (p Project) IsLocal() bool {
	return p.Local != nil
}

// Force selects which side of a conflict a sync run is allowed to overwrite.
type Force string

const (
	ForcePush Force = "push"
	ForcePull Force = "pull"
)

const forbidden = `/\:*?"<>|`

// Escape maps characters unsafe in a path segment (on any supported
// platform, plus the ASCII control range) to a fixed, injective placeholder
// scheme: distinct legal inputs never collide. A whole segment of "." or
// ".." has each dot escaped, so it can never act as a traversal segment.
func Escape(segment string) string {
	if segment == "." || segment == ".." {
		return strings.Repeat("%2E", len(segment))
	}
	var b strings.Builder
	b.Grow(len(segment))
	for _, r := range segment {
		switch {
		case strings.ContainsRune(forbidden, r):
			b.WriteString(`%`)
			b.WriteString(strings.ToUpper(hexByte(byte(r))))
		case r < 0x20:
			b.WriteString(`%`)
			b.WriteString(strings.ToUpper(hexByte(byte(r))))
		case r == '%':
			b.WriteString(`%25`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hexByte(b byte) string {
	const hex = "0123456789abcdef"
	return string([]byte{hex[b>>4], hex[b&0xf]})
}
