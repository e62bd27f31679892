// Package syncerr defines the tagged error taxonomy a sync run can fail
// with. It mirrors internal/localhttp/errors' AppError shape (a Code,
// a human Message, optional Path context and a wrapped Internal error) so
// callers can use errors.As/errors.Is the same way throughout this module.
package syncerr

import (
	"errors"
	"fmt"
)

// Code identifies which taxonomy variant an error carries.
type Code string

const (
	CodeConflictingChanges Code = "conflicting_changes"
	CodeReadOnlyChanged    Code = "read_only_files_changed"
	CodeInvalidFilename    Code = "invalid_filename"
	CodeFileSystemCorrupt  Code = "filesystem_corrupted"
	CodeProjectDirMissing  Code = "project_dir_missing"
	CodeNetwork            Code = "network_error"
)

// SyncError is the single concrete type behind every taxonomy variant.
type SyncError struct {
	Code     Code
	Message  string
	Path     string
	Internal error
}

func (e *SyncError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", msg, e.Internal)
	}
	return msg
}

func (e *SyncError) Unwrap() error {
	return e.Internal
}

func newErr(code Code, path, message string, internal error) *SyncError {
	return &SyncError{Code: code, Path: path, Message: message, Internal: internal}
}

// ConflictingChanges reports that both sides changed overlapping paths.
func ConflictingChanges(paths []string) *SyncError {
	return newErr(CodeConflictingChanges, "", fmt.Sprintf("conflicting changes on %d path(s)", len(paths)), nil)
}

// ReadOnlyFilesChanged reports an attempt to mutate a read-only remote path
// or one of its ancestors.
func ReadOnlyFilesChanged(path, reason string) *SyncError {
	return newErr(CodeReadOnlyChanged, path, reason, nil)
}

// InvalidFilename reports a proposed name failing platform validity rules.
func InvalidFilename(name string) *SyncError {
	return newErr(CodeInvalidFilename, name, "invalid filename", nil)
}

// FileSystemCorrupted reports an I/O error, an unexpected absence, or a bad
// ancestor name encountered while walking the local tree.
func FileSystemCorrupted(path, reason string, internal error) *SyncError {
	return newErr(CodeFileSystemCorrupt, path, reason, internal)
}

// ProjectDirMissing reports that the host has no project root configured.
func ProjectDirMissing() *SyncError {
	return newErr(CodeProjectDirMissing, "", "project directory is not configured", nil)
}

// NetworkError reports a transport failure or a server-side (5xx) response.
func NetworkError(reason string, internal error) *SyncError {
	return newErr(CodeNetwork, "", reason, internal)
}

// Is reports whether err carries the given taxonomy code.
func Is(err error, code Code) bool {
	var se *SyncError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == code
}

// As extracts the *SyncError from err, following wrapped chains.
func As(err error) (*SyncError, bool) {
	var se *SyncError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
