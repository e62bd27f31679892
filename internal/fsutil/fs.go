package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// These indirections let tests simulate platform-specific rename behaviour,
// the same trick the reference client's download path uses.
var (
	renameFile  = os.Rename
	runtimeGOOS = runtime.GOOS
)

// Node is one entry produced by walking a project tree.
type Node struct {
	Path string // absolute
	Dir  bool
}

var junkNames = map[string]bool{
	".DS_Store": true,
	"Thumbs.db": true,
}

// IsVisibleFile rejects OS junk files and editor/VCS artefacts that must
// never participate in sync.
func IsVisibleFile(p string) bool {
	base := filepath.Base(p)
	if junkNames[base] {
		return false
	}
	if strings.HasPrefix(base, ".") {
		return false
	}
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	for _, seg := range strings.Split(ToSlash(p), "/") {
		if seg == ".git" {
			return false
		}
	}
	return true
}

// ReadDirTree walks root and returns every visible node. Symlinks are not
// followed; hidden/junk entries are filtered via IsVisibleFile.
func ReadDirTree(root string) ([]Node, error) {
	var nodes []Node
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsVisibleFile(p) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		nodes = append(nodes, Node{Path: p, Dir: d.IsDir()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// Exists reports whether p is present on disk, regardless of type.
func Exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// EnsureDir creates path and all missing parents if it does not exist yet.
func EnsureDir(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureParent creates the parent directory of path.
func EnsureParent(path string) error {
	return EnsureDir(filepath.Dir(path))
}

func modeFor(readOnly bool) os.FileMode {
	if readOnly {
		return 0o444
	}
	return 0o644
}

// Mkdir creates dir (and parents) with the mode implied by readOnly.
func Mkdir(dir string, readOnly bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	mode := os.FileMode(0o755)
	if readOnly {
		mode = 0o555
	}
	return os.Chmod(dir, mode)
}

// RemoveFile removes path; a missing file is not an error.
func RemoveFile(path string) error {
	err := os.Remove(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// RemoveDir removes dir; recursive selects RemoveAll over Remove.
func RemoveDir(dir string, recursive bool) error {
	if recursive {
		return os.RemoveAll(dir)
	}
	err := os.Remove(dir)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MarkConflicted renames localPath aside as "name.conflict.ext" before a
// force-pull overwrites it, preserving the displaced local content. This is
// additive safety beyond the plain "local changes lost" semantics described
// for force-pull: the baseline and remote content after the run are
// unaffected, but nothing the user wrote is silently destroyed. Grounded on
// the rename-based marker idiom in internal/client/sync/sync_utils.go
// (MarkRejected/MarkConflicted).
func MarkConflicted(localPath string) (string, error) {
	ext := filepath.Ext(localPath)
	base := strings.TrimSuffix(localPath, ext)
	marked := base + ".conflict" + ext
	if err := renameFile(localPath, marked); err != nil {
		return "", err
	}
	return marked, nil
}

// TempDir creates and returns a fresh scratch directory under the OS temp
// area, for archive staging.
func TempDir(pattern string) (string, error) {
	return os.MkdirTemp("", pattern)
}

// WriteFile writes content to path atomically: the bytes land in a sibling
// temp file first, get fsynced, have their mode set, and only then are
// renamed over the destination. This is the same write-temp-then-rename
// discipline the reference client uses for downloaded files
// (copyLocalWithTmp), generalised to arbitrary in-memory content and mode.
func WriteFile(path string, content []byte, readOnly bool) error {
	if err := EnsureParent(path); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, modeFor(readOnly)); err != nil {
		return err
	}

	if err := renameFile(tmpName, path); err != nil {
		if runtimeGOOS == "windows" && errors.Is(err, fs.ErrExist) {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				return rmErr
			}
			if err := renameFile(tmpName, path); err != nil {
				return err
			}
		} else {
			return err
		}
	}

	success = true
	return nil
}
