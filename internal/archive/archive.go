// Package archive builds the brotli-compressed tar (C6) posted to the
// remote server during the upload phase of a sync run, grounded on
// mholt/archives the way cmd/archive/archive.go in the gigurra/tofu
// reference uses it for its own tar/zip/7z commands.
package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mholt/archives"

	"github.com/codeexpert/syncengine/internal/fsutil"
)

// normalizedTime is the constant modification time stamped onto every
// archive entry so a fixed input ordering always yields byte-identical
// output.
var normalizedTime = time.Unix(0, 0).UTC()

// constInfo wraps an fs.FileInfo, overriding ModTime and Sys so tar headers
// never carry the source file's real mtime/uid/gid.
type constInfo struct {
	fs.FileInfo
}

func (c constInfo) ModTime() time.Time { return normalizedTime }
func (c constInfo) Sys() any           { return nil }

// Build writes a brotli-compressed tar to outPath containing exactly the
// listed relative file paths (rooted at rootDir), added in the given order
// with normalised metadata, and returns the hex content hash of the
// resulting compressed bytes.
func Build(ctx context.Context, outPath, rootDir string, relPaths []string) (string, error) {
	entries := make([]archives.FileInfo, 0, len(relPaths))
	for _, rel := range relPaths {
		abs := filepath.Join(rootDir, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("archive: stat %s: %w", rel, err)
		}
		if info.IsDir() {
			continue
		}

		nameInArchive := fsutil.ToSlash(rel)
		srcPath := abs
		entries = append(entries, archives.FileInfo{
			FileInfo:      constInfo{info},
			NameInArchive: nameInArchive,
			Open: func() (fs.File, error) {
				return os.Open(srcPath)
			},
		})
	}

	if err := fsutil.EnsureParent(outPath); err != nil {
		return "", err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("archive: create %s: %w", outPath, err)
	}
	defer out.Close()

	archiver := archives.CompressedArchive{
		Archival:    archives.Tar{},
		Compression: archives.Brotli{},
	}
	if err := archiver.Archive(ctx, out, entries); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("archive: build %s: %w", outPath, err)
	}

	if err := out.Sync(); err != nil {
		return "", err
	}

	return fsutil.HashFile(outPath)
}
