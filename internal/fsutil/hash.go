package fsutil

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
)

// HashFile returns the hex-encoded, streamed content digest of path. The
// digest algorithm (MD5) follows the reference client's FileHash/WriteFile
// helpers; it is a content discriminator, not a security primitive.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes hashes an in-memory buffer with the same algorithm as HashFile,
// for content already held in memory (e.g. a freshly built archive).
func HashBytes(b []byte) string {
	h := md5.Sum(b)
	return hex.EncodeToString(h[:])
}
