package syncerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetCode(t *testing.T) {
	cases := []struct {
		name string
		err  *SyncError
		code Code
	}{
		{"conflicting", ConflictingChanges([]string{"a.txt"}), CodeConflictingChanges},
		{"readonly", ReadOnlyFilesChanged("a.txt", "ancestor is read-only"), CodeReadOnlyChanged},
		{"invalid name", InvalidFilename("CON"), CodeInvalidFilename},
		{"fs corrupted", FileSystemCorrupted("a.txt", "ancestor missing", nil), CodeFileSystemCorrupt},
		{"project dir missing", ProjectDirMissing(), CodeProjectDirMissing},
		{"network", NetworkError("timeout", nil), CodeNetwork},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code)
			assert.True(t, Is(tc.err, tc.code))
		})
	}
}

func TestUnwrapAndAs(t *testing.T) {
	internal := errors.New("boom")
	wrapped := fmt.Errorf("context: %w", FileSystemCorrupted("a.txt", "stat failed", internal))

	se, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeFileSystemCorrupt, se.Code)
	assert.ErrorIs(t, wrapped, internal)
}

func TestErrorMessageIncludesPathAndInternal(t *testing.T) {
	internal := errors.New("no such file")
	err := FileSystemCorrupted("a/b.txt", "stat failed", internal)
	assert.Contains(t, err.Error(), "a/b.txt")
	assert.Contains(t, err.Error(), "no such file")
}

func TestAsReturnsFalseForPlainError(t *testing.T) {
	_, ok := As(errors.New("plain"))
	assert.False(t, ok)
}
