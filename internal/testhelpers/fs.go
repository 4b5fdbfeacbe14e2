package testhelpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TempDirWithFiles creates a temporary directory containing a file for each
// of the names provided, each holding the matching content. The directory and
// the full paths of the files are returned.
func TempDirWithFiles(t *testing.T, files map[string][]byte) (string, []string) {
	dirPath := t.TempDir()
	filePaths := make([]string, 0, len(files))
	for name, content := range files {
		path := filepath.Join(dirPath, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, content, 0o644), "failed to create temporary file in temporary dir")
		filePaths = append(filePaths, path)
	}

	assert.Len(t, filePaths, len(files), "Expected file paths recorded to match length of requested files")
	return dirPath, filePaths
}

// ListFiles returns the names of every regular file beneath dir, relative to
// dir. A missing directory yields an empty list.
func ListFiles(t *testing.T, dir string) []string {
	names := make([]string, 0)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		names = append(names, rel)
		return nil
	})
	require.NoError(t, err)

	return names
}
