package staging_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hbomb79/mediagetter/internal/staging"
	"github.com/hbomb79/mediagetter/internal/testhelpers"
	"github.com/hbomb79/mediagetter/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

type failingReader struct{ after int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.after <= 0 {
		return 0, errors.New("test: connection reset")
	}

	n := min(len(p), r.after)
	for i := 0; i < n; i++ {
		p[i] = 'x'
	}
	r.after -= n
	return n, nil
}

func Test_New_CreatesMissingDir(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "nested", "scratch")

	area, err := staging.New(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, area.Dir())
}

func Test_New_RejectsFile(t *testing.T) {
	t.Parallel()
	_, files := testhelpers.TempDirWithFiles(t, map[string][]byte{"not-a-dir": []byte("x")})

	_, err := staging.New(files[0])
	assert.Error(t, err)
}

func Test_Allocate_IsUnique(t *testing.T) {
	t.Parallel()
	area, err := staging.New(t.TempDir())
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		p := area.Allocate(".mp4")
		assert.True(t, strings.HasSuffix(p, ".mp4"))
		_, dup := seen[p]
		assert.False(t, dup, "allocated path %s twice", p)
		seen[p] = struct{}{}
	}
}

func Test_WriteAll(t *testing.T) {
	t.Parallel()
	area, err := staging.New(t.TempDir())
	require.NoError(t, err)

	path, err := area.WriteAll("", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "", filepath.Ext(path), "images are staged without an extension")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func Test_Stream(t *testing.T) {
	t.Parallel()
	area, err := staging.New(t.TempDir())
	require.NoError(t, err)

	path, n, err := area.Stream(".mp4", strings.NewReader(strings.Repeat("a", 100_000)))
	require.NoError(t, err)
	assert.EqualValues(t, 100_000, n)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 100_000, info.Size())
}

func Test_Stream_FailureRemovesPartialFile(t *testing.T) {
	t.Parallel()
	area, err := staging.New(t.TempDir())
	require.NoError(t, err)

	_, _, err = area.Stream(".mp4", io.MultiReader(strings.NewReader("partial"), &failingReader{after: 10}))
	require.Error(t, err)

	var fsErr *staging.FileSystemError
	assert.ErrorAs(t, err, &fsErr)
	assert.Equal(t, "read", fsErr.Op, "expected failure to be attributed to the reader")
	assert.Empty(t, testhelpers.ListFiles(t, area.Dir()), "partial staged file should have been removed")
}

func Test_Discard(t *testing.T) {
	t.Parallel()
	area, err := staging.New(t.TempDir())
	require.NoError(t, err)

	path, err := area.WriteAll("", []byte("x"))
	require.NoError(t, err)

	area.Discard(path)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Discarding a missing file or empty path is silent
	area.Discard(path)
	area.Discard("")
}

func Test_Purge_RemovesOnlyStagedFiles(t *testing.T) {
	t.Parallel()
	area, err := staging.New(t.TempDir())
	require.NoError(t, err)

	_, err = area.WriteAll("", []byte("a"))
	require.NoError(t, err)
	_, err = area.WriteAll(".mp4", []byte("b"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(area.Dir(), "keep.txt"), []byte("c"), 0o644))

	assert.Equal(t, 2, area.Purge())
	assert.ElementsMatch(t, []string{"keep.txt"}, testhelpers.ListFiles(t, area.Dir()))
}
