// Package staging owns the scratch directory that fetched media bytes are
// held in until the store either promotes or discards them.
package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hbomb79/mediagetter/pkg/logger"
	"github.com/pkg/errors"
)

var log = logger.Get("Staging")

type (
	// Area is a process-wide scratch directory. Every file allocated
	// within it is named using a random UUID, so concurrent requests
	// never collide.
	Area struct {
		dir string
	}

	// FileSystemError is returned when the scratch area cannot be
	// written to.
	FileSystemError struct {
		Op   string
		Path string
		Err  error
	}
)

func (err *FileSystemError) Error() string {
	return fmt.Sprintf("staging %s failed for %s: %v", err.Op, err.Path, err.Err)
}

func (err *FileSystemError) Unwrap() error { return err.Err }

// New ensures the scratch directory exists and returns an Area rooted
// at it. An error is returned if the path exists but is not a directory.
func New(dir string) (*Area, error) {
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("scratch path '%s' is not a directory", dir)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, os.ModeDir|0o755); err != nil {
			return nil, errors.Wrapf(err, "create scratch dir %s", dir)
		}
	} else {
		return nil, fmt.Errorf("scratch path '%s' could not be accessed: %w", dir, err)
	}

	return &Area{dir: dir}, nil
}

// Dir returns the directory backing this area.
func (area *Area) Dir() string { return area.dir }

// Allocate returns a fresh, unused path in the scratch area with the
// extension provided (which may be empty, or should include the leading dot).
func (area *Area) Allocate(ext string) string {
	return filepath.Join(area.dir, uuid.NewString()+ext)
}

// WriteAll writes a small payload to a newly allocated staged file in
// a single write, returning its path.
func (area *Area) WriteAll(ext string, data []byte) (string, error) {
	path := area.Allocate(ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		area.Discard(path)
		return "", &FileSystemError{Op: "write", Path: path, Err: err}
	}

	log.Emit(logger.DEBUG, "Staged %d bytes at %s\n", len(data), path)
	return path, nil
}

// Stream copies the reader in to a newly allocated staged file chunk by
// chunk, returning the path and number of bytes written. If the copy
// fails part way through, the partial file is removed before returning. A
// failure reading from r is reported with Op "read", while a failure writing
// to disk is reported with Op "write".
func (area *Area) Stream(ext string, r io.Reader) (string, int64, error) {
	path := area.Allocate(ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL|os.O_APPEND, 0o644)
	if err != nil {
		return "", 0, &FileSystemError{Op: "create", Path: path, Err: err}
	}

	src := &trackingReader{r: r}
	written, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr != nil {
		area.Discard(path)
		if src.err != nil && copyErr == src.err {
			return "", written, &FileSystemError{Op: "read", Path: path, Err: copyErr}
		}

		return "", written, &FileSystemError{Op: "write", Path: path, Err: copyErr}
	} else if closeErr != nil {
		area.Discard(path)
		return "", written, &FileSystemError{Op: "close", Path: path, Err: closeErr}
	}

	log.Emit(logger.DEBUG, "Streamed %d bytes to %s\n", written, path)
	return path, written, nil
}

// Discard removes a staged file. Failure to remove the file is logged and
// otherwise ignored so that it never masks the outcome of a request.
func (area *Area) Discard(path string) {
	if path == "" {
		return
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Emit(logger.WARNING, "Failed to remove staged file %s: %v\n", path, err)
		return
	}

	log.Emit(logger.VERBOSE, "Removed staged file %s\n", path)
}

// Pending lists the staged files currently in the area. Used at startup
// to clear files orphaned by a previous crash.
func (area *Area) Pending() ([]string, error) {
	entries, err := os.ReadDir(area.dir)
	if err != nil {
		return nil, &FileSystemError{Op: "list", Path: area.dir, Err: err}
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		if _, err := uuid.Parse(trimExt(e.Name())); err != nil {
			continue
		}

		paths = append(paths, filepath.Join(area.dir, e.Name()))
	}

	return paths, nil
}

// Purge discards every pending staged file, returning how many were found.
func (area *Area) Purge() int {
	paths, err := area.Pending()
	if err != nil {
		log.Emit(logger.WARNING, "Unable to purge scratch area: %v\n", err)
		return 0
	}

	for _, p := range paths {
		area.Discard(p)
	}

	if len(paths) > 0 {
		log.Emit(logger.REMOVE, "Purged %d orphaned staged file(s) from %s\n", len(paths), area.dir)
	}
	return len(paths)
}

// trackingReader records the first non-EOF error returned by the
// underlying reader, so a failed copy can be attributed to the source
// rather than the disk.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}

	return n, err
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
