// Package store promotes staged media in to permanent storage. Images are
// named by their perceptual hash, and only replaced by strictly larger
// copies. Videos are copied under their original filename.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/hbomb79/mediagetter/internal/media"
	"github.com/hbomb79/mediagetter/pkg/logger"
	"github.com/hbomb79/mediagetter/pkg/sync"
)

const (
	ImageExtension       = ".png"
	DefaultVideoFilename = "default.mp4"
)

var log = logger.Get("Store")

type (
	// Discarder removes staged files once the store is finished with them.
	Discarder interface {
		Discard(path string)
	}

	Store struct {
		root      string
		hasher    Hasher
		discarder Discarder
		locks     *sync.KeyedMutex[string]
	}
)

// New creates a store rooted at the directory provided, creating the
// retention folders within it if they do not exist.
func New(root string, hasher Hasher, discarder Discarder) (*Store, error) {
	if root == "" {
		return nil, errors.New("store root must not be empty")
	}

	for _, folder := range media.AllFolders() {
		dir := filepath.Join(root, folder.Dir())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create retention folder %s: %w", dir, err)
		}
	}

	return &Store{
		root:      root,
		hasher:    hasher,
		discarder: discarder,
		locks:     sync.NewKeyedMutex[string](),
	}, nil
}

func (store *Store) Root() string { return store.root }

// Commit promotes the staged media described in to the folder provided,
// returning the path it was committed to. The staged file is always
// discarded before returning, regardless of the outcome.
func (store *Store) Commit(ctx context.Context, desc *media.Descriptor, folder media.Folder) (string, error) {
	defer store.discarder.Discard(desc.Location)
	if !folder.Valid() {
		return "", fmt.Errorf("illegal retention folder %v", folder)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch desc.Kind {
	case media.Image:
		return store.commitImage(desc, folder)
	case media.Video:
		return store.commitVideo(desc, folder)
	}

	return "", fmt.Errorf("illegal media kind %v", desc.Kind)
}

// CanonicalImagePath returns the path an image with the hash provided is
// stored at within the folder.
func (store *Store) CanonicalImagePath(folder media.Folder, hash string) string {
	return filepath.Join(store.root, folder.Dir(), hash+ImageExtension)
}

func (store *Store) commitImage(desc *media.Descriptor, folder media.Folder) (string, error) {
	data, err := os.ReadFile(desc.Location)
	if err != nil {
		return "", &FileSystemError{Op: "read staged", Path: desc.Location, Err: err}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", &DecodeError{err}
	}

	hash, err := store.hasher.Hash(img)
	if err != nil {
		return "", &DecodeError{fmt.Errorf("perceptual hash failed: %w", err)}
	}

	target := store.CanonicalImagePath(folder, hash)
	incoming := Dimensions{img.Bounds().Dx(), img.Bounds().Dy()}

	unlock := store.locks.Lock(target)
	defer unlock()

	if existing, ok := storedDimensions(target); ok && existing.Covers(incoming) {
		log.Emit(logger.INFO, "Rejecting %s image %s: stored copy at %s is %s\n", format, incoming, target, existing)
		return "", &BetterImageExistsError{Existing: existing, Incoming: incoming}
	}

	err = writeAtomically(target, func(w io.Writer) error {
		return png.Encode(w, img)
	})
	if err != nil {
		return "", err
	}

	log.Emit(logger.SUCCESS, "Committed %s image %s to %s\n", format, incoming, target)
	return target, nil
}

// storedDimensions returns the dimensions of the image stored at the path,
// if one exists and can be read. An unreadable existing file is treated as
// absent so that it is replaced.
func storedDimensions(path string) (Dimensions, bool) {
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Emit(logger.WARNING, "Unable to open existing image %s: %v\n", path, err)
		}
		return Dimensions{}, false
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		log.Emit(logger.WARNING, "Existing image %s is unreadable and will be replaced: %v\n", path, err)
		return Dimensions{}, false
	}

	return Dimensions{cfg.Width, cfg.Height}, true
}

func (store *Store) commitVideo(desc *media.Descriptor, folder media.Folder) (string, error) {
	target := filepath.Join(store.root, folder.Dir(), VideoFilename(desc.SourceURL))

	src, err := os.Open(desc.Location)
	if err != nil {
		return "", &FileSystemError{Op: "read staged", Path: desc.Location, Err: err}
	}
	defer src.Close()

	unlock := store.locks.Lock(target)
	defer unlock()

	err = writeAtomically(target, func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	})
	if err != nil {
		return "", err
	}

	log.Emit(logger.SUCCESS, "Committed video to %s\n", target)
	return target, nil
}

// VideoFilename derives the name a video is stored under from the URL it
// was downloaded from. When no usable name can be found, DefaultVideoFilename
// is used. Names without an extension are given '.mp4'.
func VideoFilename(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return DefaultVideoFilename
	}

	name := path.Base(u.Path)
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimLeft(name, ".")
	if name == "" || name == "/" {
		return DefaultVideoFilename
	}

	if filepath.Ext(name) == "" {
		name += ".mp4"
	}

	return name
}

// writeAtomically writes to a temporary file alongside the target, and then
// renames it over the target. Readers never observe a partially written file.
func writeAtomically(target string, write func(io.Writer) error) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".commit-*")
	if err != nil {
		return &FileSystemError{Op: "create", Path: dir, Err: err}
	}

	tmpPath := tmp.Name()
	cleanup := func() {
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Emit(logger.WARNING, "Failed to remove temporary commit file %s: %v\n", tmpPath, err)
		}
	}

	if err := write(tmp); err != nil {
		tmp.Close()
		cleanup()
		return &FileSystemError{Op: "write", Path: target, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &FileSystemError{Op: "close", Path: target, Err: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return &FileSystemError{Op: "chmod", Path: target, Err: err}
	}
	if err := os.Rename(tmpPath, target); err != nil {
		cleanup()
		return &FileSystemError{Op: "rename", Path: target, Err: err}
	}

	return nil
}
