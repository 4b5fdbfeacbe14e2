package store

import "fmt"

type (
	Dimensions struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}

	// BetterImageExistsError is returned when an image with the same
	// perceptual hash is already stored at an equal or greater
	// resolution. It's a policy rejection rather than a failure: storage
	// is left untouched.
	BetterImageExistsError struct {
		Existing Dimensions
		Incoming Dimensions
	}

	// DecodeError indicates staged image bytes could not be decoded.
	DecodeError struct {
		Err error
	}

	// FileSystemError indicates an I/O failure while committing media.
	FileSystemError struct {
		Op   string
		Path string
		Err  error
	}
)

func (d Dimensions) String() string { return fmt.Sprintf("(%d, %d)", d.Width, d.Height) }

// Covers returns true if these dimensions are at least as large as the
// other dimensions on both axes.
func (d Dimensions) Covers(other Dimensions) bool {
	return d.Width >= other.Width && d.Height >= other.Height
}

func (err *BetterImageExistsError) Error() string {
	return fmt.Sprintf("better image exists. %s >= %s", err.Existing, err.Incoming)
}

func (err *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode image: %v", err.Err)
}

func (err *DecodeError) Unwrap() error { return err.Err }

func (err *FileSystemError) Error() string {
	return fmt.Sprintf("commit %s failed for %s: %v", err.Op, err.Path, err.Err)
}

func (err *FileSystemError) Unwrap() error { return err.Err }
