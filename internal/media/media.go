package media

import (
	"encoding/json"
	"fmt"
	"strings"
)

type (
	// Kind is the broad classification of a piece of media, decided
	// by the strategy which fetched it.
	Kind int

	// Folder is the retention namespace a caller files media under. It
	// maps directly to a sub-directory of the store root and carries no
	// other meaning.
	Folder int

	// Descriptor is produced by a strategy and describes the staged bytes
	// of a piece of media. It is consumed exactly once by the store, after
	// which the staged file no longer exists.
	Descriptor struct {
		// Location is the path of the staged file in the scratch area
		Location string
		Kind     Kind

		// SourceURL is the URL the media bytes were actually downloaded
		// from (which is often not the URL the user submitted).
		SourceURL string
	}

	// Outcome is the result reported back to a caller once media has been
	// committed. It deliberately carries no filesystem path.
	Outcome struct {
		Size   string `json:"size"`
		Bytes  int64  `json:"-"`
		Kind   Kind   `json:"kind"`
		Folder Folder `json:"folder"`
	}
)

const (
	Image Kind = iota
	Video
)

const (
	Safe Folder = iota
	Unsafe
)

func (k Kind) String() string {
	switch k {
	case Image:
		return "Image"
	case Video:
		return "Video"
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "Image":
		*k = Image
	case "Video":
		*k = Video
	default:
		return fmt.Errorf("unknown media kind %q", s)
	}

	return nil
}

// Dir returns the sub-directory name used for this folder.
func (f Folder) Dir() string {
	switch f {
	case Safe:
		return "safe"
	case Unsafe:
		return "unsafe"
	}

	panic(fmt.Sprintf("illegal folder value %d", int(f)))
}

func (f Folder) String() string {
	switch f {
	case Safe, Unsafe:
		return f.Dir()
	}

	return fmt.Sprintf("Folder(%d)", int(f))
}

// Valid returns true if the folder is one of the known retention folders.
func (f Folder) Valid() bool { return f == Safe || f == Unsafe }

// ParseFolder converts the lowercase folder name in to a Folder. Names are
// case-sensitive, mirroring the wire format.
func ParseFolder(name string) (Folder, error) {
	switch name {
	case "safe":
		return Safe, nil
	case "unsafe":
		return Unsafe, nil
	}

	return Safe, fmt.Errorf("unknown retention folder %q (expected 'safe' or 'unsafe')", name)
}

func (f Folder) MarshalJSON() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("cannot marshal illegal folder value %d", int(f))
	}

	return json.Marshal(f.Dir())
}

func (f *Folder) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseFolder(s)
	if err != nil {
		return err
	}

	*f = parsed
	return nil
}

// AllFolders returns every retention folder, in a stable order.
func AllFolders() []Folder { return []Folder{Safe, Unsafe} }

// IsVideoMime returns true if the MIME type provided has a top-level
// type of 'video'.
func IsVideoMime(mediaType string) bool {
	top, _, _ := strings.Cut(strings.ToLower(mediaType), "/")
	return top == "video"
}
