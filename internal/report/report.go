// Package report produces the outcome returned to callers once media has
// been committed.
package report

import (
	"fmt"
	"os"

	"github.com/docker/go-units"
	"github.com/hbomb79/mediagetter/internal/media"
)

const decimalBase = 1000.0

var decimalUnits = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// HumanSize formats a byte count using the largest decimal unit for which
// the value is at least one, rounded to two decimal places (e.g. "2.35 MB").
// Counts below one kilobyte are shown as whole bytes.
func HumanSize(bytes int64) string {
	if bytes < decimalBase {
		return fmt.Sprintf("%d B", bytes)
	}

	return units.CustomSize("%.2f %s", float64(bytes), decimalBase, decimalUnits)
}

// Report reads the size of the committed file at path and builds the
// outcome for it.
func Report(path string, kind media.Kind, folder media.Folder) (*media.Outcome, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read size of committed media: %w", err)
	}

	return &media.Outcome{
		Size:   HumanSize(info.Size()),
		Bytes:  info.Size(),
		Kind:   kind,
		Folder: folder,
	}, nil
}
