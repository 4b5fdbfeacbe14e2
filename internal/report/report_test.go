package report_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hbomb79/mediagetter/internal/media"
	"github.com/hbomb79/mediagetter/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_HumanSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{bytes: 0, expected: "0 B"},
		{bytes: 512, expected: "512 B"},
		{bytes: 999, expected: "999 B"},
		{bytes: 1000, expected: "1.00 KB"},
		{bytes: 1536, expected: "1.54 KB"},
		{bytes: 2_350_000, expected: "2.35 MB"},
		{bytes: 2_354_999, expected: "2.35 MB"},
		{bytes: 7_500_000_000, expected: "7.50 GB"},
		{bytes: 3_000_000_000_000, expected: "3.00 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, report.HumanSize(tt.bytes))
		})
	}
}

func Test_Report(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 2_350_000), 0o644))

	outcome, err := report.Report(path, media.Video, media.Unsafe)
	require.NoError(t, err)
	assert.Equal(t, &media.Outcome{Size: "2.35 MB", Bytes: 2_350_000, Kind: media.Video, Folder: media.Unsafe}, outcome)

	_, err = report.Report(filepath.Join(t.TempDir(), "missing"), media.Image, media.Safe)
	assert.Error(t, err)
}
