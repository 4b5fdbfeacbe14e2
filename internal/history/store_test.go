package history

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/mediagetter/internal/acquire"
	"github.com/hbomb79/mediagetter/internal/media"
	"github.com/hbomb79/mediagetter/internal/store"
	"github.com/hbomb79/mediagetter/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

func Test_SelectBuilder(t *testing.T) {
	t.Parallel()
	unsafe := media.Unsafe

	tests := []struct {
		summary      string
		filter       Filter
		expectedSql  string
		expectedArgs []any
	}{
		{
			summary:      "defaults",
			filter:       Filter{},
			expectedSql:  "SELECT * FROM acquisition_history ORDER BY finished_at DESC LIMIT 50",
			expectedArgs: nil,
		},
		{
			summary:      "folder and limit",
			filter:       Filter{Folder: &unsafe, Limit: 10},
			expectedSql:  "SELECT * FROM acquisition_history WHERE folder = $1 ORDER BY finished_at DESC LIMIT 10",
			expectedArgs: []any{"unsafe"},
		},
		{
			summary:      "limit is capped",
			filter:       Filter{Limit: 100000},
			expectedSql:  "SELECT * FROM acquisition_history ORDER BY finished_at DESC LIMIT 500",
			expectedArgs: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.summary, func(t *testing.T) {
			t.Parallel()
			query, args, err := selectBuilder(tt.filter).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.expectedSql, query)
			if tt.expectedArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.expectedArgs, args)
			}
		})
	}
}

func Test_InsertBuilder(t *testing.T) {
	t.Parallel()
	record := &Record{ID: uuid.New(), URL: "https://example.com/a.png", Folder: "safe", State: "COMPLETE"}

	query, args, err := insertBuilder(record).ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(query, "INSERT INTO acquisition_history "))
	assert.Contains(t, query, "VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)")
	assert.True(t, strings.HasSuffix(query, "ON CONFLICT (id) DO NOTHING"))
	require.Len(t, args, 11)
	assert.Equal(t, record.ID, args[0])
	assert.Equal(t, "https://example.com/a.png", args[1])
}

func Test_NewRecord(t *testing.T) {
	t.Parallel()
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	finished := created.Add(3 * time.Second)

	t.Run("complete", func(t *testing.T) {
		t.Parallel()
		record := NewRecord(&acquire.Acquisition{
			ID:        uuid.New(),
			URL:       "https://example.com/a.png",
			Folder:    media.Safe,
			Strategy:  "generic",
			State:     acquire.COMPLETE,
			Outcome:   &media.Outcome{Size: "2.35 MB", Bytes: 2_350_000, Kind: media.Image, Folder: media.Safe},
			CreatedAt: created,
			UpdatedAt: finished,
		})

		assert.Equal(t, "safe", record.Folder)
		assert.Equal(t, "COMPLETE", record.State)
		require.NotNil(t, record.Kind)
		assert.Equal(t, "Image", *record.Kind)
		require.NotNil(t, record.SizeBytes)
		assert.EqualValues(t, 2_350_000, *record.SizeBytes)
		assert.Nil(t, record.FailureKind)
		assert.Equal(t, finished, record.FinishedAt)
	})

	t.Run("rejected", func(t *testing.T) {
		t.Parallel()
		err := &store.BetterImageExistsError{Existing: store.Dimensions{Width: 10, Height: 10}, Incoming: store.Dimensions{Width: 5, Height: 5}}
		record := NewRecord(&acquire.Acquisition{
			ID:     uuid.New(),
			URL:    "https://example.com/a.png",
			Folder: media.Unsafe,
			State:  acquire.REJECTED,
			Err:    err,
		})

		assert.Equal(t, "REJECTED", record.State)
		assert.Nil(t, record.Kind)
		require.NotNil(t, record.FailureKind)
		assert.Equal(t, string(acquire.BETTER_IMAGE_EXISTS), *record.FailureKind)
		assert.Equal(t, err.Error(), *record.FailureMessage)
	})

	t.Run("failed", func(t *testing.T) {
		t.Parallel()
		record := NewRecord(&acquire.Acquisition{ID: uuid.New(), Folder: media.Safe, State: acquire.FAILED, Err: errors.New("test: boom")})
		require.NotNil(t, record.FailureKind)
		assert.Equal(t, string(acquire.UNKNOWN_FAILURE), *record.FailureKind)
	})
}
