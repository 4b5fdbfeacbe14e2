// Package history persists a ledger of finished acquisitions. It is
// only active when a database has been configured.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/hbomb79/mediagetter/internal/acquire"
	"github.com/hbomb79/mediagetter/internal/database"
	"github.com/hbomb79/mediagetter/internal/media"
	"github.com/hbomb79/mediagetter/pkg/logger"
)

var log = logger.Get("HistoryStore")

const (
	DefaultLimit = 50
	MaxLimit     = 500

	tableName = "acquisition_history"
)

type (
	Record struct {
		ID             uuid.UUID `db:"id"`
		URL            string    `db:"url"`
		Folder         string    `db:"folder"`
		Strategy       string    `db:"strategy"`
		State          string    `db:"state"`
		Kind           *string   `db:"kind"`
		SizeBytes      *int64    `db:"size_bytes"`
		FailureKind    *string   `db:"failure_kind"`
		FailureMessage *string   `db:"failure_message"`
		CreatedAt      time.Time `db:"created_at"`
		FinishedAt     time.Time `db:"finished_at"`
	}

	Filter struct {
		Folder *media.Folder
		Limit  uint64
	}

	// Store records acquisitions against the queryable provided by
	// the connection getter. It satisfies acquire.Recorder.
	Store struct {
		db func() database.Queryable
	}
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func NewStore(db func() database.Queryable) *Store {
	return &Store{db: db}
}

// Record inserts the finished acquisition in to the ledger. Recording the
// same acquisition twice is a no-op.
func (store *Store) Record(ctx context.Context, acquisition *acquire.Acquisition) error {
	query, args, err := insertBuilder(NewRecord(acquisition)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to construct insert history query: %w", err)
	}

	if _, err := store.db().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert history for acquisition %s: %w", acquisition.ID, err)
	}

	log.Verbosef("Recorded history for acquisition %s\n", acquisition.ID)
	return nil
}

// List returns the most recently finished acquisitions, newest first.
func (store *Store) List(ctx context.Context, filter Filter) ([]*Record, error) {
	query, args, err := selectBuilder(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list history query: %w", err)
	}

	var results []*Record
	if err := store.db().SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	return results, nil
}

// NewRecord flattens an acquisition in to a history row.
func NewRecord(acquisition *acquire.Acquisition) *Record {
	record := &Record{
		ID:         acquisition.ID,
		URL:        acquisition.URL,
		Folder:     acquisition.Folder.String(),
		Strategy:   acquisition.Strategy,
		State:      acquisition.State.String(),
		CreatedAt:  acquisition.CreatedAt,
		FinishedAt: acquisition.UpdatedAt,
	}

	if outcome := acquisition.Outcome; outcome != nil {
		kind := outcome.Kind.String()
		size := outcome.Bytes
		record.Kind = &kind
		record.SizeBytes = &size
	}

	if acquisition.Err != nil {
		failureKind := string(acquisition.FailureKind())
		message := acquisition.Err.Error()
		record.FailureKind = &failureKind
		record.FailureMessage = &message
	}

	return record
}

func insertBuilder(record *Record) squirrel.InsertBuilder {
	return psql.
		Insert(tableName).
		Columns("id", "url", "folder", "strategy", "state", "kind", "size_bytes", "failure_kind", "failure_message", "created_at", "finished_at").
		Values(record.ID, record.URL, record.Folder, record.Strategy, record.State, record.Kind, record.SizeBytes, record.FailureKind, record.FailureMessage, record.CreatedAt, record.FinishedAt).
		Suffix("ON CONFLICT (id) DO NOTHING")
}

func selectBuilder(filter Filter) squirrel.SelectBuilder {
	limit := filter.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	builder := psql.
		Select("*").
		From(tableName).
		OrderBy("finished_at DESC").
		Limit(min(limit, MaxLimit))

	if filter.Folder != nil {
		builder = builder.Where(squirrel.Eq{"folder": filter.Folder.String()})
	}

	return builder
}
