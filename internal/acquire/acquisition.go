package acquire

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/mediagetter/internal/media"
)

type (
	State int

	// Acquisition tracks a single submission through the pipeline. The
	// values returned by the service are snapshots and are safe to read
	// without synchronisation.
	Acquisition struct {
		ID        uuid.UUID
		URL       string
		Folder    media.Folder
		Strategy  string
		State     State
		Outcome   *media.Outcome
		Err       error
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

const (
	PENDING State = iota
	FETCHING
	COMMITTING
	COMPLETE
	REJECTED
	FAILED
)

func (s State) String() string {
	switch s {
	case PENDING:
		return "PENDING"
	case FETCHING:
		return "FETCHING"
	case COMMITTING:
		return "COMMITTING"
	case COMPLETE:
		return "COMPLETE"
	case REJECTED:
		return "REJECTED"
	case FAILED:
		return "FAILED"
	}

	return fmt.Sprintf("UNKNOWN[%d]", int(s))
}

// Terminal returns true for states which an acquisition never leaves.
func (s State) Terminal() bool {
	return s == COMPLETE || s == REJECTED || s == FAILED
}

func newAcquisition(rawURL string, folder media.Folder) *Acquisition {
	now := time.Now()
	return &Acquisition{
		ID:        uuid.New(),
		URL:       rawURL,
		Folder:    folder,
		State:     PENDING,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (acq *Acquisition) String() string {
	return fmt.Sprintf("Acquisition{ID=%s URL=%s State=%s}", acq.ID, acq.URL, acq.State)
}

// FailureKind returns the classification of the error which ended this
// acquisition, or the empty string if it did not fail.
func (acq *Acquisition) FailureKind() FailureKind {
	if acq.Err == nil {
		return ""
	}

	return Classify(acq.Err)
}

func (acq *Acquisition) snapshot() *Acquisition {
	cp := *acq
	if acq.Outcome != nil {
		outcome := *acq.Outcome
		cp.Outcome = &outcome
	}

	return &cp
}
