package acquire

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/mediagetter/internal/event"
	"github.com/hbomb79/mediagetter/internal/media"
	"github.com/hbomb79/mediagetter/internal/report"
	"github.com/hbomb79/mediagetter/internal/scraper"
	"github.com/hbomb79/mediagetter/pkg/logger"
	gosync "github.com/hbomb79/mediagetter/pkg/sync"
	"golang.org/x/sync/semaphore"
)

var (
	log = logger.Get("AcquireServ")

	ErrIllegalFolder         = errors.New("folder must be one of 'safe' or 'unsafe'")
	ErrAcquisitionNotFound   = errors.New("acquisition not found")
	ErrAcquisitionInProgress = errors.New("acquisition is still in progress")
)

const pruneInterval = time.Minute

type (
	router interface {
		Route(rawURL string) (scraper.Strategy, error)
	}

	committer interface {
		Commit(ctx context.Context, desc *media.Descriptor, folder media.Folder) (string, error)
	}

	// Recorder persists finished acquisitions. It is optional; a
	// nil recorder disables history.
	Recorder interface {
		Record(ctx context.Context, acquisition *Acquisition) error
	}

	// Service drives URLs through the pipeline: the router selects a
	// strategy, the strategy stages the media and the committer moves it
	// in to the library. Each submission is tracked as an Acquisition
	// which can be inspected while it runs and for a while after it ends.
	Service struct {
		mu           sync.RWMutex
		config       Config
		router       router
		committer    committer
		recorder     Recorder
		eventBus     event.EventDispatcher
		sem          *semaphore.Weighted
		acquisitions gosync.TypedSyncMap[uuid.UUID, *Acquisition]

		background       sync.WaitGroup
		backgroundCtx    context.Context
		cancelBackground context.CancelFunc
	}
)

func New(config Config, router router, committer committer, recorder Recorder, eventBus event.EventDispatcher) (*Service, error) {
	if config.MaxConcurrent < 1 {
		return nil, fmt.Errorf("max concurrent acquisitions must be at least 1 (got %d)", config.MaxConcurrent)
	}
	if config.RetentionMinutes < 0 {
		return nil, fmt.Errorf("retention minutes must not be negative (got %d)", config.RetentionMinutes)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		config:           config,
		router:           router,
		committer:        committer,
		recorder:         recorder,
		eventBus:         eventBus,
		sem:              semaphore.NewWeighted(int64(config.MaxConcurrent)),
		backgroundCtx:    ctx,
		cancelBackground: cancel,
	}, nil
}

// Run prunes finished acquisitions once they have outlived the configured
// retention period. When the context is cancelled, any background
// acquisitions are cancelled and awaited before Run returns.
func (service *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			service.prune(time.Now())
		case <-ctx.Done():
			service.cancelBackground()
			service.background.Wait()
			return nil
		}
	}
}

// Submit acquires the media found at the URL provided, storing it in the
// folder given. The call blocks until the acquisition reaches a terminal
// state, and returns a report describing the stored file.
func (service *Service) Submit(ctx context.Context, rawURL string, folder media.Folder) (*media.Outcome, error) {
	if !folder.Valid() {
		return nil, ErrIllegalFolder
	}

	acq := service.track(rawURL, folder)
	return service.acquire(ctx, acq)
}

// Enqueue begins acquiring the URL in the background, returning the ID of
// the acquisition so that callers can poll for its progress.
func (service *Service) Enqueue(rawURL string, folder media.Folder) (uuid.UUID, error) {
	if !folder.Valid() {
		return uuid.Nil, ErrIllegalFolder
	}
	if err := service.backgroundCtx.Err(); err != nil {
		return uuid.Nil, fmt.Errorf("cannot enqueue acquisition: %w", err)
	}

	acq := service.track(rawURL, folder)
	service.background.Add(1)
	go func() {
		defer service.background.Done()
		if _, err := service.acquire(service.backgroundCtx, acq); err != nil {
			log.Debugf("Background acquisition %s ended with error: %v\n", acq.ID, err)
		}
	}()

	return acq.ID, nil
}

func (service *Service) GetAcquisition(id uuid.UUID) *Acquisition {
	acq, ok := service.acquisitions.Load(id)
	if !ok {
		return nil
	}

	service.mu.RLock()
	defer service.mu.RUnlock()
	return acq.snapshot()
}

// GetAllAcquisitions returns a snapshot of every tracked acquisition, oldest first.
func (service *Service) GetAllAcquisitions() []*Acquisition {
	service.mu.RLock()
	defer service.mu.RUnlock()

	out := make([]*Acquisition, 0, service.acquisitions.Len())
	service.acquisitions.Range(func(_ uuid.UUID, acq *Acquisition) bool {
		out = append(out, acq.snapshot())
		return true
	})

	slices.SortFunc(out, func(a, b *Acquisition) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

// RemoveAcquisition forgets a finished acquisition. Acquisitions which
// are still running cannot be removed.
func (service *Service) RemoveAcquisition(id uuid.UUID) error {
	acq, ok := service.acquisitions.Load(id)
	if !ok {
		return ErrAcquisitionNotFound
	}

	service.mu.RLock()
	state := acq.State
	service.mu.RUnlock()
	if !state.Terminal() {
		return ErrAcquisitionInProgress
	}

	if _, ok := service.acquisitions.LoadAndDelete(id); ok {
		service.eventBus.Dispatch(event.ACQUISITION_REMOVED, id)
	}

	return nil
}

func (service *Service) track(rawURL string, folder media.Folder) *Acquisition {
	acq := newAcquisition(rawURL, folder)
	service.acquisitions.Store(acq.ID, acq)
	log.Emit(logger.NEW, "Tracking %s\n", acq)
	service.eventBus.Dispatch(event.ACQUISITION_UPDATE, acq.ID)

	return acq
}

func (service *Service) acquire(ctx context.Context, acq *Acquisition) (*media.Outcome, error) {
	strategy, err := service.router.Route(acq.URL)
	if err != nil {
		return nil, service.fail(ctx, acq, err)
	}

	if err := service.sem.Acquire(ctx, 1); err != nil {
		return nil, service.fail(ctx, acq, err)
	}
	defer service.sem.Release(1)

	service.update(acq, func(a *Acquisition) {
		a.Strategy = strategy.Name()
		a.State = FETCHING
	})

	desc, err := strategy.Fetch(ctx, acq.URL)
	if err != nil {
		return nil, service.fail(ctx, acq, err)
	}

	service.update(acq, func(a *Acquisition) { a.State = COMMITTING })
	path, err := service.committer.Commit(ctx, desc, acq.Folder)
	if err != nil {
		return nil, service.fail(ctx, acq, err)
	}

	outcome, err := report.Report(path, desc.Kind, acq.Folder)
	if err != nil {
		return nil, service.fail(ctx, acq, err)
	}

	service.update(acq, func(a *Acquisition) {
		a.State = COMPLETE
		a.Outcome = outcome
	})

	log.Emit(logger.SUCCESS, "Acquired %s (%s %s) in to %s\n", acq.URL, outcome.Kind, outcome.Size, outcome.Folder)
	service.finish(ctx, acq)
	return outcome, nil
}

// fail marks the acquisition as FAILED, or REJECTED if the library
// already holds a better copy, and returns the error given.
func (service *Service) fail(ctx context.Context, acq *Acquisition, err error) error {
	state := FAILED
	if Classify(err) == BETTER_IMAGE_EXISTS {
		state = REJECTED
	}

	service.update(acq, func(a *Acquisition) {
		a.State = state
		a.Err = err
	})

	log.Warnf("Acquisition of %s %s: %v\n", acq.URL, state, err)
	service.finish(ctx, acq)
	return err
}

func (service *Service) finish(ctx context.Context, acq *Acquisition) {
	service.eventBus.Dispatch(event.ACQUISITION_COMPLETE, acq.ID)
	if service.recorder == nil {
		return
	}

	service.mu.RLock()
	snapshot := acq.snapshot()
	service.mu.RUnlock()

	// The caller going away should not prevent the history being written.
	if err := service.recorder.Record(context.WithoutCancel(ctx), snapshot); err != nil {
		log.Errorf("Failed to record history for %s: %v\n", acq.ID, err)
	}
}

func (service *Service) update(acq *Acquisition, fn func(*Acquisition)) {
	service.mu.Lock()
	fn(acq)
	acq.UpdatedAt = time.Now()
	service.mu.Unlock()

	service.eventBus.Dispatch(event.ACQUISITION_UPDATE, acq.ID)
}

func (service *Service) prune(now time.Time) {
	retention := time.Duration(service.config.RetentionMinutes) * time.Minute

	expired := make([]uuid.UUID, 0)
	service.mu.RLock()
	service.acquisitions.Range(func(id uuid.UUID, acq *Acquisition) bool {
		if acq.State.Terminal() && now.Sub(acq.UpdatedAt) >= retention {
			expired = append(expired, id)
		}
		return true
	})
	service.mu.RUnlock()

	for _, id := range expired {
		if _, ok := service.acquisitions.LoadAndDelete(id); ok {
			log.Emit(logger.REMOVE, "Pruned finished acquisition %s\n", id)
			service.eventBus.Dispatch(event.ACQUISITION_REMOVED, id)
		}
	}
}
