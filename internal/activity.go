package internal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/mediagetter/internal/event"
	"github.com/hbomb79/mediagetter/pkg/logger"
)

const (
	DEBOUNCE_DURATION  time.Duration = time.Millisecond * 500
	MAX_TIMER_DURATION time.Duration = time.Second * 2
)

type (
	broadcastHandler func(uuid.UUID) error

	broadcaster interface {
		BroadcastAcquisitionUpdate(uuid.UUID) error
		BroadcastAcquisitionRemoved(uuid.UUID) error
	}

	eventKey struct {
		ev event.Event
		id uuid.UUID
	}

	// activityService listens for acquisition events and forwards them to the
	// broadcaster. Progress updates for a single acquisition are debounced, but
	// a broadcast is guaranteed at least every maxWait while updates continue.
	// Completion and removal are broadcast immediately.
	activityService struct {
		*sync.Mutex
		broadcaster
		eventBus       event.EventHandler
		debounce       time.Duration
		maxWait        time.Duration
		debounceTimers map[eventKey]*time.Timer
		maxTimers      map[eventKey]*time.Timer
	}
)

func newActivityService(broadcaster broadcaster, eventBus event.EventHandler) *activityService {
	return &activityService{
		Mutex:          &sync.Mutex{},
		broadcaster:    broadcaster,
		eventBus:       eventBus,
		debounce:       DEBOUNCE_DURATION,
		maxWait:        MAX_TIMER_DURATION,
		debounceTimers: make(map[eventKey]*time.Timer),
		maxTimers:      make(map[eventKey]*time.Timer),
	}
}

func (service *activityService) Run(ctx context.Context) error {
	messageChan := make(chan event.HandlerEvent, 100)
	service.eventBus.RegisterHandlerChannel(messageChan, event.ACQUISITION_UPDATE, event.ACQUISITION_COMPLETE, event.ACQUISITION_REMOVED)

	log.Emit(logger.NEW, "Activity service started\n")
	defer service.stopAllTimers()
	for {
		select {
		case ev := <-messageChan:
			if err := service.handleEvent(ev); err != nil {
				log.Emit(logger.ERROR, "Handling of event %v failed: %v\n", ev, err)
			}
		case <-ctx.Done():
			log.Emit(logger.STOP, "Activity service closed\n")
			return nil
		}
	}
}

func (service *activityService) handleEvent(ev event.HandlerEvent) error {
	resourceID, ok := ev.Payload.(uuid.UUID)
	if !ok {
		return errors.New("illegal payload (expected UUID)")
	}

	updateKey := eventKey{id: resourceID, ev: event.ACQUISITION_UPDATE}
	switch ev.Event {
	case event.ACQUISITION_UPDATE:
		service.scheduleEventBroadcast(updateKey, service.BroadcastAcquisitionUpdate)
	case event.ACQUISITION_COMPLETE:
		service.cancelPending(updateKey)
		return service.BroadcastAcquisitionUpdate(resourceID)
	case event.ACQUISITION_REMOVED:
		service.cancelPending(updateKey)
		return service.BroadcastAcquisitionRemoved(resourceID)
	default:
		return errors.New("unknown event type")
	}

	return nil
}

func (service *activityService) scheduleEventBroadcast(resourceKey eventKey, handler broadcastHandler) {
	service.Lock()
	defer service.Unlock()

	broadcaster := func() { service.broadcast(resourceKey, handler) }

	// Cancel and re-set a debounce timer
	if t, ok := service.debounceTimers[resourceKey]; ok {
		t.Stop()
	}
	service.debounceTimers[resourceKey] = time.AfterFunc(service.debounce, broadcaster)

	if _, ok := service.maxTimers[resourceKey]; !ok {
		service.maxTimers[resourceKey] = time.AfterFunc(service.maxWait, broadcaster)
	}
}

func (service *activityService) broadcast(resourceKey eventKey, handler broadcastHandler) {
	if !service.cancelPending(resourceKey) {
		// Already broadcast by the other timer, or cancelled
		return
	}

	if err := handler(resourceKey.id); err != nil {
		log.Emit(logger.WARNING, "Broadcast of %s for %s failed: %v\n", resourceKey.ev, resourceKey.id, err)
	}
}

// cancelPending stops any timers for the key, returning true if there were any.
func (service *activityService) cancelPending(resourceKey eventKey) bool {
	service.Lock()
	defer service.Unlock()

	found := false
	if t, ok := service.debounceTimers[resourceKey]; ok {
		t.Stop()
		delete(service.debounceTimers, resourceKey)
		found = true
	}

	if t, ok := service.maxTimers[resourceKey]; ok {
		t.Stop()
		delete(service.maxTimers, resourceKey)
		found = true
	}

	return found
}

func (service *activityService) stopAllTimers() {
	service.Lock()
	defer service.Unlock()

	for k, t := range service.debounceTimers {
		t.Stop()
		delete(service.debounceTimers, k)
	}
	for k, t := range service.maxTimers {
		t.Stop()
		delete(service.maxTimers, k)
	}
}
