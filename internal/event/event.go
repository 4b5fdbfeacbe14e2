// A collection of event names and the bus used to deliver them. Services
// dispatch events when the resources they own change, and other services
// (such as the activity broadcaster) subscribe to them.
package event

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/hbomb79/mediagetter/pkg/logger"
)

var log = logger.Get("Event")

type (
	Event          string
	Payload        any
	HandlerMethod  func(Event, Payload)
	HandlerChannel chan HandlerEvent
	HandlerEvent   struct {
		Event   Event
		Payload Payload
	}

	EventDispatcher interface {
		Dispatch(Event, Payload)
	}

	EventHandler interface {
		RegisterAsyncHandlerFunction(Event, HandlerMethod)
		RegisterHandlerFunction(Event, HandlerMethod)
		RegisterHandlerChannel(HandlerChannel, ...Event)
	}

	EventCoordinator interface {
		EventDispatcher
		EventHandler
	}

	eventHandler struct {
		mu           sync.RWMutex
		fnHandlers   map[Event][]handlerMethod
		chanHandlers map[Event][]HandlerChannel
	}

	handlerMethod struct {
		handle HandlerMethod
		async  bool
	}
)

const (
	ACQUISITION_UPDATE   Event = "acquisition:update"
	ACQUISITION_COMPLETE Event = "acquisition:complete"
	ACQUISITION_REMOVED  Event = "acquisition:removed"
)

var ErrUnknownEvent = errors.New("event type not recognized for validation")

func New() EventCoordinator {
	return &eventHandler{
		fnHandlers:   make(map[Event][]handlerMethod),
		chanHandlers: make(map[Event][]HandlerChannel),
	}
}

// RegisterHandlerChannel will send a HandlerEvent on the channel provided any time
// one of the events given is dispatched.
//
// If the channel is BLOCKED when the event bus attempts to send the message, then the
// thread dispatching the event will also be BLOCKED. Buffer handler channels appropriately.
func (handler *eventHandler) RegisterHandlerChannel(handle HandlerChannel, events ...Event) {
	handler.mu.Lock()
	defer handler.mu.Unlock()
	for _, event := range events {
		handler.chanHandlers[event] = append(handler.chanHandlers[event], handle)
	}
}

// RegisterHandlerFunction stores a handler which is called synchronously with the payload
// whenever the event is dispatched. The handler should return quickly, else the dispatching
// thread will be held up.
func (handler *eventHandler) RegisterHandlerFunction(event Event, handle HandlerMethod) {
	handler.registerHandlerMethod(event, handlerMethod{handle, false})
}

// RegisterAsyncHandlerFunction stores a handler which is called inside of a new goroutine
// whenever the event is dispatched.
func (handler *eventHandler) RegisterAsyncHandlerFunction(event Event, handle HandlerMethod) {
	handler.registerHandlerMethod(event, handlerMethod{handle, true})
}

func (handler *eventHandler) registerHandlerMethod(event Event, handle handlerMethod) {
	handler.mu.Lock()
	defer handler.mu.Unlock()
	handler.fnHandlers[event] = append(handler.fnHandlers[event], handle)
}

// Dispatch validates the payload for the event, and then delivers it to every
// handler registered against the event.
// Note that this method WILL block if a synchronous handler function is blocking, or if channel
// handlers are blocked.
func (handler *eventHandler) Dispatch(event Event, payload Payload) {
	if err := validatePayload(event, payload); err != nil {
		log.Emit(logger.ERROR, "Dispatch for event %v FAILED validation: %v\n", event, err)
		return
	}

	handler.mu.RLock()
	fns := handler.fnHandlers[event]
	chans := handler.chanHandlers[event]
	handler.mu.RUnlock()

	for _, handle := range fns {
		if handle.async {
			go handle.handle(event, payload)
		} else {
			handle.handle(event, payload)
		}
	}

	if len(chans) > 0 {
		ev := HandlerEvent{event, payload}
		for _, ch := range chans {
			ch <- ev
		}
	}
}

// validatePayload ensures that the payload provided is valid for the event specified.
func validatePayload(event Event, payload Payload) error {
	payloadTypeName := "Nil"
	if t := reflect.TypeOf(payload); t != nil {
		payloadTypeName = t.Name()
	}

	switch event {
	case ACQUISITION_UPDATE, ACQUISITION_COMPLETE, ACQUISITION_REMOVED:
		if _, ok := payload.(uuid.UUID); !ok {
			return fmt.Errorf("illegal payload (type %s) for %s event. Expected uuid.UUID payload", payloadTypeName, event)
		}

		return nil
	}

	return ErrUnknownEvent
}
