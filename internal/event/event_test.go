package event_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/mediagetter/internal/event"
	"github.com/stretchr/testify/assert"
)

func Test_Dispatch_DeliversToHandlers(t *testing.T) {
	t.Parallel()
	bus := event.New()
	id := uuid.New()

	var received []event.Payload
	bus.RegisterHandlerFunction(event.ACQUISITION_UPDATE, func(_ event.Event, p event.Payload) {
		received = append(received, p)
	})

	ch := make(event.HandlerChannel, 1)
	bus.RegisterHandlerChannel(ch, event.ACQUISITION_UPDATE, event.ACQUISITION_COMPLETE)

	wg := sync.WaitGroup{}
	wg.Add(1)
	bus.RegisterAsyncHandlerFunction(event.ACQUISITION_UPDATE, func(_ event.Event, p event.Payload) {
		defer wg.Done()
		assert.Equal(t, id, p)
	})

	bus.Dispatch(event.ACQUISITION_UPDATE, id)
	wg.Wait()

	assert.Equal(t, []event.Payload{id}, received)
	select {
	case ev := <-ch:
		assert.Equal(t, event.ACQUISITION_UPDATE, ev.Event)
		assert.Equal(t, id, ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected event on handler channel")
	}
}

func Test_Dispatch_RejectsIllegalPayload(t *testing.T) {
	t.Parallel()
	bus := event.New()

	called := false
	bus.RegisterHandlerFunction(event.ACQUISITION_COMPLETE, func(event.Event, event.Payload) { called = true })
	bus.RegisterHandlerFunction("unknown:event", func(event.Event, event.Payload) { called = true })

	bus.Dispatch(event.ACQUISITION_COMPLETE, "not-a-uuid")
	bus.Dispatch(event.ACQUISITION_COMPLETE, nil)
	bus.Dispatch("unknown:event", uuid.New())

	assert.False(t, called, "handlers must not receive payloads which fail validation")
}
