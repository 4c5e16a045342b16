package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe("test")

	bus.Publish(EventTypeStateChanged, StateChangedEvent("run-1", "invoking_model", 0))

	select {
	case event := <-ch:
		assert.Equal(t, EventTypeStateChanged, event.Type)
		assert.NotEmpty(t, event.ID)
		data := event.Data.(map[string]interface{})
		assert.Equal(t, "run-1", data["run_id"])
		assert.Equal(t, "invoking_model", data["state"])
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestPublishSkipsFullSubscriber(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe("slow")

	// The buffer holds 100 events; the rest must be dropped without blocking.
	for i := 0; i < 150; i++ {
		bus.Publish(EventTypeStateChanged, nil)
	}

	assert.Equal(t, 100, len(ch))
}

func TestPublishToMultipleSubscribers(t *testing.T) {
	bus := NewBus()
	first := bus.Subscribe("first")
	second := bus.Subscribe("second")

	bus.Publish(EventTypeRunCompleted, RunCompletedEvent("run-2", true, 1, 2.5))

	require.Equal(t, 1, len(first))
	require.Equal(t, 1, len(second))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe("temp")

	bus.Unsubscribe("temp")
	bus.Publish(EventTypeError, nil)

	_, open := <-ch
	assert.False(t, open)
}

func TestResubscribeReplacesChannel(t *testing.T) {
	bus := NewBus()
	old := bus.Subscribe("name")
	fresh := bus.Subscribe("name")

	bus.Publish(EventTypeRunStarted, nil)

	_, openOld := <-old
	assert.False(t, openOld)
	assert.Equal(t, 1, len(fresh))
}

func TestErrorEventOmitsNilError(t *testing.T) {
	data := ErrorEvent("run-3", "enrichment failed", nil)
	_, hasError := data["error"]
	assert.False(t, hasError)
}
