// Package events distributes run lifecycle notifications to subscribers such
// as the serve bridge and the CLI progress printer.
package events

import (
	"strconv"
	"sync"
	"time"
)

// Event is a single run lifecycle notification.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Event types published by the orchestrator.
const (
	EventTypeRunStarted        = "run_started"
	EventTypeStateChanged      = "state_changed"
	EventTypeSideEffectApplied = "side_effect_applied"
	EventTypeRunCompleted      = "run_completed"
	EventTypeError             = "error"
)

// Bus fans events out to named subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	subscribers map[string]chan Event
	mutex       sync.Mutex
	nextID      int64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]chan Event),
	}
}

// Subscribe registers a named subscriber and returns its channel. A second
// Subscribe with the same name replaces the previous channel.
func (b *Bus) Subscribe(name string) <-chan Event {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if old, exists := b.subscribers[name]; exists {
		close(old)
	}
	ch := make(chan Event, 100)
	b.subscribers[name] = ch
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(name string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if ch, exists := b.subscribers[name]; exists {
		delete(b.subscribers, name)
		close(ch)
	}
}

// Publish broadcasts an event to every subscriber. Full channels are skipped
// so a stalled consumer cannot stall a run.
func (b *Bus) Publish(eventType string, data any) {
	b.mutex.Lock()
	b.nextID++
	event := Event{
		ID:        time.Now().Format("20060102-150405") + "-" + strconv.FormatInt(b.nextID, 10),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	subscribers := make([]chan Event, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		subscribers = append(subscribers, ch)
	}
	b.mutex.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// RunStartedEvent describes a run entering the pipeline.
func RunStartedEvent(runID, instruction, fileName, tier string) map[string]interface{} {
	return map[string]interface{}{
		"run_id":      runID,
		"instruction": instruction,
		"file":        fileName,
		"tier":        tier,
	}
}

// StateChangedEvent describes an orchestrator state transition.
func StateChangedEvent(runID, state string, attempt int) map[string]interface{} {
	return map[string]interface{}{
		"run_id":  runID,
		"state":   state,
		"attempt": attempt,
	}
}

// SideEffectEvent describes one executed side effect.
func SideEffectEvent(runID, kind, status, detail string) map[string]interface{} {
	return map[string]interface{}{
		"run_id": runID,
		"kind":   kind,
		"status": status,
		"detail": detail,
	}
}

// RunCompletedEvent describes a finished run.
func RunCompletedEvent(runID string, succeeded bool, retryCount int, elapsedSeconds float64) map[string]interface{} {
	return map[string]interface{}{
		"run_id":          runID,
		"succeeded":       succeeded,
		"retry_count":     retryCount,
		"elapsed_seconds": elapsedSeconds,
	}
}

// ErrorEvent describes an absorbed or fatal error.
func ErrorEvent(runID, message string, err error) map[string]interface{} {
	data := map[string]interface{}{
		"run_id":  runID,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	return data
}
