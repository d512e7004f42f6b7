package sync

import (
	"time"

	"github.com/evchen/snapfolio/internal/models"
)

// EventType identifies the kind of sync lifecycle event.
type EventType string

const (
	EventStarted   EventType = "sync_started"
	EventProgress  EventType = "sync_progress"
	EventConflict  EventType = "sync_conflict"
	EventCompleted EventType = "sync_completed"
	EventFailed    EventType = "sync_failed"
)

// Event is a sync lifecycle notification delivered to the registered handler.
// Events let UI layers show progress without polling Status.
type Event struct {
	Type       EventType         `json:"type"`
	Timestamp  time.Time         `json:"timestamp"`
	Collection models.Collection `json:"collection,omitempty"`
	RecordID   string            `json:"record_id,omitempty"`
	Message    string            `json:"message,omitempty"`
	Result     *Result           `json:"result,omitempty"`
}

// EventHandler receives engine events. Handlers run on the syncing goroutine
// and must not block.
type EventHandler func(Event)

func (e *Engine) emit(event Event) {
	if e.onEvent == nil {
		return
	}
	event.Timestamp = e.clock()
	e.onEvent(event)
}

// maxErrorHistory bounds the in-memory failure ring used by Status.
const maxErrorHistory = 10

func (e *Engine) recordFailure(err error) {
	e.errHistory = append(e.errHistory, err.Error())
	if len(e.errHistory) > maxErrorHistory {
		e.errHistory = e.errHistory[len(e.errHistory)-maxErrorHistory:]
	}
}
