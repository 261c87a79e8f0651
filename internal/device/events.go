package device

import "time"

// EventType classifies a device lifecycle event.
type EventType string

// Lifecycle events.
const (
	EventOpen             EventType = "open"
	EventOpenFailed       EventType = "open_failed"
	EventClose            EventType = "close"
	EventSourceInit       EventType = "source_init"
	EventSourceDuplicate  EventType = "source_duplicate"
	EventSourceInitFailed EventType = "source_init_failed"
)

// Event is one lifecycle event. Kind is empty for sensor events.
type Event struct {
	Type   EventType
	Kind   string
	Detail string
	Time   time.Time
}

// EventSink receives lifecycle events. RecordEvent is called on the tick
// goroutine and must not block.
type EventSink interface {
	RecordEvent(e Event)
}

type noopSink struct{}

func (noopSink) RecordEvent(Event) {}

// MultiSink fans each event out to every non-nil sink, in order.
func MultiSink(sinks ...EventSink) EventSink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multiSink []EventSink

func (m multiSink) RecordEvent(e Event) {
	for _, s := range m {
		s.RecordEvent(e)
	}
}
