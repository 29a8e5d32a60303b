package eventstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tahoelimited/eventstore-client-go/internal/wire"
)

// Writable is anything that can be appended to a stream.
// WritableEvent and WritableEventCollection both implement it.
type Writable interface {
	// ToStreamData returns the append payload records in commit order.
	ToStreamData() []wire.WriteEvent
}

// WritableEvent is one event pending append.
type WritableEvent struct {
	// ID is sent as eventId unless it is uuid.Nil, in which case the server
	// assigns one.
	ID uuid.UUID

	// Type is the event type identifier.
	Type string

	// Data is the event body. It is marshaled with encoding/json.
	Data any

	// Metadata is optional event metadata.
	Metadata any
}

// EventOption configures a WritableEvent.
type EventOption func(*WritableEvent)

// WithMetadata sets the event metadata.
func WithMetadata(v any) EventOption {
	return func(e *WritableEvent) {
		e.Metadata = v
	}
}

// WithEventID sets the event id sent to the server.
func WithEventID(id uuid.UUID) EventOption {
	return func(e *WritableEvent) {
		e.ID = id
	}
}

// WithRandomEventID assigns a fresh random (v4) event id.
func WithRandomEventID() EventOption {
	return func(e *WritableEvent) {
		e.ID = uuid.New()
	}
}

// NewWritableEvent creates an event of the given type.
//
// Example:
//
//	event := eventstore.NewWritableEvent("OrderCreated", map[string]any{"id": 1},
//	    eventstore.WithRandomEventID(),
//	)
func NewWritableEvent(eventType string, data any, opts ...EventOption) *WritableEvent {
	e := &WritableEvent{
		Type: eventType,
		Data: data,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ToStreamData implements Writable. A single event is a one-element payload.
func (e *WritableEvent) ToStreamData() []wire.WriteEvent {
	return []wire.WriteEvent{e.record()}
}

func (e *WritableEvent) record() wire.WriteEvent {
	rec := wire.WriteEvent{
		EventType: e.Type,
		Data:      e.Data,
		Metadata:  e.Metadata,
	}
	if e.ID != uuid.Nil {
		rec.EventID = e.ID.String()
	}
	return rec
}

// validateWritable rejects nil events before anything is marshaled.
func validateWritable(events Writable) error {
	switch v := events.(type) {
	case nil:
		return fmt.Errorf("%w: nil events", ErrInvalidEvent)
	case *WritableEvent:
		if v == nil {
			return fmt.Errorf("%w: nil event", ErrInvalidEvent)
		}
	case WritableEventCollection:
		for i, e := range v {
			if e == nil {
				return fmt.Errorf("%w: nil event at index %d", ErrInvalidEvent, i)
			}
		}
	}
	return nil
}

// WritableEventCollection is an ordered set of events appended in one request.
// Order is commit order.
type WritableEventCollection []*WritableEvent

// NewWritableEventCollection creates a collection from events in commit order.
func NewWritableEventCollection(events ...*WritableEvent) WritableEventCollection {
	return WritableEventCollection(events)
}

// ToStreamData implements Writable.
func (c WritableEventCollection) ToStreamData() []wire.WriteEvent {
	records := make([]wire.WriteEvent, 0, len(c))
	for _, e := range c {
		records = append(records, e.record())
	}
	return records
}

// Event is an event read back from the store, either embedded in a feed entry
// or fetched with Client.ReadEvent.
type Event struct {
	ID       string
	Type     string
	Number   int64
	StreamID string

	// Data is the raw event body. It is nil when the page was read with an
	// embed mode that does not include bodies.
	Data json.RawMessage

	// Metadata is the raw event metadata, if any.
	Metadata json.RawMessage

	IsJSON bool
}

// Decode unmarshals the event data into v.
func (e *Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("eventstore: event %s has no embedded data", e.ID)
	}
	return json.Unmarshal(e.Data, v)
}

// DecodeMetadata unmarshals the event metadata into v.
func (e *Event) DecodeMetadata(v any) error {
	if len(e.Metadata) == 0 {
		return fmt.Errorf("eventstore: event %s has no metadata", e.ID)
	}
	return json.Unmarshal(e.Metadata, v)
}

func eventFromEntry(entry wire.Entry) *Event {
	ev := &Event{
		ID:       entry.EventID,
		Type:     entry.EventType,
		StreamID: entry.StreamID,
		Data:     unwrapJSONString(entry.Data),
		Metadata: unwrapJSONString(entry.MetaData),
		IsJSON:   entry.IsJSON,
	}
	if entry.EventNumber != nil {
		ev.Number = *entry.EventNumber
	}
	return ev
}

func eventFromAtom(doc wire.AtomEvent) *Event {
	return &Event{
		ID:       doc.Content.EventID,
		Type:     doc.Content.EventType,
		Number:   doc.Content.EventNumber,
		StreamID: doc.Content.EventStreamID,
		Data:     unwrapJSONString(doc.Content.Data),
		Metadata: unwrapJSONString(doc.Content.Metadata),
		IsJSON:   isJSONDocument(unwrapJSONString(doc.Content.Data)),
	}
}

// isJSONDocument reports whether raw is a JSON object or array.
func isJSONDocument(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	return json.Valid([]byte(trimmed))
}

// unwrapJSONString turns a JSON string that itself holds a JSON document into
// that document. Some embed modes deliver object or array bodies as strings.
// Anything else is returned unchanged.
func unwrapJSONString(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || raw[0] != '"' {
		return raw
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return raw
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') || !json.Valid([]byte(trimmed)) {
		return raw
	}
	return json.RawMessage(trimmed)
}
