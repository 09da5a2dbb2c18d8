package envelope

import (
	"fmt"
	"time"

	"github.com/trakrail/eisenbahn/pkg/idgen"
)

// Document is the unit of ingestion: a timestamped event with a free-form
// field map. It is the record shape persisted to segments and the payload
// entity extraction consumes to produce graph operations.
type Document struct {
	ID        idgen.ID         `msgpack:"id"`
	Timestamp time.Time        `msgpack:"ts"`
	EventType string           `msgpack:"event_type"`
	Fields    map[string]Value `msgpack:"fields"`
}

// NewDocument builds a Document with a fresh id and the timestamp pinned
// to UTC, since segments are addressed by UTC calendar boundaries.
func NewDocument(eventType string, fields map[string]Value) Document {
	if fields == nil {
		fields = make(map[string]Value)
	}
	return Document{
		ID:        idgen.New(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Fields:    fields,
	}
}

// Validate checks the invariants a Document must hold before it is
// admitted to a segment: a non-nil id, a non-empty event type, and a
// timestamp normalized to UTC.
func (d Document) Validate() error {
	if d.ID == idgen.Nil {
		return fmt.Errorf("%w: document id is nil", ErrValidation)
	}
	if d.EventType == "" {
		return fmt.Errorf("%w: document event_type is empty", ErrValidation)
	}
	if d.Timestamp.Location() != time.UTC {
		return fmt.Errorf("%w: document timestamp %s is not UTC", ErrValidation, d.Timestamp)
	}
	return nil
}

// Get returns a field value and whether it was present.
func (d Document) Get(field string) (Value, bool) {
	v, ok := d.Fields[field]
	return v, ok
}
