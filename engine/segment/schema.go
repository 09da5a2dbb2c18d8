package segment

import (
	"sync"

	"github.com/trakrail/eisenbahn/pkg/envelope"
)

// FieldStats tracks what a field has looked like across every document
// of one event type: which Value kinds have been seen for it, and how
// many documents carried it at all.
type FieldStats struct {
	Count     int64
	KindSeen  map[envelope.ValueKind]int64
}

// EventTypeSchema is the accumulated shape of one event type: its total
// document count and per-field stats.
type EventTypeSchema struct {
	DocumentCount int64
	Fields        map[string]*FieldStats
}

// SchemaRegistry is a process-wide, in-memory catalog of the field
// shapes seen for every event type. It is populated as documents are
// inserted and consulted by the catalog builder to describe entity
// types without re-scanning segment data.
type SchemaRegistry struct {
	mu     sync.RWMutex
	byType map[string]*EventTypeSchema
}

// NewSchemaRegistry builds an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{byType: make(map[string]*EventTypeSchema)}
}

// Observe records one document's shape against its event type's schema.
func (r *SchemaRegistry) Observe(doc envelope.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	schema, ok := r.byType[doc.EventType]
	if !ok {
		schema = &EventTypeSchema{Fields: make(map[string]*FieldStats)}
		r.byType[doc.EventType] = schema
	}
	schema.DocumentCount++

	for field, v := range doc.Fields {
		fs, ok := schema.Fields[field]
		if !ok {
			fs = &FieldStats{KindSeen: make(map[envelope.ValueKind]int64)}
			schema.Fields[field] = fs
		}
		fs.Count++
		fs.KindSeen[v.Kind]++
	}
}

// EventTypes returns every event type the registry has observed.
func (r *SchemaRegistry) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	return out
}

// Schema returns the accumulated schema for an event type, if any
// documents of that type have been observed.
func (r *SchemaRegistry) Schema(eventType string) (EventTypeSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byType[eventType]
	if !ok {
		return EventTypeSchema{}, false
	}
	// Return a shallow copy of the top-level struct; Fields map is shared
	// but callers only read it under the registry's own invariant that
	// Observe is the sole mutator.
	return *s, true
}
