package segment

import (
	"fmt"
	"time"

	"github.com/trakrail/eisenbahn/pkg/envelope"
	"github.com/trakrail/eisenbahn/pkg/idgen"
)

// Store is the document-facing API over a Manager + SchemaRegistry: the
// object ingestion and the graph core actually talk to, rather than
// juggling writers/readers/indexes directly.
type Store struct {
	mgr    *Manager
	schema *SchemaRegistry
}

// NewStore builds a Store rooted at baseDir.
func NewStore(baseDir string, granularity Granularity) (*Store, error) {
	mgr, err := NewManager(baseDir, granularity)
	if err != nil {
		return nil, err
	}
	return &Store{mgr: mgr, schema: NewSchemaRegistry()}, nil
}

// Schema exposes the registry for the catalog builder.
func (s *Store) Schema() *SchemaRegistry { return s.schema }

// Insert appends doc to the segment its timestamp maps to, records its
// address in that segment's index, and folds it into the schema
// registry. Returns the address so the caller (e.g. a graph update that
// needs to re-read this exact document later) can address it directly.
func (s *Store) Insert(doc envelope.Document) (DocAddress, error) {
	if err := doc.Validate(); err != nil {
		return DocAddress{}, err
	}
	id := IDForTimestamp(doc.Timestamp, s.mgr.granularity)
	w, idx, err := s.mgr.ForTimestamp(doc.Timestamp)
	if err != nil {
		return DocAddress{}, err
	}
	offset, err := w.Append(doc)
	if err != nil {
		return DocAddress{}, err
	}
	if err := idx.Record(doc.ID, offset); err != nil {
		return DocAddress{}, err
	}
	if err := s.mgr.RecordWrite(id); err != nil {
		return DocAddress{}, err
	}
	s.schema.Observe(doc)
	return DocAddress{SegmentID: id, Offset: offset}, nil
}

// Get reads the document at a known address directly, no scan involved.
func (s *Store) Get(addr DocAddress) (envelope.Document, error) {
	r, err := OpenReader(s.mgr.DataPath(addr.SegmentID))
	if err != nil {
		return envelope.Document{}, err
	}
	defer r.Close()
	return r.ReadAt(addr.Offset)
}

// GetByID looks up a document by id within one known segment, using
// that segment's index to avoid a scan. Callers that don't know which
// segment a document lives in should track the DocAddress Insert
// returned instead of calling this blind.
func (s *Store) GetByID(segmentID string, id idgen.ID) (envelope.Document, error) {
	idx, err := s.mgr.Index(segmentID)
	if err != nil {
		return envelope.Document{}, err
	}
	offset, ok := idx.Lookup(id)
	if !ok {
		return envelope.Document{}, fmt.Errorf("%w: document %s in segment %s", ErrNotFound, id, segmentID)
	}
	return s.Get(DocAddress{SegmentID: segmentID, Offset: offset})
}

// Scan selects every segment overlapping [start, end), and within each
// one iterates the full data file, keeping only records whose
// timestamp itself falls in [start, end) and that pass filter — a
// segment can hold records spanning its whole granularity window, so
// segment selection alone only narrows which files get opened, never
// which records within one are in range. fn is called for every
// document that passes both checks; returning an error from fn stops
// the scan early.
func (s *Store) Scan(start, end time.Time, filter Filter, fn func(envelope.Document) error) error {
	if filter == nil {
		filter = All()
	}
	ids, err := s.mgr.SegmentsInRange(start, end)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.scanOne(id, start, end, filter, fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) scanOne(segmentID string, start, end time.Time, filter Filter, fn func(envelope.Document) error) error {
	r, err := OpenReader(s.mgr.DataPath(segmentID))
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Iter(func(_ int64, doc envelope.Document) error {
		if doc.Timestamp.Before(start) || !doc.Timestamp.Before(end) {
			return nil
		}
		if !filter(doc) {
			return nil
		}
		return fn(doc)
	})
}

// Flush fsyncs every open segment and its index.
func (s *Store) Flush() error { return s.mgr.Flush() }

// Close flushes and closes every open segment.
func (s *Store) Close() error { return s.mgr.Close() }

// Stats summarizes the store for health/diagnostic reporting.
type Stats struct {
	EventTypes    []string
	DocumentCount map[string]int64
}

// StoreStats reports per-event-type document counts from the schema
// registry, which is cheaper than re-scanning every segment.
func (s *Store) StoreStats() Stats {
	types := s.schema.EventTypes()
	counts := make(map[string]int64, len(types))
	for _, t := range types {
		if sch, ok := s.schema.Schema(t); ok {
			counts[t] = sch.DocumentCount
		}
	}
	return Stats{EventTypes: types, DocumentCount: counts}
}
