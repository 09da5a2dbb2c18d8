package segment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Meta is the small sidecar file describing a segment's covered time
// range, persisted as meta.json next to the data file and index.
type Meta struct {
	ID        string    `json:"id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Sealed    bool      `json:"sealed"`
	RecordCnt int64     `json:"record_count"`
}

// segmentHandle bundles the open writer and index for one segment id.
type segmentHandle struct {
	writer *Writer
	index  *DocIndex
	meta   Meta
}

// Manager owns the lifecycle of every segment under one base directory:
// opening/creating the writer and index for whichever segment a
// timestamp maps to, and listing which segment ids overlap a time range
// so DocumentStore.scan knows which files to open.
type Manager struct {
	mu          sync.Mutex
	baseDir     string
	granularity Granularity
	open        map[string]*segmentHandle
}

// NewManager creates a Manager rooted at baseDir, creating it if
// necessary.
func NewManager(baseDir string, granularity Granularity) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create base dir %s: %v", ErrStorage, baseDir, err)
	}
	return &Manager{baseDir: baseDir, granularity: granularity, open: make(map[string]*segmentHandle)}, nil
}

func (m *Manager) segmentDir(id string) string { return filepath.Join(m.baseDir, id) }
func (m *Manager) dataPath(id string) string    { return filepath.Join(m.segmentDir(id), "data.seg") }
func (m *Manager) indexPath(id string) string    { return filepath.Join(m.segmentDir(id), "documents.idx") }
func (m *Manager) metaPath(id string) string     { return filepath.Join(m.segmentDir(id), "meta.json") }

// ForTimestamp returns (creating if necessary) the writer and index for
// the segment a document with timestamp ts belongs to.
func (m *Manager) ForTimestamp(ts time.Time) (*Writer, *DocIndex, error) {
	id := IDForTimestamp(ts, m.granularity)
	return m.open_(id, ts)
}

func (m *Manager) open_(id string, ts time.Time) (*Writer, *DocIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.open[id]; ok {
		return h.writer, h.index, nil
	}

	dir := m.segmentDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("%w: create segment dir %s: %v", ErrStorage, dir, err)
	}

	w, err := OpenWriter(m.dataPath(id))
	if err != nil {
		return nil, nil, err
	}
	idx, err := OpenDocIndex(m.indexPath(id))
	if err != nil {
		w.Close()
		return nil, nil, err
	}

	meta := m.readMeta(id)
	if meta.ID == "" {
		meta = Meta{ID: id, Start: ts, End: ts}
	}
	if ts.Before(meta.Start) {
		meta.Start = ts
	}
	if ts.After(meta.End) {
		meta.End = ts
	}

	m.open[id] = &segmentHandle{writer: w, index: idx, meta: meta}
	return w, idx, nil
}

// RecordWrite updates a segment's meta after a successful append, and
// persists meta.json so SegmentsInRange can be computed without opening
// every segment's data file.
func (m *Manager) RecordWrite(id string) error {
	m.mu.Lock()
	h, ok := m.open[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: segment %s is not open", ErrNotFound, id)
	}
	h.meta.RecordCnt++
	return m.writeMeta(h.meta)
}

func (m *Manager) readMeta(id string) Meta {
	data, err := os.ReadFile(m.metaPath(id))
	if err != nil {
		return Meta{}
	}
	var meta Meta
	if json.Unmarshal(data, &meta) != nil {
		return Meta{}
	}
	return meta
}

func (m *Manager) writeMeta(meta Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: encode meta for %s: %v", ErrStorage, meta.ID, err)
	}
	if err := os.WriteFile(m.metaPath(meta.ID), data, 0o644); err != nil {
		return fmt.Errorf("%w: write meta for %s: %v", ErrStorage, meta.ID, err)
	}
	return nil
}

// SegmentsInRange lists every segment id under the base directory whose
// [Start, End] overlaps [start, end), sorted ascending. This is the only
// use the per-document index makes of a time range: choosing which
// segment files to open, not seeking within one.
func (m *Manager) SegmentsInRange(start, end time.Time) ([]string, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrStorage, m.baseDir, err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta := m.readMeta(e.Name())
		if meta.ID == "" {
			// No meta yet (segment created but never flushed); fall back
			// to including it rather than silently dropping documents.
			ids = append(ids, e.Name())
			continue
		}
		if meta.End.Before(start) || !meta.Start.Before(end) {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// DataPath and IndexPath expose the on-disk paths for a segment id, for
// Reader construction in DocumentStore.
func (m *Manager) DataPath(id string) string  { return m.dataPath(id) }
func (m *Manager) IndexPath(id string) string { return m.indexPath(id) }

// Index returns the open index for a segment id, opening it read-only if
// it isn't already open (used for get_by_id lookups against sealed
// segments that aren't the current write target).
func (m *Manager) Index(id string) (*DocIndex, error) {
	m.mu.Lock()
	if h, ok := m.open[id]; ok {
		m.mu.Unlock()
		return h.index, nil
	}
	m.mu.Unlock()
	return OpenDocIndex(m.indexPath(id))
}

// Flush fsyncs every currently open segment's writer and index.
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, h := range m.open {
		if err := h.writer.Flush(); err != nil {
			return fmt.Errorf("segment %s: %w", id, err)
		}
		if err := h.index.Flush(); err != nil {
			return fmt.Errorf("segment %s: %w", id, err)
		}
		if err := m.writeMeta(h.meta); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes every open segment.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, h := range m.open {
		h.writer.Close()
		h.index.Close()
		if err := m.writeMeta(h.meta); err != nil {
			return fmt.Errorf("segment %s: %w", id, err)
		}
	}
	return nil
}
