package segment

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/trakrail/eisenbahn/pkg/idgen"
	"github.com/vmihailenco/msgpack/v5"
)

// indexEntry is one (document id, address) tuple as persisted to
// documents.idx, length-prefixed the same way segment data records are.
type indexEntry struct {
	ID     idgen.ID   `msgpack:"id"`
	Offset int64      `msgpack:"offset"`
}

// DocIndex maps document ids to their byte offset within one segment's
// data file. It exists purely to make get_by_id O(1) instead of a full
// scan; it plays no role in time-range scans, which select segments by
// id and then iterate the whole data file (see Reader.Iter).
type DocIndex struct {
	mu      sync.RWMutex
	path    string
	offsets map[idgen.ID]int64
	f       *os.File // append handle, opened lazily on first Record
}

// OpenDocIndex loads path if it exists. A missing file is not an error —
// a brand new segment has no index yet — so the returned DocIndex simply
// starts empty.
func OpenDocIndex(path string) (*DocIndex, error) {
	idx := &DocIndex{path: path, offsets: make(map[idgen.ID]int64)}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open index %s: %v", ErrStorage, path, err)
	}
	defer f.Close()

	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(f, lenBuf[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("%w: read index length prefix: %v", ErrStorage, err)
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		body := make([]byte, n)
		if _, err := io.ReadFull(f, body); err != nil {
			return nil, fmt.Errorf("%w: read index entry: %v", ErrStorage, err)
		}
		var e indexEntry
		if err := msgpack.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("%w: decode index entry: %v", ErrStorage, err)
		}
		idx.offsets[e.ID] = e.Offset
	}
	return idx, nil
}

// Record appends a (id, offset) tuple to the index file and updates the
// in-memory map. Both happen under the same lock so a concurrent Lookup
// never observes the in-memory entry before it is durable — though since
// the file append happens first, a crash between the two only loses the
// in-memory update, which is rebuilt identically on next OpenDocIndex.
func (idx *DocIndex) Record(id idgen.ID, offset int64) error {
	body, err := msgpack.Marshal(indexEntry{ID: id, Offset: offset})
	if err != nil {
		return fmt.Errorf("%w: encode index entry: %v", ErrStorage, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.f == nil {
		f, err := os.OpenFile(idx.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("%w: open index %s for append: %v", ErrStorage, idx.path, err)
		}
		idx.f = f
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := idx.f.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("%w: write index length prefix: %v", ErrStorage, err)
	}
	if _, err := idx.f.Write(body); err != nil {
		return fmt.Errorf("%w: write index entry: %v", ErrStorage, err)
	}
	idx.offsets[id] = offset
	return nil
}

// Lookup returns the offset recorded for id, if any.
func (idx *DocIndex) Lookup(id idgen.ID) (int64, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	off, ok := idx.offsets[id]
	return off, ok
}

// Len returns the number of indexed documents — the cardinality a sealed
// segment's index must equal the data file's record count.
func (idx *DocIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.offsets)
}

// Flush fsyncs the index file, if one has been opened.
func (idx *DocIndex) Flush() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.f == nil {
		return nil
	}
	if err := idx.f.Sync(); err != nil {
		return fmt.Errorf("%w: fsync index: %v", ErrStorage, err)
	}
	return nil
}

// Close flushes and releases the append handle, if any was opened.
func (idx *DocIndex) Close() error {
	if err := idx.Flush(); err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.f == nil {
		return nil
	}
	err := idx.f.Close()
	idx.f = nil
	return err
}
