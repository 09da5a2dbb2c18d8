package segment

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/trakrail/eisenbahn/pkg/envelope"
	"github.com/vmihailenco/msgpack/v5"
)

// Reader reads Documents back out of a segment's data file, either by
// sequential iteration (scan path) or by seeking to a known offset
// (single-document lookup path).
type Reader struct {
	f *os.File
}

// OpenReader opens path read-only.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorage, path, err)
	}
	return &Reader{f: f}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error { return r.f.Close() }

// ReadAt seeks to offset and decodes exactly one document there.
func (r *Reader) ReadAt(offset int64) (envelope.Document, error) {
	var lenBuf [4]byte
	if _, err := r.f.ReadAt(lenBuf[:], offset); err != nil {
		return envelope.Document{}, fmt.Errorf("%w: read length prefix at %d: %v", ErrStorage, offset, err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	body := make([]byte, n)
	if _, err := r.f.ReadAt(body, offset+4); err != nil {
		return envelope.Document{}, fmt.Errorf("%w: read body at %d: %v", ErrStorage, offset+4, err)
	}
	var doc envelope.Document
	if err := msgpack.Unmarshal(body, &doc); err != nil {
		return envelope.Document{}, fmt.Errorf("%w: decode document at %d: %v", envelope.ErrSerialization, offset, err)
	}
	return doc, nil
}

// Iter calls fn for every document in the file in write order, from the
// beginning. Iteration stops at the first error fn returns, or when the
// file is exhausted. This is the path DocumentStore.scan uses: segment
// selection narrows which files get opened, but within a selected file
// every record is visited and the predicate decides whether to keep it
// — there is no per-document index seeking during a scan.
func (r *Reader) Iter(fn func(offset int64, doc envelope.Document) error) error {
	if _, err := r.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek to start: %v", ErrStorage, err)
	}
	var offset int64
	for {
		var lenBuf [4]byte
		_, err := io.ReadFull(r.f, lenBuf[:])
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: read length prefix: %v", ErrStorage, err)
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		body := make([]byte, n)
		if _, err := io.ReadFull(r.f, body); err != nil {
			return fmt.Errorf("%w: read body: %v", ErrStorage, err)
		}
		var doc envelope.Document
		if err := msgpack.Unmarshal(body, &doc); err != nil {
			return fmt.Errorf("%w: decode document at %d: %v", envelope.ErrSerialization, offset, err)
		}
		if err := fn(offset, doc); err != nil {
			return err
		}
		offset += 4 + int64(n)
	}
}
