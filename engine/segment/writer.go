package segment

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/trakrail/eisenbahn/pkg/envelope"
	"github.com/vmihailenco/msgpack/v5"
)

// Writer appends Documents to a single segment's data file as
// length-prefixed msgpack records: a 4-byte big-endian length followed
// by that many bytes of msgpack-encoded envelope.Document. The prefix
// lets Reader resume iteration or seek to a known offset without
// re-parsing every record ahead of it.
type Writer struct {
	mu   sync.Mutex
	f    *os.File
	size int64
}

// OpenWriter opens (creating if necessary) the data file at path for
// appending.
func OpenWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorage, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrStorage, path, err)
	}
	return &Writer{f: f, size: info.Size()}, nil
}

// Append writes doc and returns the byte offset it was written at, for
// the caller to record in DocIndex.
func (w *Writer) Append(doc envelope.Document) (int64, error) {
	if err := doc.Validate(); err != nil {
		return 0, err
	}
	body, err := msgpack.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("%w: encode document %s: %v", ErrStorage, doc.ID, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	offset := w.size
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.f.Write(lenBuf[:]); err != nil {
		return 0, fmt.Errorf("%w: write length prefix: %v", ErrStorage, err)
	}
	if _, err := w.f.Write(body); err != nil {
		return 0, fmt.Errorf("%w: write document body: %v", ErrStorage, err)
	}
	w.size += int64(len(lenBuf)) + int64(len(body))
	return offset, nil
}

// Flush fsyncs the underlying file so a crash after Flush returns cannot
// lose the documents written before it.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("%w: fsync: %v", ErrStorage, err)
	}
	return nil
}

// Size returns the current file size in bytes.
func (w *Writer) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	return w.f.Close()
}
