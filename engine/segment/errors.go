// Package segment implements the append-only storage engine: documents
// are written to daily or weekly segment files, each with a companion
// index recording per-document offsets, and a process-wide schema
// registry tracking field statistics per event type.
package segment

import "errors"

// ErrStorage marks an I/O failure reading or writing a segment file or
// its index — these bubble up to the caller rather than being silently
// swallowed, per the StorageError class.
var ErrStorage = errors.New("segment: storage error")

// ErrNotFound marks a lookup (by id or by address) that found nothing.
var ErrNotFound = errors.New("segment: not found")
