package envelope

import "errors"

// Sentinel errors shared by every package that produces or consumes
// envelopes and documents. Callers wrap these with fmt.Errorf("...: %w", ...)
// so errors.Is still matches across package boundaries.
var (
	// ErrValidation marks a document or envelope that failed a structural
	// invariant check (GraphIntegrity / RuleValidation class errors).
	ErrValidation = errors.New("envelope: validation failed")
	// ErrSerialization marks a msgpack encode/decode failure. Callers on
	// the consuming side should log and skip rather than abort.
	ErrSerialization = errors.New("envelope: serialization failed")
)
