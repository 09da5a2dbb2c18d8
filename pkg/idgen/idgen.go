// Package idgen mints the 128-bit identifiers used throughout eisenbahn:
// document ids, correlation ids, node ids, and edge ids. All of them are
// UUIDs; the package exists so every call site shares one source of
// randomness and one textual representation.
package idgen

import "github.com/google/uuid"

// ID is a 128-bit identifier, always a UUID under the hood.
type ID = uuid.UUID

// Nil is the zero-value ID, used as a sentinel for "no node" lookups.
var Nil = uuid.Nil

// New mints a random (v4) identifier.
func New() ID { return uuid.New() }

// Parse decodes the canonical hyphenated string form.
func Parse(s string) (ID, error) { return uuid.Parse(s) }

// Deterministic derives a stable v5 identifier from a namespace and a
// name. Graph node and edge ids are deterministic so that re-ingesting
// the same entity or relationship from a different segment converges
// on the same identifier instead of duplicating it.
func Deterministic(namespace ID, name string) ID {
	return uuid.NewSHA1(namespace, []byte(name))
}

// Namespace roots for Deterministic, one per kind of derived id so that
// a node and an edge built from the same literal name never collide.
var (
	NamespaceNode = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	NamespaceEdge = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")
)
