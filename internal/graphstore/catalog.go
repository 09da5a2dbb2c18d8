package graphstore

import (
	"fmt"
	"sort"
	"strings"
)

// EntityTypeSummary is one row of the catalog's entity-type breakdown.
type EntityTypeSummary struct {
	Type  string
	Count int
}

// EdgeTypeSummary is one row of the catalog's edge-type breakdown.
type EdgeTypeSummary struct {
	Type  string
	Count int
}

// Catalog is the auto-discovered summary of what's in the graph: which
// entity and edge types exist and how common each is, plus any external
// sources that contributed data the graph itself didn't derive (e.g. a
// catalog merged in from another eisenbahn instance, or from an external
// collaborator's import). Rows are sorted by count descending so the
// most significant types surface first.
type Catalog struct {
	EntityTypes     []EntityTypeSummary
	EdgeTypes       []EdgeTypeSummary
	ExternalSources []string
}

// FromGraph builds a Catalog by tallying every node and edge currently
// in store.
func FromGraph(store *Store) Catalog {
	entityCounts := map[string]int{}
	for _, n := range store.Nodes() {
		entityCounts[n.EntityType]++
	}
	edgeCounts := map[string]int{}
	for _, e := range store.Edges() {
		edgeCounts[e.EdgeType]++
	}
	return Catalog{
		EntityTypes: sortedSummary(entityCounts),
		EdgeTypes:   sortedEdgeSummary(edgeCounts),
	}
}

func sortedSummary(counts map[string]int) []EntityTypeSummary {
	out := make([]EntityTypeSummary, 0, len(counts))
	for t, c := range counts {
		out = append(out, EntityTypeSummary{Type: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

func sortedEdgeSummary(counts map[string]int) []EdgeTypeSummary {
	out := make([]EdgeTypeSummary, 0, len(counts))
	for t, c := range counts {
		out = append(out, EdgeTypeSummary{Type: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// FromPartials merges independently built catalogs (e.g. one per
// segment, built while replaying segments in parallel before the final
// single-threaded graph assembly) into one. Merging must be equivalent
// to building the catalog from the fully assembled graph: counts add,
// and the re-sort uses the same (count desc, type asc) ordering
// FromGraph uses, so FromPartials(catalogs of a partition) ==
// FromGraph(the union graph).
func FromPartials(catalogs []Catalog) Catalog {
	entityCounts := map[string]int{}
	edgeCounts := map[string]int{}
	sourceSet := map[string]struct{}{}
	for _, c := range catalogs {
		for _, e := range c.EntityTypes {
			entityCounts[e.Type] += e.Count
		}
		for _, e := range c.EdgeTypes {
			edgeCounts[e.Type] += e.Count
		}
		for _, src := range c.ExternalSources {
			sourceSet[src] = struct{}{}
		}
	}
	sources := make([]string, 0, len(sourceSet))
	for s := range sourceSet {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return Catalog{
		EntityTypes:     sortedSummary(entityCounts),
		EdgeTypes:       sortedEdgeSummary(edgeCounts),
		ExternalSources: sources,
	}
}

// WithExternalSources returns a copy of c with ExternalSources replaced.
func (c Catalog) WithExternalSources(sources []string) Catalog {
	sorted := append([]string(nil), sources...)
	sort.Strings(sorted)
	c.ExternalSources = sorted
	return c
}

// ToSystemPrompt renders the catalog as the plain-text summary handed to
// an external prompt-construction collaborator (an LLM integration is
// out of scope here; this just formats the data it would consume).
func (c Catalog) ToSystemPrompt() string {
	var b strings.Builder
	b.WriteString("Known entity types:\n")
	for _, e := range c.EntityTypes {
		fmt.Fprintf(&b, "  - %s (%d)\n", e.Type, e.Count)
	}
	b.WriteString("Known relationship types:\n")
	for _, e := range c.EdgeTypes {
		fmt.Fprintf(&b, "  - %s (%d)\n", e.Type, e.Count)
	}
	if len(c.ExternalSources) > 0 {
		b.WriteString("External sources: ")
		b.WriteString(strings.Join(c.ExternalSources, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
