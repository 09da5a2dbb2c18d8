package rules

import "sort"

// FeatureSet maps feature names to their fixed position in every
// EntityData.Features slice. The Rust predecessor hardcoded this
// mapping per deployment (VIP tier, currency, event-type keywords,
// one map literal baked into the binary); here it's built once from
// whatever feature names the ingest pipeline actually produces, so a
// new deployment never needs a code change to add a feature.
type FeatureSet struct {
	index map[string]int
	names []string
}

// NewFeatureSet builds a FeatureSet assigning each name a stable index
// equal to its sorted position, so the same input names always produce
// the same indices regardless of map iteration order upstream.
func NewFeatureSet(names []string) *FeatureSet {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	fs := &FeatureSet{index: make(map[string]int, len(sorted)), names: sorted}
	for i, n := range sorted {
		fs.index[n] = i
	}
	return fs
}

// Index resolves a feature name to its position, suitable as an
// Evaluator.FeatureIndex.
func (fs *FeatureSet) Index(name string) (int, bool) {
	i, ok := fs.index[name]
	return i, ok
}

// Names returns the feature names in index order.
func (fs *FeatureSet) Names() []string {
	return fs.names
}

// Len is the width every EntityData.Features slice must have to be
// addressable by this set.
func (fs *FeatureSet) Len() int {
	return len(fs.names)
}
