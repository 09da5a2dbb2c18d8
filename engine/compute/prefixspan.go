package compute

import (
	"fmt"
	"hash/fnv"
	"sort"
	"time"
)

// PrefixSpanConfig bounds sequential pattern mining.
type PrefixSpanConfig struct {
	MinSupport float64 // fraction of sequences a pattern must appear in
	MinMembers int      // absolute floor, regardless of MinSupport
	MaxLength  int
}

// DefaultPrefixSpanConfig requires a pattern to cover at least 10% of
// sequences (and at least 2 of them outright), capped at patterns of
// length 5 — long enough to catch multi-step behavior, short enough to
// keep the projected-database recursion cheap.
func DefaultPrefixSpanConfig() PrefixSpanConfig {
	return PrefixSpanConfig{MinSupport: 0.1, MinMembers: 2, MaxLength: 5}
}

// TemporalPattern is one sequential pattern PrefixSpan discovered, with
// its support across the mined population.
type TemporalPattern struct {
	ID            string
	Sequence      []string
	Support       float64
	MemberCount   int
	AvgDurationSecs float64
}

// Sequence is one key's chronologically ordered event history, the unit
// PrefixSpan mines over.
type Sequence struct {
	Key    string
	Events []TimedEvent
}

// TimedEvent is one (timestamp, event type) pair in a Sequence.
type TimedEvent struct {
	At        time.Time
	EventType string
}

// BuildSequences groups timed events by key (typically a member or entity
// identifier) and sorts each group chronologically, ready for PrefixSpan.
func BuildSequences(keyed map[string][]TimedEvent) []Sequence {
	out := make([]Sequence, 0, len(keyed))
	for k, events := range keyed {
		sorted := append([]TimedEvent(nil), events...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })
		out = append(out, Sequence{Key: k, Events: sorted})
	}
	return out
}

type projection struct {
	seqIdx, pos int
}

// PrefixSpan mines frequent sequential patterns out of sequences, using
// the standard projected-database recursion: grow a prefix one item at a
// time, keep only extensions whose support clears the configured
// threshold, and stop once a prefix reaches MaxLength.
func PrefixSpan(sequences []Sequence, cfg PrefixSpanConfig) []TemporalPattern {
	total := len(sequences)
	if total == 0 {
		return nil
	}

	minCount := int(ceilF(cfg.MinSupport * float64(total)))
	if minCount < cfg.MinMembers {
		minCount = cfg.MinMembers
	}

	initial := make([]projection, total)
	for i := range sequences {
		initial[i] = projection{seqIdx: i, pos: 0}
	}

	var patterns []TemporalPattern
	var mine func(prefix []string, proj []projection)
	mine = func(prefix []string, proj []projection) {
		if len(prefix) >= cfg.MaxLength {
			return
		}

		itemProjections := make(map[string][]projection)
		for _, p := range proj {
			seq := sequences[p.seqIdx].Events
			seen := make(map[string]struct{})
			for j := p.pos; j < len(seq); j++ {
				item := seq[j].EventType
				if _, dup := seen[item]; dup {
					continue
				}
				seen[item] = struct{}{}
				itemProjections[item] = append(itemProjections[item], projection{seqIdx: p.seqIdx, pos: j + 1})
			}
		}

		items := make([]string, 0, len(itemProjections))
		for item := range itemProjections {
			items = append(items, item)
		}
		sort.Strings(items)

		for _, item := range items {
			newProj := itemProjections[item]

			uniqueSeqs := make(map[int]struct{}, len(newProj))
			for _, p := range newProj {
				uniqueSeqs[p.seqIdx] = struct{}{}
			}
			if len(uniqueSeqs) < minCount {
				continue
			}

			newPrefix := append(append([]string(nil), prefix...), item)
			if len(newPrefix) >= 2 {
				patterns = append(patterns, TemporalPattern{
					Sequence:    newPrefix,
					MemberCount: len(uniqueSeqs),
					Support:     float64(len(uniqueSeqs)) / float64(total),
					ID:          patternID(newPrefix),
					AvgDurationSecs: avgPatternDuration(newPrefix, uniqueSeqs, sequences),
				})
			}

			deduped := dedupeByFirstSeq(newProj)
			mine(newPrefix, deduped)
		}
	}

	mine(nil, initial)

	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Support != patterns[j].Support {
			return patterns[i].Support > patterns[j].Support
		}
		return len(patterns[i].Sequence) > len(patterns[j].Sequence)
	})
	return patterns
}

func dedupeByFirstSeq(proj []projection) []projection {
	seen := make(map[int]struct{}, len(proj))
	out := make([]projection, 0, len(proj))
	for _, p := range proj {
		if _, dup := seen[p.seqIdx]; dup {
			continue
		}
		seen[p.seqIdx] = struct{}{}
		out = append(out, p)
	}
	return out
}

func avgPatternDuration(pattern []string, members map[int]struct{}, sequences []Sequence) float64 {
	if len(pattern) == 0 || len(members) == 0 {
		return 0
	}
	var totalSecs float64
	var count int
	for idx := range members {
		if d, ok := findPatternDuration(pattern, sequences[idx].Events); ok {
			totalSecs += d
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return totalSecs / float64(count)
}

func findPatternDuration(pattern []string, events []TimedEvent) (float64, bool) {
	if len(pattern) == 0 || len(events) == 0 {
		return 0, false
	}
	idx := 0
	var first, last time.Time
	for _, e := range events {
		if idx < len(pattern) && e.EventType == pattern[idx] {
			if idx == 0 {
				first = e.At
			}
			last = e.At
			idx++
			if idx == len(pattern) {
				break
			}
		}
	}
	if idx != len(pattern) {
		return 0, false
	}
	d := last.Sub(first).Seconds()
	if d < 0 {
		d = -d
	}
	return d, true
}

func patternID(sequence []string) string {
	h := fnv.New64a()
	for _, item := range sequence {
		h.Write([]byte(item))
	}
	return fmt.Sprintf("pat_%016x", h.Sum64())
}

func ceilF(f float64) float64 {
	i := float64(int64(f))
	if f > i {
		return i + 1
	}
	return i
}
