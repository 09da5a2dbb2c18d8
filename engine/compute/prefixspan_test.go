package compute

import (
	"testing"
	"time"
)

func TestPrefixSpanFindsCommonTwoStepPattern(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	keyed := map[string][]TimedEvent{
		"m1": {{At: base, EventType: "login"}, {At: base.Add(time.Minute), EventType: "deposit"}},
		"m2": {{At: base, EventType: "login"}, {At: base.Add(time.Minute), EventType: "deposit"}},
		"m3": {{At: base, EventType: "login"}, {At: base.Add(time.Minute), EventType: "logout"}},
	}
	sequences := BuildSequences(keyed)
	patterns := PrefixSpan(sequences, PrefixSpanConfig{MinSupport: 0.5, MinMembers: 2, MaxLength: 3})

	found := false
	for _, p := range patterns {
		if len(p.Sequence) == 2 && p.Sequence[0] == "login" && p.Sequence[1] == "deposit" {
			found = true
			if p.MemberCount != 2 {
				t.Fatalf("expected support from 2 members, got %d", p.MemberCount)
			}
		}
	}
	if !found {
		t.Fatalf("expected to find login->deposit pattern, got %+v", patterns)
	}
}

func TestPrefixSpanEmptyInput(t *testing.T) {
	if patterns := PrefixSpan(nil, DefaultPrefixSpanConfig()); patterns != nil {
		t.Fatalf("expected nil patterns for empty input, got %+v", patterns)
	}
}
