package rules

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func intPtr(n int) *int { return &n }

func TestHitBoundsMinOnly(t *testing.T) {
	if !evaluateHitBounds(20, intPtr(10), nil) {
		t.Error("20 hits should satisfy min_hits=10")
	}
	if !evaluateHitBounds(10, intPtr(10), nil) {
		t.Error("10 hits should satisfy min_hits=10 (inclusive)")
	}
	if evaluateHitBounds(5, intPtr(10), nil) {
		t.Error("5 hits should fail min_hits=10")
	}
}

func TestHitBoundsMaxOnly(t *testing.T) {
	if !evaluateHitBounds(5, nil, intPtr(10)) {
		t.Error("5 hits should satisfy max_hits=10")
	}
	if !evaluateHitBounds(10, nil, intPtr(10)) {
		t.Error("10 hits should satisfy max_hits=10 (inclusive)")
	}
	if evaluateHitBounds(15, nil, intPtr(10)) {
		t.Error("15 hits should fail max_hits=10")
	}
}

func TestHitBoundsBoth(t *testing.T) {
	if !evaluateHitBounds(15, intPtr(10), intPtr(20)) {
		t.Error("15 hits should satisfy [10,20]")
	}
	if evaluateHitBounds(5, intPtr(10), intPtr(20)) {
		t.Error("5 hits should fail [10,20]")
	}
	if evaluateHitBounds(25, intPtr(10), intPtr(20)) {
		t.Error("25 hits should fail [10,20]")
	}
}

func TestHitBoundsNeither(t *testing.T) {
	if !evaluateHitBounds(1, nil, nil) {
		t.Error("1 hit with no bounds should pass")
	}
	if evaluateHitBounds(0, nil, nil) {
		t.Error("0 hits with no bounds should fail")
	}
}

func TestResolveTemplatesInQuery(t *testing.T) {
	var query map[string]any
	raw := `{
		"bool": {
			"must": [
				{ "term": { "memberCode.keyword": "{{ anomaly.key }}" } },
				{ "term": { "entityType": "{{anomaly.entity_type}}" } }
			]
		}
	}`
	if err := json.Unmarshal([]byte(raw), &query); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	match := RuleMatch{
		EntityID:   "uuid-123",
		EntityKey:  "M0042",
		EntityType: "Member",
		Score:      0.9,
	}

	resolved := resolveQueryTemplates(query, match)
	out, err := json.Marshal(resolved)
	if err != nil {
		t.Fatalf("marshal resolved: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "M0042") {
		t.Error("expected resolved query to contain M0042")
	}
	if !strings.Contains(s, "Member") {
		t.Error("expected resolved query to contain Member")
	}
	if strings.Contains(s, "{{ anomaly.key }}") {
		t.Error("placeholder should have been substituted")
	}
}

func TestEnrichmentResultSkippedIsPass(t *testing.T) {
	result := Skipped()
	if !result.Passed {
		t.Error("skipped result should pass (fail-open)")
	}
	if result.HitCount != 0 {
		t.Errorf("expected hit count 0, got %d", result.HitCount)
	}
}

func TestDisabledEngineSkipsEnrichment(t *testing.T) {
	engine := Disabled()
	cfg := OpenSearchEnrichment{
		Query:     map[string]any{"match_all": map[string]any{}},
		MinHits:   intPtr(1),
		RateLimit: 60,
		TimeoutMS: intPtr(5000),
	}
	match := RuleMatch{EntityID: "e1", EntityKey: "M001", EntityType: "Member", Score: 0.9}

	result := engine.Enrich(context.Background(), "rule-1", cfg, match)
	if !result.Passed {
		t.Error("disabled engine should pass (fail-open)")
	}
}

type mockClient struct {
	result SearchResult
	err    error
}

func (m mockClient) Search(ctx context.Context, queryBody map[string]any, timeoutMS int64) (SearchResult, error) {
	if m.err != nil {
		return SearchResult{}, m.err
	}
	return m.result, nil
}

func TestMockEnrichmentWithHits(t *testing.T) {
	engine := New(mockClient{result: SearchResult{
		TotalHits:  25,
		SampleHits: []map[string]any{{"_id": "1"}, {"_id": "2"}},
		TookMS:     42,
	}})
	cfg := OpenSearchEnrichment{
		Query:     map[string]any{"match_all": map[string]any{}},
		MinHits:   intPtr(20),
		RateLimit: 60,
		TimeoutMS: intPtr(5000),
	}
	match := RuleMatch{EntityID: "e1", EntityKey: "M0042", EntityType: "Member", Score: 0.9}

	result := engine.Enrich(context.Background(), "rule-1", cfg, match)
	if !result.Passed {
		t.Error("25 hits should satisfy min_hits=20")
	}
	if result.HitCount != 25 {
		t.Errorf("expected hit count 25, got %d", result.HitCount)
	}
	if len(result.SampleHits) != 2 {
		t.Errorf("expected 2 sample hits, got %d", len(result.SampleHits))
	}
	if result.QueryTimeMS != 42 {
		t.Errorf("expected query time 42ms, got %d", result.QueryTimeMS)
	}
}

func TestMockEnrichmentBelowMinHits(t *testing.T) {
	engine := New(mockClient{result: SearchResult{TotalHits: 3, TookMS: 10}})
	cfg := OpenSearchEnrichment{
		Query:     map[string]any{"match_all": map[string]any{}},
		MinHits:   intPtr(20),
		RateLimit: 60,
	}
	match := RuleMatch{EntityID: "e1", EntityKey: "M001", EntityType: "Member", Score: 0.9}

	result := engine.Enrich(context.Background(), "rule-1", cfg, match)
	if result.Passed {
		t.Error("3 hits should fail min_hits=20")
	}
}

func TestMockEnrichmentTimeoutSkips(t *testing.T) {
	engine := New(mockClient{err: errors.New("timeout")})
	cfg := OpenSearchEnrichment{
		Query:     map[string]any{"match_all": map[string]any{}},
		MinHits:   intPtr(1),
		RateLimit: 60,
		TimeoutMS: intPtr(1000),
	}
	match := RuleMatch{EntityID: "e1", EntityKey: "M001", EntityType: "Member", Score: 0.9}

	result := engine.Enrich(context.Background(), "rule-1", cfg, match)
	if !result.Passed {
		t.Error("timeout should fail-open")
	}
}

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	engine := New(mockClient{result: SearchResult{TotalHits: 1}})
	cfg := OpenSearchEnrichment{
		Query:     map[string]any{"match_all": map[string]any{}},
		RateLimit: 3,
	}
	match := RuleMatch{EntityID: "e1", EntityKey: "M001", EntityType: "Member"}

	for i := 0; i < 3; i++ {
		result := engine.Enrich(context.Background(), "rule-limited", cfg, match)
		if result.HitCount != 1 {
			t.Errorf("call %d: expected a real query to run, got skipped result", i)
		}
	}
	result := engine.Enrich(context.Background(), "rule-limited", cfg, match)
	if result.HitCount != 0 || !result.Passed {
		t.Error("4th call within the same burst window should be rate-limited (skipped, fail-open)")
	}
}
