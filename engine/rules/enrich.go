package rules

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/trakrail/eisenbahn/pkg/resilience"
)

// SearchResult is the outcome of one OpenSearch confirmation query.
type SearchResult struct {
	TotalHits  int
	SampleHits []map[string]any
	TookMS     int64
}

// Client abstracts the actual OpenSearch HTTP client so this package
// carries no SDK dependency of its own — the caller wires a concrete
// implementation (backed by opensearch-go) at startup.
type Client interface {
	Search(ctx context.Context, queryBody map[string]any, timeoutMS int64) (SearchResult, error)
}

// EnrichmentResult is the pass/fail outcome of one enrichment attempt,
// including the evidence gathered for notification payloads.
type EnrichmentResult struct {
	Passed      bool
	HitCount    int
	SampleHits  []map[string]any
	QueryTimeMS int64
}

// Skipped builds a fail-open result: enrichment was not attempted (engine
// disabled, rule has no enrichment configured, rate-limited, or the query
// itself errored/timed out), so the match is passed through unconfirmed
// rather than dropped.
func Skipped() EnrichmentResult {
	return EnrichmentResult{Passed: true}
}

// Engine runs optional OpenSearch confirmation queries after a rule's
// detection logic fires, rate-limited independently per rule.
type Engine struct {
	client Client

	mu       sync.Mutex
	limiters map[string]*resilience.Limiter
}

// Disabled builds an engine with no backing client; every enrichment call
// fails open (passes) without attempting a query. Use this when OpenSearch
// isn't configured for a deployment.
func Disabled() *Engine {
	return &Engine{}
}

// New builds an engine backed by client, rate-limiting each rule
// independently.
func New(client Client) *Engine {
	return &Engine{client: client, limiters: make(map[string]*resilience.Limiter)}
}

// Enrich runs cfg's confirmation query for match, scoped to ruleID's rate
// limit. Every failure mode — no client configured, rate limited, search
// error, timeout — fails open: the match is passed through, not dropped,
// since enrichment only narrows confidence, it never is the detection
// itself.
func (e *Engine) Enrich(ctx context.Context, ruleID string, cfg OpenSearchEnrichment, match RuleMatch) EnrichmentResult {
	if e.client == nil {
		return Skipped()
	}

	limiter := e.limiterFor(ruleID, cfg.RateLimit)
	if !limiter.Allow() {
		return Skipped()
	}

	timeoutMS := int64(5000)
	if cfg.TimeoutMS != nil {
		timeoutMS = int64(*cfg.TimeoutMS)
	}

	query := resolveQueryTemplates(cfg.Query, match)

	qctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMS)*time.Millisecond)
	defer cancel()

	result, err := e.client.Search(qctx, query, timeoutMS)
	if err != nil {
		return Skipped()
	}

	passed := evaluateHitBounds(result.TotalHits, cfg.MinHits, cfg.MaxHits)
	return EnrichmentResult{
		Passed:      passed,
		HitCount:    result.TotalHits,
		SampleHits:  result.SampleHits,
		QueryTimeMS: result.TookMS,
	}
}

func (e *Engine) limiterFor(ruleID string, ratePerMinute int) *resilience.Limiter {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.limiters[ruleID]; ok {
		return l
	}
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}
	l := resilience.NewLimiter(resilience.LimiterOpts{
		Rate:  float64(ratePerMinute) / 60.0,
		Burst: ratePerMinute,
	})
	e.limiters[ruleID] = l
	return l
}

// evaluateHitBounds reports whether count satisfies the configured
// min/max hit bounds. Neither bound set requires at least one hit.
func evaluateHitBounds(count int, min, max *int) bool {
	if min == nil && max == nil {
		return count > 0
	}
	if min != nil && count < *min {
		return false
	}
	if max != nil && count > *max {
		return false
	}
	return true
}

// resolveQueryTemplates substitutes "{{ anomaly.key }}" / "{{anomaly.entity_type}}"
// (and entity_id / score) placeholders anywhere a string value appears in
// query, against match's fields. Whitespace inside the braces is optional.
func resolveQueryTemplates(query map[string]any, match RuleMatch) map[string]any {
	vars := map[string]string{
		"anomaly.key":         match.EntityKey,
		"anomaly.entity_type": match.EntityType,
		"anomaly.entity_id":   match.EntityID,
		"anomaly.reason":      match.MatchedReason,
	}
	return resolveValue(query, vars).(map[string]any)
}

func resolveValue(v any, vars map[string]string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = resolveValue(child, vars)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = resolveValue(child, vars)
		}
		return out
	case string:
		return resolveTemplateString(val, vars)
	default:
		return v
	}
}

func resolveTemplateString(s string, vars map[string]string) string {
	for name, value := range vars {
		for _, placeholder := range []string{
			fmt.Sprintf("{{ %s }}", name),
			fmt.Sprintf("{{%s}}", name),
		} {
			s = strings.ReplaceAll(s, placeholder, value)
		}
	}
	return s
}
