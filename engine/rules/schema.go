// Package rules evaluates anomaly-detection rules against entity feature
// data and pre-computed signal scores, matching entities whose detection
// logic fires and whose post-filters pass. Rules arrive as pre-built
// AnomalyRule values — whatever authoring surface produces them (a
// config-management pipeline, a generated manifest) is a deployment
// concern outside this package.
package rules

import (
	"fmt"
	"strings"
)

// AnomalyRule is one anomaly detection rule.
type AnomalyRule struct {
	APIVersion string
	Kind       string
	Metadata   Metadata
	Schedule   Schedule
	Detection  Detection
	Filters    *Filters
	Notify     []NotifyBinding
}

// Metadata is the rule's identity and enable switch.
type Metadata struct {
	ID          string
	Name        string
	Description string
	Tags        []string
	Enabled     bool
}

// Schedule controls when a rule runs and how long it suppresses repeat
// firings for the same entity after a match.
type Schedule struct {
	Cron     string
	Timezone string
	Cooldown string
}

// DetectionTemplate names a built-in detector.
type DetectionTemplate string

const (
	TemplateSpike     DetectionTemplate = "spike"
	TemplateDrift     DetectionTemplate = "drift"
	TemplateAbsence   DetectionTemplate = "absence"
	TemplateThreshold DetectionTemplate = "threshold"
)

func parseTemplate(s string) (DetectionTemplate, error) {
	switch DetectionTemplate(s) {
	case TemplateSpike, TemplateDrift, TemplateAbsence, TemplateThreshold:
		return DetectionTemplate(s), nil
	default:
		return "", fmt.Errorf("rules: unknown detection template %q", s)
	}
}

// Detection holds exactly one of Template (with Params) or Compose; Evaluate
// rejects a rule with neither.
type Detection struct {
	Template string
	Params   map[string]any
	Compose  *Composition
	Enrich   *Enrichment
}

// LogicalOperator combines child conditions in a Composition tree.
type LogicalOperator string

const (
	OpAnd LogicalOperator = "and"
	OpOr  LogicalOperator = "or"
	OpNot LogicalOperator = "not"
)

// Composition is one interior node of a boolean composition tree.
type Composition struct {
	Operator   LogicalOperator
	Conditions []Condition
}

// Condition is either a leaf (Signal set) or a nested Composition.
type Condition struct {
	// Leaf fields.
	Signal    string
	Threshold float64

	// Nested composition fields — present when Signal is empty.
	Operator   LogicalOperator
	Conditions []Condition
}

// IsLeaf reports whether c is a signal/threshold leaf rather than a nested
// sub-composition.
func (c Condition) IsLeaf() bool {
	return c.Signal != ""
}

// AsComposition views a nested Condition as a Composition.
func (c Condition) AsComposition() Composition {
	return Composition{Operator: c.Operator, Conditions: c.Conditions}
}

// Filters narrows detection results after the fact.
type Filters struct {
	EntityTypes     []string
	Classifications []string
	MinScore        *float64
	ExcludeKeys     []string
	Conditions      map[string]FilterCondition
}

// FilterCondition is a single feature-value comparison used by Filters.Conditions.
type FilterCondition struct {
	GT  *float64
	GTE *float64
	LT  *float64
	LTE *float64
	EQ  *float64
	NEQ *float64
}

// Matches reports whether v satisfies every bound set on c.
func (c FilterCondition) Matches(v float64) bool {
	if c.GT != nil && !(v > *c.GT) {
		return false
	}
	if c.GTE != nil && !(v >= *c.GTE) {
		return false
	}
	if c.LT != nil && !(v < *c.LT) {
		return false
	}
	if c.LTE != nil && !(v <= *c.LTE) {
		return false
	}
	if c.EQ != nil && v != *c.EQ {
		return false
	}
	if c.NEQ != nil && v == *c.NEQ {
		return false
	}
	return true
}

// NotifyBinding wires a matched rule to a notification channel. Extra
// captures channel-specific fields (url/method for webhook, bot_token/
// chat_id/parse_mode for telegram, ...) that vary per channel type and
// aren't worth a struct field each.
type NotifyBinding struct {
	Channel string
	On      []string
	Extra   map[string]any
}

// Enrichment is the rule's optional post-detection confirmation query.
type Enrichment struct {
	OpenSearch *OpenSearchEnrichment
}

// OpenSearchEnrichment configures a confirmation query against OpenSearch.
type OpenSearchEnrichment struct {
	Query     map[string]any
	MinHits   *int
	MaxHits   *int
	RateLimit int
	TimeoutMS *int
}

// EntityData is one entity's current feature snapshot, as fed to template
// and filter evaluation.
type EntityData struct {
	Key        string
	EntityType string
	Features   []float64
	Score      float64
	ClusterID  *int
}

// ClusterStats summarizes one cluster, used by the spike/drift templates'
// baseline comparisons.
type ClusterStats struct {
	Centroid []float64
	Stddev   []float64
	Count    int
}

// RuleMatch is one entity that a rule's detection logic fired on.
type RuleMatch struct {
	EntityID      string
	EntityKey     string
	EntityType    string
	Score         float64
	Signals       []string
	MatchedReason string
}

// Validate checks structural well-formedness: an id, exactly one
// detection mode, params present for template mode, and a valid
// schedule.
func (r AnomalyRule) Validate() error {
	if r.Metadata.ID == "" {
		return fmt.Errorf("rules: metadata.id is required")
	}
	hasTemplate := r.Detection.Template != ""
	hasCompose := r.Detection.Compose != nil
	if !hasTemplate && !hasCompose {
		return fmt.Errorf("rules: detection must have either template or compose")
	}
	if hasTemplate {
		if _, err := parseTemplate(r.Detection.Template); err != nil {
			return err
		}
		if r.Detection.Params == nil {
			return fmt.Errorf("rules: template detection requires params")
		}
	}
	if strings.TrimSpace(r.Schedule.Cron) == "" {
		return fmt.Errorf("rules: schedule.cron is required")
	}
	return ValidateSchedule(r.Schedule)
}
