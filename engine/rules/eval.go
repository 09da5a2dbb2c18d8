package rules

import "fmt"

// Evaluator runs AnomalyRules against a snapshot of entity data and
// pre-computed signal scores. FeatureIndex resolves a feature name (as
// referenced in a rule's params or filter conditions) to its position in
// EntityData.Features; it's supplied by the caller rather than hardcoded,
// since the feature vector layout is deployment-specific configuration.
type Evaluator struct {
	FeatureIndex func(name string) (int, bool)
}

// NewEvaluator builds an Evaluator bound to a feature-name resolver.
func NewEvaluator(featureIndex func(name string) (int, bool)) *Evaluator {
	return &Evaluator{FeatureIndex: featureIndex}
}

// Evaluate runs rule's detection logic (template or composition) and then
// its post-detection filters, returning every entity that matched both.
// A disabled rule returns (nil, nil) immediately. A rule with neither
// template nor compose in its detection is a validation error.
func (ev *Evaluator) Evaluate(
	rule AnomalyRule,
	entities map[string]EntityData,
	clusterStats map[int]ClusterStats,
	signalScores map[string]SignalScores,
) ([]RuleMatch, error) {
	if !rule.Metadata.Enabled {
		return nil, nil
	}

	var matches []RuleMatch
	switch {
	case rule.Detection.Template != "":
		tpl, err := parseTemplate(rule.Detection.Template)
		if err != nil {
			return nil, err
		}
		if rule.Detection.Params == nil {
			return nil, fmt.Errorf("rules: template detection requires params")
		}
		matches, err = evaluateTemplate(tpl, rule.Detection.Params, entities, clusterStats, ev.FeatureIndex)
		if err != nil {
			return nil, err
		}
	case rule.Detection.Compose != nil:
		matches = evaluateComposition(*rule.Detection.Compose, entities, signalScores)
	default:
		return nil, fmt.Errorf("rules: rule must have either template or compose in detection")
	}

	return applyFilters(matches, rule.Filters, entities, ev.FeatureIndex), nil
}
