package rules

// SignalScores are an entity's pre-computed anomaly signal scores, keyed
// by signal name ("z_score", "dbscan_noise", "behavioral_deviation",
// "graph_anomaly") exactly as engine/compute.SignalType.Key() renders
// them.
type SignalScores struct {
	Scores map[string]float64
}

// Get looks up one signal's score.
func (s SignalScores) Get(signal string) (float64, bool) {
	v, ok := s.Scores[signal]
	return v, ok
}

// evaluateComposition walks a boolean expression tree of signal/threshold
// leaves, returning the entity keys whose signals satisfy the tree.
// Unknown entities (no SignalScores entry) contribute no matches but don't
// error the whole evaluation — absence of data isn't malformed input.
func evaluateComposition(comp Composition, entities map[string]EntityData, scores map[string]SignalScores) []RuleMatch {
	var matches []RuleMatch
	for id, entity := range entities {
		sig, ok := scores[id]
		if !ok {
			sig = SignalScores{}
		}
		if evalNode(comp, sig) {
			matches = append(matches, RuleMatch{
				EntityID:      id,
				EntityKey:     entity.Key,
				EntityType:    entity.EntityType,
				Score:         entity.Score,
				MatchedReason: "composition",
			})
		}
	}
	return matches
}

func evalNode(comp Composition, sig SignalScores) bool {
	switch comp.Operator {
	case OpAnd:
		for _, c := range comp.Conditions {
			if !evalCondition(c, sig) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range comp.Conditions {
			if evalCondition(c, sig) {
				return true
			}
		}
		return false
	case OpNot:
		if len(comp.Conditions) == 0 {
			return false
		}
		return !evalCondition(comp.Conditions[0], sig)
	default:
		return false
	}
}

func evalCondition(c Condition, sig SignalScores) bool {
	if c.IsLeaf() {
		v, ok := sig.Get(c.Signal)
		if !ok {
			return false
		}
		return v >= c.Threshold
	}
	return evalNode(c.AsComposition(), sig)
}
