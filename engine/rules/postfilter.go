package rules

// applyFilters narrows detection matches by entity type, minimum score,
// excluded keys, and feature-level where-conditions, in that order. A nil
// Filters is a no-op. featureIndex resolves a feature name to its position
// in EntityData.Features; an unresolvable name excludes the entity rather
// than silently passing it.
func applyFilters(matches []RuleMatch, filters *Filters, entities map[string]EntityData, featureIndex func(string) (int, bool)) []RuleMatch {
	if filters == nil {
		return matches
	}

	out := make([]RuleMatch, 0, len(matches))
	for _, m := range matches {
		if filters.EntityTypes != nil && !containsStr(filters.EntityTypes, m.EntityType) {
			continue
		}
		if filters.MinScore != nil && m.Score < *filters.MinScore {
			continue
		}
		if filters.ExcludeKeys != nil && containsStr(filters.ExcludeKeys, m.EntityKey) {
			continue
		}
		if len(filters.Conditions) > 0 {
			data, ok := entities[m.EntityID]
			if !ok {
				continue
			}
			if !matchesConditions(data, filters.Conditions, featureIndex) {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}

func matchesConditions(data EntityData, conditions map[string]FilterCondition, featureIndex func(string) (int, bool)) bool {
	for name, cond := range conditions {
		idx, ok := featureIndex(name)
		if !ok || idx < 0 || idx >= len(data.Features) {
			return false
		}
		if !cond.Matches(data.Features[idx]) {
			return false
		}
	}
	return true
}

func containsStr(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
