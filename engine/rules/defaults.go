package rules

// DefaultRules returns a small built-in rule set used when no external
// rule source is wired. Rule values are plain struct literals — this
// package parses no rule authoring format, so whatever supplies rules in
// production must hand over AnomalyRule values it already built.
func DefaultRules() []AnomalyRule {
	minScore := 0.6
	return []AnomalyRule{
		{
			APIVersion: "v1",
			Kind:       "AnomalyRule",
			Metadata: Metadata{
				ID:      "graph-anomaly-default",
				Name:    "Graph structural anomaly",
				Enabled: true,
				Tags:    []string{"graph", "structural"},
			},
			Schedule: Schedule{Cron: "*/5 * * * *", Cooldown: "30m"},
			Detection: Detection{
				Compose: &Composition{
					Operator: OpOr,
					Conditions: []Condition{
						{Signal: "graph_anomaly", Threshold: 0.75},
					},
				},
			},
			Filters: &Filters{MinScore: &minScore},
			Notify:  []NotifyBinding{{Channel: "default", On: []string{"match"}}},
		},
	}
}
