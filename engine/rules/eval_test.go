package rules

import "testing"

func testFeatureIndex(name string) (int, bool) {
	switch name {
	case "login_count":
		return 0, true
	case "session_length":
		return 1, true
	default:
		return 0, false
	}
}

func zeroFeatures() []float64 {
	return make([]float64, 2)
}

func makeEntity(key string, features []float64) EntityData {
	return EntityData{Key: key, EntityType: "Member", Features: features, Score: 0.7}
}

func makeSignalScores(scores map[string]float64) SignalScores {
	return SignalScores{Scores: scores}
}

func TestEvaluateCompositionRule(t *testing.T) {
	rule := AnomalyRule{
		Metadata: Metadata{ID: "test-compose", Name: "Test Compose", Enabled: true},
		Schedule: Schedule{Cron: "* * * * *"},
		Detection: Detection{
			Compose: &Composition{
				Operator: OpAnd,
				Conditions: []Condition{
					{Signal: "z_score", Threshold: 2.0},
					{Signal: "dbscan_noise", Threshold: 0.5},
				},
			},
		},
	}

	entities := map[string]EntityData{
		"e1": makeEntity("M001", zeroFeatures()),
		"e2": makeEntity("M002", zeroFeatures()),
	}
	signalScores := map[string]SignalScores{
		"e1": makeSignalScores(map[string]float64{"z_score": 3.0, "dbscan_noise": 0.8}),
		"e2": makeSignalScores(map[string]float64{"z_score": 3.0, "dbscan_noise": 0.3}),
	}

	ev := NewEvaluator(testFeatureIndex)
	results, err := ev.Evaluate(rule, entities, nil, signalScores)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %d", len(results))
	}
	if results[0].EntityKey != "M001" {
		t.Errorf("matched entity key = %q, want M001", results[0].EntityKey)
	}
}

func TestEvaluateDisabledRuleReturnsEmpty(t *testing.T) {
	rule := AnomalyRule{
		Metadata: Metadata{ID: "disabled", Name: "Disabled Rule", Enabled: false},
		Schedule: Schedule{Cron: "* * * * *"},
		Detection: Detection{
			Compose: &Composition{
				Operator:   OpAnd,
				Conditions: []Condition{{Signal: "z_score", Threshold: 0.0}},
			},
		},
	}

	entities := map[string]EntityData{"e1": makeEntity("M001", zeroFeatures())}
	signalScores := map[string]SignalScores{"e1": makeSignalScores(map[string]float64{"z_score": 5.0})}

	ev := NewEvaluator(testFeatureIndex)
	results, err := ev.Evaluate(rule, entities, nil, signalScores)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no matches for a disabled rule, got %d", len(results))
	}
}

func TestEvaluateTemplateRule(t *testing.T) {
	rule := AnomalyRule{
		Metadata: Metadata{ID: "threshold-test", Name: "Threshold Test", Enabled: true},
		Schedule: Schedule{Cron: "* * * * *"},
		Detection: Detection{
			Template: string(TemplateThreshold),
			Params: map[string]any{
				"feature":  "login_count",
				"operator": "gte",
				"value":    50.0,
			},
		},
	}

	feat1 := zeroFeatures()
	feat1[0] = 60.0
	feat1[1] = 10.0
	feat2 := zeroFeatures()
	feat2[0] = 10.0
	feat2[1] = 5.0

	entities := map[string]EntityData{
		"e1": makeEntity("M001", feat1),
		"e2": makeEntity("M002", feat2),
	}

	ev := NewEvaluator(testFeatureIndex)
	results, err := ev.Evaluate(rule, entities, nil, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %d", len(results))
	}
	if results[0].EntityKey != "M001" {
		t.Errorf("matched entity key = %q, want M001", results[0].EntityKey)
	}
}

func TestSignalScoresLookup(t *testing.T) {
	scores := makeSignalScores(map[string]float64{
		"z_score":              3.5,
		"dbscan_noise":         0.7,
		"behavioral_deviation": 0.9,
		"graph_anomaly":        0.6,
	})

	cases := []struct {
		signal string
		want   float64
	}{
		{"z_score", 3.5},
		{"dbscan_noise", 0.7},
		{"behavioral_deviation", 0.9},
		{"graph_anomaly", 0.6},
	}
	for _, c := range cases {
		v, ok := scores.Get(c.signal)
		if !ok {
			t.Errorf("signal %q not found", c.signal)
			continue
		}
		if v != c.want {
			t.Errorf("signal %q = %v, want %v", c.signal, v, c.want)
		}
	}
}

func TestNoDetectionReturnsError(t *testing.T) {
	rule := AnomalyRule{
		APIVersion: "v1",
		Kind:       "AnomalyRule",
		Metadata:   Metadata{ID: "empty", Name: "No Detection", Enabled: true},
		Schedule:   Schedule{Cron: "* * * * *"},
	}

	ev := NewEvaluator(testFeatureIndex)
	_, err := ev.Evaluate(rule, nil, nil, nil)
	if err == nil {
		t.Error("expected an error for a rule with neither template nor compose")
	}
}
