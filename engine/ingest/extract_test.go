package ingest

import (
	"testing"

	"github.com/trakrail/eisenbahn/pkg/envelope"
)

func fields(kv map[string]string) map[string]envelope.Value {
	m := make(map[string]envelope.Value, len(kv))
	for k, v := range kv {
		m[k] = envelope.Text(v)
	}
	return m
}

func TestLoginExtractsAllPresentEdges(t *testing.T) {
	doc := envelope.NewDocument(EventLogin, fields(map[string]string{
		"member_key":     "alice",
		"device_id":      "dev-1",
		"platform":       "ios",
		"currency":       "USD",
		"vip_group":      "gold",
		"affiliate_code": "aff-9",
	}))

	ops := extractLogin(doc)
	if len(ops.Nodes) != 6 {
		t.Fatalf("expected 6 nodes (member + 5 targets), got %d", len(ops.Nodes))
	}
	if len(ops.Edges) != 5 {
		t.Fatalf("expected 5 edges, got %d", len(ops.Edges))
	}

	wantEdgeTypes := []string{"LoggedInFrom", "PlaysOnPlatform", "UsesCurrency", "BelongsToGroup", "ReferredBy"}
	seen := make(map[string]bool)
	for _, e := range ops.Edges {
		seen[e.EdgeType] = true
		if e.SourceType != "member" || e.SourceKey != "alice" {
			t.Errorf("edge %q has wrong source: %+v", e.EdgeType, e)
		}
	}
	for _, want := range wantEdgeTypes {
		if !seen[want] {
			t.Errorf("missing edge type %q", want)
		}
	}
}

func TestLoginSkipsBlankAndSentinelFields(t *testing.T) {
	doc := envelope.NewDocument(EventLogin, fields(map[string]string{
		"member_key":     "alice",
		"device_id":      "None",
		"platform":       "",
		"currency":       "null",
		"vip_group":      "undefined",
		"affiliate_code": "aff-9",
	}))

	ops := extractLogin(doc)
	if len(ops.Edges) != 1 {
		t.Fatalf("expected only the affiliate edge to survive, got %d: %+v", len(ops.Edges), ops.Edges)
	}
	if ops.Edges[0].EdgeType != "ReferredBy" {
		t.Errorf("expected ReferredBy, got %q", ops.Edges[0].EdgeType)
	}
}

func TestLoginWithoutMemberKeyIsNoOp(t *testing.T) {
	doc := envelope.NewDocument(EventLogin, fields(map[string]string{"device_id": "dev-1"}))
	ops := extractLogin(doc)
	if len(ops.Nodes) != 0 || len(ops.Edges) != 0 {
		t.Errorf("expected no-op without member_key, got %+v", ops)
	}
}

func TestGameOpenedWiresGameAndProvider(t *testing.T) {
	doc := envelope.NewDocument(EventGameOpened, fields(map[string]string{
		"member_key": "alice",
		"game_id":    "slot-42",
		"provider":   "pragmatic",
	}))

	ops := extractGameOpened(doc)
	if len(ops.Nodes) != 3 || len(ops.Edges) != 2 {
		t.Fatalf("expected 3 nodes/2 edges, got %d/%d", len(ops.Nodes), len(ops.Edges))
	}

	var sawOpened, sawProvided bool
	for _, e := range ops.Edges {
		switch e.EdgeType {
		case "OpenedGame":
			sawOpened = true
			if e.SourceKey != "alice" || e.TargetKey != "slot-42" {
				t.Errorf("OpenedGame edge malformed: %+v", e)
			}
		case "ProvidedBy":
			sawProvided = true
			if e.SourceKey != "slot-42" || e.TargetKey != "pragmatic" {
				t.Errorf("ProvidedBy edge malformed: %+v", e)
			}
		}
	}
	if !sawOpened || !sawProvided {
		t.Fatal("expected both OpenedGame and ProvidedBy edges")
	}
}

func TestGameOpenedWithoutProviderOmitsEdge(t *testing.T) {
	doc := envelope.NewDocument(EventGameOpened, fields(map[string]string{
		"member_key": "alice",
		"game_id":    "slot-42",
	}))
	ops := extractGameOpened(doc)
	if len(ops.Edges) != 1 || ops.Edges[0].EdgeType != "OpenedGame" {
		t.Fatalf("expected only OpenedGame, got %+v", ops.Edges)
	}
}

func TestAPIErrorKeyWithStatus(t *testing.T) {
	doc := envelope.NewDocument(EventAPIError, fields(map[string]string{
		"member_key": "alice",
		"status":     "500",
		"url":        "/api/spin",
	}))
	ops := extractAPIError(doc)
	if len(ops.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(ops.Edges))
	}
	if got, want := ops.Edges[0].TargetKey, "error:500:/api/spin"; got != want {
		t.Errorf("error key = %q, want %q", got, want)
	}
	if ops.Edges[0].EdgeType != "HitError" {
		t.Errorf("expected HitError edge type, got %q", ops.Edges[0].EdgeType)
	}
}

func TestAPIErrorKeyWithoutStatus(t *testing.T) {
	doc := envelope.NewDocument(EventAPIError, fields(map[string]string{
		"member_key": "alice",
		"url":        "/api/spin",
	}))
	ops := extractAPIError(doc)
	if got, want := ops.Edges[0].TargetKey, "error:/api/spin"; got != want {
		t.Errorf("error key = %q, want %q", got, want)
	}
}

func TestAPIErrorWithoutURLIsNoOp(t *testing.T) {
	doc := envelope.NewDocument(EventAPIError, fields(map[string]string{"member_key": "alice"}))
	ops := extractAPIError(doc)
	if len(ops.Nodes) != 0 || len(ops.Edges) != 0 {
		t.Errorf("expected no-op without url, got %+v", ops)
	}
}

func TestIsBlankRecognizesSentinels(t *testing.T) {
	for _, s := range []string{"", "None", "null", "undefined"} {
		if !isBlank(s) {
			t.Errorf("expected %q to be blank", s)
		}
	}
	if isBlank("alice") {
		t.Error("expected a real value to not be blank")
	}
}
