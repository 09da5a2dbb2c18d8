// Package ingest turns raw Documents into graph operations and replays
// them into the shared graph: per-event-type extraction runs in
// parallel since each document is transformed independently, then the
// resulting ops replay onto a single-threaded graphstore.Store so edges
// always see their endpoints already upserted.
package ingest

import (
	"log/slog"
	"strings"

	"github.com/trakrail/eisenbahn/internal/graphstore"
	"github.com/trakrail/eisenbahn/pkg/envelope"
)

// Event type names this package knows how to extract. Any event type
// not registered here passes through Extractor.ExtractAll as a no-op.
const (
	EventLogin      = "Login"
	EventGameOpened = "GameOpened"
	EventAPIError   = "APIError"
)

// sentinel values that mean "no value", carried over documents the same
// way a missing/blank field would in the upstream event stream.
var blankValues = map[string]struct{}{
	"":          {},
	"None":      {},
	"null":      {},
	"undefined": {},
}

func isBlank(s string) bool {
	_, blank := blankValues[s]
	return blank
}

func fieldText(doc envelope.Document, key string) (string, bool) {
	v, ok := doc.Fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.AsText()
	if !ok || isBlank(s) {
		return "", false
	}
	return s, true
}

// NewExtractor builds a graphstore.Extractor with every event type this
// package knows about registered: Login, GameOpened, APIError. Callers
// can Register additional event-type extractors on the result before
// running ExtractAll.
func NewExtractor(log *slog.Logger) *graphstore.Extractor {
	x := graphstore.NewExtractor(log)
	x.Register(EventLogin, extractLogin)
	x.Register(EventGameOpened, extractGameOpened)
	x.Register(EventAPIError, extractAPIError)
	return x
}

// extractLogin wires a member login event to its device, platform,
// currency, VIP group, and referring affiliate — any of which may be
// absent on a given document.
func extractLogin(doc envelope.Document) graphstore.GraphOps {
	member, ok := fieldText(doc, "member_key")
	if !ok {
		return graphstore.GraphOps{}
	}

	var ops graphstore.GraphOps
	ops.Nodes = append(ops.Nodes, graphstore.NodeOp{EntityType: "member", Key: member})

	type edgeField struct {
		field, targetType, edgeType string
	}
	for _, ef := range []edgeField{
		{"device_id", "device", "LoggedInFrom"},
		{"platform", "platform", "PlaysOnPlatform"},
		{"currency", "currency", "UsesCurrency"},
		{"vip_group", "vip_group", "BelongsToGroup"},
		{"affiliate_code", "affiliate", "ReferredBy"},
	} {
		target, ok := fieldText(doc, ef.field)
		if !ok {
			continue
		}
		ops.Nodes = append(ops.Nodes, graphstore.NodeOp{EntityType: ef.targetType, Key: target})
		ops.Edges = append(ops.Edges, graphstore.EdgeOp{
			SourceType: "member", SourceKey: member,
			TargetType: ef.targetType, TargetKey: target,
			EdgeType: ef.edgeType,
		})
	}
	return ops
}

// extractGameOpened wires a member to the game it opened, and the game
// to its provider as a separate node op (the provider relationship is
// intrinsic to the game, not the member, so it's emitted every time the
// game is seen rather than only on first sight — Apply's upsert is
// idempotent so repetition is harmless).
func extractGameOpened(doc envelope.Document) graphstore.GraphOps {
	member, ok := fieldText(doc, "member_key")
	if !ok {
		return graphstore.GraphOps{}
	}
	game, ok := fieldText(doc, "game_id")
	if !ok {
		return graphstore.GraphOps{}
	}

	ops := graphstore.GraphOps{
		Nodes: []graphstore.NodeOp{
			{EntityType: "member", Key: member},
			{EntityType: "game", Key: game},
		},
		Edges: []graphstore.EdgeOp{{
			SourceType: "member", SourceKey: member,
			TargetType: "game", TargetKey: game,
			EdgeType: "OpenedGame",
		}},
	}

	if provider, ok := fieldText(doc, "provider"); ok {
		ops.Nodes = append(ops.Nodes, graphstore.NodeOp{EntityType: "provider", Key: provider})
		ops.Edges = append(ops.Edges, graphstore.EdgeOp{
			SourceType: "game", SourceKey: game,
			TargetType: "provider", TargetKey: provider,
			EdgeType: "ProvidedBy",
		})
	}
	return ops
}

// extractAPIError wires a member to an error key derived from the
// failing request: "error:<status>:<url>" when a status is present,
// "error:<url>" otherwise.
func extractAPIError(doc envelope.Document) graphstore.GraphOps {
	member, ok := fieldText(doc, "member_key")
	if !ok {
		return graphstore.GraphOps{}
	}
	url, ok := fieldText(doc, "url")
	if !ok {
		return graphstore.GraphOps{}
	}

	var errorKey string
	if status, ok := fieldText(doc, "status"); ok {
		errorKey = "error:" + status + ":" + url
	} else {
		errorKey = "error:" + url
	}
	errorKey = strings.TrimSpace(errorKey)

	return graphstore.GraphOps{
		Nodes: []graphstore.NodeOp{
			{EntityType: "member", Key: member},
			{EntityType: "error", Key: errorKey},
		},
		Edges: []graphstore.EdgeOp{{
			SourceType: "member", SourceKey: member,
			TargetType: "error", TargetKey: errorKey,
			EdgeType: "HitError",
		}},
	}
}
