package compute

import (
	"testing"

	"github.com/trakrail/eisenbahn/internal/graphstore"
)

func TestLabelPropagationGroupsDenseCliques(t *testing.T) {
	g := graphstore.New()
	a := g.UpsertNode("member", "a", "t")
	b := g.UpsertNode("member", "b", "t")
	c := g.UpsertNode("member", "c", "t")
	g.AddEdge(a, b, "knows", "t")
	g.AddEdge(b, c, "knows", "t")
	g.AddEdge(c, a, "knows", "t")

	x := g.UpsertNode("member", "x", "t")
	y := g.UpsertNode("member", "y", "t")
	z := g.UpsertNode("member", "z", "t")
	g.AddEdge(x, y, "knows", "t")
	g.AddEdge(y, z, "knows", "t")
	g.AddEdge(z, x, "knows", "t")

	labels := LabelPropagation(g, DefaultCommunityConfig())
	if labels[a] != labels[b] || labels[b] != labels[c] {
		t.Fatalf("expected a,b,c in same community, got %v %v %v", labels[a], labels[b], labels[c])
	}
	if labels[x] != labels[y] || labels[y] != labels[z] {
		t.Fatalf("expected x,y,z in same community, got %v %v %v", labels[x], labels[y], labels[z])
	}
	if labels[a] == labels[x] {
		t.Fatalf("expected the two cliques to land in different communities")
	}
}

func TestLabelPropagationIsolatedNodeKeepsOwnCommunity(t *testing.T) {
	g := graphstore.New()
	a := g.UpsertNode("member", "a", "t")
	labels := LabelPropagation(g, DefaultCommunityConfig())
	if _, ok := labels[a]; !ok {
		t.Fatalf("expected isolated node to have a community assignment")
	}
}
