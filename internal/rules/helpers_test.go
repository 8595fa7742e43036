package rules

import (
	"testing"

	"github.com/pankaj-dahiya-devops/iacguard/internal/graph"
	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// node builds a root-module resource node from plain Go values.
func node(typ, name string, attrs map[string]any) *models.ResourceNode {
	converted := make(map[string]models.Value, len(attrs))
	for k, v := range attrs {
		converted[k] = models.FromAny(v)
	}
	return &models.ResourceNode{
		Address:    models.Address{Type: typ, Name: name},
		Attributes: converted,
		Location:   models.Location{File: "main.tf", StartLine: 1},
	}
}

func decl(typ, name string, attrs map[string]any) graph.Declaration {
	n := node(typ, name, attrs)
	return graph.Declaration{Type: typ, Name: name, Attributes: n.Attributes, Location: n.Location}
}

func buildGraph(t *testing.T, decls ...graph.Declaration) *graph.Graph {
	t.Helper()
	g, err := graph.Build(decls)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

// evaluate runs r against n the way the evaluator does, honouring Matcher.
func evaluate(r Rule, ctx RuleContext, n *models.ResourceNode) []models.Finding {
	if m, ok := r.(Matcher); ok && !m.Match(n) {
		return nil
	}
	return r.Evaluate(ctx, n)
}
