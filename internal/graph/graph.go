// Package graph builds the immutable resource graph that every structural
// rule is evaluated against.
//
// A Graph is constructed once per scan by Build and is safe for concurrent
// reads afterwards; nothing in this package mutates a Graph after Build
// returns.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// Declaration is one parsed resource block handed to the builder by an
// ingest parser. Module is the module path from the root (empty = root).
//
// Refs carries reference targets per top-level attribute that are not
// embedded in Attributes, such as those a Terraform plan records in its
// configuration section next to an already-resolved value.
type Declaration struct {
	Type       string
	Name       string
	Module     []string
	Attributes map[string]models.Value
	Refs       map[string][]string
	DependsOn  []string
	Location   models.Location
}

// Address returns the unique address of the declaration.
func (d Declaration) Address() models.Address {
	return models.Address{Module: d.Module, Type: d.Type, Name: d.Name}
}

// MalformedInputError reports input that could not be parsed into any
// resource declarations at all. It is the only fatal error of a scan.
type MalformedInputError struct {
	Source string
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := "malformed input"
	if e.Source != "" {
		msg += " " + e.Source
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// WarningKind classifies recoverable problems found while building.
type WarningKind string

const (
	WarningDanglingReference WarningKind = "dangling_reference"
	WarningDuplicateAddress  WarningKind = "duplicate_address"
)

// Warning is a build-time problem that does not abort the scan. Warnings are
// folded into the finding set by the engine.
type Warning struct {
	Kind      WarningKind
	From      string
	To        string
	Attribute string
	Location  models.Location
}

func (w Warning) String() string {
	switch w.Kind {
	case WarningDanglingReference:
		if w.Attribute != "" {
			return fmt.Sprintf("%s references %s via %q, which is not declared", w.From, w.To, w.Attribute)
		}
		return fmt.Sprintf("%s depends on %s, which is not declared", w.From, w.To)
	case WarningDuplicateAddress:
		return fmt.Sprintf("%s is declared more than once; later declarations are ignored", w.From)
	case WarningInvalidDeclaration:
		return "resource declaration without a type or name was skipped"
	}
	return string(w.Kind)
}

// Graph is an immutable directed graph of resource nodes and reference edges.
type Graph struct {
	nodes    map[string]*models.ResourceNode
	order    []string
	byType   map[string][]string
	modules  map[string]struct{}
	edges    []models.ReferenceEdge
	out      map[string][]models.ReferenceEdge
	in       map[string][]models.ReferenceEdge
	warnings []Warning
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// Node returns the node at addr, or nil when absent.
func (g *Graph) Node(addr string) *models.ResourceNode {
	return g.nodes[addr]
}

// Nodes returns every node in declaration order.
func (g *Graph) Nodes() []*models.ResourceNode {
	out := make([]*models.ResourceNode, len(g.order))
	for i, a := range g.order {
		out[i] = g.nodes[a]
	}
	return out
}

// Addresses returns every node address in declaration order.
func (g *Graph) Addresses() []string {
	return append([]string(nil), g.order...)
}

// NodesOfType returns the nodes whose resource type is one of types, in
// declaration order. An empty types list returns every node.
func (g *Graph) NodesOfType(types ...string) []*models.ResourceNode {
	if len(types) == 0 {
		return g.Nodes()
	}
	var addrs []string
	for _, t := range types {
		addrs = append(addrs, g.byType[t]...)
	}
	if len(types) > 1 {
		pos := make(map[string]int, len(g.order))
		for i, a := range g.order {
			pos[a] = i
		}
		sort.Slice(addrs, func(i, j int) bool { return pos[addrs[i]] < pos[addrs[j]] })
	}
	out := make([]*models.ResourceNode, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, g.nodes[a])
	}
	return out
}

// Edges returns every edge sorted by (from, to, kind, attribute).
func (g *Graph) Edges() []models.ReferenceEdge {
	return append([]models.ReferenceEdge(nil), g.edges...)
}

// Outgoing returns the edges leaving addr.
func (g *Graph) Outgoing(addr string) []models.ReferenceEdge { return g.out[addr] }

// Incoming returns the edges entering addr.
func (g *Graph) Incoming(addr string) []models.ReferenceEdge { return g.in[addr] }

// Neighbors returns the distinct nodes addr references, followed by the
// distinct nodes referencing addr, each group in edge order.
func (g *Graph) Neighbors(addr string) []*models.ResourceNode {
	seen := map[string]bool{addr: true}
	var out []*models.ResourceNode
	add := func(a string) {
		if seen[a] {
			return
		}
		seen[a] = true
		if n := g.nodes[a]; n != nil {
			out = append(out, n)
		}
	}
	for _, e := range g.out[addr] {
		add(e.To)
	}
	for _, e := range g.in[addr] {
		add(e.From)
	}
	return out
}

// Referenced returns the nodes addr points to whose type is one of types.
func (g *Graph) Referenced(addr string, types ...string) []*models.ResourceNode {
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	seen := map[string]bool{}
	var out []*models.ResourceNode
	for _, e := range g.out[addr] {
		n := g.nodes[e.To]
		if n == nil || seen[e.To] {
			continue
		}
		if len(want) > 0 && !want[n.Address.Type] {
			continue
		}
		seen[e.To] = true
		out = append(out, n)
	}
	return out
}

// Warnings returns every build warning in discovery order.
func (g *Graph) Warnings() []Warning {
	return append([]Warning(nil), g.warnings...)
}

// Dangling returns only the dangling-reference warnings.
func (g *Graph) Dangling() []Warning {
	var out []Warning
	for _, w := range g.warnings {
		if w.Kind == WarningDanglingReference {
			out = append(out, w)
		}
	}
	return out
}

// HasModule reports whether any node lives under the module path prefix
// rendered as "module.a.module.b.".
func (g *Graph) HasModule(prefix string) bool {
	_, ok := g.modules[prefix]
	return ok
}

func edgeLess(a, b models.ReferenceEdge) bool {
	if a.From != b.From {
		return a.From < b.From
	}
	if a.To != b.To {
		return a.To < b.To
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Attribute < b.Attribute
}

func modulePrefixes(module []string) []string {
	out := make([]string, 0, len(module))
	for i := 1; i <= len(module); i++ {
		out = append(out, models.ModulePrefix(module[:i]))
	}
	return out
}

func trimTrailingDot(s string) string { return strings.TrimSuffix(s, ".") }
