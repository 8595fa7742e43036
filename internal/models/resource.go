package models

import (
	"strings"
)

// Address uniquely identifies a resource declaration: its module path, its
// resource type, and its logical name.
type Address struct {
	Module []string `json:"module,omitempty"`
	Type   string   `json:"type"`
	Name   string   `json:"name"`
}

// String renders the address in Terraform form, e.g.
// "module.network.azurerm_subnet.aks". Root-module addresses carry no prefix.
func (a Address) String() string {
	var b strings.Builder
	b.WriteString(ModulePrefix(a.Module))
	b.WriteString(a.Type)
	b.WriteByte('.')
	b.WriteString(a.Name)
	return b.String()
}

// ModulePrefix renders a module path as "module.a.module.b." (empty for root).
func ModulePrefix(module []string) string {
	var b strings.Builder
	for _, m := range module {
		b.WriteString("module.")
		b.WriteString(m)
		b.WriteByte('.')
	}
	return b.String()
}

// Location is the source position of a declaration or finding.
type Location struct {
	File      string `json:"file,omitempty"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

// ResourceNode is a single resource declaration inside the resource graph.
// Nodes are owned by the graph and must not be modified after the graph is built.
type ResourceNode struct {
	Address    Address          `json:"address"`
	Attributes map[string]Value `json:"attributes"`
	Location   Location         `json:"location"`
}

// Attr walks a dotted path through the node's attributes, descending into
// nested maps and single-element lists (the shape Terraform uses for blocks).
func (n *ResourceNode) Attr(path ...string) (Value, bool) {
	if n == nil || len(path) == 0 {
		return Value{}, false
	}
	v, ok := n.Attributes[path[0]]
	if !ok {
		return Value{}, false
	}
	return v.Get(path[1:]...)
}

// EdgeKind distinguishes explicit from inferred dependencies.
type EdgeKind string

const (
	EdgeDependsOn EdgeKind = "depends_on"
	EdgeAttribute EdgeKind = "attribute"
)

// ReferenceEdge is a directed dependency between two nodes. Attribute names the
// top-level attribute the reference was found in; it is empty for depends_on.
type ReferenceEdge struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Kind      EdgeKind `json:"kind"`
	Attribute string   `json:"attribute,omitempty"`
}

// SourceFile is a raw input file read into memory before a scan starts.
type SourceFile struct {
	Path string
	Data []byte
}
