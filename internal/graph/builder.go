package graph

import (
	"sort"
	"strings"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// WarningInvalidDeclaration marks a declaration without a type or name.
const WarningInvalidDeclaration WarningKind = "invalid_declaration"

// nonResourceRoots are traversal roots that never address a managed resource.
var nonResourceRoots = map[string]bool{
	"data":      true,
	"var":       true,
	"local":     true,
	"each":      true,
	"count":     true,
	"path":      true,
	"self":      true,
	"terraform": true,
}

// Build creates a Graph from decls.
//
// A nil slice means the caller could not parse anything and yields a
// MalformedInputError. Every other problem is recoverable: declarations
// missing a type or name are skipped, duplicate addresses keep the first
// declaration, and references to undeclared addresses are recorded as
// dangling-reference warnings instead of edges.
//
// Building twice from the same input yields identical node and edge sets.
func Build(decls []Declaration) (*Graph, error) {
	if decls == nil {
		return nil, &MalformedInputError{Reason: "no resource declarations"}
	}

	g := &Graph{
		nodes:   make(map[string]*models.ResourceNode, len(decls)),
		byType:  make(map[string][]string),
		modules: make(map[string]struct{}),
		out:     make(map[string][]models.ReferenceEdge),
		in:      make(map[string][]models.ReferenceEdge),
	}

	kept := make([]Declaration, 0, len(decls))
	for _, d := range decls {
		if d.Type == "" || d.Name == "" {
			g.warnings = append(g.warnings, Warning{
				Kind:     WarningInvalidDeclaration,
				From:     d.Type + "." + d.Name,
				Location: d.Location,
			})
			continue
		}
		addr := d.Address().String()
		if _, dup := g.nodes[addr]; dup {
			g.warnings = append(g.warnings, Warning{
				Kind:     WarningDuplicateAddress,
				From:     addr,
				Location: d.Location,
			})
			continue
		}

		attrs := make(map[string]models.Value, len(d.Attributes))
		for k, v := range d.Attributes {
			attrs[k] = v
		}
		module := append([]string(nil), d.Module...)
		g.nodes[addr] = &models.ResourceNode{
			Address:    models.Address{Module: module, Type: d.Type, Name: d.Name},
			Attributes: attrs,
			Location:   d.Location,
		}
		g.order = append(g.order, addr)
		g.byType[d.Type] = append(g.byType[d.Type], addr)
		for _, p := range modulePrefixes(module) {
			g.modules[p] = struct{}{}
		}
		kept = append(kept, d)
	}

	seenEdge := make(map[models.ReferenceEdge]bool)
	seenDangling := make(map[Warning]bool)
	for _, d := range kept {
		from := d.Address().String()

		keys := make([]string, 0, len(d.Attributes))
		for k := range d.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, ref := range d.Attributes[k].References() {
				g.link(from, d, ref, models.EdgeAttribute, k, seenEdge, seenDangling)
			}
		}
		refKeys := make([]string, 0, len(d.Refs))
		for k := range d.Refs {
			refKeys = append(refKeys, k)
		}
		sort.Strings(refKeys)
		for _, k := range refKeys {
			for _, ref := range d.Refs[k] {
				g.link(from, d, ref, models.EdgeAttribute, k, seenEdge, seenDangling)
			}
		}
		for _, dep := range d.DependsOn {
			g.link(from, d, dep, models.EdgeDependsOn, "", seenEdge, seenDangling)
		}
	}

	sort.Slice(g.edges, func(i, j int) bool { return edgeLess(g.edges[i], g.edges[j]) })
	for _, e := range g.edges {
		g.out[e.From] = append(g.out[e.From], e)
		g.in[e.To] = append(g.in[e.To], e)
	}
	return g, nil
}

func (g *Graph) link(
	from string,
	d Declaration,
	expr string,
	kind models.EdgeKind,
	attr string,
	seenEdge map[models.ReferenceEdge]bool,
	seenDangling map[Warning]bool,
) {
	targets, missing, ok := g.resolve(d.Module, expr)
	if !ok {
		return
	}
	if missing != "" {
		w := Warning{Kind: WarningDanglingReference, From: from, To: missing, Attribute: attr, Location: d.Location}
		if !seenDangling[w] {
			seenDangling[w] = true
			g.warnings = append(g.warnings, w)
		}
		return
	}
	for _, to := range targets {
		if to == from {
			continue
		}
		e := models.ReferenceEdge{From: from, To: to, Kind: kind, Attribute: attr}
		if seenEdge[e] {
			continue
		}
		seenEdge[e] = true
		g.edges = append(g.edges, e)
	}
}

// resolve maps a reference expression written inside module to graph
// addresses. ok is false for expressions that do not address resources at
// all (variables, locals, data sources). missing is set when the expression
// addresses something that is not declared.
func (g *Graph) resolve(module []string, expr string) (targets []string, missing string, ok bool) {
	parts, index := splitTraversal(expr)
	if len(parts) < 2 || nonResourceRoots[parts[0]] {
		return nil, "", false
	}

	if parts[0] == "module" {
		child := append(append([]string(nil), module...), parts[1])
		prefix := models.ModulePrefix(child)
		if !g.HasModule(prefix) {
			return nil, trimTrailingDot(prefix), true
		}
		for _, a := range g.order {
			if strings.HasPrefix(a, prefix) {
				targets = append(targets, a)
			}
		}
		return targets, "", true
	}

	addr := models.ModulePrefix(module) + parts[0] + "." + parts[1]
	if _, exists := g.nodes[addr]; exists {
		return []string{addr}, "", true
	}
	if index != "" {
		if _, exists := g.nodes[addr+index]; exists {
			return []string{addr + index}, "", true
		}
	}
	// count and for_each expand one declaration into indexed instances.
	for _, a := range g.byType[parts[0]] {
		if strings.HasPrefix(a, addr+"[") {
			targets = append(targets, a)
		}
	}
	if len(targets) == 0 {
		return nil, addr, true
	}
	return targets, "", true
}

// splitTraversal splits "aws_instance.web[0].id" into
// ["aws_instance", "web", "id"], dropping index and splat segments. index is
// the instance key written on the name segment ("[0]"), empty for splats.
func splitTraversal(expr string) (parts []string, index string) {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimPrefix(expr, "${")
	expr = strings.TrimSuffix(expr, "}")
	raw := strings.Split(expr, ".")
	parts = make([]string, 0, len(raw))
	for _, p := range raw {
		if i := strings.IndexByte(p, '['); i >= 0 {
			if len(parts) == 1 && p[i:] != "[*]" {
				if j := strings.IndexByte(p[i:], ']'); j >= 0 {
					index = p[i : i+j+1]
				}
			}
			p = p[:i]
		}
		if p == "" || p == "*" {
			continue
		}
		parts = append(parts, p)
	}
	return parts, index
}
