// Package ingest turns raw input documents into graph declarations.
//
// Two formats are understood: the JSON produced by `terraform show -json`
// and a plain declaration document listing resources with their attributes.
// Neither parser evaluates expressions; references are kept as references
// and left to the graph builder.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pankaj-dahiya-devops/iacguard/internal/graph"
	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// Plan is the subset of the `terraform show -json` document the scanner reads.
type Plan struct {
	FormatVersion   string           `json:"format_version"`
	PlannedValues   *PlannedValues   `json:"planned_values"`
	ResourceChanges []ResourceChange `json:"resource_changes"`
	Configuration   *Configuration   `json:"configuration"`
}

// PlannedValues holds the fully expanded resource values after apply.
type PlannedValues struct {
	RootModule PlanModule `json:"root_module"`
}

// PlanModule is one module instance in planned_values.
type PlanModule struct {
	Address      string         `json:"address"`
	Resources    []PlanResource `json:"resources"`
	ChildModules []PlanModule   `json:"child_modules"`
}

// PlanResource is one resource instance in planned_values.
type PlanResource struct {
	Address string         `json:"address"`
	Mode    string         `json:"mode"`
	Type    string         `json:"type"`
	Name    string         `json:"name"`
	Index   any            `json:"index"`
	Values  map[string]any `json:"values"`
}

// ResourceChange is one entry of resource_changes, used when planned_values
// is absent.
type ResourceChange struct {
	Address       string `json:"address"`
	ModuleAddress string `json:"module_address"`
	Mode          string `json:"mode"`
	Type          string `json:"type"`
	Name          string `json:"name"`
	Index         any    `json:"index"`
	Change        Change `json:"change"`
}

// Change holds the action list and the planned after-state.
type Change struct {
	Actions []string       `json:"actions"`
	After   map[string]any `json:"after"`
}

// Configuration is the unexpanded module tree with raw expressions.
type Configuration struct {
	RootModule ConfigModule `json:"root_module"`
}

// ConfigModule is a module body in the configuration section.
type ConfigModule struct {
	Resources   []ConfigResource      `json:"resources"`
	ModuleCalls map[string]ModuleCall `json:"module_calls"`
}

// ModuleCall is a module block and the body of the called module.
type ModuleCall struct {
	Module ConfigModule `json:"module"`
}

// ConfigResource is a resource block with its attribute expressions.
type ConfigResource struct {
	Address     string         `json:"address"`
	Mode        string         `json:"mode"`
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Expressions map[string]any `json:"expressions"`
	DependsOn   []string       `json:"depends_on"`
}

// configInfo is what the configuration section contributes to a resource.
type configInfo struct {
	refs      map[string][]string
	dependsOn []string
}

// ParsePlan reads a Terraform plan JSON document from r. source names the
// document in locations and errors.
//
// Resources come from planned_values, walking child modules recursively.
// When planned_values is missing the after-state of resource_changes is
// used instead, skipping pure deletions. Data sources are ignored.
func ParsePlan(r io.Reader, source string) ([]graph.Declaration, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", source, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &graph.MalformedInputError{Source: source, Reason: "empty plan input"}
	}

	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &graph.MalformedInputError{Source: source, Reason: "invalid plan JSON", Err: err}
	}
	if p.FormatVersion == "" && p.PlannedValues == nil && p.ResourceChanges == nil {
		return nil, &graph.MalformedInputError{Source: source, Reason: "not a terraform plan document"}
	}

	cfg := map[string]configInfo{}
	if p.Configuration != nil {
		collectConfig(p.Configuration.RootModule, nil, cfg)
	}

	decls := []graph.Declaration{}
	if p.PlannedValues != nil {
		walkPlanModule(p.PlannedValues.RootModule, source, cfg, &decls)
		return decls, nil
	}

	for _, rc := range p.ResourceChanges {
		if rc.Mode != "" && rc.Mode != "managed" {
			continue
		}
		if len(rc.Change.Actions) == 1 && rc.Change.Actions[0] == "delete" {
			continue
		}
		module := parseModuleAddress(rc.ModuleAddress)
		decls = append(decls, declaration(module, rc.Type, rc.Name, rc.Index, rc.Change.After, source, cfg))
	}
	return decls, nil
}

func walkPlanModule(m PlanModule, source string, cfg map[string]configInfo, out *[]graph.Declaration) {
	module := parseModuleAddress(m.Address)
	for _, r := range m.Resources {
		if r.Mode != "" && r.Mode != "managed" {
			continue
		}
		*out = append(*out, declaration(module, r.Type, r.Name, r.Index, r.Values, source, cfg))
	}
	for _, child := range m.ChildModules {
		walkPlanModule(child, source, cfg, out)
	}
}

func declaration(
	module []string,
	typ, name string,
	index any,
	values map[string]any,
	source string,
	cfg map[string]configInfo,
) graph.Declaration {
	d := graph.Declaration{
		Type:       typ,
		Name:       name + indexSuffix(index),
		Module:     module,
		Attributes: make(map[string]models.Value, len(values)),
		Location:   models.Location{File: source},
	}
	for k, v := range values {
		d.Attributes[k] = literal(v)
	}

	info, ok := cfg[configKey(module, typ, name)]
	if !ok {
		return d
	}
	d.DependsOn = append(d.DependsOn, info.dependsOn...)
	for attr, refs := range info.refs {
		if v, known := d.Attributes[attr]; known && !v.IsNull() {
			if d.Refs == nil {
				d.Refs = make(map[string][]string)
			}
			d.Refs[attr] = refs
			continue
		}
		// Unknown until apply: the expression is all the plan can tell us.
		d.Attributes[attr] = models.ReferenceValue(strings.Join(refs, ", "), refs...)
	}
	return d
}

// literal converts a planned value. Plan values are already evaluated, so
// strings are never reinterpreted as references.
func literal(x any) models.Value {
	switch t := x.(type) {
	case string:
		return models.StringValue(t)
	case []any:
		out := make([]models.Value, len(t))
		for i, e := range t {
			out[i] = literal(e)
		}
		return models.ListValue(out...)
	case map[string]any:
		out := make(map[string]models.Value, len(t))
		for k, e := range t {
			out[k] = literal(e)
		}
		return models.MapValue(out)
	}
	return models.FromAny(x)
}

func collectConfig(m ConfigModule, module []string, out map[string]configInfo) {
	for _, r := range m.Resources {
		if r.Mode != "" && r.Mode != "managed" {
			continue
		}
		info := configInfo{dependsOn: r.DependsOn}
		for attr, expr := range r.Expressions {
			refs := expressionRefs(expr)
			if len(refs) == 0 {
				continue
			}
			if info.refs == nil {
				info.refs = make(map[string][]string)
			}
			info.refs[attr] = refs
		}
		out[configKey(module, r.Type, r.Name)] = info
	}

	names := make([]string, 0, len(m.ModuleCalls))
	for name := range m.ModuleCalls {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		child := append(append([]string(nil), module...), name)
		collectConfig(m.ModuleCalls[name].Module, child, out)
	}
}

// expressionRefs gathers every "references" list found in an expression
// tree. Nested blocks appear as lists of expression maps.
func expressionRefs(expr any) []string {
	var refs []string
	seen := map[string]bool{}
	var walk func(any)
	walk = func(x any) {
		switch t := x.(type) {
		case map[string]any:
			if list, ok := t["references"].([]any); ok {
				for _, r := range list {
					if s, ok := r.(string); ok && !seen[s] {
						seen[s] = true
						refs = append(refs, s)
					}
				}
			}
			keys := make([]string, 0, len(t))
			for k := range t {
				if k != "references" {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(t[k])
			}
		case []any:
			for _, e := range t {
				walk(e)
			}
		}
	}
	walk(expr)
	return refs
}

// configKey identifies a resource block independent of count and for_each
// expansion.
func configKey(module []string, typ, name string) string {
	parts := make([]string, len(module))
	for i, m := range module {
		parts[i] = stripIndex(m)
	}
	return strings.Join(parts, ".") + "|" + typ + "." + name
}

// parseModuleAddress splits `module.a.module.b["x"]` into ["a", `b["x"]`].
func parseModuleAddress(addr string) []string {
	if addr == "" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(addr, "module."), ".module.")
}

func stripIndex(s string) string {
	if i := strings.IndexByte(s, '['); i >= 0 {
		return s[:i]
	}
	return s
}

func indexSuffix(index any) string {
	switch t := index.(type) {
	case nil:
		return ""
	case string:
		return fmt.Sprintf("[%q]", t)
	case float64:
		return fmt.Sprintf("[%d]", int64(t))
	}
	return fmt.Sprintf("[%v]", index)
}
