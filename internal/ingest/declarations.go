package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pankaj-dahiya-devops/iacguard/internal/graph"
	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// declarationDoc is the top level of a declaration document.
//
//	resources:
//	  - type: azurerm_storage_account
//	    name: sa01
//	    module: [storage]
//	    attributes:
//	      allow_nested_items_to_be_public: true
//	    depends_on: [azurerm_resource_group.rg]
type declarationDoc struct {
	Resources yaml.Node `yaml:"resources"`
}

type declarationEntry struct {
	Type       string         `yaml:"type"`
	Name       string         `yaml:"name"`
	Module     []string       `yaml:"module"`
	Attributes map[string]any `yaml:"attributes"`
	DependsOn  []string       `yaml:"depends_on"`
	Line       int            `yaml:"line"`
}

// ParseDeclarations reads a declaration document (YAML or JSON) from r.
// Attribute strings that look like references ("azurerm_subnet.aks.id" or
// "${...}" templates) become reference values. Each declaration records the
// line its entry starts on unless the entry sets line explicitly.
func ParseDeclarations(r io.Reader, source string) ([]graph.Declaration, error) {
	var doc declarationDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &graph.MalformedInputError{Source: source, Reason: "empty declaration document"}
		}
		return nil, &graph.MalformedInputError{Source: source, Reason: "invalid declaration document", Err: err}
	}
	if doc.Resources.Kind == 0 {
		return nil, &graph.MalformedInputError{Source: source, Reason: "missing resources list"}
	}
	if doc.Resources.Kind != yaml.SequenceNode {
		return nil, &graph.MalformedInputError{
			Source: source,
			Reason: fmt.Sprintf("resources must be a list (line %d)", doc.Resources.Line),
		}
	}

	decls := make([]graph.Declaration, 0, len(doc.Resources.Content))
	for _, n := range doc.Resources.Content {
		var e declarationEntry
		if err := n.Decode(&e); err != nil {
			return nil, &graph.MalformedInputError{
				Source: source,
				Reason: fmt.Sprintf("resource entry at line %d", n.Line),
				Err:    err,
			}
		}

		loc := models.Location{File: source, StartLine: n.Line, EndLine: lastLine(n)}
		if e.Line > 0 {
			loc.StartLine, loc.EndLine = e.Line, e.Line
		}

		attrs := make(map[string]models.Value, len(e.Attributes))
		for k, v := range e.Attributes {
			attrs[k] = models.FromAny(v)
		}
		decls = append(decls, graph.Declaration{
			Type:       strings.TrimSpace(e.Type),
			Name:       strings.TrimSpace(e.Name),
			Module:     e.Module,
			Attributes: attrs,
			DependsOn:  e.DependsOn,
			Location:   loc,
		})
	}
	return decls, nil
}

func lastLine(n *yaml.Node) int {
	max := n.Line
	for _, c := range n.Content {
		if l := lastLine(c); l > max {
			max = l
		}
	}
	return max
}
