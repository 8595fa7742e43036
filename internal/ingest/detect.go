package ingest

import (
	"bytes"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pankaj-dahiya-devops/iacguard/internal/graph"
	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// Format identifies an input document type.
type Format int

const (
	FormatUnknown Format = iota
	FormatPlan
	FormatDeclarations
)

func (f Format) String() string {
	switch f {
	case FormatPlan:
		return "terraform-plan"
	case FormatDeclarations:
		return "declarations"
	}
	return "unknown"
}

// Detect picks the format of a document from its name and content. A JSON
// object carrying format_version or planned_values is a plan. A .yaml, .yml
// or .json file is a declaration document only when its top level holds a
// resources list of type/name mappings, so Kubernetes manifests,
// kustomizations and Helm values that merely mention resources are not.
func Detect(path string, data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	ext := strings.ToLower(filepath.Ext(path))

	if bytes.HasPrefix(trimmed, []byte("{")) &&
		(bytes.Contains(trimmed, []byte(`"format_version"`)) || bytes.Contains(trimmed, []byte(`"planned_values"`))) {
		return FormatPlan
	}
	switch ext {
	case ".yaml", ".yml", ".json":
		if bytes.Contains(trimmed, []byte("resources")) && looksLikeDeclarations(trimmed) {
			return FormatDeclarations
		}
	}
	return FormatUnknown
}

// looksLikeDeclarations reports whether the first document in data has a
// top-level resources sequence whose entries are all mappings and at least
// one of which names both a type and a name.
func looksLikeDeclarations(data []byte) bool {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return false
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return false
	}
	list := mappingValue(top, "resources")
	if list == nil || list.Kind != yaml.SequenceNode {
		return false
	}
	if len(list.Content) == 0 {
		return true
	}
	named := false
	for _, entry := range list.Content {
		if entry.Kind != yaml.MappingNode {
			return false
		}
		if mappingValue(entry, "type") != nil && mappingValue(entry, "name") != nil {
			named = true
		}
	}
	return named
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// Parse dispatches a single file to the parser for its format. Structured
// files Detect does not recognise are still handed to the declaration parser
// so that an explicit input reports why it is malformed.
func Parse(f models.SourceFile) ([]graph.Declaration, error) {
	switch Detect(f.Path, f.Data) {
	case FormatPlan:
		return ParsePlan(bytes.NewReader(f.Data), f.Path)
	case FormatDeclarations:
		return ParseDeclarations(bytes.NewReader(f.Data), f.Path)
	}
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".yaml", ".yml", ".json":
		return ParseDeclarations(bytes.NewReader(f.Data), f.Path)
	}
	return nil, &graph.MalformedInputError{Source: f.Path, Reason: "unrecognised input format"}
}

// ParseAll parses every file and concatenates the declarations in file order.
// The first malformed file aborts the whole parse.
func ParseAll(files []models.SourceFile) ([]graph.Declaration, error) {
	decls := []graph.Declaration{}
	for _, f := range files {
		d, err := Parse(f)
		if err != nil {
			return nil, err
		}
		decls = append(decls, d...)
	}
	return decls, nil
}

// ParseDetected parses the files whose format Detect recognises. Other files
// (HCL, Dockerfiles, tfvars) are left to the secret scanner. A recognised
// file that fails to parse is skipped and returned with its error keyed by
// path; the rest of the files still contribute declarations.
func ParseDetected(files []models.SourceFile) ([]graph.Declaration, map[string]error) {
	decls := []graph.Declaration{}
	skipped := map[string]error{}
	for _, f := range files {
		if Detect(f.Path, f.Data) == FormatUnknown {
			continue
		}
		d, err := Parse(f)
		if err != nil {
			skipped[f.Path] = err
			continue
		}
		decls = append(decls, d...)
	}
	return decls, skipped
}
