package output

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	toolName     = "iacguard"
)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID       string             `json:"ruleId"`
	Level        string             `json:"level"` // error, warning, note
	Message      sarifMessage       `json:"message"`
	Locations    []sarifLocation    `json:"locations"`
	Suppressions []sarifSuppression `json:"suppressions,omitempty"`
	Properties   map[string]any     `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine,omitempty"`
}

type sarifSuppression struct {
	Kind          string `json:"kind"`
	Justification string `json:"justification,omitempty"`
}

// RenderSARIF writes the report's findings as a SARIF 2.1.0 log to w.
// Suppressed findings are kept and carry an external suppression so code
// scanning UIs can show them as dismissed.
func RenderSARIF(w io.Writer, report *models.ScanReport, version string) error {
	results := make([]sarifResult, 0, len(report.Findings))
	seen := map[string]bool{}
	var rules []sarifRule

	for _, f := range report.Findings {
		if !seen[f.RuleID] {
			seen[f.RuleID] = true
			desc := f.Title
			if desc == "" {
				desc = f.RuleID
			}
			rules = append(rules, sarifRule{ID: f.RuleID, ShortDescription: sarifMessage{Text: desc}})
		}

		uri := toURI(f.Location.File)
		if uri == "" {
			uri = "UNKNOWN"
		}
		start := f.Location.StartLine
		if start <= 0 {
			start = 1
		}
		end := f.Location.EndLine
		if end < start {
			end = 0
		}

		r := sarifResult{
			RuleID:  f.RuleID,
			Level:   sevToLevel(f.Severity),
			Message: sarifMessage{Text: strings.TrimSpace(f.Message)},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: uri},
					Region:           sarifRegion{StartLine: start, EndLine: end},
				},
			}},
			Properties: map[string]any{
				"address":  f.Address,
				"severity": string(f.Severity),
				"category": string(f.Category),
			},
		}
		if f.Suppressed {
			r.Suppressions = []sarifSuppression{{Kind: "external", Justification: f.SuppressedBy}}
		}
		results = append(results, r)
	}

	log := sarifLog{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:    toolName,
				Version: version,
				Rules:   rules,
			}},
			Results: results,
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

func sevToLevel(s models.Severity) string {
	switch s {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func toURI(p string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "s3://") {
		return p
	}
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "../") {
		p = strings.TrimPrefix(p, "../")
	}
	return strings.TrimPrefix(p, "./")
}
