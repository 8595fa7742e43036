package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
	"github.com/pankaj-dahiya-devops/iacguard/internal/output"
)

type sarifDoc struct {
	Version string `json:"version"`
	Runs    []struct {
		Tool struct {
			Driver struct {
				Name    string `json:"name"`
				Version string `json:"version"`
				Rules   []struct {
					ID string `json:"id"`
				} `json:"rules"`
			} `json:"driver"`
		} `json:"tool"`
		Results []struct {
			RuleID    string `json:"ruleId"`
			Level     string `json:"level"`
			Locations []struct {
				PhysicalLocation struct {
					ArtifactLocation struct {
						URI string `json:"uri"`
					} `json:"artifactLocation"`
					Region struct {
						StartLine int `json:"startLine"`
					} `json:"region"`
				} `json:"physicalLocation"`
			} `json:"locations"`
			Suppressions []struct {
				Kind string `json:"kind"`
			} `json:"suppressions"`
		} `json:"results"`
	} `json:"runs"`
}

func renderSARIF(t *testing.T, rep *models.ScanReport) sarifDoc {
	t.Helper()
	var buf bytes.Buffer
	if err := output.RenderSARIF(&buf, rep, "1.2.3"); err != nil {
		t.Fatalf("RenderSARIF: %v", err)
	}
	var doc sarifDoc
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal SARIF: %v\n%s", err, buf.String())
	}
	return doc
}

func TestRenderSARIF_Levels(t *testing.T) {
	rep := reportWith(
		oneFinding(func(f *models.Finding) { f.Severity = models.SeverityCritical; f.RuleID = "A" }),
		oneFinding(func(f *models.Finding) { f.Severity = models.SeverityMedium; f.RuleID = "B" }),
		oneFinding(func(f *models.Finding) { f.Severity = models.SeverityLow; f.RuleID = "C" }),
	)
	doc := renderSARIF(t, rep)

	if doc.Version != "2.1.0" {
		t.Errorf("version = %q; want 2.1.0", doc.Version)
	}
	if len(doc.Runs) != 1 {
		t.Fatalf("expected one run, got %d", len(doc.Runs))
	}
	run := doc.Runs[0]
	if run.Tool.Driver.Name != "iacguard" || run.Tool.Driver.Version != "1.2.3" {
		t.Errorf("driver = %+v", run.Tool.Driver)
	}
	if len(run.Tool.Driver.Rules) != 3 {
		t.Errorf("expected 3 rule descriptors, got %d", len(run.Tool.Driver.Rules))
	}
	want := []string{"error", "warning", "note"}
	for i, r := range run.Results {
		if r.Level != want[i] {
			t.Errorf("result %d level = %q; want %q", i, r.Level, want[i])
		}
	}
}

func TestRenderSARIF_MissingLocationDefaults(t *testing.T) {
	rep := reportWith(oneFinding(func(f *models.Finding) { f.Location = models.Location{} }))
	doc := renderSARIF(t, rep)

	loc := doc.Runs[0].Results[0].Locations[0].PhysicalLocation
	if loc.ArtifactLocation.URI != "UNKNOWN" {
		t.Errorf("uri = %q; want UNKNOWN", loc.ArtifactLocation.URI)
	}
	if loc.Region.StartLine != 1 {
		t.Errorf("startLine = %d; want 1", loc.Region.StartLine)
	}
}

func TestRenderSARIF_RelativePathNormalised(t *testing.T) {
	rep := reportWith(oneFinding(func(f *models.Finding) { f.Location.File = "../infra/main.tf" }))
	doc := renderSARIF(t, rep)

	if got := doc.Runs[0].Results[0].Locations[0].PhysicalLocation.ArtifactLocation.URI; got != "infra/main.tf" {
		t.Errorf("uri = %q; want infra/main.tf", got)
	}
}

func TestRenderSARIF_SuppressedCarriesSuppression(t *testing.T) {
	rep := reportWith(oneFinding(func(f *models.Finding) { f.Suppressed = true; f.SuppressedBy = "policy:1" }))
	doc := renderSARIF(t, rep)

	sup := doc.Runs[0].Results[0].Suppressions
	if len(sup) != 1 || sup[0].Kind != "external" {
		t.Errorf("suppressions = %+v; want one external", sup)
	}
}

func TestRenderSARIF_EmptyReportHasEmptyResults(t *testing.T) {
	var buf bytes.Buffer
	if err := output.RenderSARIF(&buf, reportWith(), "dev"); err != nil {
		t.Fatalf("RenderSARIF: %v", err)
	}
	if !strings.Contains(buf.String(), `"results": []`) {
		t.Errorf("expected empty results array\ngot:\n%s", buf.String())
	}
}

// ── JSON / summary ────────────────────────────────────────────────────────────

func TestRenderJSON_RoundTripsReportID(t *testing.T) {
	var buf bytes.Buffer
	if err := output.RenderJSON(&buf, reportWith(oneFinding())); err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}
	var got models.ScanReport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ReportID != "r-1" || len(got.Findings) != 1 {
		t.Errorf("got report %+v", got)
	}
}

func TestRenderSummary_ListsTopUnsuppressedFindings(t *testing.T) {
	rep := reportWith(
		oneFinding(),
		oneFinding(func(f *models.Finding) { f.Address = "azurerm_storage_account.hidden"; f.Suppressed = true }),
	)
	rep.Pass = false

	var buf bytes.Buffer
	output.RenderSummary(&buf, rep)
	out := buf.String()

	if !strings.Contains(out, "Result:     FAIL") {
		t.Errorf("expected FAIL verdict\ngot:\n%s", out)
	}
	if !strings.Contains(out, "azurerm_storage_account.logs") {
		t.Errorf("expected unsuppressed finding in top list\ngot:\n%s", out)
	}
	if strings.Contains(out, "azurerm_storage_account.hidden") {
		t.Errorf("suppressed finding must not be listed\ngot:\n%s", out)
	}
}
