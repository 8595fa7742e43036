package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// topN is how many findings RenderSummary lists.
const topN = 5

// RenderSummary renders a compact summary view to w:
//   - report ID and overall verdict
//   - resource, edge and file counts
//   - per-severity finding counts
//   - both gate decisions
//   - the top findings by severity
//
// It reuses the already-computed ScanReport; no engine logic is duplicated.
func RenderSummary(w io.Writer, report *models.ScanReport) {
	s := report.Summary

	verdict := "PASS"
	if !report.Pass {
		verdict = "FAIL"
	}
	fmt.Fprintf(w, "Report:     %s\n", report.ReportID)
	fmt.Fprintf(w, "Result:     %s\n", verdict)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Resources:  %d\n", s.Resources)
	fmt.Fprintf(w, "Edges:      %d\n", s.Edges)
	fmt.Fprintf(w, "Files:      %d\n", s.FilesScanned)
	fmt.Fprintf(w, "Findings:   %d (+%d suppressed)\n", s.TotalFindings, s.Suppressed)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Severity Breakdown")
	fmt.Fprintf(w, "  %-10s  %d\n", "CRITICAL", s.CriticalFindings)
	fmt.Fprintf(w, "  %-10s  %d\n", "HIGH", s.HighFindings)
	fmt.Fprintf(w, "  %-10s  %d\n", "MEDIUM", s.MediumFindings)
	fmt.Fprintf(w, "  %-10s  %d\n", "LOW", s.LowFindings)
	fmt.Fprintf(w, "  %-10s  %d\n", "INFO", s.InfoFindings)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Gates")
	renderGate(w, report.Gates.Misconfiguration)
	renderGate(w, report.Gates.Secrets)

	top := topFindings(report.Findings, topN)
	if len(top) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Top Findings")
	fmt.Fprintf(w, "  %-10s  %-26s  %s\n", "SEVERITY", "RULE", "ADDRESS")
	fmt.Fprintf(w, "  %s\n", strings.Repeat("-", 78))
	for _, f := range top {
		fmt.Fprintf(w, "  %-10s  %-26s  %s\n", string(f.Severity), truncateField(f.RuleID, 26), f.Address)
	}
}

// topFindings returns up to n unsuppressed findings. The aggregated finding
// list is already ordered by severity, so this keeps its order.
func topFindings(findings []models.Finding, n int) []models.Finding {
	var out []models.Finding
	for _, f := range findings {
		if f.Suppressed {
			continue
		}
		out = append(out, f)
		if len(out) == n {
			break
		}
	}
	return out
}
