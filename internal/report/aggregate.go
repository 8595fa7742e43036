// Package report merges the findings of a scan into their final order and
// decides the gate outcome.
package report

import (
	"fmt"
	"sort"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// Dedup keeps the first finding per (rule ID, address). Input is stably
// ordered by (address, rule ID) first, so which duplicate survives depends
// only on the input order of the duplicates themselves. The input slice is
// not modified.
func Dedup(findings []models.Finding) []models.Finding {
	sorted := make([]models.Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Address != sorted[j].Address {
			return sorted[i].Address < sorted[j].Address
		}
		return sorted[i].RuleID < sorted[j].RuleID
	})

	out := make([]models.Finding, 0, len(sorted))
	for i, f := range sorted {
		if i > 0 && f.Address == sorted[i-1].Address && f.RuleID == sorted[i-1].RuleID {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Sort orders findings by severity descending, then address, then rule ID.
// After Dedup this is a total order.
func Sort(findings []models.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		ri, rj := findings[i].Severity.Rank(), findings[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		if findings[i].Address != findings[j].Address {
			return findings[i].Address < findings[j].Address
		}
		return findings[i].RuleID < findings[j].RuleID
	})
}

// Aggregate deduplicates and sorts findings.
func Aggregate(findings []models.Finding) []models.Finding {
	out := Dedup(findings)
	Sort(out)
	return out
}

// Summarize counts findings per severity. Suppressed findings are counted in
// Suppressed and excluded from the severity buckets.
func Summarize(findings []models.Finding) models.Summary {
	var s models.Summary
	for _, f := range findings {
		if f.Suppressed {
			s.Suppressed++
			continue
		}
		s.TotalFindings++
		switch f.Severity {
		case models.SeverityCritical:
			s.CriticalFindings++
		case models.SeverityHigh:
			s.HighFindings++
		case models.SeverityMedium:
			s.MediumFindings++
		case models.SeverityLow:
			s.LowFindings++
		case models.SeverityInfo:
			s.InfoFindings++
		}
	}
	return s
}

// SecretFindings converts secret matches into findings so they flow through
// suppression, aggregation and gating like any other finding.
func SecretFindings(matches []models.SecretMatch) []models.Finding {
	out := make([]models.Finding, 0, len(matches))
	for _, m := range matches {
		sev := m.Severity
		if !sev.Valid() {
			sev = models.SeverityHigh
		}
		out = append(out, models.Finding{
			RuleID:         m.PatternID,
			Title:          m.Description,
			Severity:       sev,
			Category:       models.CategorySecret,
			Address:        fmt.Sprintf("%s:%d", m.File, m.Line),
			Message:        fmt.Sprintf("%s found in %s at line %d (%s).", m.Description, m.File, m.Line, m.Excerpt),
			Recommendation: "Remove the secret from source, rotate it, and load it from a secret store at deploy time.",
			Location:       models.Location{File: m.File, StartLine: m.Line, EndLine: m.Line},
			Metadata: map[string]any{
				"excerpt":    m.Excerpt,
				"confidence": m.Confidence,
				"strategy":   string(m.Strategy),
			},
		})
	}
	return out
}
