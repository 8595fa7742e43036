package report

import (
	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// Gate family names used in GateDecision.Category.
const (
	GateMisconfiguration = "misconfiguration"
	GateSecrets          = "secrets"
)

// Gate counts non-suppressed findings at or above threshold. The gate passes
// only when that count is zero. Raising the threshold can only turn a fail
// into a pass, never the reverse.
func Gate(findings []models.Finding, threshold models.Severity) models.GateDecision {
	d := models.GateDecision{Threshold: threshold}
	for _, f := range findings {
		if f.Suppressed {
			continue
		}
		if f.Severity.AtLeast(threshold) {
			d.Count++
		}
	}
	d.Pass = d.Count == 0
	return d
}

// Partition splits findings into secret findings and everything else.
func Partition(findings []models.Finding) (misconfig, secrets []models.Finding) {
	for _, f := range findings {
		if f.Category == models.CategorySecret {
			secrets = append(secrets, f)
			continue
		}
		misconfig = append(misconfig, f)
	}
	return misconfig, secrets
}

// Gates evaluates both gate families over an aggregated finding set.
func Gates(findings []models.Finding, misconfigThreshold, secretThreshold models.Severity) models.Gates {
	misconfig, secrets := Partition(findings)
	g := models.Gates{
		Misconfiguration: Gate(misconfig, misconfigThreshold),
		Secrets:          Gate(secrets, secretThreshold),
	}
	g.Misconfiguration.Category = GateMisconfiguration
	g.Secrets.Category = GateSecrets
	return g
}
