package policy

import (
	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// ApplyPolicy drops findings of disabled rules and applies severity
// overrides. Only misconfiguration findings are affected; engine, graph and
// suppression findings are produced by the scanner itself and pass through
// unchanged. The input slice is not modified.
func ApplyPolicy(findings []models.Finding, cfg *PolicyConfig) []models.Finding {
	if cfg == nil {
		return findings
	}

	result := make([]models.Finding, 0, len(findings))

	for _, f := range findings {
		if f.Category != models.CategoryMisconfiguration {
			result = append(result, f)
			continue
		}

		ruleCfg, hasRule := cfg.Rules[f.RuleID]

		// Rule-level disable
		if hasRule && ruleCfg.Enabled != nil && !*ruleCfg.Enabled {
			continue
		}

		// Severity override
		if hasRule && ruleCfg.Severity != "" {
			if sev, err := models.ParseSeverity(ruleCfg.Severity); err == nil {
				f.Severity = sev
			}
		}

		result = append(result, f)
	}

	return result
}
