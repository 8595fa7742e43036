package policy

import (
	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// FailOnSeverity returns the configured gate threshold for domain.
//
// It returns false when:
//   - cfg is nil (no policy loaded)
//   - no enforcement block is configured for domain
//   - fail_on_severity is empty or an unrecognised value
func FailOnSeverity(domain string, cfg *PolicyConfig) (models.Severity, bool) {
	if cfg == nil {
		return "", false
	}
	enfCfg, ok := cfg.Enforcement[domain]
	if !ok || enfCfg.FailOnSeverity == "" {
		return "", false
	}
	sev, err := models.ParseSeverity(enfCfg.FailOnSeverity)
	if err != nil {
		return "", false
	}
	return sev, true
}

// Thresholds resolves both gate thresholds. A policy value replaces the
// corresponding default; the two domains are independent.
func Thresholds(cfg *PolicyConfig, misconfigDefault, secretsDefault models.Severity) (misconfig, secrets models.Severity) {
	misconfig, secrets = misconfigDefault, secretsDefault
	if sev, ok := FailOnSeverity(DomainMisconfiguration, cfg); ok {
		misconfig = sev
	}
	if sev, ok := FailOnSeverity(DomainSecrets, cfg); ok {
		secrets = sev
	}
	return misconfig, secrets
}
