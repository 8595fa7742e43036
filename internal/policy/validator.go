package policy

import (
	"fmt"
	"sort"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// validDomains is the set of recognised enforcement domain names.
var validDomains = map[string]struct{}{
	DomainMisconfiguration: {},
	DomainSecrets:          {},
}

// Validate checks cfg for semantic correctness and returns all validation errors
// found. An empty slice means the config is valid.
//
// Checks performed:
//   - version must be 1
//   - rule IDs must appear in availableRuleIDs
//   - rule severity overrides must be valid severity values if set
//   - enforcement domain names must be one of: misconfiguration, secrets
//   - enforcement fail_on_severity must be a valid severity value if set
//   - secrets.entropy_threshold and secrets.min_length must not be negative
//
// All errors are collected before returning; Validate never stops at the first
// error. Errors are ordered by key so output is stable.
func Validate(cfg *PolicyConfig, availableRuleIDs []string) []error {
	if cfg == nil {
		return []error{fmt.Errorf("policy config is nil")}
	}

	knownIDs := make(map[string]struct{}, len(availableRuleIDs))
	for _, id := range availableRuleIDs {
		knownIDs[id] = struct{}{}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", cfg.Version))
	}

	for _, ruleID := range sortedKeys(cfg.Rules) {
		rcfg := cfg.Rules[ruleID]
		if _, ok := knownIDs[ruleID]; !ok {
			errs = append(errs, fmt.Errorf("rules.%s: unknown rule ID", ruleID))
		}
		if rcfg.Severity != "" {
			if _, err := models.ParseSeverity(rcfg.Severity); err != nil {
				errs = append(errs, fmt.Errorf("rules.%s.severity: invalid value %q; valid values: CRITICAL, HIGH, MEDIUM, LOW, INFO", ruleID, rcfg.Severity))
			}
		}
	}

	for _, domain := range sortedKeys(cfg.Enforcement) {
		enfCfg := cfg.Enforcement[domain]
		if _, ok := validDomains[domain]; !ok {
			errs = append(errs, fmt.Errorf("enforcement.%s: unknown domain; valid values: misconfiguration, secrets", domain))
		}
		if enfCfg.FailOnSeverity != "" {
			if _, err := models.ParseSeverity(enfCfg.FailOnSeverity); err != nil {
				errs = append(errs, fmt.Errorf("enforcement.%s.fail_on_severity: invalid value %q; valid values: CRITICAL, HIGH, MEDIUM, LOW, INFO", domain, enfCfg.FailOnSeverity))
			}
		}
	}

	if cfg.Secrets.EntropyThreshold < 0 {
		errs = append(errs, fmt.Errorf("secrets.entropy_threshold: must not be negative"))
	}
	if cfg.Secrets.MinLength < 0 {
		errs = append(errs, fmt.Errorf("secrets.min_length: must not be negative"))
	}

	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
