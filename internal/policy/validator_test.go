package policy

import (
	"strings"
	"testing"
)

var knownRules = []string{"AZ_STORAGE_PUBLIC_BLOB", "SG_OPEN_ADMIN_PORT"}

func TestValidate_NilConfig(t *testing.T) {
	errs := Validate(nil, knownRules)
	if len(errs) != 1 {
		t.Fatalf("want 1 error for nil config, got %d", len(errs))
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &PolicyConfig{
		Version: 1,
		Rules: map[string]RuleConfig{
			"SG_OPEN_ADMIN_PORT": {Severity: "critical"},
		},
		Enforcement: map[string]EnforcementConfig{
			DomainMisconfiguration: {FailOnSeverity: "HIGH"},
			DomainSecrets:          {FailOnSeverity: "LOW"},
		},
		Secrets: SecretsConfig{EntropyThreshold: 3.5, MinLength: 8},
	}
	if errs := Validate(cfg, knownRules); len(errs) != 0 {
		t.Fatalf("want no errors, got %v", errs)
	}
}

// TestValidate_CollectsAllErrors verifies Validate reports every problem in a
// single pass rather than stopping at the first.
func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &PolicyConfig{
		Version: 3,
		Rules: map[string]RuleConfig{
			"NOT_A_RULE":         {},
			"SG_OPEN_ADMIN_PORT": {Severity: "BLOCKER"},
		},
		Enforcement: map[string]EnforcementConfig{
			"cost":        {FailOnSeverity: "HIGH"},
			DomainSecrets: {FailOnSeverity: "NOPE"},
		},
		Secrets: SecretsConfig{EntropyThreshold: -1, MinLength: -2},
	}

	errs := Validate(cfg, knownRules)
	if len(errs) != 7 {
		t.Fatalf("want 7 errors, got %d: %v", len(errs), errs)
	}

	wantPrefixes := []string{
		"version:",
		"rules.NOT_A_RULE:",
		"rules.SG_OPEN_ADMIN_PORT.severity:",
		"enforcement.cost:",
		"enforcement.secrets.fail_on_severity:",
		"secrets.entropy_threshold:",
		"secrets.min_length:",
	}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(errs[i].Error(), prefix) {
			t.Errorf("errs[%d] = %q; want prefix %q", i, errs[i], prefix)
		}
	}
}
