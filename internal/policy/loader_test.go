package policy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPolicy_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iacguard.yaml")

	content := `
version: 1
rules:
  AZ_STORAGE_HTTP_ALLOWED:
    enabled: false
  SG_OPEN_ADMIN_PORT:
    severity: CRITICAL
  AZ_STORAGE_MIN_TLS:
    params:
      min_tls: 1.2
enforcement:
  misconfiguration:
    fail_on_severity: HIGH
  secrets:
    fail_on_severity: MEDIUM
secrets:
  entropy_threshold: 4
  placeholders: [dummy-value]
suppressions:
  - RULE-042
`

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Version != 1 {
		t.Fatalf("expected version 1")
	}

	rc := cfg.Rules["AZ_STORAGE_HTTP_ALLOWED"]
	if rc.Enabled == nil || *rc.Enabled != false {
		t.Fatalf("expected AZ_STORAGE_HTTP_ALLOWED enabled=false")
	}

	if cfg.Rules["SG_OPEN_ADMIN_PORT"].Severity != "CRITICAL" {
		t.Fatalf("expected severity CRITICAL")
	}

	if got := cfg.Rules["AZ_STORAGE_MIN_TLS"].Params["min_tls"]; got != 1.2 {
		t.Fatalf("expected min_tls 1.2, got %v", got)
	}

	if cfg.Enforcement[DomainSecrets].FailOnSeverity != "MEDIUM" {
		t.Fatalf("expected secrets fail_on_severity MEDIUM")
	}

	if cfg.Secrets.EntropyThreshold != 4 || len(cfg.Secrets.Placeholders) != 1 {
		t.Fatalf("unexpected secrets block: %+v", cfg.Secrets)
	}

	if len(cfg.Suppressions) != 1 || cfg.Suppressions[0] != "RULE-042" {
		t.Fatalf("unexpected suppressions: %v", cfg.Suppressions)
	}
}

func TestLoadPolicy_InvalidVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iacguard.yaml")

	if err := os.WriteFile(path, []byte("version: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadPolicy(path)
	if err == nil {
		t.Fatalf("expected error for invalid version")
	}
}

func TestLoadPolicy_FileNotFound(t *testing.T) {
	_, err := LoadPolicy("nonexistent.yaml")
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParsePolicy_InitialisesMaps(t *testing.T) {
	cfg, err := ParsePolicy([]byte("version: 1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Rules == nil || cfg.Enforcement == nil {
		t.Fatalf("expected non-nil maps")
	}
}

func TestParsePolicy_BadYAML(t *testing.T) {
	if _, err := ParsePolicy([]byte("version: [1")); err == nil {
		t.Fatalf("expected parse error")
	}
}
