package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pankaj-dahiya-devops/iacguard/internal/graph"
	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
	"github.com/pankaj-dahiya-devops/iacguard/internal/policy"
	"github.com/pankaj-dahiya-devops/iacguard/internal/rulepacks"
	"github.com/pankaj-dahiya-devops/iacguard/internal/rules"
	"github.com/pankaj-dahiya-devops/iacguard/internal/secrets"
	"github.com/pankaj-dahiya-devops/iacguard/internal/suppression"
)

var scanTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func storageDeclarations() []graph.Declaration {
	return []graph.Declaration{
		{
			Type: "storage-account",
			Name: "sa01",
			Attributes: map[string]models.Value{
				"allowBlobPublicAccess": models.BoolValue(true),
			},
			Location: models.Location{File: "stack.yaml", StartLine: 3},
		},
	}
}

func rule042Registry() *rules.DefaultRuleRegistry {
	reg := rules.NewDefaultRuleRegistry()
	reg.Register(rules.Definition{
		RuleID:    "RULE-042",
		RuleTitle: "Bucket is tagged for review",
		Level:     models.SeverityHigh,
		Types:     []string{"aws_s3_bucket"},
	})
	return reg
}

func bucketDeclarations() []graph.Declaration {
	return []graph.Declaration{
		{Type: "aws_s3_bucket", Name: "logs"},
		{Type: "aws_s3_bucket", Name: "assets", Module: []string{"cdn"}},
	}
}

func mustEntries(t *testing.T, lines ...string) []suppression.Entry {
	t.Helper()
	entries, err := suppression.ParseLines(lines, ".iacguardignore")
	if err != nil {
		t.Fatalf("ParseLines: %v", err)
	}
	return entries
}

func countRule(findings []models.Finding, ruleID string) int {
	n := 0
	for _, f := range findings {
		if f.RuleID == ruleID {
			n++
		}
	}
	return n
}

// ── public blob scenario ─────────────────────────────────────────────────────

// TestScan_PublicBlobFailsHighGate verifies that one public storage account
// produces exactly one HIGH finding and fails a HIGH gate.
func TestScan_PublicBlobFailsHighGate(t *testing.T) {
	eng := NewDefaultEngine(rulepacks.DefaultRegistry(), Options{Workers: 2})

	rep, err := eng.Scan(context.Background(), Input{Declarations: storageDeclarations(), Now: scanTime})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(rep.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %d: %+v", len(rep.Findings), rep.Findings)
	}
	f := rep.Findings[0]
	if f.RuleID != "AZ_STORAGE_PUBLIC_BLOB" || f.Severity != models.SeverityHigh {
		t.Errorf("unexpected finding %s/%s", f.RuleID, f.Severity)
	}
	if f.Address != "storage-account.sa01" {
		t.Errorf("Address = %q; want storage-account.sa01", f.Address)
	}
	if f.Location.StartLine != 3 {
		t.Errorf("Location.StartLine = %d; want 3", f.Location.StartLine)
	}

	gate := rep.Gates.Misconfiguration
	if gate.Pass || gate.Count != 1 || gate.Threshold != models.SeverityHigh {
		t.Errorf("misconfiguration gate = %+v; want fail with count 1 at HIGH", gate)
	}
	if rep.Pass {
		t.Error("report should fail")
	}
	if rep.ReportID == "" {
		t.Error("expected a report ID")
	}
	if rep.Summary.Resources != 1 || rep.Summary.HighFindings != 1 {
		t.Errorf("unexpected summary %+v", rep.Summary)
	}
}

// TestScan_PublicBlobPassesCriticalGate verifies that the same input passes
// when the threshold is raised to CRITICAL.
func TestScan_PublicBlobPassesCriticalGate(t *testing.T) {
	eng := NewDefaultEngine(rulepacks.DefaultRegistry(), Options{MisconfigThreshold: models.SeverityCritical})

	rep, err := eng.Scan(context.Background(), Input{Declarations: storageDeclarations(), Now: scanTime})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !rep.Gates.Misconfiguration.Pass || rep.Gates.Misconfiguration.Count != 0 {
		t.Errorf("gate = %+v; want pass", rep.Gates.Misconfiguration)
	}
	if !rep.Pass {
		t.Error("report should pass")
	}
}

// TestScan_PolicyThresholdAndOverride verifies that the policy enforcement
// block sets the threshold and a per-rule severity override is honoured.
func TestScan_PolicyThresholdAndOverride(t *testing.T) {
	cfg, err := policy.ParsePolicy([]byte(`
version: 1
rules:
  AZ_STORAGE_PUBLIC_BLOB:
    severity: LOW
enforcement:
  misconfiguration:
    fail_on_severity: LOW
`))
	if err != nil {
		t.Fatalf("ParsePolicy: %v", err)
	}

	eng := NewDefaultEngine(rulepacks.DefaultRegistry(), Options{})
	rep, err := eng.Scan(context.Background(), Input{Declarations: storageDeclarations(), Policy: cfg, Now: scanTime})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if rep.Findings[0].Severity != models.SeverityLow {
		t.Errorf("Severity = %s; want LOW", rep.Findings[0].Severity)
	}
	gate := rep.Gates.Misconfiguration
	if gate.Threshold != models.SeverityLow || gate.Pass {
		t.Errorf("gate = %+v; want fail at LOW", gate)
	}
}

// TestScan_DisabledRuleProducesNothing verifies that a rule disabled in the
// policy contributes no findings.
func TestScan_DisabledRuleProducesNothing(t *testing.T) {
	cfg, err := policy.ParsePolicy([]byte("version: 1\nrules:\n  AZ_STORAGE_PUBLIC_BLOB:\n    enabled: false\n"))
	if err != nil {
		t.Fatalf("ParsePolicy: %v", err)
	}
	eng := NewDefaultEngine(rulepacks.DefaultRegistry(), Options{})
	rep, err := eng.Scan(context.Background(), Input{Declarations: storageDeclarations(), Policy: cfg, Now: scanTime})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(rep.Findings) != 0 {
		t.Errorf("expected no findings, got %+v", rep.Findings)
	}
}

// ── suppression ──────────────────────────────────────────────────────────────

// TestScan_GlobalSuppression verifies that an unscoped entry suppresses the
// rule at every address and removes it from the gate.
func TestScan_GlobalSuppression(t *testing.T) {
	eng := NewDefaultEngine(rule042Registry(), Options{})

	rep, err := eng.Scan(context.Background(), Input{
		Declarations: bucketDeclarations(),
		Suppressions: mustEntries(t, "RULE-042"),
		Now:          scanTime,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if countRule(rep.Findings, "RULE-042") != 2 {
		t.Fatalf("expected 2 RULE-042 findings, got %+v", rep.Findings)
	}
	for _, f := range rep.Findings {
		if !f.Suppressed {
			t.Errorf("%s at %s should be suppressed", f.RuleID, f.Address)
		}
	}
	if !rep.Gates.Misconfiguration.Pass {
		t.Errorf("suppressed findings must not fail the gate: %+v", rep.Gates.Misconfiguration)
	}
	if rep.Summary.Suppressed != 2 || rep.Summary.TotalFindings != 0 {
		t.Errorf("unexpected summary %+v", rep.Summary)
	}
}

// TestScan_PolicySuppressions verifies that suppressions listed in the
// policy file behave like suppression file entries.
func TestScan_PolicySuppressions(t *testing.T) {
	cfg := &policy.PolicyConfig{Version: 1, Suppressions: []string{"RULE-042:module.cdn.*"}}
	eng := NewDefaultEngine(rule042Registry(), Options{})

	rep, err := eng.Scan(context.Background(), Input{Declarations: bucketDeclarations(), Policy: cfg, Now: scanTime})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	for _, f := range rep.Findings {
		want := f.Address == "module.cdn.aws_s3_bucket.assets"
		if f.Suppressed != want {
			t.Errorf("%s suppressed = %v; want %v", f.Address, f.Suppressed, want)
		}
	}
	if rep.Gates.Misconfiguration.Count != 1 {
		t.Errorf("gate count = %d; want 1", rep.Gates.Misconfiguration.Count)
	}
}

// TestScan_ExpiredSuppressionIsStale verifies that an expired entry does not
// suppress and yields one stale finding.
func TestScan_ExpiredSuppressionIsStale(t *testing.T) {
	eng := NewDefaultEngine(rule042Registry(), Options{})

	rep, err := eng.Scan(context.Background(), Input{
		Declarations: bucketDeclarations(),
		Suppressions: mustEntries(t, "RULE-042:2026-01-31"),
		Now:          scanTime,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	for _, f := range rep.Findings {
		if f.RuleID == "RULE-042" && f.Suppressed {
			t.Errorf("%s must not be suppressed by an expired entry", f.Address)
		}
	}
	if n := countRule(rep.Findings, models.RuleStaleSuppression); n != 1 {
		t.Errorf("expected 1 stale finding, got %d", n)
	}
	if rep.Gates.Misconfiguration.Count != 2 {
		t.Errorf("gate count = %d; want 2", rep.Gates.Misconfiguration.Count)
	}
}

// ── secrets ──────────────────────────────────────────────────────────────────

// TestScan_SecretsGateIsIndependent verifies that a secret finding is gated
// by the secrets threshold only.
func TestScan_SecretsGateIsIndependent(t *testing.T) {
	eng := NewDefaultEngine(rulepacks.DefaultRegistry(), Options{SecretThreshold: models.SeverityMedium})

	rep, err := eng.Scan(context.Background(), Input{
		Declarations: []graph.Declaration{},
		Files: []models.SourceFile{
			{Path: "main.tf", Data: []byte("password = \"Tr0ub4dor&3xample!\"\nother = \"changeme\"\n")},
		},
		Now: scanTime,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(rep.Secrets) != 1 {
		t.Fatalf("expected 1 secret match, got %+v", rep.Secrets)
	}
	if rep.Secrets[0].PatternID != secrets.PatternGenericHighEntropy || rep.Secrets[0].Line != 1 {
		t.Errorf("unexpected match %+v", rep.Secrets[0])
	}
	if !rep.Gates.Misconfiguration.Pass {
		t.Error("misconfiguration gate should pass")
	}
	if rep.Gates.Secrets.Pass || rep.Gates.Secrets.Count != 1 {
		t.Errorf("secrets gate = %+v; want fail with count 1", rep.Gates.Secrets)
	}
	if rep.Summary.FilesScanned != 1 {
		t.Errorf("FilesScanned = %d; want 1", rep.Summary.FilesScanned)
	}
}

// TestScan_DisableSecrets verifies that the secret scanner can be skipped.
func TestScan_DisableSecrets(t *testing.T) {
	eng := NewDefaultEngine(rulepacks.DefaultRegistry(), Options{DisableSecrets: true})

	rep, err := eng.Scan(context.Background(), Input{
		Declarations: []graph.Declaration{},
		Files:        []models.SourceFile{{Path: "main.tf", Data: []byte("password = \"Tr0ub4dor&3xample!\"\n")}},
		Now:          scanTime,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(rep.Secrets) != 0 || len(rep.Findings) != 0 {
		t.Errorf("expected no secrets, got %+v", rep.Findings)
	}
}

// ── recovered errors ─────────────────────────────────────────────────────────

// TestScan_DanglingReferencesGroupedPerNode verifies that dangling references
// become one LOW finding per source node listing every missing target.
func TestScan_DanglingReferencesGroupedPerNode(t *testing.T) {
	decls := []graph.Declaration{
		{
			Type: "azurerm_kubernetes_cluster",
			Name: "aks",
			Attributes: map[string]models.Value{
				"vnet_subnet_id": models.FromAny("azurerm_subnet.missing.id"),
				"key_vault_id":   models.FromAny("azurerm_key_vault.gone.id"),
				"resource_group": models.FromAny("var.rg"),
			},
		},
	}
	eng := NewDefaultEngine(rules.NewDefaultRuleRegistry(), Options{})

	rep, err := eng.Scan(context.Background(), Input{Declarations: decls, Now: scanTime})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(rep.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %+v", rep.Findings)
	}
	f := rep.Findings[0]
	if f.RuleID != models.RuleDanglingReference || f.Severity != models.SeverityLow {
		t.Errorf("unexpected finding %s/%s", f.RuleID, f.Severity)
	}
	targets, _ := f.Metadata["targets"].([]string)
	if len(targets) != 2 || targets[0] != "azurerm_key_vault.gone" || targets[1] != "azurerm_subnet.missing" {
		t.Errorf("targets = %v", targets)
	}
	if !rep.Pass {
		t.Error("a LOW warning must not fail the default gate")
	}
}

// TestScan_DuplicateAddress verifies that a repeated address is reported.
func TestScan_DuplicateAddress(t *testing.T) {
	decls := []graph.Declaration{
		{Type: "aws_s3_bucket", Name: "logs"},
		{Type: "aws_s3_bucket", Name: "logs", Location: models.Location{File: "b.yaml", StartLine: 9}},
	}
	eng := NewDefaultEngine(rules.NewDefaultRuleRegistry(), Options{})

	rep, err := eng.Scan(context.Background(), Input{Declarations: decls, Now: scanTime})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if countRule(rep.Findings, models.RuleDuplicateAddress) != 1 {
		t.Errorf("expected a duplicate address finding, got %+v", rep.Findings)
	}
	if rep.Summary.Resources != 1 {
		t.Errorf("Resources = %d; want 1", rep.Summary.Resources)
	}
}

// TestScan_FailingRuleBecomesEngineError verifies that a rule error is
// downgraded to an INFO finding while other rules still run.
func TestScan_FailingRuleBecomesEngineError(t *testing.T) {
	reg := rule042Registry()
	reg.Register(rules.Definition{
		RuleID:    "BROKEN",
		RuleTitle: "Always fails",
		Level:     models.SeverityCritical,
		Types:     []string{"aws_s3_bucket"},
		Check: func(rules.RuleContext, *models.ResourceNode) ([]models.Finding, error) {
			return nil, errors.New("attribute type mismatch")
		},
	})
	eng := NewDefaultEngine(reg, Options{})

	rep, err := eng.Scan(context.Background(), Input{Declarations: bucketDeclarations(), Now: scanTime})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if countRule(rep.Findings, models.RuleEngineError) != 2 {
		t.Errorf("expected one engine error per bucket, got %+v", rep.Findings)
	}
	if countRule(rep.Findings, "RULE-042") != 2 {
		t.Errorf("healthy rule should still report, got %+v", rep.Findings)
	}
	for _, f := range rep.Findings {
		if f.RuleID == models.RuleEngineError && f.Severity != models.SeverityInfo {
			t.Errorf("engine error severity = %s; want INFO", f.Severity)
		}
	}
}

// TestScan_EngineErrorsPerRuleSurviveDedup verifies that two rules failing
// on the same node are both reported.
func TestScan_EngineErrorsPerRuleSurviveDedup(t *testing.T) {
	reg := rules.NewDefaultRuleRegistry()
	for _, id := range []string{"BAD_A", "BAD_B"} {
		reg.Register(rules.Definition{
			RuleID: id,
			Level:  models.SeverityHigh,
			Types:  []string{"aws_s3_bucket"},
			Check: func(rules.RuleContext, *models.ResourceNode) ([]models.Finding, error) {
				return nil, errors.New("boom")
			},
		})
	}
	eng := NewDefaultEngine(reg, Options{})

	decls := []graph.Declaration{{Type: "aws_s3_bucket", Name: "logs"}}
	rep, err := eng.Scan(context.Background(), Input{Declarations: decls, Now: scanTime})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	failed := map[any]bool{}
	for _, f := range rep.Findings {
		if f.RuleID == models.RuleEngineError {
			failed[f.Metadata["rule"]] = true
		}
	}
	if len(failed) != 2 || !failed["BAD_A"] || !failed["BAD_B"] {
		t.Errorf("expected engine errors for BAD_A and BAD_B, got %+v", rep.Findings)
	}
}

// ── fatal errors ─────────────────────────────────────────────────────────────

// TestScan_MalformedInput verifies that unparseable input is a run failure
// and never a report.
func TestScan_MalformedInput(t *testing.T) {
	eng := NewDefaultEngine(rulepacks.DefaultRegistry(), Options{})

	rep, err := eng.Scan(context.Background(), Input{Declarations: nil})
	var malformed *graph.MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
	if rep != nil {
		t.Error("expected no report")
	}
}

// TestScan_Cancelled verifies that a cancelled scan emits no partial report.
func TestScan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := NewDefaultEngine(rulepacks.DefaultRegistry(), Options{})
	rep, err := eng.Scan(ctx, Input{Declarations: storageDeclarations(), Now: scanTime})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if rep != nil {
		t.Error("expected no report")
	}
}

// TestScan_Deterministic verifies that two scans of the same input yield the
// same findings in the same order.
func TestScan_Deterministic(t *testing.T) {
	decls := append(storageDeclarations(), bucketDeclarations()...)
	in := Input{Declarations: decls, Suppressions: mustEntries(t, "AZ_STORAGE_PUBLIC_BLOB:2020-01-01"), Now: scanTime}

	first, err := NewDefaultEngine(rulepacks.DefaultRegistry(), Options{Workers: 1}).Scan(context.Background(), in)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	second, err := NewDefaultEngine(rulepacks.DefaultRegistry(), Options{Workers: 8}).Scan(context.Background(), in)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(first.Findings) != len(second.Findings) {
		t.Fatalf("finding counts differ: %d vs %d", len(first.Findings), len(second.Findings))
	}
	for i := range first.Findings {
		a, b := first.Findings[i], second.Findings[i]
		if a.RuleID != b.RuleID || a.Address != b.Address || a.Suppressed != b.Suppressed {
			t.Errorf("finding %d differs: %s@%s vs %s@%s", i, a.RuleID, a.Address, b.RuleID, b.Address)
		}
	}
}
