package rules

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// ── IAM_WILDCARD_POLICY ──────────────────────────────────────────────────────

// IAMWildcardPolicyRule fires when a policy document contains an Allow
// statement granting Action "*" on Resource "*". A document that is neither
// a JSON string nor an inline object is reported as an evaluation error.
type IAMWildcardPolicyRule struct{}

func (r IAMWildcardPolicyRule) ID() string                { return "IAM_WILDCARD_POLICY" }
func (r IAMWildcardPolicyRule) Title() string             { return "IAM Policy Grants Full Administrative Access" }
func (r IAMWildcardPolicyRule) Severity() models.Severity { return models.SeverityHigh }

func (r IAMWildcardPolicyRule) ResourceTypes() []string {
	return []string{
		"aws_iam_policy",
		"aws_iam_role_policy",
		"aws_iam_user_policy",
		"aws_iam_group_policy",
		"iam-policy",
	}
}

func (r IAMWildcardPolicyRule) Evaluate(ctx RuleContext, node *models.ResourceNode) []models.Finding {
	findings, err := r.EvaluateE(ctx, node)
	if err != nil {
		panic(err)
	}
	return findings
}

// EvaluateE implements FallibleRule.
func (r IAMWildcardPolicyRule) EvaluateE(_ RuleContext, node *models.ResourceNode) ([]models.Finding, error) {
	v, ok := lookup(node, "policy", "document")
	if !ok {
		return nil, nil
	}

	var doc any
	switch v.Kind {
	case models.KindString:
		if err := json.Unmarshal([]byte(v.Str), &doc); err != nil {
			return nil, fmt.Errorf("policy document is not valid JSON: %w", err)
		}
	case models.KindMap:
		doc = plain(v)
	case models.KindReference, models.KindUnresolved:
		// Rendered from a data source or jsonencode() at apply time.
		return nil, nil
	default:
		return nil, fmt.Errorf("policy document has unsupported type %s", v.Kind)
	}

	for i, stmt := range statements(doc) {
		if !strings.EqualFold(fmt.Sprint(stmt["Effect"]), "allow") {
			continue
		}
		if containsWildcard(stmt["Action"]) && containsWildcard(stmt["Resource"]) {
			f := NewFinding(r, node,
				fmt.Sprintf("%s allows every action on every resource (statement %d).", node.Address, i),
				"Replace the wildcard statement with the specific actions and resource ARNs the workload needs.",
			)
			f.Metadata = map[string]any{"statement": i}
			return []models.Finding{f}, nil
		}
	}
	return nil, nil
}

func statements(doc any) []map[string]any {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	switch s := m["Statement"].(type) {
	case map[string]any:
		return []map[string]any{s}
	case []any:
		out := make([]map[string]any, 0, len(s))
		for _, e := range s {
			if sm, ok := e.(map[string]any); ok {
				out = append(out, sm)
			}
		}
		return out
	}
	return nil
}

func containsWildcard(v any) bool {
	switch x := v.(type) {
	case string:
		return x == "*"
	case []any:
		for _, e := range x {
			if s, ok := e.(string); ok && s == "*" {
				return true
			}
		}
	}
	return false
}

// ── KMS_ROTATION_DISABLED ────────────────────────────────────────────────────

// KMSRotationDisabledRule fires for symmetric KMS keys without automatic
// rotation. Asymmetric and HMAC keys cannot be rotated and are skipped.
type KMSRotationDisabledRule struct{}

func (r KMSRotationDisabledRule) ID() string                { return "KMS_ROTATION_DISABLED" }
func (r KMSRotationDisabledRule) Title() string             { return "KMS Key Rotation Disabled" }
func (r KMSRotationDisabledRule) Severity() models.Severity { return models.SeverityLow }
func (r KMSRotationDisabledRule) ResourceTypes() []string   { return []string{"aws_kms_key", "kms-key"} }

func (r KMSRotationDisabledRule) Match(node *models.ResourceNode) bool {
	spec, ok := stringAttr(node, "customer_master_key_spec", "key_spec")
	return !ok || strings.EqualFold(spec, "SYMMETRIC_DEFAULT")
}

func (r KMSRotationDisabledRule) Evaluate(_ RuleContext, node *models.ResourceNode) []models.Finding {
	if !notTrue(node, "enable_key_rotation", "enableKeyRotation") {
		return nil
	}
	return []models.Finding{NewFinding(r, node,
		fmt.Sprintf("KMS key %s does not rotate its key material automatically.", node.Address),
		"Set enable_key_rotation = true.",
	)}
}
