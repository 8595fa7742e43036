package rules

import (
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

var aksClusterTypes = []string{"azurerm_kubernetes_cluster", "aks-cluster"}

// acceptedNetworkPolicies are the AKS network policy engines that enforce
// Kubernetes NetworkPolicy objects.
var acceptedNetworkPolicies = map[string]bool{
	"azure":  true,
	"calico": true,
	"cilium": true,
}

// ── AKS_NETWORK_POLICY_MISSING ───────────────────────────────────────────────

// AKSNetworkPolicyMissingRule fires when a cluster has no network policy
// engine, leaving pod-to-pod traffic unrestricted.
type AKSNetworkPolicyMissingRule struct{}

func (r AKSNetworkPolicyMissingRule) ID() string                { return "AKS_NETWORK_POLICY_MISSING" }
func (r AKSNetworkPolicyMissingRule) Title() string             { return "AKS Cluster Without Network Policy" }
func (r AKSNetworkPolicyMissingRule) Severity() models.Severity { return models.SeverityMedium }
func (r AKSNetworkPolicyMissingRule) ResourceTypes() []string   { return aksClusterTypes }

func (r AKSNetworkPolicyMissingRule) Evaluate(_ RuleContext, node *models.ResourceNode) []models.Finding {
	v, ok := lookup(node, "network_profile.network_policy", "networkProfile.networkPolicy")
	if ok && v.Kind != models.KindString {
		// Computed from a variable; cannot be judged statically.
		return nil
	}
	if ok && acceptedNetworkPolicies[strings.ToLower(v.Str)] {
		return nil
	}
	msg := fmt.Sprintf("AKS cluster %s has no network policy engine configured.", node.Address)
	if ok && v.Str != "" {
		msg = fmt.Sprintf("AKS cluster %s uses unsupported network policy %q.", node.Address, v.Str)
	}
	return []models.Finding{NewFinding(r, node, msg,
		"Set network_profile.network_policy to \"cilium\", \"azure\" or \"calico\" and define NetworkPolicy objects per namespace.",
	)}
}

// ── AKS_RBAC_DISABLED ────────────────────────────────────────────────────────

// AKSRBACDisabledRule fires when Kubernetes RBAC is explicitly disabled.
type AKSRBACDisabledRule struct{}

func (r AKSRBACDisabledRule) ID() string                { return "AKS_RBAC_DISABLED" }
func (r AKSRBACDisabledRule) Title() string             { return "AKS Cluster With RBAC Disabled" }
func (r AKSRBACDisabledRule) Severity() models.Severity { return models.SeverityHigh }
func (r AKSRBACDisabledRule) ResourceTypes() []string   { return aksClusterTypes }

func (r AKSRBACDisabledRule) Evaluate(_ RuleContext, node *models.ResourceNode) []models.Finding {
	if !isFalse(node, "role_based_access_control_enabled", "role_based_access_control.enabled", "enableRBAC") {
		return nil
	}
	return []models.Finding{NewFinding(r, node,
		fmt.Sprintf("AKS cluster %s has Kubernetes RBAC disabled; every authenticated identity is cluster-admin.", node.Address),
		"Set role_based_access_control_enabled = true. RBAC cannot be enabled in place, so the cluster must be recreated.",
	)}
}

// ── AKS_PUBLIC_API_UNRESTRICTED ──────────────────────────────────────────────

// AKSPublicAPIUnrestrictedRule fires when the API server is public and no
// authorized IP ranges are configured.
type AKSPublicAPIUnrestrictedRule struct{}

func (r AKSPublicAPIUnrestrictedRule) ID() string                { return "AKS_PUBLIC_API_UNRESTRICTED" }
func (r AKSPublicAPIUnrestrictedRule) Title() string             { return "AKS API Server Reachable From Any Address" }
func (r AKSPublicAPIUnrestrictedRule) Severity() models.Severity { return models.SeverityMedium }
func (r AKSPublicAPIUnrestrictedRule) ResourceTypes() []string   { return aksClusterTypes }

func (r AKSPublicAPIUnrestrictedRule) Match(node *models.ResourceNode) bool {
	return !isTrue(node, "private_cluster_enabled", "apiServerAccessProfile.enablePrivateCluster")
}

func (r AKSPublicAPIUnrestrictedRule) Evaluate(_ RuleContext, node *models.ResourceNode) []models.Finding {
	v, ok := lookup(node,
		"api_server_access_profile.authorized_ip_ranges",
		"api_server_authorized_ip_ranges",
		"apiServerAccessProfile.authorizedIPRanges",
	)
	if ok && (v.Kind != models.KindList || len(v.List) > 0) {
		return nil
	}
	return []models.Finding{NewFinding(r, node,
		fmt.Sprintf("AKS cluster %s exposes a public API server without authorized IP ranges.", node.Address),
		"Set api_server_access_profile.authorized_ip_ranges to trusted CIDRs or enable private_cluster_enabled.",
	)}
}

// ── AZ_KEYVAULT_PURGE_PROTECTION ─────────────────────────────────────────────

// AzureKeyVaultPurgeProtectionRule fires when purge protection is absent or
// off, which lets a deleted vault and its keys be destroyed permanently.
type AzureKeyVaultPurgeProtectionRule struct{}

func (r AzureKeyVaultPurgeProtectionRule) ID() string                { return "AZ_KEYVAULT_PURGE_PROTECTION" }
func (r AzureKeyVaultPurgeProtectionRule) Title() string             { return "Key Vault Without Purge Protection" }
func (r AzureKeyVaultPurgeProtectionRule) Severity() models.Severity { return models.SeverityMedium }

func (r AzureKeyVaultPurgeProtectionRule) ResourceTypes() []string {
	return []string{"azurerm_key_vault", "key-vault"}
}

func (r AzureKeyVaultPurgeProtectionRule) Evaluate(_ RuleContext, node *models.ResourceNode) []models.Finding {
	if !notTrue(node, "purge_protection_enabled", "enablePurgeProtection") {
		return nil
	}
	return []models.Finding{NewFinding(r, node,
		fmt.Sprintf("Key vault %s does not have purge protection enabled.", node.Address),
		"Set purge_protection_enabled = true.",
	)}
}
