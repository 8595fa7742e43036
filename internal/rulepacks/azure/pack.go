// Package azure provides the Azure rule pack.
//
// Convention: every rule pack lives in internal/rulepacks/<domain>/pack.go
// and exposes a single New() func returning []rules.Rule.
package azure

import "github.com/pankaj-dahiya-devops/iacguard/internal/rules"

// New returns the Azure rule pack.
func New() []rules.Rule {
	return []rules.Rule{
		rules.AzureStoragePublicBlobRule{},       // HIGH:   anonymous blob access allowed
		rules.AzureStorageHTTPAllowedRule{},      // MEDIUM: HTTPS-only disabled
		rules.AzureStorageMinTLSRule{},           // MEDIUM: min_tls_version below TLS1_2
		rules.AKSNetworkPolicyMissingRule{},      // MEDIUM: no network policy engine
		rules.AKSRBACDisabledRule{},              // HIGH:   Kubernetes RBAC disabled
		rules.AKSPublicAPIUnrestrictedRule{},     // MEDIUM: public API without authorized ranges
		rules.AzureKeyVaultPurgeProtectionRule{}, // MEDIUM: purge protection off
		rules.AzureNSGAllowAllInboundRule{},      // HIGH:   NSG open to any source
	}
}
