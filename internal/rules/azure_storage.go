package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
	"github.com/pankaj-dahiya-devops/iacguard/internal/policy"
)

var storageAccountTypes = []string{"azurerm_storage_account", "storage-account"}

// ── AZ_STORAGE_PUBLIC_BLOB ───────────────────────────────────────────────────

// AzureStoragePublicBlobRule fires when a storage account allows anonymous
// public read access to blobs and containers.
type AzureStoragePublicBlobRule struct{}

func (r AzureStoragePublicBlobRule) ID() string                { return "AZ_STORAGE_PUBLIC_BLOB" }
func (r AzureStoragePublicBlobRule) Title() string             { return "Storage Account Allows Public Blob Access" }
func (r AzureStoragePublicBlobRule) Severity() models.Severity { return models.SeverityHigh }
func (r AzureStoragePublicBlobRule) ResourceTypes() []string   { return storageAccountTypes }

func (r AzureStoragePublicBlobRule) Match(node *models.ResourceNode) bool {
	return isTrue(node, "allow_nested_items_to_be_public", "allow_blob_public_access", "allowBlobPublicAccess")
}

func (r AzureStoragePublicBlobRule) Evaluate(_ RuleContext, node *models.ResourceNode) []models.Finding {
	return []models.Finding{NewFinding(r, node,
		fmt.Sprintf("Storage account %s permits anonymous public access to blob data.", node.Address),
		"Set allow_nested_items_to_be_public = false and grant access through SAS tokens or Entra ID roles.",
	)}
}

// ── AZ_STORAGE_HTTP_ALLOWED ──────────────────────────────────────────────────

// AzureStorageHTTPAllowedRule fires when HTTPS-only traffic is explicitly
// turned off.
type AzureStorageHTTPAllowedRule struct{}

func (r AzureStorageHTTPAllowedRule) ID() string                { return "AZ_STORAGE_HTTP_ALLOWED" }
func (r AzureStorageHTTPAllowedRule) Title() string             { return "Storage Account Accepts Plain HTTP" }
func (r AzureStorageHTTPAllowedRule) Severity() models.Severity { return models.SeverityMedium }
func (r AzureStorageHTTPAllowedRule) ResourceTypes() []string   { return storageAccountTypes }

func (r AzureStorageHTTPAllowedRule) Evaluate(_ RuleContext, node *models.ResourceNode) []models.Finding {
	if !isFalse(node, "https_traffic_only_enabled", "enable_https_traffic_only", "supportsHttpsTrafficOnly") {
		return nil
	}
	return []models.Finding{NewFinding(r, node,
		fmt.Sprintf("Storage account %s accepts unencrypted HTTP requests.", node.Address),
		"Set https_traffic_only_enabled = true.",
	)}
}

// ── AZ_STORAGE_MIN_TLS ───────────────────────────────────────────────────────

// defaultMinTLS is the lowest acceptable TLS version. Override per policy
// with rules.AZ_STORAGE_MIN_TLS.params.min_tls.
const defaultMinTLS = 1.2

// AzureStorageMinTLSRule fires when min_tls_version is set below the
// configured minimum. An absent value is left alone because current provider
// versions default to TLS1_2.
type AzureStorageMinTLSRule struct{}

func (r AzureStorageMinTLSRule) ID() string                { return "AZ_STORAGE_MIN_TLS" }
func (r AzureStorageMinTLSRule) Title() string             { return "Storage Account Allows Legacy TLS" }
func (r AzureStorageMinTLSRule) Severity() models.Severity { return models.SeverityMedium }
func (r AzureStorageMinTLSRule) ResourceTypes() []string   { return storageAccountTypes }

func (r AzureStorageMinTLSRule) Evaluate(ctx RuleContext, node *models.ResourceNode) []models.Finding {
	raw, ok := stringAttr(node, "min_tls_version", "minimumTlsVersion")
	if !ok {
		return nil
	}
	version, ok := parseTLSVersion(raw)
	if !ok {
		return nil
	}
	minimum := policy.GetThreshold(r.ID(), "min_tls", defaultMinTLS, ctx.Policy)
	if version >= minimum {
		return nil
	}
	f := NewFinding(r, node,
		fmt.Sprintf("Storage account %s accepts %s, below the required TLS %.1f.", node.Address, raw, minimum),
		"Set min_tls_version = \"TLS1_2\".",
	)
	f.Metadata = map[string]any{"min_tls_version": raw}
	return []models.Finding{f}
}

// parseTLSVersion turns "TLS1_0", "TLS1.1" or "1.2" into a number.
func parseTLSVersion(s string) (float64, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "TLS")
	s = strings.ReplaceAll(s, "_", ".")
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}
