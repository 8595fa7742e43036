package rulepacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_AllBuiltinRules(t *testing.T) {
	reg := DefaultRegistry()

	assert.Equal(t, []string{
		"AZ_STORAGE_PUBLIC_BLOB",
		"AZ_STORAGE_HTTP_ALLOWED",
		"AZ_STORAGE_MIN_TLS",
		"AKS_NETWORK_POLICY_MISSING",
		"AKS_RBAC_DISABLED",
		"AKS_PUBLIC_API_UNRESTRICTED",
		"AZ_KEYVAULT_PURGE_PROTECTION",
		"AZ_NSG_ALLOW_ALL_INBOUND",
		"RDS_PUBLICLY_ACCESSIBLE",
		"S3_PUBLIC_ACL",
		"SG_OPEN_ADMIN_PORT",
		"RDS_UNENCRYPTED",
		"IAM_WILDCARD_POLICY",
		"KMS_ROTATION_DISABLED",
		"NET_REFERENCES_OPEN_SG",
		"HARDCODED_CREDENTIAL_ATTRIBUTE",
	}, reg.IDs())

	for _, r := range reg.All() {
		require.True(t, r.Severity().Valid(), r.ID())
		require.NotEmpty(t, r.Title(), r.ID())
	}
}
