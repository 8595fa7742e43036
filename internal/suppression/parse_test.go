package suppression

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Forms(t *testing.T) {
	input := `
# team-wide exceptions
RULE-042
AZ_STORAGE_PUBLIC_BLOB:azurerm_storage_account.public_site
SG_OPEN_ADMIN_PORT:module.bastion.**   # bastion hosts
KMS_ROTATION_DISABLED:2025-06-30
AKS_RBAC_DISABLED:modules/legacy/**:2026-01-31
S3_PUBLIC_ACL:aws_s3_bucket.site:2026-03-01T12:00:00Z
`
	entries, err := Parse(strings.NewReader(input), ".iacguardignore")
	require.NoError(t, err)
	require.Len(t, entries, 6)

	assert.Equal(t, Entry{RuleID: "RULE-042", Source: ".iacguardignore", Line: 3}, entries[0])

	assert.Equal(t, "azurerm_storage_account.public_site", entries[1].Scope)
	assert.True(t, entries[1].Expires.IsZero())

	assert.Equal(t, "module.bastion.**", entries[2].Scope)

	assert.Empty(t, entries[3].Scope, "a lone date is an expiry, not a scope")
	assert.Equal(t, time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC), entries[3].Expires)

	assert.Equal(t, "modules/legacy/**", entries[4].Scope)
	assert.Equal(t, time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC), entries[4].Expires)

	assert.Equal(t, "aws_s3_bucket.site", entries[5].Scope)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), entries[5].Expires)
	assert.Equal(t, 8, entries[5].Line)
}

func TestParse_InvalidLinesReported(t *testing.T) {
	input := "GOOD\n:no-rule\nBAD:scope:2025-13-45\nALSO GOOD\n"
	_, err := Parse(strings.NewReader(input), "ignore.txt")
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
	assert.Contains(t, err.Error(), "ignore.txt:2: missing rule ID")
	assert.Contains(t, err.Error(), "ignore.txt:3: invalid expiry")
	assert.Contains(t, err.Error(), "ignore.txt:4: invalid rule ID")
}

func TestParseLine_InvalidGlob(t *testing.T) {
	_, err := ParseLine("RULE:modules/[abc")
	assert.Error(t, err)
}

func TestParseLine_ScopesWithColons(t *testing.T) {
	cases := map[string]string{
		"SECRET_AWS_ACCESS_KEY:s3://iac-bucket/stacks/main.tf": "s3://iac-bucket/stacks/main.tf",
		"SECRET_AWS_ACCESS_KEY:main.tf:12":                     "main.tf:12",
		"SECRET_GENERIC_ENTROPY:s3://iac-bucket/**":            "s3://iac-bucket/**",
	}
	for line, scope := range cases {
		e, err := ParseLine(line)
		require.NoError(t, err, line)
		assert.Equal(t, scope, e.Scope, line)
		assert.True(t, e.Expires.IsZero(), line)
	}

	e, err := ParseLine("SECRET_AWS_ACCESS_KEY:main.tf:12:2026-01-31")
	require.NoError(t, err)
	assert.Equal(t, "main.tf:12", e.Scope)
	assert.Equal(t, time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC), e.Expires)
}

func TestParseLine_DateLikeTailIsInvalidExpiry(t *testing.T) {
	for _, line := range []string{
		"S3_PUBLIC_ACL:aws_s3_bucket.logs:31/01/2026",
		"S3_PUBLIC_ACL:aws_s3_bucket.logs:2026-03-01T12:00:00",
		"S3_PUBLIC_ACL:2025-13-45",
	} {
		_, err := ParseLine(line)
		require.Error(t, err, line)
		assert.Contains(t, err.Error(), "invalid expiry", line)
	}
}

func TestParseLines_PolicyList(t *testing.T) {
	entries, err := ParseLines([]string{"RULE-042", "S3_PUBLIC_ACL:aws_s3_bucket.*"}, "policy")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[1].Line)
	assert.Equal(t, "policy", entries[1].Source)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".iacguardignore")
	require.NoError(t, os.WriteFile(path, []byte("RULE-042\n"), 0o644))

	entries, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, path, entries[0].Source)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestEntry_StringRoundTrip(t *testing.T) {
	e, err := ParseLine("AKS_RBAC_DISABLED:modules/legacy/**:2026-01-31")
	require.NoError(t, err)

	again, err := ParseLine(e.String())
	require.NoError(t, err)
	assert.Equal(t, e, again)
}
