// Package aws provides the AWS rule pack.
package aws

import "github.com/pankaj-dahiya-devops/iacguard/internal/rules"

// New returns the AWS rule pack.
func New() []rules.Rule {
	return []rules.Rule{
		rules.RDSPubliclyAccessibleRule{},      // CRITICAL: database has a public endpoint
		rules.S3PublicACLRule{},                // HIGH:     public canned ACL
		rules.SecurityGroupOpenAdminPortRule{}, // HIGH:     admin port open to 0.0.0.0/0
		rules.RDSUnencryptedRule{},             // HIGH:     storage not encrypted
		rules.IAMWildcardPolicyRule{},          // HIGH:     Action "*" on Resource "*"
		rules.KMSRotationDisabledRule{},        // LOW:      key rotation off
	}
}
