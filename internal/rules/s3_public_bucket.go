package rules

import (
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// publicCannedACLs are the S3 canned ACLs that grant access beyond the owner.
var publicCannedACLs = map[string]bool{
	"public-read":        true,
	"public-read-write":  true,
	"authenticated-read": true,
}

// S3PublicACLRule flags buckets whose canned ACL grants read or write access
// to everyone. Both the legacy acl argument on aws_s3_bucket and the separate
// aws_s3_bucket_acl resource are inspected.
type S3PublicACLRule struct{}

func (r S3PublicACLRule) ID() string                { return "S3_PUBLIC_ACL" }
func (r S3PublicACLRule) Title() string             { return "S3 Bucket With Public ACL" }
func (r S3PublicACLRule) Severity() models.Severity { return models.SeverityHigh }

func (r S3PublicACLRule) ResourceTypes() []string {
	return []string{"aws_s3_bucket", "aws_s3_bucket_acl", "s3-bucket"}
}

func (r S3PublicACLRule) Evaluate(_ RuleContext, node *models.ResourceNode) []models.Finding {
	acl, ok := stringAttr(node, "acl")
	if !ok || !publicCannedACLs[strings.ToLower(acl)] {
		return nil
	}
	f := NewFinding(r, node,
		fmt.Sprintf("%s uses the %q canned ACL, exposing bucket contents outside the account.", node.Address, acl),
		"Use the private ACL, set object_ownership = \"BucketOwnerEnforced\" and enable aws_s3_bucket_public_access_block.",
	)
	f.Metadata = map[string]any{"acl": acl}
	return []models.Finding{f}
}
