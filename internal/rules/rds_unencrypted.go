package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

var rdsTypes = []string{"aws_db_instance", "aws_rds_cluster", "rds-instance"}

// ── RDS_UNENCRYPTED ──────────────────────────────────────────────────────────

// RDSUnencryptedRule flags database instances and clusters that do not have
// storage encryption enabled. The provider default is false, so an absent
// storage_encrypted argument fires as well.
type RDSUnencryptedRule struct{}

func (r RDSUnencryptedRule) ID() string                { return "RDS_UNENCRYPTED" }
func (r RDSUnencryptedRule) Title() string             { return "RDS Storage Not Encrypted" }
func (r RDSUnencryptedRule) Severity() models.Severity { return models.SeverityHigh }
func (r RDSUnencryptedRule) ResourceTypes() []string   { return rdsTypes }

func (r RDSUnencryptedRule) Evaluate(_ RuleContext, node *models.ResourceNode) []models.Finding {
	if !notTrue(node, "storage_encrypted", "storageEncrypted") {
		return nil
	}
	// Replicas inherit encryption from their source.
	if _, ok := lookup(node, "replicate_source_db"); ok {
		return nil
	}
	return []models.Finding{NewFinding(r, node,
		fmt.Sprintf("%s does not enable storage encryption.", node.Address),
		"Set storage_encrypted = true. Encryption must be chosen at creation time; migrate existing data through an encrypted snapshot copy.",
	)}
}

// ── RDS_PUBLICLY_ACCESSIBLE ──────────────────────────────────────────────────

// RDSPubliclyAccessibleRule flags database instances with a public endpoint.
type RDSPubliclyAccessibleRule struct{}

func (r RDSPubliclyAccessibleRule) ID() string                { return "RDS_PUBLICLY_ACCESSIBLE" }
func (r RDSPubliclyAccessibleRule) Title() string             { return "RDS Instance Publicly Accessible" }
func (r RDSPubliclyAccessibleRule) Severity() models.Severity { return models.SeverityCritical }
func (r RDSPubliclyAccessibleRule) ResourceTypes() []string   { return rdsTypes }

func (r RDSPubliclyAccessibleRule) Match(node *models.ResourceNode) bool {
	return isTrue(node, "publicly_accessible", "publiclyAccessible")
}

func (r RDSPubliclyAccessibleRule) Evaluate(_ RuleContext, node *models.ResourceNode) []models.Finding {
	return []models.Finding{NewFinding(r, node,
		fmt.Sprintf("%s is reachable from the internet through a public endpoint.", node.Address),
		"Set publicly_accessible = false and reach the database through private subnets or a VPN.",
	)}
}
