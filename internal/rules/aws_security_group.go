package rules

import (
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// SecurityGroupOpenAdminPortRule flags AWS security groups and ingress rules
// that expose remote admin or database ports to 0.0.0.0/0 or ::/0. Each node
// produces at most one finding regardless of how many open rules it contains.
type SecurityGroupOpenAdminPortRule struct{}

func (r SecurityGroupOpenAdminPortRule) ID() string                { return "SG_OPEN_ADMIN_PORT" }
func (r SecurityGroupOpenAdminPortRule) Title() string             { return "Security Group Exposes Admin Port To Internet" }
func (r SecurityGroupOpenAdminPortRule) Severity() models.Severity { return models.SeverityHigh }

func (r SecurityGroupOpenAdminPortRule) ResourceTypes() []string {
	return append(append([]string{}, awsGroupTypes...), awsGroupRuleTypes...)
}

func (r SecurityGroupOpenAdminPortRule) Evaluate(_ RuleContext, node *models.ResourceNode) []models.Finding {
	var ports []string
	seen := map[int]bool{}
	for _, e := range exposures(node) {
		for _, p := range e.openAdminPorts() {
			if seen[p] {
				continue
			}
			seen[p] = true
			ports = append(ports, fmt.Sprintf("%d/%s", p, adminPorts[p]))
		}
	}
	if len(ports) == 0 {
		return nil
	}
	f := NewFinding(r, node,
		fmt.Sprintf("%s allows inbound traffic from the internet to %s.", node.Address, strings.Join(ports, ", ")),
		"Restrict admin and database ports to trusted CIDR ranges, or use SSM Session Manager or a bastion instead of direct exposure.",
	)
	f.Metadata = map[string]any{"ports": ports}
	return []models.Finding{f}
}
