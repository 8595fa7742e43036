package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// AzureNSGAllowAllInboundRule flags network security groups and standalone
// NSG rules that allow inbound traffic from any source ("*", "Internet",
// 0.0.0.0/0) to admin ports or to every port.
type AzureNSGAllowAllInboundRule struct{}

func (r AzureNSGAllowAllInboundRule) ID() string                { return "AZ_NSG_ALLOW_ALL_INBOUND" }
func (r AzureNSGAllowAllInboundRule) Title() string             { return "NSG Allows Inbound Traffic From Any Source" }
func (r AzureNSGAllowAllInboundRule) Severity() models.Severity { return models.SeverityHigh }

func (r AzureNSGAllowAllInboundRule) ResourceTypes() []string {
	return append(append([]string{}, nsgTypes...), nsgRuleTypes...)
}

func (r AzureNSGAllowAllInboundRule) Evaluate(_ RuleContext, node *models.ResourceNode) []models.Finding {
	open := dangerousOnly(exposures(node))
	if len(open) == 0 {
		return nil
	}
	return []models.Finding{NewFinding(r, node,
		fmt.Sprintf("%s allows unrestricted inbound access: %s.", node.Address, describe(open)),
		"Limit source_address_prefix to known ranges or service tags and never allow '*' on management ports; use Azure Bastion for admin access.",
	)}
}
