package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// ── NET_REFERENCES_OPEN_SG ───────────────────────────────────────────────────

// NetReferencesOpenGroupRule follows reference edges from compute and network
// attachment resources to the firewall they use. It fires when a referenced
// security group or NSG, including standalone rules attached to it, admits
// internet traffic on admin ports or on every port.
type NetReferencesOpenGroupRule struct{}

func (r NetReferencesOpenGroupRule) ID() string                { return "NET_REFERENCES_OPEN_SG" }
func (r NetReferencesOpenGroupRule) Title() string             { return "Resource Attached To Internet-Open Firewall" }
func (r NetReferencesOpenGroupRule) Severity() models.Severity { return models.SeverityHigh }

func (r NetReferencesOpenGroupRule) ResourceTypes() []string {
	return []string{
		"aws_instance",
		"aws_launch_template",
		"aws_network_interface",
		"aws_db_instance",
		"azurerm_network_interface_security_group_association",
		"azurerm_subnet_network_security_group_association",
	}
}

func (r NetReferencesOpenGroupRule) Evaluate(ctx RuleContext, node *models.ResourceNode) []models.Finding {
	if ctx.Graph == nil {
		return nil
	}
	groupTypes := append(append([]string{}, awsGroupTypes...), nsgTypes...)

	var groups []string
	var details []string
	for _, group := range ctx.Graph.Referenced(node.Address.String(), groupTypes...) {
		open := dangerousOnly(groupExposures(ctx.Graph, group))
		if len(open) == 0 {
			continue
		}
		groups = append(groups, group.Address.String())
		details = append(details, fmt.Sprintf("%s: %s", group.Address, describe(open)))
	}
	if len(groups) == 0 {
		return nil
	}
	f := NewFinding(r, node,
		fmt.Sprintf("%s is attached to a firewall open to the internet (%s).", node.Address, strings.Join(details, "; ")),
		"Attach a security group or NSG that only admits trusted sources, or close the open rules on the referenced group.",
	)
	f.Metadata = map[string]any{"groups": groups}
	return []models.Finding{f}
}

// ── HARDCODED_CREDENTIAL_ATTRIBUTE ───────────────────────────────────────────

// credentialSuffixes are attribute-name endings that denote a credential.
var credentialSuffixes = []string{
	"password",
	"secret",
	"access_key",
	"secret_key",
	"client_secret",
	"api_key",
}

// HardcodedCredentialRule fires when a credential-named attribute holds a
// literal string instead of a reference to a variable or secret store. It
// applies to every resource type.
type HardcodedCredentialRule struct{}

func (r HardcodedCredentialRule) ID() string                { return "HARDCODED_CREDENTIAL_ATTRIBUTE" }
func (r HardcodedCredentialRule) Title() string             { return "Credential Hardcoded In Resource Attribute" }
func (r HardcodedCredentialRule) Severity() models.Severity { return models.SeverityHigh }
func (r HardcodedCredentialRule) ResourceTypes() []string   { return nil }

func (r HardcodedCredentialRule) Evaluate(_ RuleContext, node *models.ResourceNode) []models.Finding {
	var paths []string
	collectCredentials("", models.MapValue(node.Attributes), &paths)
	if len(paths) == 0 {
		return nil
	}
	sort.Strings(paths)
	f := NewFinding(r, node,
		fmt.Sprintf("%s sets %s to a literal value.", node.Address, strings.Join(paths, ", ")),
		"Pass credentials through sensitive variables or read them from a secret store such as Key Vault or Secrets Manager.",
	)
	f.Metadata = map[string]any{"attributes": paths}
	return []models.Finding{f}
}

func collectCredentials(prefix string, v models.Value, out *[]string) {
	switch v.Kind {
	case models.KindMap:
		for k, child := range v.Map {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			if child.Kind == models.KindString && child.Str != "" && isCredentialName(k) {
				*out = append(*out, path)
				continue
			}
			collectCredentials(path, child, out)
		}
	case models.KindList:
		for _, child := range v.List {
			collectCredentials(prefix, child, out)
		}
	}
}

func isCredentialName(name string) bool {
	n := strings.ToLower(name)
	for _, s := range credentialSuffixes {
		if n == s || strings.HasSuffix(n, "_"+s) {
			return true
		}
	}
	return false
}
