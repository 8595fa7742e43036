// Package core provides the provider-neutral rule pack. Its rules use the
// resource graph or apply to every resource type.
package core

import "github.com/pankaj-dahiya-devops/iacguard/internal/rules"

// New returns the core rule pack.
func New() []rules.Rule {
	return []rules.Rule{
		rules.NetReferencesOpenGroupRule{}, // HIGH: attached firewall is open to the internet
		rules.HardcodedCredentialRule{},    // HIGH: literal credential in an attribute
	}
}
