// Package rulepacks assembles the built-in rule packs into a registry.
package rulepacks

import (
	"github.com/pankaj-dahiya-devops/iacguard/internal/rulepacks/aws"
	"github.com/pankaj-dahiya-devops/iacguard/internal/rulepacks/azure"
	"github.com/pankaj-dahiya-devops/iacguard/internal/rulepacks/core"
	"github.com/pankaj-dahiya-devops/iacguard/internal/rules"
)

// DefaultRegistry returns a registry holding every built-in rule. It panics
// if two packs register the same rule ID.
func DefaultRegistry() *rules.DefaultRuleRegistry {
	reg := rules.NewDefaultRuleRegistry()
	reg.RegisterAll(azure.New()...)
	reg.RegisterAll(aws.New()...)
	reg.RegisterAll(core.New()...)
	return reg
}
