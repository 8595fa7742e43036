package rules

import (
	"fmt"
)

// DefaultRuleRegistry is a simple, ordered, in-memory registry.
// Register panics on duplicate rule IDs to catch wiring mistakes at startup.
type DefaultRuleRegistry struct {
	rules []Rule
	index map[string]Rule
}

// NewDefaultRuleRegistry returns an empty registry ready for rule registration.
func NewDefaultRuleRegistry() *DefaultRuleRegistry {
	return &DefaultRuleRegistry{
		index: make(map[string]Rule),
	}
}

// Register adds rule to the registry. Panics if the same ID is registered twice.
func (r *DefaultRuleRegistry) Register(rule Rule) {
	if _, exists := r.index[rule.ID()]; exists {
		panic(fmt.Sprintf("duplicate rule ID: %q", rule.ID()))
	}
	r.rules = append(r.rules, rule)
	r.index[rule.ID()] = rule
}

// RegisterAll registers every rule in order.
func (r *DefaultRuleRegistry) RegisterAll(rules ...Rule) {
	for _, rule := range rules {
		r.Register(rule)
	}
}

// All returns all registered rules in registration order.
func (r *DefaultRuleRegistry) All() []Rule {
	return r.rules
}

// Get returns the rule registered under id.
func (r *DefaultRuleRegistry) Get(id string) (Rule, bool) {
	rule, ok := r.index[id]
	return rule, ok
}

// IDs returns every registered rule ID in registration order.
func (r *DefaultRuleRegistry) IDs() []string {
	ids := make([]string, len(r.rules))
	for i, rule := range r.rules {
		ids[i] = rule.ID()
	}
	return ids
}
