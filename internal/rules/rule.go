package rules

import (
	"github.com/pankaj-dahiya-devops/iacguard/internal/graph"
	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
	"github.com/pankaj-dahiya-devops/iacguard/internal/policy"
)

// RuleContext carries everything a rule may consult besides the node under
// evaluation. It is shared read-only by every concurrent evaluation.
type RuleContext struct {
	// Graph is the immutable resource graph of the scan. Rules use it to look
	// at neighbouring nodes (e.g. the security group an instance references).
	Graph *graph.Graph

	// Policy holds the active PolicyConfig for parameter overrides. May be nil
	// when no policy file is loaded; rules must treat nil as "use defaults".
	Policy *policy.PolicyConfig
}

// Rule is a single deterministic policy check over one resource node.
// Rules must be stateless and safe to call concurrently. They must never
// perform I/O; everything they need is in the node and the RuleContext.
type Rule interface {
	// ID returns the unique, stable identifier for this rule (e.g. "AZ_STORAGE_PUBLIC_BLOB").
	ID() string

	// Title returns a short human-readable rule name.
	Title() string

	// Severity is the default severity of findings produced by this rule.
	Severity() models.Severity

	// ResourceTypes is the applicability filter. The evaluator only hands the
	// rule nodes of these types. An empty slice applies the rule to every node.
	ResourceTypes() []string

	// Evaluate inspects node and returns zero or more findings.
	Evaluate(ctx RuleContext, node *models.ResourceNode) []models.Finding
}

// Matcher is implemented by rules with an attribute predicate in addition to
// the type filter. Nodes for which Match returns false are skipped without
// calling Evaluate.
type Matcher interface {
	Match(node *models.ResourceNode) bool
}

// FallibleRule is implemented by rules that can report an evaluation error
// instead of panicking. When present, EvaluateE is called instead of Evaluate.
type FallibleRule interface {
	EvaluateE(ctx RuleContext, node *models.ResourceNode) ([]models.Finding, error)
}

// RuleRegistry manages the set of active rules.
type RuleRegistry interface {
	// Register adds a rule to the registry. Panics on duplicate ID.
	Register(rule Rule)

	// All returns all registered rules in registration order.
	All() []Rule

	// Get returns the rule with the given ID.
	Get(id string) (Rule, bool)

	// IDs returns every registered rule ID in registration order.
	IDs() []string
}

// Definition is a table-driven Rule assembled from plain values and
// functions. It is the quickest way to add a rule without a dedicated type.
type Definition struct {
	RuleID    string
	RuleTitle string
	Level     models.Severity
	Types     []string
	Predicate func(node *models.ResourceNode) bool
	Check     func(ctx RuleContext, node *models.ResourceNode) ([]models.Finding, error)
}

func (d Definition) ID() string                { return d.RuleID }
func (d Definition) Title() string             { return d.RuleTitle }
func (d Definition) Severity() models.Severity { return d.Level }
func (d Definition) ResourceTypes() []string   { return d.Types }

// Match implements Matcher. A nil Predicate matches every node.
func (d Definition) Match(node *models.ResourceNode) bool {
	return d.Predicate == nil || d.Predicate(node)
}

// EvaluateE implements FallibleRule.
func (d Definition) EvaluateE(ctx RuleContext, node *models.ResourceNode) ([]models.Finding, error) {
	if d.Check == nil {
		return []models.Finding{NewFinding(d, node, d.RuleTitle, "")}, nil
	}
	return d.Check(ctx, node)
}

// Evaluate implements Rule. Errors from Check are raised as panics so that
// callers that bypass EvaluateE still go through the evaluator's recovery.
func (d Definition) Evaluate(ctx RuleContext, node *models.ResourceNode) []models.Finding {
	findings, err := d.EvaluateE(ctx, node)
	if err != nil {
		panic(err)
	}
	return findings
}

// NewFinding builds a misconfiguration finding for rule at node, filling the
// identity and location fields every rule would otherwise repeat.
func NewFinding(rule Rule, node *models.ResourceNode, message, recommendation string) models.Finding {
	return models.Finding{
		RuleID:         rule.ID(),
		Title:          rule.Title(),
		Severity:       rule.Severity(),
		Category:       models.CategoryMisconfiguration,
		Address:        node.Address.String(),
		ResourceType:   node.Address.Type,
		Message:        message,
		Recommendation: recommendation,
		Location:       node.Location,
	}
}
