package rules

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/iacguard/internal/graph"
	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
	"github.com/pankaj-dahiya-devops/iacguard/internal/policy"
)

// Evaluator runs a rule set against every applicable node of a graph.
//
// Work is split per node and fanned out across at most Workers goroutines.
// Each node writes into its own result slot, so no locking is needed; slots
// are concatenated in node order once all workers finish.
type Evaluator struct {
	workers int
	logger  *zap.Logger
}

// NewEvaluator returns an Evaluator bounded to workers goroutines. A value
// <= 0 uses runtime.NumCPU(). A nil logger discards output.
func NewEvaluator(workers int, logger *zap.Logger) *Evaluator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{workers: workers, logger: logger}
}

type workUnit struct {
	node  *models.ResourceNode
	rules []Rule
}

// Evaluate returns the raw findings of every rule in reg over g. A rule that
// panics or returns an error on a node yields an INFO ENGINE_ERROR finding
// for that node and does not affect any other evaluation.
//
// Cancellation is checked before every node. On cancellation Evaluate
// returns ctx.Err() and no findings.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	g *graph.Graph,
	reg RuleRegistry,
	policyCfg *policy.PolicyConfig,
) ([]models.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	units := planWork(g, reg.All())
	if len(units) == 0 {
		return nil, nil
	}

	rctx := RuleContext{Graph: g, Policy: policyCfg}
	results := make([][]models.Finding, len(units))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers)

UNITS:
	for i := range units {
		if gctx.Err() != nil {
			break UNITS
		}
		i := i
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.evaluateNode(rctx, units[i])
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []models.Finding
	for _, r := range results {
		findings = append(findings, r...)
	}
	return findings, nil
}

// planWork indexes rules by resource type once, so each rule only ever sees
// the nodes its filter selects.
func planWork(g *graph.Graph, rules []Rule) []workUnit {
	byType := make(map[string][]Rule)
	var wildcard []Rule
	for _, r := range rules {
		types := r.ResourceTypes()
		if len(types) == 0 {
			wildcard = append(wildcard, r)
			continue
		}
		for _, t := range types {
			byType[t] = append(byType[t], r)
		}
	}

	var units []workUnit
	for _, n := range g.Nodes() {
		typed := byType[n.Address.Type]
		if len(typed) == 0 && len(wildcard) == 0 {
			continue
		}
		applicable := make([]Rule, 0, len(typed)+len(wildcard))
		applicable = append(applicable, typed...)
		applicable = append(applicable, wildcard...)
		units = append(units, workUnit{node: n, rules: applicable})
	}
	return units
}

func (e *Evaluator) evaluateNode(rctx RuleContext, u workUnit) []models.Finding {
	var out []models.Finding
	for _, r := range u.rules {
		found, err := runRule(rctx, r, u.node)
		if err != nil {
			e.logger.Debug("rule evaluation failed",
				zap.String("rule", r.ID()),
				zap.String("address", u.node.Address.String()),
				zap.Error(err),
			)
			out = append(out, engineErrorFinding(r, u.node, err))
			continue
		}
		out = append(out, found...)
	}
	return out
}

// runRule applies the rule's node filter and calls the rule, converting
// panics from either into errors. Partial findings of a failed evaluation are
// discarded.
func runRule(rctx RuleContext, r Rule, node *models.ResourceNode) (findings []models.Finding, err error) {
	defer func() {
		if p := recover(); p != nil {
			findings = nil
			if pe, ok := p.(error); ok {
				err = fmt.Errorf("panic: %w", pe)
				return
			}
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	if m, ok := r.(Matcher); ok && !m.Match(node) {
		return nil, nil
	}
	if fr, ok := r.(FallibleRule); ok {
		return fr.EvaluateE(rctx, node)
	}
	return r.Evaluate(rctx, node), nil
}

// engineErrorFinding reports a failed rule. The address carries the rule ID so
// that failures of different rules on one node stay distinct after dedup.
func engineErrorFinding(r Rule, node *models.ResourceNode, err error) models.Finding {
	return models.Finding{
		RuleID:       models.RuleEngineError,
		Title:        "Rule evaluation failed",
		Severity:     models.SeverityInfo,
		Category:     models.CategoryEngine,
		Address:      node.Address.String() + "#" + r.ID(),
		ResourceType: node.Address.Type,
		Message:      fmt.Sprintf("rule %s could not be evaluated on %s: %v", r.ID(), node.Address.String(), err),
		Location:     node.Location,
		Metadata: map[string]any{
			"rule": r.ID(),
		},
	}
}
