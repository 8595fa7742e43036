package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/iacguard/internal/graph"
	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
	"github.com/pankaj-dahiya-devops/iacguard/internal/policy"
	"github.com/pankaj-dahiya-devops/iacguard/internal/report"
	"github.com/pankaj-dahiya-devops/iacguard/internal/rules"
	"github.com/pankaj-dahiya-devops/iacguard/internal/secrets"
	"github.com/pankaj-dahiya-devops/iacguard/internal/suppression"
)

// policySource names suppression entries that come from the policy file.
const policySource = "policy"

// DefaultEngine is the production implementation of Engine.
// It coordinates graph building, rule evaluation, secret scanning,
// suppression and gating. It never reads files or calls remote services.
type DefaultEngine struct {
	registry  rules.RuleRegistry
	evaluator *rules.Evaluator
	opts      Options
	logger    *zap.Logger
}

// NewDefaultEngine constructs a DefaultEngine over registry.
func NewDefaultEngine(registry rules.RuleRegistry, opts Options) *DefaultEngine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultEngine{
		registry:  registry,
		evaluator: rules.NewEvaluator(opts.Workers, logger),
		opts:      opts,
		logger:    logger,
	}
}

// Scan implements Engine.
//
// The steps run in a fixed order: build the graph, evaluate rules, apply the
// policy, scan raw text for secrets, resolve suppressions, aggregate, gate.
// Cancellation is checked between steps and inside the two concurrent
// steps; a cancelled scan returns ctx.Err() and no report.
func (e *DefaultEngine) Scan(ctx context.Context, in Input) (*models.ScanReport, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	g, err := graph.Build(in.Declarations)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("graph built",
		zap.Int("resources", g.Len()),
		zap.Int("edges", len(g.Edges())),
		zap.Int("warnings", len(g.Warnings())),
	)

	raw, err := e.evaluator.Evaluate(ctx, g, e.registry, in.Policy)
	if err != nil {
		return nil, err
	}
	raw = append(raw, warningFindings(g.Warnings())...)
	raw = policy.ApplyPolicy(raw, in.Policy)

	var matches []models.SecretMatch
	if !e.opts.DisableSecrets && len(in.Files) > 0 {
		matches, err = e.scanSecrets(ctx, in)
		if err != nil {
			return nil, err
		}
		raw = append(raw, report.SecretFindings(matches)...)
	}

	entries, err := e.suppressions(in)
	if err != nil {
		return nil, err
	}
	resolved := suppression.Resolve(raw, entries, now)
	all := append(resolved.Findings, resolved.Stale...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	findings := report.Aggregate(all)
	misT, secT := e.thresholds(in.Policy)
	gates := report.Gates(findings, misT, secT)

	summary := report.Summarize(findings)
	summary.Resources = g.Len()
	summary.Edges = len(g.Edges())
	summary.FilesScanned = len(in.Files)

	rep := &models.ScanReport{
		ReportID:    uuid.NewString(),
		GeneratedAt: now,
		Summary:     summary,
		Findings:    findings,
		Secrets:     matches,
		Gates:       gates,
		Pass:        gates.Misconfiguration.Pass && gates.Secrets.Pass,
		Metadata: map[string]any{
			"rules": len(e.registry.All()),
		},
	}

	e.logger.Info("scan complete",
		zap.String("report_id", rep.ReportID),
		zap.Int("findings", summary.TotalFindings),
		zap.Int("suppressed", summary.Suppressed),
		zap.Bool("pass", rep.Pass),
	)
	return rep, nil
}

func (e *DefaultEngine) scanSecrets(ctx context.Context, in Input) ([]models.SecretMatch, error) {
	opts := secrets.Options{Workers: e.opts.Workers}
	if in.Policy != nil {
		opts.EntropyThreshold = in.Policy.Secrets.EntropyThreshold
		opts.MinLength = in.Policy.Secrets.MinLength
		opts.Placeholders = in.Policy.Secrets.Placeholders
	}
	matches, err := secrets.NewScanner(opts).ScanFiles(ctx, in.Files)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("secret scan finished",
		zap.Int("files", len(in.Files)),
		zap.Int("matches", len(matches)),
	)
	return matches, nil
}

// suppressions joins the caller's entries with the policy's global ones.
func (e *DefaultEngine) suppressions(in Input) ([]suppression.Entry, error) {
	entries := append([]suppression.Entry(nil), in.Suppressions...)
	if in.Policy == nil || len(in.Policy.Suppressions) == 0 {
		return entries, nil
	}
	fromPolicy, err := suppression.ParseLines(in.Policy.Suppressions, policySource)
	if err != nil {
		return nil, fmt.Errorf("policy suppressions: %w", err)
	}
	return append(entries, fromPolicy...), nil
}

func (e *DefaultEngine) thresholds(cfg *policy.PolicyConfig) (models.Severity, models.Severity) {
	misT, secT := policy.Thresholds(cfg, DefaultThreshold, DefaultThreshold)
	if e.opts.MisconfigThreshold != "" {
		misT = e.opts.MisconfigThreshold
	}
	if e.opts.SecretThreshold != "" {
		secT = e.opts.SecretThreshold
	}
	return misT, secT
}

// warningFindings folds graph build warnings into the finding set. Dangling
// references are grouped per source node so that none is lost to dedup.
func warningFindings(warnings []graph.Warning) []models.Finding {
	var out []models.Finding
	dangling := map[string][]graph.Warning{}
	var order []string

	for _, w := range warnings {
		switch w.Kind {
		case graph.WarningDanglingReference:
			if _, seen := dangling[w.From]; !seen {
				order = append(order, w.From)
			}
			dangling[w.From] = append(dangling[w.From], w)
		case graph.WarningDuplicateAddress:
			out = append(out, models.Finding{
				RuleID:         models.RuleDuplicateAddress,
				Title:          "Duplicate resource address",
				Severity:       models.SeverityLow,
				Category:       models.CategoryGraph,
				Address:        w.From,
				Message:        w.String(),
				Recommendation: "Rename one of the declarations so every address is unique.",
				Location:       w.Location,
			})
		case graph.WarningInvalidDeclaration:
			out = append(out, models.Finding{
				RuleID:   models.RuleInvalidResource,
				Title:    "Invalid resource declaration",
				Severity: models.SeverityInfo,
				Category: models.CategoryGraph,
				Address:  invalidAddress(w),
				Message:  w.String(),
				Location: w.Location,
			})
		}
	}

	for _, from := range order {
		ws := dangling[from]
		targets := make([]string, 0, len(ws))
		for _, w := range ws {
			targets = append(targets, w.To)
		}
		sort.Strings(targets)
		msg := ws[0].String()
		if len(ws) > 1 {
			msg = fmt.Sprintf("%s references undeclared addresses: %s", from, strings.Join(targets, ", "))
		}
		out = append(out, models.Finding{
			RuleID:         models.RuleDanglingReference,
			Title:          "Dangling reference",
			Severity:       models.SeverityLow,
			Category:       models.CategoryGraph,
			Address:        from,
			Message:        msg,
			Recommendation: "Declare the referenced resource or remove the reference.",
			Location:       ws[0].Location,
			Metadata: map[string]any{
				"targets": targets,
			},
		})
	}
	return out
}

func invalidAddress(w graph.Warning) string {
	if w.Location.File != "" {
		return fmt.Sprintf("%s:%d", w.Location.File, w.Location.StartLine)
	}
	return w.From
}
