package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/iacguard/internal/config"
	"github.com/pankaj-dahiya-devops/iacguard/internal/engine"
	"github.com/pankaj-dahiya-devops/iacguard/internal/graph"
	"github.com/pankaj-dahiya-devops/iacguard/internal/ingest"
	"github.com/pankaj-dahiya-devops/iacguard/internal/logging"
	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
	"github.com/pankaj-dahiya-devops/iacguard/internal/output"
	"github.com/pankaj-dahiya-devops/iacguard/internal/policy"
	awsstorage "github.com/pankaj-dahiya-devops/iacguard/internal/providers/aws/storage"
	kube "github.com/pankaj-dahiya-devops/iacguard/internal/providers/kubernetes"
	"github.com/pankaj-dahiya-devops/iacguard/internal/rulepacks"
	"github.com/pankaj-dahiya-devops/iacguard/internal/source"
	"github.com/pankaj-dahiya-devops/iacguard/internal/suppression"
	"github.com/pankaj-dahiya-devops/iacguard/internal/version"
)

// defaultSuppressionFile is picked up from the scan root when no
// --suppressions flag or config value is given.
const defaultSuppressionFile = ".iacguardignore"

type scanOptions struct {
	root           string
	plans          []string
	recursive      bool
	exclude        []string
	s3URI          string
	profile        string
	region         string
	suppressions   string
	configMap      string
	kubeconfig     string
	kubeContext    string
	policyPath     string
	failOn         string
	secretsFailOn  string
	format         string
	output         string
	workers        int
	debug          bool
	noSecrets      bool
	colored        bool
	showSuppressed bool
}

const scanLong = `Scan reads Terraform plan JSON, declaration documents and raw IaC files,
evaluates every built-in rule, scans file text for secrets, applies
suppressions and prints a report.

Exit codes: 0 when both gates pass, 1 when a gate fails, 2 when the scan
could not run.`

func newScanCmd(d deps, loadConfig func() (*config.Config, error)) *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan IaC inputs for policy violations and leaked secrets",
		Long:  scanLong,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applyConfig(cmd, cfg, &opts)
			if len(args) == 1 {
				opts.root = args[0]
			}

			logger, err := logging.New(opts.debug)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			rep, err := runScan(cmd.Context(), d, opts, logger)
			if err != nil {
				return err
			}
			if err := writeReport(cmd.OutOrStdout(), rep, opts); err != nil {
				return err
			}
			if !rep.Pass {
				return errGateFailed
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&opts.plans, "plan", nil, "Terraform plan JSON or declaration file (repeatable)")
	f.BoolVarP(&opts.recursive, "recursive", "r", false, "Descend into subdirectories of path")
	f.StringSliceVar(&opts.exclude, "exclude", nil, `Glob patterns to skip, relative to path (e.g. "examples/**")`)
	f.StringVar(&opts.s3URI, "s3", "", "Also read inputs from s3://bucket/prefix")
	f.StringVar(&opts.profile, "profile", "", "AWS profile for --s3 (default: credential chain)")
	f.StringVar(&opts.region, "region", "", "AWS region for --s3")
	f.StringVar(&opts.suppressions, "suppressions", "", "Suppression file (default: .iacguardignore in path when present)")
	f.StringVar(&opts.configMap, "suppressions-configmap", "", "Read suppressions from a ConfigMap: namespace/name[:key]")
	f.StringVar(&opts.kubeconfig, "kubeconfig", "", "Kubeconfig for --suppressions-configmap")
	f.StringVar(&opts.kubeContext, "context", "", "Kubeconfig context for --suppressions-configmap")
	f.StringVar(&opts.policyPath, "policy", "", "Policy file (rule toggles, severity overrides, thresholds)")
	f.StringVar(&opts.failOn, "fail-on", "", "Misconfiguration gate threshold: CRITICAL, HIGH, MEDIUM, LOW, INFO (default HIGH)")
	f.StringVar(&opts.secretsFailOn, "secrets-fail-on", "", "Secrets gate threshold (default HIGH)")
	f.StringVar(&opts.format, "format", "table", "Output format: table, json, sarif or summary")
	f.StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of stdout")
	f.IntVar(&opts.workers, "workers", 0, "Concurrent workers (default GOMAXPROCS)")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging on stderr")
	f.BoolVar(&opts.noSecrets, "no-secrets", false, "Skip the secret scan")
	f.BoolVar(&opts.colored, "color", false, "Colour severities in table output")
	f.BoolVar(&opts.showSuppressed, "show-suppressed", false, "Include suppressed findings in table output")

	return cmd
}

// applyConfig fills every option whose flag was not set explicitly from cfg.
func applyConfig(cmd *cobra.Command, cfg *config.Config, opts *scanOptions) {
	set := func(flag string, dst *string, val string) {
		if !cmd.Flags().Changed(flag) && val != "" {
			*dst = val
		}
	}
	set("fail-on", &opts.failOn, cfg.FailOn)
	set("secrets-fail-on", &opts.secretsFailOn, cfg.SecretsFailOn)
	set("format", &opts.format, cfg.Format)
	set("policy", &opts.policyPath, cfg.Policy)
	set("suppressions", &opts.suppressions, cfg.Suppressions)
	set("profile", &opts.profile, cfg.AWS.DefaultProfile)
	set("region", &opts.region, cfg.AWS.DefaultRegion)
	set("kubeconfig", &opts.kubeconfig, cfg.Kubernetes.Kubeconfig)
	set("context", &opts.kubeContext, cfg.Kubernetes.Context)

	if !cmd.Flags().Changed("workers") && cfg.Workers > 0 {
		opts.workers = cfg.Workers
	}
	if !cmd.Flags().Changed("debug") && cfg.Debug {
		opts.debug = true
	}
}

// runScan gathers every input, runs the engine and returns the report. All
// I/O happens here, before the engine starts.
func runScan(ctx context.Context, d deps, opts scanOptions, logger *zap.Logger) (*models.ScanReport, error) {
	if !config.ValidFormat(opts.format) {
		return nil, fmt.Errorf("invalid format %q", opts.format)
	}
	misT, err := parseThreshold("fail-on", opts.failOn)
	if err != nil {
		return nil, err
	}
	secT, err := parseThreshold("secrets-fail-on", opts.secretsFailOn)
	if err != nil {
		return nil, err
	}

	registry := rulepacks.DefaultRegistry()

	var pol *policy.PolicyConfig
	if opts.policyPath != "" {
		pol, err = policy.LoadPolicy(opts.policyPath)
		if err != nil {
			return nil, err
		}
		if errs := policy.Validate(pol, registry.IDs()); len(errs) > 0 {
			return nil, fmt.Errorf("policy %s: %w", opts.policyPath, errors.Join(errs...))
		}
	}

	files, decls, err := gatherInputs(ctx, d, opts, logger)
	if err != nil {
		return nil, err
	}

	entries, err := gatherSuppressions(ctx, d, opts)
	if err != nil {
		return nil, err
	}

	eng := engine.NewDefaultEngine(registry, engine.Options{
		Workers:            opts.workers,
		MisconfigThreshold: misT,
		SecretThreshold:    secT,
		DisableSecrets:     opts.noSecrets,
		Logger:             logger,
	})
	return eng.Scan(ctx, engine.Input{
		Declarations: decls,
		Files:        files,
		Suppressions: entries,
		Policy:       pol,
	})
}

func parseThreshold(flag, v string) (models.Severity, error) {
	if v == "" {
		return "", nil
	}
	s, err := models.ParseSeverity(v)
	if err != nil {
		return "", fmt.Errorf("--%s: %w", flag, err)
	}
	return s, nil
}

// gatherInputs loads local files, explicit plan files and S3 objects.
// Discovered files are parsed only when their format is recognised, and one
// that fails to parse is logged and skipped; every --plan file must parse.
func gatherInputs(ctx context.Context, d deps, opts scanOptions, logger *zap.Logger) ([]models.SourceFile, []graph.Declaration, error) {
	root := opts.root
	if root == "" && len(opts.plans) == 0 && opts.s3URI == "" {
		root = "."
	}

	var discovered []models.SourceFile
	if root != "" {
		paths, err := source.Discover(root, source.Options{Recursive: opts.recursive, Exclude: opts.exclude})
		if err != nil {
			return nil, nil, err
		}
		files, skipped, err := source.Load(ctx, paths)
		if err != nil {
			return nil, nil, err
		}
		for path, reason := range skipped {
			logger.Warn("skipping input", zap.String("path", path), zap.Error(reason))
		}
		discovered = files
	}

	if opts.s3URI != "" {
		files, err := loadS3(ctx, d, opts, logger)
		if err != nil {
			return nil, nil, err
		}
		discovered = append(discovered, files...)
	}

	decls, unparsed := ingest.ParseDetected(discovered)
	for path, reason := range unparsed {
		logger.Warn("skipping unparseable input", zap.String("path", path), zap.Error(reason))
	}

	plans, skipped, err := source.Load(ctx, opts.plans)
	if err != nil {
		return nil, nil, err
	}
	for _, path := range opts.plans {
		if reason, ok := skipped[path]; ok {
			return nil, nil, fmt.Errorf("plan %s: %w", path, reason)
		}
	}
	planDecls, err := ingest.ParseAll(plans)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("inputs loaded",
		zap.Int("files", len(discovered)),
		zap.Int("plans", len(plans)),
		zap.Int("declarations", len(decls)+len(planDecls)),
	)
	return append(discovered, plans...), append(decls, planDecls...), nil
}

func loadS3(ctx context.Context, d deps, opts scanOptions, logger *zap.Logger) ([]models.SourceFile, error) {
	profile, err := d.aws.LoadProfile(ctx, opts.profile, opts.region)
	if err != nil {
		return nil, err
	}
	logger.Debug("aws identity resolved",
		zap.String("profile", profile.ProfileName),
		zap.String("account", profile.AccountID),
		zap.String("region", profile.Region),
	)
	src, err := awsstorage.NewS3Source(profile.Clients.S3, opts.s3URI, logger)
	if err != nil {
		return nil, err
	}
	return src.Load(ctx)
}

// gatherSuppressions reads the suppression file and the ConfigMap list.
func gatherSuppressions(ctx context.Context, d deps, opts scanOptions) ([]suppression.Entry, error) {
	var entries []suppression.Entry

	path := opts.suppressions
	if path == "" {
		path = defaultSuppressionPath(opts.root)
	}
	if path != "" {
		fromFile, err := suppression.LoadFile(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fromFile...)
	}

	if opts.configMap != "" {
		ref, err := kube.ParseConfigMapRef(opts.configMap)
		if err != nil {
			return nil, err
		}
		client, _, err := d.kube(opts.kubeconfig).ClientsetForContext(opts.kubeContext)
		if err != nil {
			return nil, err
		}
		fromCluster, err := kube.NewSuppressionSource(client, ref).Load(ctx)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fromCluster...)
	}
	return entries, nil
}

// defaultSuppressionPath returns .iacguardignore inside the scan root (or the
// working directory) when that file exists.
func defaultSuppressionPath(root string) string {
	dir := root
	if dir == "" {
		dir = "."
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	path := filepath.Join(dir, defaultSuppressionFile)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// writeReport renders rep in the requested format to stdout or opts.output.
func writeReport(stdout io.Writer, rep *models.ScanReport, opts scanOptions) error {
	w := stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create report file %q: %w", opts.output, err)
		}
		defer f.Close()
		w = f
	}

	switch opts.format {
	case "json":
		return output.RenderJSON(w, rep)
	case "sarif":
		return output.RenderSARIF(w, rep, version.Version)
	case "summary":
		output.RenderSummary(w, rep)
	default:
		output.RenderTable(w, rep, output.TableOptions{
			Colored:           opts.colored,
			IncludeSuppressed: opts.showSuppressed,
			IncludeLocation:   true,
		})
	}
	return nil
}
