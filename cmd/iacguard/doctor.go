package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/iacguard/internal/config"
	"github.com/pankaj-dahiya-devops/iacguard/internal/policy"
	awsstorage "github.com/pankaj-dahiya-devops/iacguard/internal/providers/aws/storage"
	kube "github.com/pankaj-dahiya-devops/iacguard/internal/providers/kubernetes"
	"github.com/pankaj-dahiya-devops/iacguard/internal/rulepacks"
	"github.com/pankaj-dahiya-devops/iacguard/internal/suppression"
)

// defaultPolicyFile is checked by doctor when no policy path is configured.
const defaultPolicyFile = "iacguard.yaml"

// nowFunc is the clock used to count expired suppressions.
var nowFunc = time.Now

// DoctorResult is the structured output of iacguard doctor. It can be
// serialised to JSON via --format=json or rendered as a human-readable table
// (default).
type DoctorResult struct {
	Config struct {
		Path  string `json:"path,omitempty"`
		Valid bool   `json:"valid"`
		Error string `json:"error,omitempty"`
	} `json:"config"`

	Policy struct {
		Path    string   `json:"path"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"policy"`

	Suppressions struct {
		Path    string `json:"path"`
		Present bool   `json:"present"`
		Entries int    `json:"entries"`
		Expired int    `json:"expired"`
		Error   string `json:"error,omitempty"`
	} `json:"suppressions"`

	AWS struct {
		Checked     bool   `json:"checked"`
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		S3URI       string `json:"s3_uri,omitempty"`
		S3Objects   int    `json:"s3_objects,omitempty"`
		S3OK        bool   `json:"s3_ok"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	Kubernetes struct {
		Checked       bool   `json:"checked"`
		KubeconfigOK  bool   `json:"kubeconfig_ok"`
		Context       string `json:"context,omitempty"`
		APIReachable  bool   `json:"api_reachable"`
		ServerVersion string `json:"server_version,omitempty"`
		Error         string `json:"error,omitempty"`
	} `json:"kubernetes"`

	OverallHealthy bool `json:"overall_healthy"`
}

type doctorOptions struct {
	format       string
	policyPath   string
	suppressions string
	checkAWS     bool
	profile      string
	region       string
	s3URI        string
	checkKube    bool
	kubeconfig   string
	kubeContext  string
}

func newDoctorCmd(d deps, loadConfig func() (*config.Config, error)) *cobra.Command {
	var opts doctorOptions

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run environment diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfgErr error
			cfg, err := loadConfig()
			if err != nil {
				cfgErr = err
				cfg = &config.Config{}
			}
			if !cmd.Flags().Changed("policy") && cfg.Policy != "" {
				opts.policyPath = cfg.Policy
			}
			if !cmd.Flags().Changed("suppressions") && cfg.Suppressions != "" {
				opts.suppressions = cfg.Suppressions
			}
			if !cmd.Flags().Changed("profile") {
				opts.profile = cfg.AWS.DefaultProfile
			}
			if !cmd.Flags().Changed("kubeconfig") {
				opts.kubeconfig = cfg.Kubernetes.Kubeconfig
			}
			if !cmd.Flags().Changed("context") {
				opts.kubeContext = cfg.Kubernetes.Context
			}

			result, err := runDoctor(cmd.Context(), d, cmd.OutOrStdout(), opts, cfgErr)
			if err != nil {
				return err
			}
			if !result.OverallHealthy {
				return errGateFailed
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "table", `Output format: "table" or "json"`)
	f.StringVar(&opts.policyPath, "policy", defaultPolicyFile, "Policy file to validate")
	f.StringVar(&opts.suppressions, "suppressions", defaultSuppressionFile, "Suppression file to parse")
	f.BoolVar(&opts.checkAWS, "aws", false, "Check AWS credentials (and --s3 access)")
	f.StringVar(&opts.profile, "profile", "", "AWS profile to use (default: credential chain)")
	f.StringVar(&opts.region, "region", "", "AWS region")
	f.StringVar(&opts.s3URI, "s3", "", "S3 input location to probe")
	f.BoolVar(&opts.checkKube, "kubernetes", false, "Check kubeconfig and API reachability")
	f.StringVar(&opts.kubeconfig, "kubeconfig", "", "Kubeconfig path")
	f.StringVar(&opts.kubeContext, "context", "", "Kubeconfig context")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures (e.g. JSON encode error).
// Callers must inspect result.OverallHealthy to determine whether the
// environment is healthy.
func runDoctor(ctx context.Context, d deps, w io.Writer, opts doctorOptions, cfgErr error) (DoctorResult, error) {
	result := collectDoctorResult(ctx, d, opts, cfgErr)

	switch opts.format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a DoctorResult.
// It performs no rendering; callers decide how to present the result.
func collectDoctorResult(ctx context.Context, d deps, opts doctorOptions, cfgErr error) DoctorResult {
	var result DoctorResult

	result.Config.Path = config.DefaultPath()
	if cfgErr != nil {
		result.Config.Error = cfgErr.Error()
	} else {
		result.Config.Valid = true
	}

	// Policy: stat → load → validate (file is optional).
	result.Policy.Path = opts.policyPath
	if _, statErr := os.Stat(opts.policyPath); statErr == nil {
		result.Policy.Present = true
		cfg, loadErr := policy.LoadPolicy(opts.policyPath)
		if loadErr != nil {
			result.Policy.Errors = []string{loadErr.Error()}
		} else {
			errs := policy.Validate(cfg, rulepacks.DefaultRegistry().IDs())
			if len(errs) == 0 {
				result.Policy.Valid = true
			}
			for _, e := range errs {
				result.Policy.Errors = append(result.Policy.Errors, e.Error())
			}
		}
	} else if !os.IsNotExist(statErr) {
		// Stat error other than "not found": present but unreadable.
		result.Policy.Present = true
		result.Policy.Errors = []string{statErr.Error()}
	}

	// Suppressions: parse and count expired entries (file is optional).
	result.Suppressions.Path = opts.suppressions
	if _, statErr := os.Stat(opts.suppressions); statErr == nil {
		result.Suppressions.Present = true
		entries, err := suppression.LoadFile(opts.suppressions)
		if err != nil {
			result.Suppressions.Error = err.Error()
		} else {
			result.Suppressions.Entries = len(entries)
			now := nowFunc()
			for _, e := range entries {
				if e.Expired(now) {
					result.Suppressions.Expired++
				}
			}
		}
	}

	// AWS: credentials → STS identity → optional S3 listing.
	if opts.checkAWS {
		result.AWS.Checked = true
		result.AWS.Profile = opts.profile
		result.AWS.S3URI = opts.s3URI
		profileCfg, err := d.aws.LoadProfile(ctx, opts.profile, opts.region)
		if err != nil {
			result.AWS.Error = err.Error()
		} else {
			result.AWS.Credentials = true
			result.AWS.AccountID = profileCfg.AccountID
			result.AWS.S3OK = true
			if opts.s3URI != "" {
				result.AWS.S3OK = false
				src, err := awsstorage.NewS3Source(profileCfg.Clients.S3, opts.s3URI, zap.NewNop())
				if err == nil {
					var keys []string
					keys, err = src.List(ctx)
					result.AWS.S3Objects = len(keys)
				}
				if err != nil {
					result.AWS.Error = err.Error()
				} else {
					result.AWS.S3OK = true
				}
			}
		}
	}

	// Kubernetes: kubeconfig load → context → API reachability probe.
	if opts.checkKube {
		result.Kubernetes.Checked = true
		clientset, info, err := d.kube(opts.kubeconfig).ClientsetForContext(opts.kubeContext)
		if err != nil {
			result.Kubernetes.Error = err.Error()
		} else {
			result.Kubernetes.KubeconfigOK = true
			result.Kubernetes.Context = info.ContextName
			v, err := kube.ServerVersion(clientset)
			if err != nil {
				result.Kubernetes.Error = err.Error()
			} else {
				result.Kubernetes.APIReachable = true
				result.Kubernetes.ServerVersion = v
			}
		}
	}

	result.OverallHealthy = result.Config.Valid &&
		(!result.Policy.Present || result.Policy.Valid) &&
		result.Suppressions.Error == "" &&
		(!result.AWS.Checked || (result.AWS.Credentials && result.AWS.S3OK)) &&
		(!result.Kubernetes.Checked || result.Kubernetes.APIReachable)

	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintln(w, "\nConfig:")
	if result.Config.Valid {
		doctorPrint(w, "Config file", "OK", result.Config.Path)
	} else {
		doctorPrint(w, "Config file", "FAIL", result.Config.Error)
	}

	fmt.Fprintln(w, "\nPolicy:")
	if !result.Policy.Present {
		doctorPrint(w, result.Policy.Path+" present", "Not found (optional)", "")
	} else {
		doctorPrint(w, result.Policy.Path+" present", "YES", "")
		if result.Policy.Valid {
			doctorPrint(w, "Policy valid", "OK", "")
		} else {
			for _, e := range result.Policy.Errors {
				doctorPrint(w, "Policy valid", "FAIL", e)
			}
		}
	}

	fmt.Fprintln(w, "\nSuppressions:")
	switch {
	case !result.Suppressions.Present:
		doctorPrint(w, result.Suppressions.Path+" present", "Not found (optional)", "")
	case result.Suppressions.Error != "":
		doctorPrint(w, "Suppressions parse", "FAIL", result.Suppressions.Error)
	default:
		doctorPrint(w, "Suppressions parse", "OK", fmt.Sprintf("%d entries", result.Suppressions.Entries))
		if result.Suppressions.Expired > 0 {
			doctorPrint(w, "Expired entries", "WARN", fmt.Sprintf("%d expired", result.Suppressions.Expired))
		}
	}

	fmt.Fprintln(w, "\nAWS:")
	switch {
	case !result.AWS.Checked:
		doctorPrint(w, "Credentials", "SKIPPED", "use --aws")
	case !result.AWS.Credentials:
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
	default:
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		if result.AWS.S3URI != "" {
			if result.AWS.S3OK {
				doctorPrint(w, "S3 Access", "OK", fmt.Sprintf("%d objects", result.AWS.S3Objects))
			} else {
				doctorPrint(w, "S3 Access", "FAIL", result.AWS.Error)
			}
		}
	}

	fmt.Fprintln(w, "\nKubernetes:")
	switch {
	case !result.Kubernetes.Checked:
		doctorPrint(w, "Kubeconfig", "SKIPPED", "use --kubernetes")
	case !result.Kubernetes.KubeconfigOK:
		doctorPrint(w, "Kubeconfig", "FAIL", result.Kubernetes.Error)
		doctorPrint(w, "Current Context", "FAIL", "skipped")
		doctorPrint(w, "API Reachable", "FAIL", "skipped")
	default:
		doctorPrint(w, "Kubeconfig", "OK", "")
		doctorPrint(w, "Current Context", "OK", result.Kubernetes.Context)
		if result.Kubernetes.APIReachable {
			doctorPrint(w, "API Reachable", "OK", result.Kubernetes.ServerVersion)
		} else {
			doctorPrint(w, "API Reachable", "FAIL", result.Kubernetes.Error)
		}
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
